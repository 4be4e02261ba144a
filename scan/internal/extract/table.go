// Package extract implements the per-structure emptiness scanners: one for
// classic markup tables, one for the grid-framework pseudo-tables. Both
// operate on Snapshot elements only, never on a live browser, and both
// recover locally from malformed elements: a broken row or cell is skipped,
// never allowed to abort the rest of the structure.
package extract

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/gridsight/gridsight/finding"
	"github.com/gridsight/gridsight/scan/internal/snapshot"
)

// rowHintMax caps the first-cell context hint carried on a Finding.
const rowHintMax = 60

// Tables scans classic markup tables and emits one Finding per cell whose
// visible text is empty after trimming.
func Tables(tables []*snapshot.Element, logger *slog.Logger) []finding.Finding {
	var out []finding.Finding
	for i, table := range tables {
		out = append(out, scanTable(table, i+1, logger)...)
	}
	return out
}

func scanTable(table *snapshot.Element, position int, logger *slog.Logger) []finding.Finding {
	structureID := tableID(table, position)

	rows := table.Find("tr")
	if len(rows) == 0 {
		logger.Debug("extract: table has no rows", "structure", structureID)
		return nil
	}

	headers, headerRowUsed := tableHeaders(table, rows)

	var out []finding.Finding
	for rowIdx, row := range rows {
		if headerRowUsed && rowIdx == 0 {
			// First data row doubles as the header row; it is not
			// scanned for emptiness.
			continue
		}

		cells := row.Find("td")
		if len(cells) == 0 {
			continue
		}

		hint := rowHint(cells[0])

		for colIdx, cell := range cells {
			if strings.TrimSpace(cell.Text()) != "" {
				continue
			}
			out = append(out, finding.Finding{
				Kind:        finding.TableCell,
				StructureID: structureID,
				Row:         fmt.Sprintf("%d", rowIdx+1),
				ColIndex:    colIdx + 1,
				ColHeader:   headerForColumn(table, rows, headers, colIdx),
				RowHint:     hint,
			})
		}
	}
	return out
}

// tableID prefers an explicit identifier attribute, falling back to a
// 1-based positional label.
func tableID(table *snapshot.Element, position int) string {
	if id, ok := table.Attr("id"); ok && strings.TrimSpace(id) != "" {
		return id
	}
	return fmt.Sprintf("Table %d", position)
}

// tableHeaders resolves the header texts once per table: explicit <th>
// cells if any exist, else the first data row. The second return reports
// whether the first row was consumed as the header row.
func tableHeaders(table *snapshot.Element, rows []*snapshot.Element) ([]string, bool) {
	ths := table.Find("th")
	if len(ths) > 0 {
		headers := make([]string, len(ths))
		for i, th := range ths {
			headers[i] = strings.TrimSpace(th.Text())
		}
		return headers, false
	}

	firstCells := rows[0].Find("td")
	if len(firstCells) == 0 {
		return nil, false
	}
	headers := make([]string, len(firstCells))
	for i, td := range firstCells {
		headers[i] = strings.TrimSpace(td.Text())
	}
	return headers, true
}

// headerForColumn returns the header text for a 0-based column index.
// The once-per-table resolution is tried first; on a miss (irregular row
// wider than the header row) it falls back to a per-cell lookup: aligned
// <th> elements, then first-row <td> text. Failures here are non-fatal;
// the caller degrades to a positional label.
func headerForColumn(table *snapshot.Element, rows []*snapshot.Element, headers []string, colIdx int) string {
	if colIdx < len(headers) && headers[colIdx] != "" {
		return headers[colIdx]
	}

	ths := table.Find("th")
	if colIdx < len(ths) {
		if text := strings.TrimSpace(ths[colIdx].Text()); text != "" {
			return text
		}
	}

	if len(rows) > 0 {
		tds := rows[0].Find("td")
		if colIdx < len(tds) {
			if text := strings.TrimSpace(tds[colIdx].Text()); text != "" {
				return text
			}
		}
	}

	return ""
}

// rowHint pulls the row's first-cell text for human context. Long values
// are truncated; the hint never participates in identity.
func rowHint(first *snapshot.Element) string {
	text := strings.TrimSpace(first.Text())
	if text == "" {
		return ""
	}
	runes := []rune(text)
	if len(runes) > rowHintMax {
		return string(runes[:rowHintMax])
	}
	return text
}
