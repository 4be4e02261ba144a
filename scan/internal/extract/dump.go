package extract

import (
	"strconv"
	"strings"

	"github.com/gridsight/gridsight/scan/internal/snapshot"
)

// Record is one row of a dumped structure: a 1-based row number plus the
// column-name to cell-text mapping for that row.
type Record struct {
	Row  int               `json:"row"`
	Data map[string]string `json:"data"`
}

// TableDump captures every row of each classic table, full cell text
// included. Header resolution mirrors the emptiness scan so the same
// column names appear in both outputs.
func TableDump(tables []*snapshot.Element) map[string][]Record {
	out := make(map[string][]Record)
	for i, table := range tables {
		structureID := tableID(table, i+1)

		rows := table.Find("tr")
		if len(rows) == 0 {
			continue
		}
		headers, headerRowUsed := tableHeaders(table, rows)

		var records []Record
		rowNum := 0
		for rowIdx, row := range rows {
			if headerRowUsed && rowIdx == 0 {
				continue
			}
			cells := row.Find("td")
			if len(cells) == 0 {
				continue
			}
			rowNum++
			records = append(records, Record{Row: rowNum, Data: rowData(cells, headers)})
		}
		if len(records) > 0 {
			out[structureID] = records
		}
	}
	return out
}

// GridDump captures every row of each grid-framework container keyed by
// resolved headers, with the same positional fallbacks as the emptiness
// scan.
func GridDump(containers []*snapshot.Element, label string) map[string][]Record {
	out := make(map[string][]Record)
	for i, container := range containers {
		structureID := gridID(container, label, i+1)
		headers := resolveHeaders(container)

		var records []Record
		for rowIdx, row := range container.Find(gridRowPattern) {
			cells := row.Find(gridCellPattern)
			if len(cells) == 0 {
				continue
			}
			records = append(records, Record{Row: rowIdx + 1, Data: rowData(cells, headers)})
		}
		if len(records) > 0 {
			out[structureID] = records
		}
	}
	return out
}

// rowData maps cells to column names. Positions past the resolved headers
// fall back to a positional "Column N" name so no cell text is dropped.
func rowData(cells []*snapshot.Element, headers []string) map[string]string {
	data := make(map[string]string, len(cells))
	for i, cell := range cells {
		name := ""
		if i < len(headers) {
			name = strings.TrimSpace(headers[i])
		}
		if name == "" {
			name = "Column " + strconv.Itoa(i+1)
		}
		data[name] = strings.TrimSpace(cell.Text())
	}
	return data
}
