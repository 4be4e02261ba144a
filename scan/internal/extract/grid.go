package extract

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/gridsight/gridsight/finding"
	"github.com/gridsight/gridsight/scan/internal/snapshot"
)

// Grid-framework structural patterns. The framework renders pseudo-tables
// out of styled containers; none of these are native table elements.
const (
	gridCellPattern      = "div.x-grid-cell"
	gridCellInnerPattern = "div.x-grid-cell-inner"
	gridRowPattern       = "div.x-grid-item"
	headerContainerPat   = "div.x-column-header"
	headerTextSpanPat    = "span.x-column-header-text"

	recordIndexAttr = "data-recordindex"
	columnIDAttr    = "data-columnid"
)

// headerTechnique is one step of the header resolution cascade: it either
// yields the grid's header texts or reports a miss.
type headerTechnique func(*snapshot.Element) ([]string, bool)

// headerCascade is applied in order; the first technique yielding any
// header text wins. Keeping the steps as independent functions keeps each
// one testable and the cascade declarative.
var headerCascade = []headerTechnique{
	headersFromContainers,
	headersFromTextSpans,
	headersFromFirstRow,
}

// Grids scans grid-framework containers matched by one structural pattern
// and emits one Finding per empty cell, or per empty inner-content
// container when the grid exposes no cell-level elements at all.
//
// label is the pattern-derived fallback used to name containers that carry
// no identifier attribute (e.g. "x-grid" yielding "x-grid 2").
func Grids(containers []*snapshot.Element, label string, logger *slog.Logger) []finding.Finding {
	var out []finding.Finding
	for i, container := range containers {
		out = append(out, scanGrid(container, label, i+1, logger)...)
	}
	return out
}

func scanGrid(container *snapshot.Element, label string, position int, logger *slog.Logger) []finding.Finding {
	structureID := gridID(container, label, position)

	headers := resolveHeaders(container)
	if len(headers) == 0 {
		logger.Debug("extract: no grid headers resolved", "structure", structureID)
	}

	cells := container.Find(gridCellPattern)
	if len(cells) == 0 {
		return scanInnerContainers(container, structureID, headers)
	}

	var out []finding.Finding
	for cellIdx, cell := range cells {
		if strings.TrimSpace(cell.Text()) != "" {
			continue
		}
		f := finding.Finding{
			Kind:        finding.GridCell,
			StructureID: structureID,
			Row:         gridRow(cell, cellIdx, len(headers)),
		}
		fillGridColumn(&f, cell, cellIdx, headers)
		out = append(out, f)
	}
	return out
}

func gridID(container *snapshot.Element, label string, position int) string {
	if id, ok := container.Attr("id"); ok && strings.TrimSpace(id) != "" {
		return id
	}
	return fmt.Sprintf("%s %d", label, position)
}

// resolveHeaders applies the header cascade. A technique succeeds when it
// yields at least one non-empty header text; positions may still map to
// empty strings ("no header for this position").
func resolveHeaders(container *snapshot.Element) []string {
	for _, technique := range headerCascade {
		if headers, ok := technique(container); ok {
			return headers
		}
	}
	return nil
}

func headersFromContainers(container *snapshot.Element) ([]string, bool) {
	return headerTexts(container.Find(headerContainerPat))
}

func headersFromTextSpans(container *snapshot.Element) ([]string, bool) {
	return headerTexts(container.Find(headerTextSpanPat))
}

// headersFromFirstRow treats the textual content of every cell in the
// visually-first row as an implicit header row.
func headersFromFirstRow(container *snapshot.Element) ([]string, bool) {
	rows := container.Find(gridRowPattern)
	if len(rows) == 0 {
		return nil, false
	}
	return headerTexts(rows[0].Find(gridCellPattern))
}

func headerTexts(els []*snapshot.Element) ([]string, bool) {
	if len(els) == 0 {
		return nil, false
	}
	headers := make([]string, len(els))
	any := false
	for i, el := range els {
		headers[i] = strings.TrimSpace(el.Text())
		if headers[i] != "" {
			any = true
		}
	}
	if !any {
		return nil, false
	}
	return headers, true
}

// gridRow resolves row identity: the framework's record-index attribute on
// the nearest row-container ancestor when present, else a positional
// approximation derived from the cell ordinal and header count, else
// "unknown".
func gridRow(cell *snapshot.Element, cellIdx, headerCount int) string {
	if row, ok := cell.Ancestor(gridRowPattern); ok {
		if idx, present := row.Attr(recordIndexAttr); present && strings.TrimSpace(idx) != "" {
			return idx
		}
	}
	if headerCount > 0 {
		return strconv.Itoa(cellIdx/headerCount + 1)
	}
	return "unknown"
}

// fillGridColumn resolves column identity: a framework column id verbatim
// when present, else the computed column index joined with the header text
// at that index.
//
// The modulo-by-header-count fallback can misattribute columns when a grid
// has irregular row lengths.
func fillGridColumn(f *finding.Finding, cell *snapshot.Element, cellIdx int, headers []string) {
	if id, ok := cell.Attr(columnIDAttr); ok && strings.TrimSpace(id) != "" {
		f.ColID = id
		return
	}
	if len(headers) > 0 {
		col := cellIdx % len(headers)
		f.ColIndex = col + 1
		f.ColHeader = headers[col]
		return
	}
	f.ColIndex = cellIdx + 1
}

// scanInnerContainers is the coarse fallback for a matched container that
// exposes no cell-level elements: generic inner-content containers are
// scanned instead and findings carry an item index rather than
// row/column coordinates.
func scanInnerContainers(container *snapshot.Element, structureID string, headers []string) []finding.Finding {
	var out []finding.Finding
	for idx, inner := range container.Find(gridCellInnerPattern) {
		if strings.TrimSpace(inner.Text()) != "" {
			continue
		}
		f := finding.Finding{
			Kind:        finding.GridItem,
			StructureID: structureID,
			ItemIndex:   idx + 1,
		}
		if len(headers) > 0 {
			f.ColHeader = headers[idx%len(headers)]
		}
		out = append(out, f)
	}
	return out
}
