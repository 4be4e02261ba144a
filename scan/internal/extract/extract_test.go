package extract

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/gridsight/gridsight/finding"
	"github.com/gridsight/gridsight/scan/internal/snapshot"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func parseFixture(t *testing.T, markup string) *snapshot.Snapshot {
	t.Helper()
	s, err := snapshot.Parse(markup)
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	return s
}

func TestTables_HeaderRowAndEmptyCells(t *testing.T) {
	s := parseFixture(t, `<html><body>
	<table id="patients">
	  <tr><th>Name</th><th>Ort</th><th>Datum</th></tr>
	  <tr><td>Meier</td><td></td><td>2026-01-05</td></tr>
	  <tr><td>Huber</td><td>Wien</td><td>  </td></tr>
	</table>
	</body></html>`)

	got := Tables(s.Find("table"), discardLogger())
	if len(got) != 2 {
		t.Fatalf("findings = %d, want 2", len(got))
	}

	first := got[0]
	if first.StructureID != "patients" || first.Row != "2" || first.ColIndex != 2 || first.ColHeader != "Ort" {
		t.Fatalf("unexpected first finding: %+v", first)
	}
	if first.RowHint != "Meier" {
		t.Fatalf("row hint = %q, want Meier", first.RowHint)
	}

	second := got[1]
	if second.Row != "3" || second.ColHeader != "Datum" {
		t.Fatalf("unexpected second finding: %+v", second)
	}
}

func TestTables_FirstRowAsHeaderIsNotScanned(t *testing.T) {
	// No <th>: the first data row is consumed as the header row, so its
	// own empty cells never become findings.
	s := parseFixture(t, `<html><body>
	<table>
	  <tr><td>Name</td><td></td></tr>
	  <tr><td>Meier</td><td></td></tr>
	</table>
	</body></html>`)

	got := Tables(s.Find("table"), discardLogger())
	if len(got) != 1 {
		t.Fatalf("findings = %d, want 1", len(got))
	}
	f := got[0]
	if f.StructureID != "Table 1" {
		t.Fatalf("structure id = %q, want Table 1", f.StructureID)
	}
	if f.Row != "2" || f.ColIndex != 2 {
		t.Fatalf("unexpected finding: %+v", f)
	}
	if f.ColHeader != "" {
		t.Fatalf("header = %q, want empty (header cell itself was blank)", f.ColHeader)
	}
}

func TestTables_IrregularRowWiderThanHeader(t *testing.T) {
	s := parseFixture(t, `<html><body>
	<table>
	  <tr><th>A</th></tr>
	  <tr><td>x</td><td></td></tr>
	</table>
	</body></html>`)

	got := Tables(s.Find("table"), discardLogger())
	if len(got) != 1 {
		t.Fatalf("findings = %d, want 1", len(got))
	}
	if got[0].ColIndex != 2 || got[0].ColHeader != "" {
		t.Fatalf("unexpected finding: %+v", got[0])
	}
}

func TestTables_RowHintTruncation(t *testing.T) {
	long := strings.Repeat("x", 90)
	s := parseFixture(t, `<html><body>
	<table>
	  <tr><th>A</th><th>B</th></tr>
	  <tr><td>`+long+`</td><td></td></tr>
	</table>
	</body></html>`)

	got := Tables(s.Find("table"), discardLogger())
	if len(got) != 1 {
		t.Fatalf("findings = %d, want 1", len(got))
	}
	if len(got[0].RowHint) != rowHintMax {
		t.Fatalf("hint length = %d, want %d", len(got[0].RowHint), rowHintMax)
	}
}

const gridFixture = `<html><body>
<div class="x-grid" id="patientGrid">
  <div class="x-column-header">Name</div>
  <div class="x-column-header">Ort</div>
  <div class="x-grid-item" data-recordindex="0">
    <div class="x-grid-cell">Meier</div>
    <div class="x-grid-cell"></div>
  </div>
  <div class="x-grid-item" data-recordindex="1">
    <div class="x-grid-cell"></div>
    <div class="x-grid-cell">Wien</div>
  </div>
</div>
</body></html>`

func TestGrids_RecordIndexAndHeaders(t *testing.T) {
	s := parseFixture(t, gridFixture)

	got := Grids(s.Find("div.x-grid"), "x-grid", discardLogger())
	if len(got) != 2 {
		t.Fatalf("findings = %d, want 2", len(got))
	}

	first := got[0]
	if first.Kind != finding.GridCell || first.StructureID != "patientGrid" {
		t.Fatalf("unexpected finding: %+v", first)
	}
	if first.Row != "0" {
		t.Fatalf("row = %q, want record index 0", first.Row)
	}
	if first.ColIndex != 2 || first.ColHeader != "Ort" {
		t.Fatalf("column = %d/%q, want 2/Ort", first.ColIndex, first.ColHeader)
	}

	if got[1].Row != "1" || got[1].ColHeader != "Name" {
		t.Fatalf("unexpected second finding: %+v", got[1])
	}
}

func TestGrids_ColumnIDWinsOverIndex(t *testing.T) {
	s := parseFixture(t, `<html><body>
	<div class="x-grid">
	  <span class="x-column-header-text">Name</span>
	  <div class="x-grid-item" data-recordindex="3">
	    <div class="x-grid-cell" data-columnid="colOrt"></div>
	  </div>
	</div>
	</body></html>`)

	got := Grids(s.Find("div.x-grid"), "x-grid", discardLogger())
	if len(got) != 1 {
		t.Fatalf("findings = %d, want 1", len(got))
	}
	f := got[0]
	if f.ColID != "colOrt" {
		t.Fatalf("col id = %q, want colOrt", f.ColID)
	}
	if f.ColIndex != 0 || f.ColHeader != "" {
		t.Fatalf("index fallback must not fire when a column id exists: %+v", f)
	}
	if f.StructureID != "x-grid 1" {
		t.Fatalf("structure id = %q, want positional label", f.StructureID)
	}
}

func TestGrids_PositionalRowWithoutRecordIndex(t *testing.T) {
	s := parseFixture(t, `<html><body>
	<div class="x-grid">
	  <div class="x-column-header">A</div>
	  <div class="x-column-header">B</div>
	  <div class="x-grid-item">
	    <div class="x-grid-cell">x</div>
	    <div class="x-grid-cell">y</div>
	  </div>
	  <div class="x-grid-item">
	    <div class="x-grid-cell"></div>
	    <div class="x-grid-cell">z</div>
	  </div>
	</div>
	</body></html>`)

	got := Grids(s.Find("div.x-grid"), "x-grid", discardLogger())
	if len(got) != 1 {
		t.Fatalf("findings = %d, want 1", len(got))
	}
	// Cell ordinal 2 with 2 headers: row 2/2+1 = 2.
	if got[0].Row != "2" {
		t.Fatalf("row = %q, want positional 2", got[0].Row)
	}
}

func TestGrids_FirstRowAsHeaderFallback(t *testing.T) {
	s := parseFixture(t, `<html><body>
	<div class="x-grid">
	  <div class="x-grid-item" data-recordindex="0">
	    <div class="x-grid-cell">Name</div>
	    <div class="x-grid-cell">Ort</div>
	  </div>
	  <div class="x-grid-item" data-recordindex="1">
	    <div class="x-grid-cell">Meier</div>
	    <div class="x-grid-cell"></div>
	  </div>
	</div>
	</body></html>`)

	got := Grids(s.Find("div.x-grid"), "x-grid", discardLogger())
	if len(got) != 1 {
		t.Fatalf("findings = %d, want 1", len(got))
	}
	if got[0].ColHeader != "Ort" || got[0].ColIndex != 2 {
		t.Fatalf("unexpected finding: %+v", got[0])
	}
}

func TestGrids_NoHeadersUnknownRow(t *testing.T) {
	s := parseFixture(t, `<html><body>
	<div class="x-grid">
	  <div class="x-grid-cell">x</div>
	  <div class="x-grid-cell"></div>
	</div>
	</body></html>`)

	got := Grids(s.Find("div.x-grid"), "x-grid", discardLogger())
	if len(got) != 1 {
		t.Fatalf("findings = %d, want 1", len(got))
	}
	f := got[0]
	if f.Row != "unknown" {
		t.Fatalf("row = %q, want unknown", f.Row)
	}
	if f.ColIndex != 2 {
		t.Fatalf("col index = %d, want raw ordinal 2", f.ColIndex)
	}
}

func TestGrids_InnerContainerFallback(t *testing.T) {
	s := parseFixture(t, `<html><body>
	<div class="x-panel-body">
	  <div class="x-grid-cell-inner">first</div>
	  <div class="x-grid-cell-inner"></div>
	  <div class="x-grid-cell-inner">  </div>
	</div>
	</body></html>`)

	got := Grids(s.Find("div.x-panel-body"), "x-panel-body", discardLogger())
	if len(got) != 2 {
		t.Fatalf("findings = %d, want 2", len(got))
	}
	if got[0].Kind != finding.GridItem || got[0].ItemIndex != 2 {
		t.Fatalf("unexpected finding: %+v", got[0])
	}
	if got[1].ItemIndex != 3 {
		t.Fatalf("item index = %d, want 3", got[1].ItemIndex)
	}
}

func TestGrids_AllCellsFilledYieldsNothing(t *testing.T) {
	s := parseFixture(t, `<html><body>
	<div class="x-grid">
	  <div class="x-column-header">A</div>
	  <div class="x-grid-item" data-recordindex="0">
	    <div class="x-grid-cell">full</div>
	  </div>
	</div>
	</body></html>`)

	if got := Grids(s.Find("div.x-grid"), "x-grid", discardLogger()); len(got) != 0 {
		t.Fatalf("findings = %d, want 0", len(got))
	}
}
