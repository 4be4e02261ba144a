// Package finding defines the durable output unit of a scan: one record per
// detected empty cell (or coarser empty content unit), with structural
// coordinates, plus the dedup and categorization passes applied to the raw
// sequence before reporting.
//
// Findings are structured values internally; the composed human-readable
// description is rendered only at the reporting boundary via Describe.
package finding

import (
	"fmt"
	"strings"
)

// Kind distinguishes how a Finding was produced. It selects the Describe
// rendering and is part of the persisted record.
type Kind string

const (
	// TableCell is an empty cell in a classic markup table.
	TableCell Kind = "table_cell"
	// GridCell is an empty cell in a grid-framework pseudo-table.
	GridCell Kind = "grid_cell"
	// GridItem is a coarser empty inner-content container, emitted when a
	// grid container exposes no cell-level elements at all.
	GridItem Kind = "grid_item"
	// Synthetic is a degraded-mode placeholder: the page could not be
	// structurally parsed, or the snapshot never arrived. Carries its full
	// text in Message.
	Synthetic Kind = "synthetic"
)

// Finding records one detected empty cell with enough context for a human
// reviewer to act on it. Findings are append-only within a scan and never
// mutated after creation.
type Finding struct {
	Kind        Kind   `json:"kind"`
	StructureID string `json:"structure_id,omitempty"`
	// Row is a numeric row index, a framework record index, or "unknown".
	Row string `json:"row_locator,omitempty"`
	// ColIndex is the 1-based column position; 0 when unknown.
	ColIndex int `json:"column_index,omitempty"`
	// ColHeader is the resolved header text; empty when unresolved.
	ColHeader string `json:"column_header,omitempty"`
	// ColID is a framework-exposed column id, used verbatim when present.
	ColID string `json:"column_id,omitempty"`
	// ItemIndex is the 1-based position of an empty inner-content
	// container; set only for GridItem findings.
	ItemIndex int `json:"item_index,omitempty"`
	// RowHint is the text of the row's first cell, carried purely for
	// human context, never for identity.
	RowHint string `json:"row_identity_hint,omitempty"`
	// Message holds the full text of Synthetic findings.
	Message string `json:"message,omitempty"`
}

// Describe renders the composed human-readable description. This is the
// string persisted in the empty_cells artifact and shown to reviewers.
func (f Finding) Describe() string {
	if f.Kind == Synthetic {
		return f.Message
	}

	var b strings.Builder
	b.WriteString(f.StructureID)

	switch f.Kind {
	case GridItem:
		fmt.Fprintf(&b, ", Item %d", f.ItemIndex)
		if f.ColHeader != "" {
			fmt.Fprintf(&b, " (%s)", f.ColHeader)
		}
		b.WriteString(" (Empty)")

	case GridCell:
		fmt.Fprintf(&b, ", Row %s, %s (Empty)", f.rowOrUnknown(), f.columnSegment())

	default: // TableCell
		fmt.Fprintf(&b, ", Row %s, %s", f.rowOrUnknown(), f.columnSegment())
	}

	if f.RowHint != "" {
		// Commas are stripped so the hint stays a single segment of the
		// composed description.
		fmt.Fprintf(&b, " [first cell: %s]", strings.ReplaceAll(f.RowHint, ",", " "))
	}
	return b.String()
}

// columnSegment renders the column part of the description: a framework
// column id verbatim, else a positional label with the header text when
// resolved, else "Column unknown".
func (f Finding) columnSegment() string {
	if f.ColID != "" {
		return f.ColID
	}
	if f.ColIndex <= 0 {
		return "Column unknown"
	}
	seg := fmt.Sprintf("Column %d", f.ColIndex)
	if f.ColHeader != "" {
		if f.Kind == TableCell {
			seg += fmt.Sprintf(" (Header: %s)", f.ColHeader)
		} else {
			seg += fmt.Sprintf(" (%s)", f.ColHeader)
		}
	}
	return seg
}

func (f Finding) rowOrUnknown() string {
	if f.Row == "" {
		return "unknown"
	}
	return f.Row
}

// locatorSegments returns the segments of the composed description that
// carry structural locators, before marker filtering.
func (f Finding) locatorSegments() []string {
	switch f.Kind {
	case Synthetic:
		return nil
	case GridItem:
		seg := fmt.Sprintf("Item %d", f.ItemIndex)
		if f.ColHeader != "" {
			seg += fmt.Sprintf(" (%s)", f.ColHeader)
		}
		return []string{seg + " (Empty)"}
	case GridCell:
		return []string{"Row " + f.rowOrUnknown(), f.columnSegment() + " (Empty)"}
	default:
		return []string{"Row " + f.rowOrUnknown(), f.columnSegment()}
	}
}
