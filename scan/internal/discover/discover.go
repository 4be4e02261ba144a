// Package discover runs the structural hypothesis cascade over a page
// snapshot. Each pattern is one hypothesis about how the page renders its
// tabular data; all hypotheses are tried on every page, because a single
// page can mix classic tables with framework grids.
package discover

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/gridsight/gridsight/finding"
	"github.com/gridsight/gridsight/scan/internal/extract"
	"github.com/gridsight/gridsight/scan/internal/snapshot"
)

// Pattern is one structural hypothesis of the cascade.
type Pattern struct {
	// Selector locates candidate containers.
	Selector string
	// Table marks the classic-markup hypothesis; everything else is
	// treated as a grid-framework container.
	Table bool
}

// DefaultPatterns is the cascade in evaluation order: the classic table
// hypothesis first, then the grid-framework containers from most specific
// to most generic.
var DefaultPatterns = []Pattern{
	{Selector: "table", Table: true},
	{Selector: "div.x-grid-item-container"},
	{Selector: "div.x-grid"},
	{Selector: "div.x-panel-body"},
	{Selector: "div.x-grid-view"},
}

// Run applies every pattern to the snapshot and collects the raw findings.
// When no pattern matches any container at all, a single synthetic finding
// describing the page's visible text volume is returned instead, so a scan
// of an unrecognized page still produces a diagnosable result.
func Run(snap *snapshot.Snapshot, patterns []Pattern, logger *slog.Logger) []finding.Finding {
	var out []finding.Finding
	matchedAny := false

	for _, p := range patterns {
		containers := snap.Find(p.Selector)
		if len(containers) == 0 {
			continue
		}
		matchedAny = true

		var found []finding.Finding
		if p.Table {
			found = extract.Tables(containers, logger)
		} else {
			found = extract.Grids(containers, PatternLabel(p.Selector), logger)
		}
		logger.Debug("discover: pattern evaluated",
			"pattern", p.Selector, "containers", len(containers), "findings", len(found))
		out = append(out, found...)
	}

	if !matchedAny {
		logger.Info("discover: no structural pattern matched, degrading to page summary")
		return []finding.Finding{degradedFinding(snap)}
	}
	return out
}

// PatternLabel derives the positional naming label from a selector:
// "div.x-grid" becomes "x-grid", a bare tag stays as-is.
func PatternLabel(selector string) string {
	if _, class, ok := strings.Cut(selector, "."); ok {
		return class
	}
	return selector
}

func degradedFinding(snap *snapshot.Snapshot) finding.Finding {
	return finding.Finding{
		Kind: finding.Synthetic,
		Message: fmt.Sprintf(
			"No table or grid structures found on the page (%d characters of visible text)",
			snap.BodyTextLen()),
	}
}
