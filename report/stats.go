package report

import (
	"fmt"
	"strings"

	"github.com/gridsight/gridsight/finding"
	"github.com/gridsight/gridsight/store"
)

// Stats summarizes one persisted scan: when it ran, against what, and how
// the findings distribute over structures.
func Stats(rec *store.ScanRecord) string {
	if rec == nil {
		return "No scans recorded yet."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Latest scan: %s\n", rec.Artifact.Timestamp)
	fmt.Fprintf(&b, "URL: %s\n", rec.URL)

	deduped := finding.Dedupe(rec.Findings)
	fmt.Fprintf(&b, "Findings: %d raw, %d unique\n", len(rec.Findings), len(deduped))

	cat := finding.Categorize(deduped)
	for _, id := range cat.Structures() {
		fmt.Fprintf(&b, "  %s: %d\n", id, len(cat.Group(id)))
	}
	return b.String()
}
