package finding

import "strings"

// locatorMarkers are the tokens that make a description segment count as a
// structural locator. Segments without any of them (structure ids, hints,
// synthetic text) do not participate in the canonical key.
var locatorMarkers = []string{"item", "row", "column"}

// CanonicalKey derives the dedup key for a Finding: the locator-bearing
// segments of its description, stripped of incidental punctuation and
// casing, joined with a fixed delimiter. Two Findings with an identical key
// are the same logical empty cell.
//
// Findings with no locator segments at all (synthetic placeholders) share
// the empty key and therefore collapse into a single catch-all entry.
// The key is stable across scans, so reviewer annotations attach to it.
func CanonicalKey(f Finding) string {
	var parts []string
	for _, seg := range f.locatorSegments() {
		lower := strings.ToLower(seg)
		for _, marker := range locatorMarkers {
			if strings.Contains(lower, marker) {
				parts = append(parts, normalizeSegment(seg))
				break
			}
		}
	}
	return strings.Join(parts, "|")
}

// normalizeSegment lowercases a segment and strips everything but letters,
// digits and single spaces.
func normalizeSegment(seg string) string {
	var b strings.Builder
	space := false
	for _, r := range strings.ToLower(seg) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		default:
			space = true
		}
	}
	return b.String()
}

// Dedupe returns the sequence with duplicate Findings removed: for each
// canonical key only the first occurrence is kept, in input order. The
// input is never modified; persistence keeps the raw sequence.
// Dedupe is idempotent.
func Dedupe(findings []Finding) []Finding {
	seen := make(map[string]struct{}, len(findings))
	out := make([]Finding, 0, len(findings))
	for _, f := range findings {
		key := CanonicalKey(f)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, f)
	}
	return out
}
