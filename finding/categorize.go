package finding

// Uncategorized is the reserved bucket for Findings that carry no structure
// identifier (synthetic placeholders).
const Uncategorized = "uncategorized"

// Categorized groups Findings by structure id, preserving first-seen order
// of structures and insertion order within each group. Built once per scan,
// read-only thereafter.
type Categorized struct {
	order  []string
	groups map[string][]Finding
}

// Categorize partitions the sequence by structure id. Every Finding lands
// in exactly one bucket; those without a structure id go to Uncategorized.
func Categorize(findings []Finding) *Categorized {
	c := &Categorized{groups: make(map[string][]Finding)}
	for _, f := range findings {
		id := f.StructureID
		if id == "" {
			id = Uncategorized
		}
		if _, ok := c.groups[id]; !ok {
			c.order = append(c.order, id)
		}
		c.groups[id] = append(c.groups[id], f)
	}
	return c
}

// Structures returns structure ids in first-seen order.
func (c *Categorized) Structures() []string {
	return c.order
}

// Group returns the Findings for a structure id, in insertion order.
func (c *Categorized) Group(id string) []Finding {
	return c.groups[id]
}

// Len returns the total number of Findings across all buckets.
func (c *Categorized) Len() int {
	n := 0
	for _, g := range c.groups {
		n += len(g)
	}
	return n
}
