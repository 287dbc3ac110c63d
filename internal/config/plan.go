package config

import "strings"

// Part identifies one input table of an output relation. An empty Attr
// selects the parent (scalar projection) table of Source.
type Part struct {
	Source string
	Attr   string
}

// Ref renders the part as "<source>.<attribute>", or the bare source name
// for a parent table.
func (p Part) Ref() string {
	if p.Attr == "" {
		return p.Source
	}
	return p.Source + "." + p.Attr
}

// Relation is one output table and the input tables concatenated into it.
type Relation struct {
	Name  string
	Parts []Part
}

// Parent reports whether the relation is a record type's scalar projection.
func (r Relation) Parent() bool {
	return len(r.Parts) == 1 && r.Parts[0].Attr == ""
}

// Relations returns the ordered output plan: every source's parent relation
// in source order, then the child relations in source and list order. A
// merged relation is emitted once, at the position of its first member.
func (c *Config) Relations() []Relation {
	merged := c.mergeIndex()

	plan := make([]Relation, 0, len(c.Sources)*4)
	for _, src := range c.Sources {
		plan = append(plan, Relation{Name: src.Name, Parts: []Part{{Source: src.Name}}})
	}

	emitted := make(map[int]bool, len(c.Merges))
	for _, src := range c.Sources {
		for _, attr := range src.Lists {
			ref := src.Name + "." + attr
			idx, ok := merged[ref]
			if !ok {
				plan = append(plan, Relation{Name: attr, Parts: []Part{{Source: src.Name, Attr: attr}}})
				continue
			}
			if emitted[idx] {
				continue
			}
			emitted[idx] = true
			m := c.Merges[idx]
			parts := make([]Part, 0, len(m.From))
			for _, from := range m.From {
				parts = append(parts, parsePart(from))
			}
			plan = append(plan, Relation{Name: m.Relation, Parts: parts})
		}
	}
	return plan
}

func (c *Config) mergeIndex() map[string]int {
	index := make(map[string]int)
	for i, m := range c.Merges {
		for _, from := range m.From {
			if _, seen := index[from]; !seen {
				index[from] = i
			}
		}
	}
	return index
}

func parsePart(ref string) Part {
	source, attr, _ := strings.Cut(ref, ".")
	return Part{Source: source, Attr: attr}
}
