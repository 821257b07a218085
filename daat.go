package fts

// ═══════════════════════════════════════════════════════════════════════
// DAAT INTERSECTION: forward-only AND across Group Iterators
// ═══════════════════════════════════════════════════════════════════════

// DAATIntersection produces the strictly ascending sequence of doc_ids
// present in every group, per spec.md §4.7.
type DAATIntersection struct {
	groups []*GroupIterator
}

func NewDAATIntersection(groups []*GroupIterator) *DAATIntersection {
	return &DAATIntersection{groups: groups}
}

// Next returns the next doc_id agreed on by every group, advancing all
// of them past it, or false once any group is exhausted.
func (d *DAATIntersection) Next() (DocID, bool) {
	if len(d.groups) == 0 {
		return DocID{}, false
	}

	for {
		target := docIDMin
		haveTarget := false
		for _, g := range d.groups {
			cur, ok := g.Current()
			if !ok {
				return DocID{}, false
			}
			if !haveTarget || target.Less(cur) {
				target = cur
				haveTarget = true
			}
		}

		allAgree := true
		for _, g := range d.groups {
			cur, ok := g.Current()
			if !ok {
				return DocID{}, false
			}
			if cur.Less(target) {
				g.Seek(target)
				allAgree = false
			}
		}
		if !allAgree {
			continue
		}

		for _, g := range d.groups {
			g.Advance()
		}
		return target, true
	}
}
