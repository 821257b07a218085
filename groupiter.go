package fts

import "container/heap"

// ═══════════════════════════════════════════════════════════════════════
// GROUP ITERATOR: heap-merge over one query term's candidate postings
// ═══════════════════════════════════════════════════════════════════════
// Grounded on the teacher's SkipList iterator style (skiplist.go's
// Iterator type), generalized from a single ordered walk into a heap
// merge across several PostingLists — one per candidate TokenId that
// matched the fuzzy/exact query term.
// ═══════════════════════════════════════════════════════════════════════

type cursorHeap []*PostingCursor

func (h cursorHeap) Len() int { return len(h) }
func (h cursorHeap) Less(i, j int) bool {
	return h[i].DocID().Less(h[j].DocID())
}
func (h cursorHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *cursorHeap) Push(x any)   { *h = append(*h, x.(*PostingCursor)) }
func (h *cursorHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// GroupIterator merges the posting lists of every candidate TokenId for
// one query term into a single doc_id-ordered stream.
type GroupIterator struct {
	h cursorHeap
}

// NewGroupIterator builds a Group Iterator from the posting lists of the
// given candidate token ids (tokens with no posting list are skipped).
func NewGroupIterator(idx *InvertedIndex, candidates []TokenID) *GroupIterator {
	g := &GroupIterator{}
	for _, tid := range candidates {
		pl, ok := idx.GetPostingList(tid)
		if !ok {
			continue
		}
		c := pl.Cursor()
		if c.Valid() {
			g.h = append(g.h, c)
		}
	}
	heap.Init(&g.h)
	return g
}

// Current peeks at the smallest doc_id among all cursors, if any remain.
func (g *GroupIterator) Current() (DocID, bool) {
	if len(g.h) == 0 {
		return DocID{}, false
	}
	return g.h[0].DocID(), true
}

// Advance moves every cursor currently at the min doc_id forward by one
// document, per spec.md §4.6 ("if multiple cursors share the same
// doc_id, they are all advanced").
func (g *GroupIterator) Advance() {
	cur, ok := g.Current()
	if !ok {
		return
	}
	for len(g.h) > 0 && g.h[0].DocID() == cur {
		c := heap.Pop(&g.h).(*PostingCursor)
		c.Advance()
		if c.Valid() {
			heap.Push(&g.h, c)
		}
	}
}

// Seek advances every cursor whose current doc is behind target, then
// re-heapifies.
func (g *GroupIterator) Seek(target DocID) {
	changed := false
	for _, c := range g.h {
		if c.DocID().Less(target) {
			c.SeekGE(target)
			changed = true
		}
	}
	if !changed {
		return
	}
	out := g.h[:0]
	for _, c := range g.h {
		if c.Valid() {
			out = append(out, c)
		}
	}
	g.h = out
	heap.Init(&g.h)
}

// CursorsAtCurrent returns every cursor presently positioned at the
// group's current (minimum) doc_id, for building a Position Group
// Iterator over that document.
func (g *GroupIterator) CursorsAtCurrent() []*PostingCursor {
	cur, ok := g.Current()
	if !ok {
		return nil
	}
	var out []*PostingCursor
	for _, c := range g.h {
		if c.DocID() == cur {
			out = append(out, c)
		}
	}
	return out
}

// PositionsForCurrentDoc returns a Position Group Iterator merging
// positions across every cursor at the group's current doc_id.
func (g *GroupIterator) PositionsForCurrentDoc() *PositionGroupIterator {
	var lists [][]uint32
	for _, c := range g.CursorsAtCurrent() {
		lists = append(lists, c.Posting().Positions)
	}
	return NewPositionGroupIterator(lists)
}
