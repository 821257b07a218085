package fts

import "container/heap"

// ═══════════════════════════════════════════════════════════════════════
// POSITION GROUP ITERATOR: heap-merge of positions within one document
// ═══════════════════════════════════════════════════════════════════════

type posCursor struct {
	positions []uint32
	idx       int
}

func (p *posCursor) valid() bool    { return p.idx < len(p.positions) }
func (p *posCursor) current() uint32 { return p.positions[p.idx] }

type posHeap []*posCursor

func (h posHeap) Len() int            { return len(h) }
func (h posHeap) Less(i, j int) bool  { return h[i].current() < h[j].current() }
func (h posHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *posHeap) Push(x any)         { *h = append(*h, x.(*posCursor)) }
func (h *posHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// PositionGroupIterator merges the position lists of every candidate
// token in a query term's group, restricted to the current document, so
// the Minimal-Interval Matcher sees one ascending stream of positions
// per query term regardless of how many fuzzy candidates fed it.
type PositionGroupIterator struct {
	h posHeap
}

func NewPositionGroupIterator(lists [][]uint32) *PositionGroupIterator {
	p := &PositionGroupIterator{}
	for _, l := range lists {
		if len(l) > 0 {
			p.h = append(p.h, &posCursor{positions: l})
		}
	}
	heap.Init(&p.h)
	return p
}

// Current peeks the smallest remaining position.
func (p *PositionGroupIterator) Current() (uint32, bool) {
	if len(p.h) == 0 {
		return 0, false
	}
	return p.h[0].current(), true
}

// Next returns the smallest remaining position and advances past it.
func (p *PositionGroupIterator) Next() (uint32, bool) {
	v, ok := p.Current()
	if !ok {
		return 0, false
	}
	p.advanceOne()
	return v, true
}

func (p *PositionGroupIterator) advanceOne() {
	if len(p.h) == 0 {
		return
	}
	c := p.h[0]
	c.idx++
	if c.valid() {
		heap.Fix(&p.h, 0)
	} else {
		heap.Pop(&p.h)
	}
}

// AdvancePast advances the iterator until its current position is
// strictly greater than after, or it is exhausted. It is used by the
// Minimal-Interval Matcher to walk P[i] forward past pos[i-1].
func (p *PositionGroupIterator) AdvancePast(after uint32) (uint32, bool) {
	for {
		v, ok := p.Current()
		if !ok {
			return 0, false
		}
		if v > after {
			return v, true
		}
		p.advanceOne()
	}
}
