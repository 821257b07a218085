package fts

import (
	"math/rand"
	"sync"
)

// ═══════════════════════════════════════════════════════════════════════
// POSTING LIST: an ordered-by-doc_id skip list of Postings
// ═══════════════════════════════════════════════════════════════════════
// This is the teacher's skip list (Zeeeepa-blaze/skiplist.go), generalized
// from a position-level structure keyed by (DocumentID, Offset) float64
// pairs to a doc-level structure keyed by the 128-bit DocID, one node per
// document carrying that document's full ascending position list. The
// coin-flip tower-height algorithm, the journey-based search, and the
// insert/delete splicing are unchanged; only the key type and the leaf
// payload differ, because the new data model needs seek-to-doc and full
// per-document position lists rather than per-occurrence nodes.
// ═══════════════════════════════════════════════════════════════════════

const maxTowerHeight = 32

// Posting is one document's occurrences of a single token.
type Posting struct {
	DocID     DocID
	Positions []uint32 // ascending, unique within the document
}

type postingNode struct {
	posting Posting
	tower   [maxTowerHeight]*postingNode
}

// PostingList is the ordered-by-doc_id posting list for one token id.
// It supports seek-to-doc and forward iteration, which is what the Group
// Iterator and DAAT Intersection need to merge and intersect candidates
// without ever materializing the whole list.
type PostingList struct {
	mu     sync.RWMutex
	head   *postingNode
	height int
}

func NewPostingList() *PostingList {
	return &PostingList{head: &postingNode{}, height: 1}
}

var heightRand = struct {
	mu  sync.Mutex
	rng *rand.Rand
}{rng: rand.New(rand.NewSource(1))}

func randomTowerHeight() int {
	heightRand.mu.Lock()
	defer heightRand.mu.Unlock()
	h := 1
	for heightRand.rng.Float64() < 0.5 && h < maxTowerHeight {
		h++
	}
	return h
}

// search returns the node with an exact key match (nil if absent) and the
// journey: the predecessor node at each level, used by both Insert and
// Delete to splice the affected node in or out.
func (pl *PostingList) search(key DocID) (*postingNode, [maxTowerHeight]*postingNode) {
	var journey [maxTowerHeight]*postingNode
	current := pl.head

	for level := pl.height - 1; level >= 0; level-- {
		for current.tower[level] != nil && current.tower[level].posting.DocID.Less(key) {
			current = current.tower[level]
		}
		journey[level] = current
	}

	next := current.tower[0]
	if next != nil && next.posting.DocID == key {
		return next, journey
	}
	return nil, journey
}

// Upsert inserts a fresh Posting for doc, or merges positions into an
// existing one (sorted ascending, de-duplicated) if the doc is already
// present — the latter should not happen in normal operation since
// DocIDs are never re-added after delete, but is handled defensively so
// a single ingest call can safely touch the same token twice.
func (pl *PostingList) Upsert(doc DocID, positions []uint32) {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	found, journey := pl.search(doc)
	if found != nil {
		found.posting.Positions = mergeSortedUnique(found.posting.Positions, positions)
		return
	}

	height := randomTowerHeight()
	node := &postingNode{posting: Posting{DocID: doc, Positions: sortedUnique(positions)}}

	for level := 0; level < height; level++ {
		pred := journey[level]
		if pred == nil {
			pred = pl.head
		}
		node.tower[level] = pred.tower[level]
		pred.tower[level] = node
	}
	if height > pl.height {
		pl.height = height
	}
}

// Delete removes doc's posting, returning whether it was present.
func (pl *PostingList) Delete(doc DocID) bool {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	found, journey := pl.search(doc)
	if found == nil {
		return false
	}

	for level := 0; level < pl.height; level++ {
		if journey[level].tower[level] != found {
			break
		}
		journey[level].tower[level] = found.tower[level]
	}

	for pl.height > 1 && pl.head.tower[pl.height-1] == nil {
		pl.height--
	}
	return true
}

// Len returns the number of live documents in the list (O(n)); used by
// InvertedIndex.Add/Delete for PostingsNumAfter and by tests, never on
// the query path.
func (pl *PostingList) Len() int {
	pl.mu.RLock()
	defer pl.mu.RUnlock()
	n := 0
	for cur := pl.head.tower[0]; cur != nil; cur = cur.tower[0] {
		n++
	}
	return n
}

// PostingCursor walks a single PostingList in ascending doc_id order. It
// is a value-like owned iterator: it borrows the list for the duration of
// one search and is never invalidated mid-advance because postings are
// only ever appended-to or unlinked under the list's own mutex, never
// mutated by reference out from under a reader.
type PostingCursor struct {
	list *PostingList
	node *postingNode
}

// Cursor returns a fresh cursor positioned at the first posting (invalid
// if the list is empty).
func (pl *PostingList) Cursor() *PostingCursor {
	pl.mu.RLock()
	first := pl.head.tower[0]
	pl.mu.RUnlock()
	return &PostingCursor{list: pl, node: first}
}

func (c *PostingCursor) Valid() bool { return c.node != nil }

func (c *PostingCursor) DocID() DocID { return c.node.posting.DocID }

func (c *PostingCursor) Posting() Posting { return c.node.posting }

// Advance moves to the next posting in doc_id order.
func (c *PostingCursor) Advance() {
	if c.node == nil {
		return
	}
	c.node = c.node.tower[0]
}

// SeekGE advances the cursor to the first posting with doc_id >= target,
// in O(log n) using the tower's express lanes exactly like the teacher's
// Search does for exact-key lookups.
func (c *PostingCursor) SeekGE(target DocID) {
	if c.node != nil && !c.node.posting.DocID.Less(target) {
		return // already there
	}

	c.list.mu.RLock()
	defer c.list.mu.RUnlock()

	current := c.list.head
	for level := c.list.height - 1; level >= 0; level-- {
		for current.tower[level] != nil && current.tower[level].posting.DocID.Less(target) {
			current = current.tower[level]
		}
	}
	c.node = current.tower[0]
}

func sortedUnique(positions []uint32) []uint32 {
	return mergeSortedUnique(nil, positions)
}

// mergeSortedUnique merges a (already sorted, unique) base slice with a
// fresh batch of positions, returning a sorted, deduplicated result.
func mergeSortedUnique(base []uint32, fresh []uint32) []uint32 {
	combined := make([]uint32, 0, len(base)+len(fresh))
	combined = append(combined, base...)
	combined = append(combined, fresh...)

	// insertion sort is fine: fresh batches from one analyze() call are
	// small, and base is already sorted.
	for i := 1; i < len(combined); i++ {
		v := combined[i]
		j := i - 1
		for j >= 0 && combined[j] > v {
			combined[j+1] = combined[j]
			j--
		}
		combined[j+1] = v
	}

	out := combined[:0]
	for i, v := range combined {
		if i == 0 || v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}
