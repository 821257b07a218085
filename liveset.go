package fts

import (
	"sync"

	"github.com/RoaringBitmap/roaring"
)

// ═══════════════════════════════════════════════════════════════════════
// LIVE SET: engine-wide live/tombstone tracking via a roaring bitmap
// ═══════════════════════════════════════════════════════════════════════
// The teacher's InvertedIndex (Zeeeepa-blaze/index.go) keeps one
// roaring.Bitmap per token for fast boolean AND/OR/NOT across postings.
// This spec's query AST has no OR/NOT surface (§6: all clauses are an
// implicit AND), so a per-token bitmap has nowhere to plug into the
// query pipeline. What the Engine does need is a single fast "is this
// doc still live" check (Engine.Delete) and a record of every doc_id
// ever added (Engine.Add's re-add check), plus a compact live count —
// one engine-wide roaring.Bitmap with an ordinal side table gives all
// three. The segment store and the DAAT path do not consult it.
// DocIDs are 128-bit, so a side table assigns each one a dense uint32
// ordinal the bitmap can hold.
// ═══════════════════════════════════════════════════════════════════════

// LiveSet tracks which doc_ids are currently live (added, not yet
// deleted) using a roaring bitmap over dense per-doc ordinals.
type LiveSet struct {
	mu      sync.RWMutex
	bitmap  *roaring.Bitmap
	ordinal map[DocID]uint32
	nextOrd uint32
}

func NewLiveSet() *LiveSet {
	return &LiveSet{
		bitmap:  roaring.NewBitmap(),
		ordinal: make(map[DocID]uint32),
	}
}

// MarkLive assigns doc a fresh ordinal (if it doesn't have one yet) and
// sets its bit.
func (ls *LiveSet) MarkLive(doc DocID) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	ord, ok := ls.ordinal[doc]
	if !ok {
		ord = ls.nextOrd
		ls.nextOrd++
		ls.ordinal[doc] = ord
	}
	ls.bitmap.Add(ord)
}

// MarkDeleted clears doc's bit; its ordinal mapping is kept so a later
// (illegal, per spec.md §9 open question) re-add attempt can still be
// detected as a conflict.
func (ls *LiveSet) MarkDeleted(doc DocID) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	if ord, ok := ls.ordinal[doc]; ok {
		ls.bitmap.Remove(ord)
	}
}

// IsLive reports whether doc is currently marked live.
func (ls *LiveSet) IsLive(doc DocID) bool {
	ls.mu.RLock()
	defer ls.mu.RUnlock()
	ord, ok := ls.ordinal[doc]
	if !ok {
		return false
	}
	return ls.bitmap.Contains(ord)
}

// KnownBefore reports whether doc has ever been assigned an ordinal,
// live or not — used to reject a re-add of a previously deleted id.
func (ls *LiveSet) KnownBefore(doc DocID) bool {
	ls.mu.RLock()
	defer ls.mu.RUnlock()
	_, ok := ls.ordinal[doc]
	return ok
}

// Cardinality returns the number of currently live documents.
func (ls *LiveSet) Cardinality() uint64 {
	ls.mu.RLock()
	defer ls.mu.RUnlock()
	return ls.bitmap.GetCardinality()
}
