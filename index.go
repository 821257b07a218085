package fts

import "sync"

// TokenStats are the per-token aggregates the BM25 upper bound and exact
// scorer need: document frequency for idf, max term frequency for the
// upper-bound tf, and total occurrence count, kept symmetric with
// doc_freq/max_tf since all three are updated together in lock-step.
type TokenStats struct {
	DocFreq     uint64
	MaxTF       uint32
	TotalTokens uint64
}

// TokenPosition is one (token, position) pair out of analyze(text).
type TokenPosition struct {
	Token    string
	Position uint32
}

// InvertedIndex is the in-memory mapping from token id to posting list,
// plus the per-token statistics BM25 needs. It owns its PostingLists and
// TokenStats and keeps them updated transactionally: a failed add never
// leaves the two out of step.
type InvertedIndex struct {
	dict *TokenDictionary

	mu         sync.RWMutex
	postings   map[TokenID]*PostingList
	stats      map[TokenID]*TokenStats
	docLength  map[DocID]uint32    // token-occurrence count, for BM25 dl
	docTokens  map[DocID][]TokenID // tokens touched by this doc, for delete
	totalToken uint64
	docCount   uint64
}

// NewInvertedIndex creates an index backed by dict (which may itself be
// persistent or purely in-memory).
func NewInvertedIndex(dict *TokenDictionary) *InvertedIndex {
	return &InvertedIndex{
		dict:      dict,
		postings:  make(map[TokenID]*PostingList),
		stats:     make(map[TokenID]*TokenStats),
		docLength: make(map[DocID]uint32),
		docTokens: make(map[DocID][]TokenID),
	}
}

// Intern exposes the backing dictionary's intern operation so callers can
// turn analyzed token strings into TokenIDs before calling Add.
func (idx *InvertedIndex) Intern(token string) TokenID {
	return idx.dict.Intern(token)
}

// TokenLogEntry describes one (token, doc) posting change, for the
// caller to journal via IndexLog.
type TokenLogEntry struct {
	TokenID          TokenID
	Positions        []uint32 // nil for a delete entry
	PostingsNumAfter uint32
}

// Add indexes one document's (token, position) pairs. Duplicate adds of
// the same doc_id fail with ErrAlreadyExists; on any error no partial
// state is left behind. The returned entries are the per-token postings
// changes, in no particular order, for the caller to journal.
func (idx *InvertedIndex) Add(doc DocID, positions []TokenPosition) ([]TokenLogEntry, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, exists := idx.docLength[doc]; exists {
		return nil, ErrAlreadyExists
	}

	byToken := make(map[TokenID][]uint32)
	for _, tp := range positions {
		tid := idx.dict.Intern(tp.Token)
		byToken[tid] = append(byToken[tid], tp.Position)
	}

	touched := make([]TokenID, 0, len(byToken))
	entries := make([]TokenLogEntry, 0, len(byToken))
	var docLen uint32
	for tid, pos := range byToken {
		pos = sortedUnique(pos)
		pl, ok := idx.postings[tid]
		if !ok {
			pl = NewPostingList()
			idx.postings[tid] = pl
		}
		pl.Upsert(doc, pos)

		st, ok := idx.stats[tid]
		if !ok {
			st = &TokenStats{}
			idx.stats[tid] = st
		}
		st.DocFreq++
		if uint32(len(pos)) > st.MaxTF {
			st.MaxTF = uint32(len(pos))
		}
		st.TotalTokens += uint64(len(pos))

		touched = append(touched, tid)
		docLen += uint32(len(pos))
		entries = append(entries, TokenLogEntry{TokenID: tid, Positions: pos, PostingsNumAfter: uint32(pl.Len())})
	}

	idx.docLength[doc] = docLen
	idx.docTokens[doc] = touched
	idx.totalToken += uint64(docLen)
	idx.docCount++
	return entries, nil
}

// Delete removes every posting list entry naming doc and updates stats
// symmetrically. Deleting an unknown doc_id fails with ErrNotFound.
func (idx *InvertedIndex) Delete(doc DocID) ([]TokenLogEntry, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	docLen, exists := idx.docLength[doc]
	if !exists {
		return nil, ErrNotFound
	}

	var entries []TokenLogEntry
	for _, tid := range idx.docTokens[doc] {
		pl, ok := idx.postings[tid]
		if !ok {
			continue
		}
		removedPositions := pl.getPostingUnlocked(doc)
		if !pl.Delete(doc) {
			continue
		}
		st := idx.stats[tid]
		if st == nil {
			continue
		}
		st.DocFreq--
		st.TotalTokens -= uint64(len(removedPositions))
		if uint32(len(removedPositions)) == st.MaxTF {
			st.MaxTF = recomputeMaxTF(pl)
		}
		entries = append(entries, TokenLogEntry{TokenID: tid, PostingsNumAfter: uint32(pl.Len())})
	}

	delete(idx.docLength, doc)
	delete(idx.docTokens, doc)
	idx.totalToken -= uint64(docLen)
	idx.docCount--
	return entries, nil
}

// getPostingUnlocked fetches doc's current positions directly via the
// list's own search; callers already hold idx.mu so no other writer can
// be mutating this list concurrently.
func (pl *PostingList) getPostingUnlocked(doc DocID) []uint32 {
	found, _ := pl.search(doc)
	if found == nil {
		return nil
	}
	return found.posting.Positions
}

func recomputeMaxTF(pl *PostingList) uint32 {
	var max uint32
	for c := pl.Cursor(); c.Valid(); c.Advance() {
		if n := uint32(len(c.Posting().Positions)); n > max {
			max = n
		}
	}
	return max
}

// GetPostingList returns the posting list for a token id, if one was ever
// created for it. A list whose postings have all been deleted is kept and
// still returned, empty (the token itself is never removed from the
// dictionary either, per spec.md §4.2).
func (idx *InvertedIndex) GetPostingList(tid TokenID) (*PostingList, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	pl, ok := idx.postings[tid]
	return pl, ok
}

// Stats returns a snapshot of tid's aggregate statistics.
func (idx *InvertedIndex) Stats(tid TokenID) (TokenStats, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	st, ok := idx.stats[tid]
	if !ok {
		return TokenStats{}, false
	}
	return *st, true
}

// DocLength returns a live document's indexed token count.
func (idx *InvertedIndex) DocLength(doc DocID) (uint32, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	n, ok := idx.docLength[doc]
	return n, ok
}

// AvgDocLength returns the corpus average document length, or 0 if empty.
func (idx *InvertedIndex) AvgDocLength() float64 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if idx.docCount == 0 {
		return 0
	}
	return float64(idx.totalToken) / float64(idx.docCount)
}

// DocCount returns the number of live documents.
func (idx *InvertedIndex) DocCount() uint64 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.docCount
}
