package fts

// ═══════════════════════════════════════════════════════════════════════
// SEARCH PIPELINE: query AST -> candidates -> DAAT -> matcher -> BM25
// ═══════════════════════════════════════════════════════════════════════
// This wires together, in the order spec.md §2's data-flow paragraph
// describes, every component built so far: per-term candidate tokens via
// the Trie+Automaton, grouped postings via the Group Iterator, DAAT
// intersection, the BM25 upper-bound check, the Minimal-Interval
// Matcher, and the MaxScore top-K loop.
// ═══════════════════════════════════════════════════════════════════════

// searchTerm is one flattened scoring unit: either a whole Term/Fuzzy
// clause, or a single word inside a Phrase clause. phraseID is the index
// of the owning Phrase clause in the query (-1 if not part of one).
type searchTerm struct {
	group    *GroupIterator
	score    TermScore
	phraseID int
}

// Get returns a live document's original body.
func (e *Engine) Get(doc DocID) ([]byte, error) {
	return e.segments.Get(doc)
}

// Search runs q against the index and returns the top cfg.TopK (or topK
// if > 0) documents ranked by BM25, honoring phrase sloppiness.
func (e *Engine) Search(q Query, topK int) ([]ScoredDoc, error) {
	if topK <= 0 {
		topK = e.cfg.TopK
	}

	var terms []searchTerm
	phraseWordGroups := make(map[int][]*GroupIterator) // clause index -> ordered per-word groups

	for clauseIdx, clause := range q.Clauses {
		switch clause.Kind {
		case ClauseTerm, ClauseFuzzy:
			candidates := FindCandidates(e.trie, e.dict, clause.Text, clause.MaxEdits)
			g := NewGroupIterator(e.index, candidates)
			terms = append(terms, searchTerm{group: g, score: aggregateStats(e.index, candidates), phraseID: -1})

		case ClausePhrase:
			var groups []*GroupIterator
			for _, word := range clause.Terms {
				candidates := FindCandidates(e.trie, e.dict, word, 0)
				g := NewGroupIterator(e.index, candidates)
				groups = append(groups, g)
				terms = append(terms, searchTerm{group: g, score: aggregateStats(e.index, candidates), phraseID: clauseIdx})
			}
			phraseWordGroups[clauseIdx] = groups
		}
	}

	if len(terms) == 0 {
		return nil, nil
	}

	allGroups := make([]*GroupIterator, len(terms))
	for i, t := range terms {
		allGroups[i] = t.group
	}
	daat := NewDAATIntersection(allGroups)

	docCount := e.index.DocCount()
	avgdl := e.index.AvgDocLength()
	heapK := NewTopKHeap(topK)

	ubTerms := make([]TermScore, len(terms))
	for i, t := range terms {
		ubTerms[i] = t.score
	}

	for {
		doc, ok := daat.Next()
		if !ok {
			break
		}

		ub := UpperBound(ubTerms, docCount, avgdl, e.cfg.BM25K1, e.cfg.BM25B)
		if heapK.Full() && ub <= heapK.Min() {
			continue
		}

		phraseOK := true
		for clauseIdx, groups := range phraseWordGroups {
			var posIters []*PositionGroupIterator
			for _, g := range groups {
				posIters = append(posIters, g.PositionsForCurrentDoc())
			}
			if _, matched := MatchMinimalInterval(posIters, q.Clauses[clauseIdx].Sloppiness); !matched {
				phraseOK = false
				break
			}
		}
		if !phraseOK {
			continue
		}

		dl, _ := e.index.DocLength(doc)
		tfs := make([]uint32, len(terms))
		for i, t := range terms {
			tfs[i] = termFrequencyInCurrentDoc(t.group)
		}
		score := ExactScore(ubTerms, tfs, docCount, float64(dl), avgdl, e.cfg.BM25K1, e.cfg.BM25B)
		heapK.Offer(doc, score)
	}

	return heapK.Results(), nil
}

// aggregateStats sums TokenStats across every candidate token id feeding
// a group, approximating the OR-group as a single synthetic BM25 term:
// no library or spec text defines how several fuzzy/candidate tokens
// should combine into one idf, so document frequency and max term
// frequency are summed across candidates (a conservative upper bound,
// since it never understates either quantity).
func aggregateStats(idx *InvertedIndex, candidates []TokenID) TermScore {
	var ts TermScore
	for _, tid := range candidates {
		if st, ok := idx.Stats(tid); ok {
			ts.DocFreq += st.DocFreq
			ts.MaxTF += st.MaxTF
		}
	}
	return ts
}

// termFrequencyInCurrentDoc sums the position counts across every cursor
// a group currently has positioned at its current doc_id.
func termFrequencyInCurrentDoc(g *GroupIterator) uint32 {
	var tf uint32
	for _, c := range g.CursorsAtCurrent() {
		tf += uint32(len(c.Posting().Positions))
	}
	return tf
}
