package fts

// ═══════════════════════════════════════════════════════════════════════
// LEVENSHTEIN AUTOMATON: parametric DFA of fixed edit radius N
// ═══════════════════════════════════════════════════════════════════════
// No library in the retrieval pack builds a parametric Levenshtein
// automaton (the pack's edit-distance helpers, e.g. agnivade/levenshtein,
// only compute a final distance, not a steppable automaton state), so
// this is hand-rolled. A state is one full row of the classic
// edit-distance DP table: for every position j in [0, len(q)], the edit
// distance between the first j characters of q and the input consumed so
// far. Each Step computes the next row (length len(q)+1) directly; there
// is no 2N+1 window, no characteristic-vector encoding and no
// precomputed per-radius transition table. It accepts the same strings
// as the parametric Schulz-Mihov DFA of radius N.
// ═══════════════════════════════════════════════════════════════════════

// LevenshteinState is one row of the underlying DP table: row[j] is the
// edit distance between q[:j] and the input characters consumed so far.
type LevenshteinState struct {
	row []int
}

// LevenshteinAutomaton recognizes every string within edit distance N of
// q, for N in {0, 1, 2}.
type LevenshteinAutomaton struct {
	query []rune
	n     int
}

func NewLevenshteinAutomaton(q string, n int) *LevenshteinAutomaton {
	return &LevenshteinAutomaton{query: []rune(q), n: n}
}

// Start returns the automaton's initial state: the base row 0..len(q).
func (a *LevenshteinAutomaton) Start() LevenshteinState {
	row := make([]int, len(a.query)+1)
	for j := range row {
		row[j] = j
	}
	return LevenshteinState{row: row}
}

// Step consumes one input character and returns the successor state.
func (a *LevenshteinAutomaton) Step(s LevenshteinState, c rune) LevenshteinState {
	next := make([]int, len(s.row))
	next[0] = s.row[0] + 1
	for j := 1; j < len(s.row); j++ {
		cost := 1
		if a.query[j-1] == c {
			cost = 0
		}
		del := s.row[j] + 1     // deletion from q
		ins := next[j-1] + 1    // insertion into q
		sub := s.row[j-1] + cost // substitution (or match)
		best := del
		if ins < best {
			best = ins
		}
		if sub < best {
			best = sub
		}
		next[j] = best
	}
	return LevenshteinState{row: next}
}

// IsAccepting reports whether the input consumed so far is within N
// edits of the full query q.
func (a *LevenshteinAutomaton) IsAccepting(s LevenshteinState) bool {
	return s.row[len(s.row)-1] <= a.n
}

// IsDead reports whether no suffix of further input can bring the state
// back within radius N — true once every entry in the row exceeds N,
// since edit distance is monotonically non-decreasing along any single
// row entry as more of the same prefix is extended.
func (a *LevenshteinAutomaton) IsDead(s LevenshteinState) bool {
	min := s.row[0]
	for _, v := range s.row[1:] {
		if v < min {
			min = v
		}
	}
	return min > a.n
}
