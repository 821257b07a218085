package fts

// ═══════════════════════════════════════════════════════════════════════
// QUERY AST
// ═══════════════════════════════════════════════════════════════════════
// The query-grammar parser is a collaborator (spec.md §1): only this AST
// is consumed by the engine. A query is a sequence of clauses; all
// clauses must match (implicit AND), per spec.md §6.
// ═══════════════════════════════════════════════════════════════════════

// Clause is one term of a query. Exactly one of the concrete clause
// kinds is set at a time, selected by Kind.
type Clause struct {
	Kind ClauseKind

	// Term / Fuzzy
	Text     string
	MaxEdits int

	// Phrase
	Terms      []string
	Sloppiness int
}

// ClauseKind distinguishes the three clause shapes.
type ClauseKind int

const (
	ClauseTerm ClauseKind = iota
	ClausePhrase
	ClauseFuzzy
)

// Query is a sequence of clauses, all of which must match.
type Query struct {
	Clauses []Clause
}
