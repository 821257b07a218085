package fts

import (
	"fmt"
	"strconv"
	"strings"
)

// ═══════════════════════════════════════════════════════════════════════
// QUERY PARSER (collaborator): query string -> Clause AST
// ═══════════════════════════════════════════════════════════════════════
// The query grammar itself is out of the core's scope (spec.md §1); only
// its output AST matters to the engine. This is a deliberately small
// parser supplementing the distilled spec, in the style of the teacher's
// QueryBuilder (small, linear, no external parser-combinator dependency)
// but adapted to the flat implicit-AND clause list spec.md §6 defines
// rather than the teacher's boolean AND/OR/NOT tree.
//
// Grammar:
//
//	query   := clause ( clause )*
//	clause  := phrase | fuzzy | term
//	phrase  := '"' word ( word )* '"' [ '~' digits ]
//	fuzzy   := word '~' [ digits ]   (bare '~' means 1 edit)
//	term    := word
// ═══════════════════════════════════════════════════════════════════════

// ParseQuery parses a query string into a Query AST, per the grammar
// above. A malformed clause returns a ParseError-flavored error with the
// byte offset and reason embedded in the message.
func ParseQuery(q string) (Query, error) {
	var clauses []Clause
	i := 0
	for i < len(q) {
		for i < len(q) && q[i] == ' ' {
			i++
		}
		if i >= len(q) {
			break
		}

		if q[i] == '"' {
			end := strings.IndexByte(q[i+1:], '"')
			if end < 0 {
				return Query{}, fmt.Errorf("fts: parse error at offset %d: unterminated phrase", i)
			}
			phraseText := q[i+1 : i+1+end]
			i = i + 1 + end + 1

			sloppiness := 0
			if i < len(q) && q[i] == '~' {
				j := i + 1
				for j < len(q) && q[j] >= '0' && q[j] <= '9' {
					j++
				}
				n, err := strconv.Atoi(q[i+1 : j])
				if err != nil {
					return Query{}, fmt.Errorf("fts: parse error at offset %d: invalid sloppiness", i)
				}
				sloppiness = n
				i = j
			}

			terms := strings.Fields(phraseText)
			if len(terms) == 0 {
				return Query{}, fmt.Errorf("fts: parse error at offset %d: empty phrase", i)
			}
			clauses = append(clauses, Clause{Kind: ClausePhrase, Terms: terms, Sloppiness: sloppiness})
			continue
		}

		start := i
		for i < len(q) && q[i] != ' ' && q[i] != '~' {
			i++
		}
		word := q[start:i]
		if word == "" {
			return Query{}, fmt.Errorf("fts: parse error at offset %d: expected term", start)
		}

		if i < len(q) && q[i] == '~' {
			j := i + 1
			for j < len(q) && q[j] >= '0' && q[j] <= '9' {
				j++
			}
			maxEdits := 1
			if j > i+1 {
				n, err := strconv.Atoi(q[i+1 : j])
				if err != nil {
					return Query{}, fmt.Errorf("fts: parse error at offset %d: invalid edit distance", i)
				}
				maxEdits = n
			}
			if maxEdits < 0 || maxEdits > 2 {
				return Query{}, fmt.Errorf("fts: parse error at offset %d: max_edits must be 0, 1 or 2", i)
			}
			clauses = append(clauses, Clause{Kind: ClauseFuzzy, Text: word, MaxEdits: maxEdits})
			i = j
			continue
		}

		clauses = append(clauses, Clause{Kind: ClauseTerm, Text: word, MaxEdits: 0})
	}

	if len(clauses) == 0 {
		return Query{}, fmt.Errorf("fts: parse error: empty query")
	}
	return Query{Clauses: clauses}, nil
}
