package fts

import "testing"

func TestParseQuery_SingleTerm(t *testing.T) {
	q, err := ParseQuery("fox")
	if err != nil {
		t.Fatalf("ParseQuery() error = %v", err)
	}
	if len(q.Clauses) != 1 || q.Clauses[0].Kind != ClauseTerm || q.Clauses[0].Text != "fox" {
		t.Errorf("ParseQuery(\"fox\") = %+v, want a single Term clause \"fox\"", q.Clauses)
	}
}

func TestParseQuery_ImplicitAND(t *testing.T) {
	q, err := ParseQuery("quick fox")
	if err != nil {
		t.Fatalf("ParseQuery() error = %v", err)
	}
	if len(q.Clauses) != 2 {
		t.Fatalf("ParseQuery(\"quick fox\") = %d clauses, want 2", len(q.Clauses))
	}
	if q.Clauses[0].Text != "quick" || q.Clauses[1].Text != "fox" {
		t.Errorf("clauses = %+v, want [quick fox]", q.Clauses)
	}
}

func TestParseQuery_Phrase(t *testing.T) {
	q, err := ParseQuery(`"quick brown fox"`)
	if err != nil {
		t.Fatalf("ParseQuery() error = %v", err)
	}
	if len(q.Clauses) != 1 || q.Clauses[0].Kind != ClausePhrase {
		t.Fatalf("ParseQuery() = %+v, want a single Phrase clause", q.Clauses)
	}
	want := []string{"quick", "brown", "fox"}
	got := q.Clauses[0].Terms
	if len(got) != len(want) {
		t.Fatalf("Terms = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Terms[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if q.Clauses[0].Sloppiness != 0 {
		t.Errorf("Sloppiness = %d, want 0", q.Clauses[0].Sloppiness)
	}
}

func TestParseQuery_PhraseWithSloppiness(t *testing.T) {
	q, err := ParseQuery(`"quick fox"~2`)
	if err != nil {
		t.Fatalf("ParseQuery() error = %v", err)
	}
	if q.Clauses[0].Sloppiness != 2 {
		t.Errorf("Sloppiness = %d, want 2", q.Clauses[0].Sloppiness)
	}
}

func TestParseQuery_FuzzyTerm(t *testing.T) {
	q, err := ParseQuery("fox~1")
	if err != nil {
		t.Fatalf("ParseQuery() error = %v", err)
	}
	if q.Clauses[0].Kind != ClauseFuzzy || q.Clauses[0].MaxEdits != 1 {
		t.Errorf("ParseQuery(\"fox~1\") = %+v, want Fuzzy clause with MaxEdits=1", q.Clauses[0])
	}
}

func TestParseQuery_FuzzyDefaultEditsIsOne(t *testing.T) {
	q, err := ParseQuery("fox~")
	if err != nil {
		t.Fatalf("ParseQuery() error = %v", err)
	}
	if q.Clauses[0].MaxEdits != 1 {
		t.Errorf("bare \"~\" MaxEdits = %d, want 1", q.Clauses[0].MaxEdits)
	}
}

func TestParseQuery_FuzzyEditsOutOfRange(t *testing.T) {
	if _, err := ParseQuery("fox~3"); err == nil {
		t.Error("ParseQuery(\"fox~3\") should fail: max_edits must be 0, 1 or 2")
	}
}

func TestParseQuery_UnterminatedPhrase(t *testing.T) {
	if _, err := ParseQuery(`"quick fox`); err == nil {
		t.Error("ParseQuery() with an unterminated phrase should fail")
	}
}

func TestParseQuery_EmptyPhrase(t *testing.T) {
	if _, err := ParseQuery(`""`); err == nil {
		t.Error("ParseQuery() with an empty phrase should fail")
	}
}

func TestParseQuery_EmptyQuery(t *testing.T) {
	if _, err := ParseQuery("   "); err == nil {
		t.Error("ParseQuery() on a blank query should fail")
	}
}

func TestParseQuery_MixedClauses(t *testing.T) {
	q, err := ParseQuery(`fox~1 "brown bear"~1 quick`)
	if err != nil {
		t.Fatalf("ParseQuery() error = %v", err)
	}
	if len(q.Clauses) != 3 {
		t.Fatalf("ParseQuery() = %d clauses, want 3", len(q.Clauses))
	}
	if q.Clauses[0].Kind != ClauseFuzzy {
		t.Errorf("clause 0 kind = %v, want ClauseFuzzy", q.Clauses[0].Kind)
	}
	if q.Clauses[1].Kind != ClausePhrase {
		t.Errorf("clause 1 kind = %v, want ClausePhrase", q.Clauses[1].Kind)
	}
	if q.Clauses[2].Kind != ClauseTerm {
		t.Errorf("clause 2 kind = %v, want ClauseTerm", q.Clauses[2].Kind)
	}
}
