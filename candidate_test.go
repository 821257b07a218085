package fts

import (
	"sort"
	"testing"
)

func setupCandidateFixture() (*TokenTrie, *TokenDictionary) {
	dict := NewTokenDictionary()
	trie := NewTokenTrie()
	for _, w := range []string{"cat", "cats", "cot", "dog", "dogs", "search"} {
		id := dict.Intern(w)
		trie.Insert(w, id)
	}
	return trie, dict
}

func idsFor(dict *TokenDictionary, words ...string) []TokenID {
	ids := make([]TokenID, 0, len(words))
	for _, w := range words {
		id, ok := dict.LookupID(w)
		if !ok {
			panic("word not interned: " + w)
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func sortedIDs(ids []TokenID) []TokenID {
	out := append([]TokenID(nil), ids...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func TestFindCandidates_ExactLookup(t *testing.T) {
	trie, dict := setupCandidateFixture()

	got := FindCandidates(trie, dict, "cat", 0)
	want := idsFor(dict, "cat")
	if len(got) != 1 || got[0] != want[0] {
		t.Errorf("FindCandidates(n=0) = %v, want %v", got, want)
	}

	if got := FindCandidates(trie, dict, "nonexistent", 0); got != nil {
		t.Errorf("FindCandidates(n=0) for unknown word = %v, want nil", got)
	}
}

func TestFindCandidates_FuzzyRadius1(t *testing.T) {
	trie, dict := setupCandidateFixture()

	got := sortedIDs(FindCandidates(trie, dict, "cat", 1))
	want := idsFor(dict, "cat", "cats", "cot")
	if len(got) != len(want) {
		t.Fatalf("FindCandidates(\"cat\", 1) = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("FindCandidates(\"cat\", 1)[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestFindCandidates_NoMatch(t *testing.T) {
	trie, dict := setupCandidateFixture()
	got := FindCandidates(trie, dict, "zzzzz", 1)
	if len(got) != 0 {
		t.Errorf("FindCandidates() for a wildly divergent query = %v, want empty", got)
	}
}

func TestFindCandidates_RadiusZeroNeverFuzzes(t *testing.T) {
	trie, dict := setupCandidateFixture()
	// "cats" is within edit distance 1 of "cat", but at n=0 only an exact
	// dictionary match may be returned.
	got := FindCandidates(trie, dict, "cats", 0)
	want := idsFor(dict, "cats")
	if len(got) != 1 || got[0] != want[0] {
		t.Errorf("FindCandidates(\"cats\", 0) = %v, want exactly %v", got, want)
	}
}
