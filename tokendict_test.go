package fts

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewTokenDictionary(t *testing.T) {
	td := NewTokenDictionary()
	if _, ok := td.LookupID("anything"); ok {
		t.Error("LookupID() on empty dictionary found something")
	}
}

func TestTokenDictionary_Intern_AssignsSequentialIDs(t *testing.T) {
	td := NewTokenDictionary()
	a := td.Intern("apple")
	b := td.Intern("banana")
	c := td.Intern("cherry")

	if a != 0 || b != 1 || c != 2 {
		t.Errorf("ids = %d,%d,%d, want 0,1,2", a, b, c)
	}
}

func TestTokenDictionary_Intern_Idempotent(t *testing.T) {
	td := NewTokenDictionary()
	first := td.Intern("apple")
	second := td.Intern("apple")
	if first != second {
		t.Errorf("Intern(\"apple\") = %d then %d, want same id", first, second)
	}
}

func TestTokenDictionary_LookupID(t *testing.T) {
	td := NewTokenDictionary()
	id := td.Intern("apple")

	got, ok := td.LookupID("apple")
	if !ok || got != id {
		t.Errorf("LookupID(\"apple\") = %d,%v, want %d,true", got, ok, id)
	}

	if _, ok := td.LookupID("missing"); ok {
		t.Error("LookupID(\"missing\") found something")
	}
}

func TestTokenDictionary_LookupString(t *testing.T) {
	td := NewTokenDictionary()
	id := td.Intern("apple")

	got, ok := td.LookupString(id)
	if !ok || got != "apple" {
		t.Errorf("LookupString(%d) = %q,%v, want \"apple\",true", id, got, ok)
	}

	if _, ok := td.LookupString(TokenID(999)); ok {
		t.Error("LookupString(999) found something")
	}
}

func TestTokenDictionary_IterTokens(t *testing.T) {
	td := NewTokenDictionary()
	td.Intern("apple")
	td.Intern("banana")

	entries := td.IterTokens()
	if len(entries) != 2 {
		t.Fatalf("IterTokens() returned %d entries, want 2", len(entries))
	}
	if entries[0].String != "apple" || entries[0].ID != 0 {
		t.Errorf("entries[0] = %+v, want {apple 0}", entries[0])
	}
	if entries[1].String != "banana" || entries[1].ID != 1 {
		t.Errorf("entries[1] = %+v, want {banana 1}", entries[1])
	}
}

func TestOpenTokenDictionary_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tokens")
	cfg := DefaultConfig()

	td1, err := OpenTokenDictionary(path, cfg)
	if err != nil {
		t.Fatalf("OpenTokenDictionary() error = %v", err)
	}
	apple := td1.Intern("apple")
	banana := td1.Intern("banana")
	if err := td1.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	td2, err := OpenTokenDictionary(path, cfg)
	if err != nil {
		t.Fatalf("reopen OpenTokenDictionary() error = %v", err)
	}
	defer td2.Close()

	if got, ok := td2.LookupID("apple"); !ok || got != apple {
		t.Errorf("after reopen LookupID(\"apple\") = %d,%v, want %d,true", got, ok, apple)
	}
	if got, ok := td2.LookupID("banana"); !ok || got != banana {
		t.Errorf("after reopen LookupID(\"banana\") = %d,%v, want %d,true", got, ok, banana)
	}

	// Interning a brand new token after reopen must continue the sequence.
	cherry := td2.Intern("cherry")
	if cherry != 2 {
		t.Errorf("Intern(\"cherry\") after reopen = %d, want 2", cherry)
	}
}

func TestOpenTokenDictionary_TruncatedTail(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tokens")
	cfg := DefaultConfig()

	td1, err := OpenTokenDictionary(path, cfg)
	if err != nil {
		t.Fatalf("OpenTokenDictionary() error = %v", err)
	}
	td1.Intern("apple")
	if err := td1.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	td1.Intern("banana")
	if err := td1.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	td1.Close()

	// Truncate off the last few bytes, as if the process died mid-write.
	fi, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat error = %v", err)
	}
	if err := truncateFile(path, fi.Size()-2); err != nil {
		t.Fatalf("truncateFile() error = %v", err)
	}

	td2, err := OpenTokenDictionary(path, cfg)
	if err != nil {
		t.Fatalf("reopen after truncation error = %v", err)
	}
	defer td2.Close()

	if _, ok := td2.LookupID("apple"); !ok {
		t.Error("recovered dictionary lost the intact \"apple\" record")
	}
	if _, ok := td2.LookupID("banana"); ok {
		t.Error("recovered dictionary kept the truncated \"banana\" record")
	}
}

func BenchmarkTokenDictionary_Intern(b *testing.B) {
	td := NewTokenDictionary()
	words := []string{"apple", "banana", "cherry", "date", "elderberry"}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		td.Intern(words[i%len(words)])
	}
}
