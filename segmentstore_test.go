package fts

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func smallSegmentConfig() Config {
	cfg := DefaultConfig()
	cfg.FlushBytes = 1 << 20
	cfg.FlushInterval = time.Hour // tests flush explicitly
	return cfg
}

func openTestStore(t *testing.T, root string, cfg Config) (*SegmentStore, *flusher) {
	t.Helper()
	fl := newFlusher(time.Hour)
	ss, err := OpenSegmentStore(root, cfg, fl)
	if err != nil {
		t.Fatalf("OpenSegmentStore() error = %v", err)
	}
	return ss, fl
}

func TestSegmentStore_PutGet(t *testing.T) {
	root := t.TempDir()
	ss, _ := openTestStore(t, root, smallSegmentConfig())
	defer ss.Close()

	doc := docIDFromByte(1)
	body := []byte("the quick brown fox")
	if _, err := ss.Put(doc, body, 4); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, err := ss.Get(doc)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != string(body) {
		t.Errorf("Get() = %q, want %q", got, body)
	}
}

func TestSegmentStore_Get_ServesFromPendingBuffer(t *testing.T) {
	// Without an explicit Flush, the body should still be readable from
	// the bufferedAppender's in-memory pending tail.
	root := t.TempDir()
	cfg := smallSegmentConfig()
	cfg.FlushBytes = 1 << 30 // never auto-flush
	ss, _ := openTestStore(t, root, cfg)
	defer ss.Close()

	doc := docIDFromByte(1)
	body := []byte("unflushed body")
	if _, err := ss.Put(doc, body, 2); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, err := ss.Get(doc)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != string(body) {
		t.Errorf("Get() = %q, want %q", got, body)
	}
}

func TestSegmentStore_Get_NotFound(t *testing.T) {
	root := t.TempDir()
	ss, _ := openTestStore(t, root, smallSegmentConfig())
	defer ss.Close()

	if _, err := ss.Get(docIDFromByte(9)); err != ErrNotFound {
		t.Errorf("Get() on unknown doc error = %v, want ErrNotFound", err)
	}
}

func TestSegmentStore_Delete(t *testing.T) {
	root := t.TempDir()
	ss, _ := openTestStore(t, root, smallSegmentConfig())
	defer ss.Close()

	doc := docIDFromByte(1)
	if _, err := ss.Put(doc, []byte("body"), 1); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := ss.Delete(doc); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := ss.Get(doc); err != ErrNotFound {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}
}

func TestSegmentStore_Delete_AlreadyDeleted(t *testing.T) {
	root := t.TempDir()
	ss, _ := openTestStore(t, root, smallSegmentConfig())
	defer ss.Close()

	doc := docIDFromByte(1)
	ss.Put(doc, []byte("body"), 1)
	ss.Delete(doc)
	if err := ss.Delete(doc); err != ErrNotFound {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}

func TestSegmentStore_Delete_Unknown(t *testing.T) {
	root := t.TempDir()
	ss, _ := openTestStore(t, root, smallSegmentConfig())
	defer ss.Close()

	if err := ss.Delete(docIDFromByte(1)); err != ErrNotFound {
		t.Errorf("Delete() on unknown doc error = %v, want ErrNotFound", err)
	}
}

func TestSegmentStore_SealsAtSegmentMaxBytes(t *testing.T) {
	root := t.TempDir()
	cfg := smallSegmentConfig()
	cfg.SegmentMaxBytes = 8 // tiny, forces a seal almost immediately
	ss, _ := openTestStore(t, root, cfg)
	defer ss.Close()

	ss.Put(docIDFromByte(1), []byte("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"), 1)
	ss.Put(docIDFromByte(2), []byte("bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"), 1)

	if len(ss.segments) < 2 {
		t.Errorf("segments = %d, want at least 2 once the first sealed", len(ss.segments))
	}
}

func TestSegmentStore_GetAfterSeal(t *testing.T) {
	// doc1's bytes must be durable the instant its segment seals, since
	// Get's non-active path reads straight off disk and never consults
	// the sealed segment's pending buffer.
	root := t.TempDir()
	cfg := smallSegmentConfig()
	cfg.FlushBytes = 1 << 30 // never auto-flush on size/time alone
	cfg.SegmentMaxBytes = 8  // forces doc1's segment to seal once doc2 lands
	ss, _ := openTestStore(t, root, cfg)
	defer ss.Close()

	doc1 := docIDFromByte(1)
	doc2 := docIDFromByte(2)
	body1 := []byte("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	if _, err := ss.Put(doc1, body1, 1); err != nil {
		t.Fatalf("Put(doc1) error = %v", err)
	}
	if _, err := ss.Put(doc2, []byte("bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"), 1); err != nil {
		t.Fatalf("Put(doc2) error = %v", err)
	}

	if len(ss.segments) < 2 {
		t.Fatalf("segments = %d, want at least 2 once doc1's sealed", len(ss.segments))
	}

	got, err := ss.Get(doc1)
	if err != nil {
		t.Fatalf("Get(doc1) after its segment sealed, error = %v", err)
	}
	if string(got) != string(body1) {
		t.Errorf("Get(doc1) = %q, want %q", got, body1)
	}
}

func TestSegmentStore_ReopenPersistsMeta(t *testing.T) {
	root := t.TempDir()
	cfg := smallSegmentConfig()

	ss, fl := openTestStore(t, root, cfg)
	doc := docIDFromByte(1)
	body := []byte("persisted body")
	if _, err := ss.Put(doc, body, 2); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := fl.FlushAll(); err != nil {
		t.Fatalf("FlushAll() error = %v", err)
	}
	if err := ss.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	ss2, fl2 := openTestStore(t, root, cfg)
	defer ss2.Close()
	defer fl2.Shutdown()

	got, err := ss2.Get(doc)
	if err != nil {
		t.Fatalf("Get() after reopen error = %v", err)
	}
	if string(got) != string(body) {
		t.Errorf("Get() after reopen = %q, want %q", got, body)
	}
}

func TestSegmentStore_ReopenTruncatedTail(t *testing.T) {
	root := t.TempDir()
	cfg := smallSegmentConfig()

	ss, fl := openTestStore(t, root, cfg)
	doc1 := docIDFromByte(1)
	doc2 := docIDFromByte(2)
	ss.Put(doc1, []byte("first"), 1)
	if err := fl.FlushAll(); err != nil {
		t.Fatalf("FlushAll() error = %v", err)
	}
	ss.Put(doc2, []byte("second"), 1)
	if err := fl.FlushAll(); err != nil {
		t.Fatalf("FlushAll() error = %v", err)
	}
	if err := ss.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	// Corrupt the tail of the meta file for segment 0 by truncating off
	// its last few bytes, simulating a crash mid-write of doc2's record.
	metaPath := filepath.Join(root, "segments", "0", "meta")
	if err := truncateFile(metaPath, fileSize(t, metaPath)-2); err != nil {
		t.Fatalf("truncateFile() error = %v", err)
	}

	ss2, fl2 := openTestStore(t, root, cfg)
	defer ss2.Close()
	defer fl2.Shutdown()

	if _, err := ss2.Get(doc1); err != nil {
		t.Errorf("Get(doc1) after truncated tail error = %v, want nil (first record intact)", err)
	}
	if _, err := ss2.Get(doc2); err != ErrNotFound {
		t.Errorf("Get(doc2) after truncated tail error = %v, want ErrNotFound (dropped record)", err)
	}
}

func TestSegmentStore_Merge_SkipsDeletedDocs(t *testing.T) {
	root := t.TempDir()
	cfg := smallSegmentConfig()
	cfg.SegmentMaxBytes = 8 // force doc1's segment to seal once doc2 is written
	cfg.MergeDeletedRatio = 0.1

	ss, fl := openTestStore(t, root, cfg)
	defer fl.Shutdown()

	doc1 := docIDFromByte(1)
	doc2 := docIDFromByte(2)
	ss.Put(doc1, []byte("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"), 1)
	ss.Put(doc2, []byte("bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"), 1)

	if err := ss.Delete(doc1); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := fl.FlushAll(); err != nil {
		t.Fatalf("FlushAll() error = %v", err)
	}

	if err := ss.Merge(); err != nil {
		t.Fatalf("Merge() error = %v", err)
	}

	if _, err := ss.Get(doc1); err != ErrNotFound {
		t.Errorf("Get(doc1) after merge error = %v, want ErrNotFound", err)
	}
	got, err := ss.Get(doc2)
	if err != nil {
		t.Fatalf("Get(doc2) after merge error = %v", err)
	}
	if string(got) != "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb" {
		t.Errorf("Get(doc2) after merge = %q, want original body", got)
	}
}

func fileSize(t *testing.T, path string) int64 {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat %s: %v", path, err)
	}
	return info.Size()
}
