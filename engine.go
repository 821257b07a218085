package fts

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ═══════════════════════════════════════════════════════════════════════
// ENGINE: the top-level orchestration of every component above
// ═══════════════════════════════════════════════════════════════════════
// Grounded on the teacher's top-level InvertedIndex (index.go), which is
// itself the single entry point client code calls into; this Engine
// plays the same role but wires the persistence machinery (segment
// store, index log) and the query pipeline (candidate finder, DAAT,
// matcher, BM25) around it, per the single-writer/parallel-reader model
// of spec.md §5.
// ═══════════════════════════════════════════════════════════════════════

// Engine is the entry point: add/delete documents, run searches, flush
// and merge on demand, and shut down cleanly.
type Engine struct {
	cfg  Config
	root string

	writeMu sync.Mutex // single-writer discipline

	dict     *TokenDictionary
	index    *InvertedIndex
	trie     *TokenTrie
	segments *SegmentStore
	indexLog *IndexLog
	live     *LiveSet

	fl *flusher

	mergeStop chan struct{}
	mergeDone chan struct{}

	closeOnce sync.Once
}

// New opens (creating if absent) an engine rooted at dir.
func New(dir string, cfg Config) (*Engine, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("fts: create root dir: %w", err)
	}

	fl := newFlusher(cfg.FlushInterval)
	go fl.run()

	dict, err := OpenTokenDictionary(filepath.Join(dir, "tokens"), cfg)
	if err != nil {
		return nil, fmt.Errorf("fts: open token dictionary: %w", err)
	}
	if dict.journal != nil {
		fl.register(dict.journal)
	}

	indexLog, err := OpenIndexLog(dir, cfg, fl)
	if err != nil {
		return nil, fmt.Errorf("fts: open index log: %w", err)
	}

	idx, err := indexLog.Replay(dict)
	if err != nil {
		return nil, fmt.Errorf("fts: replay index log: %w", err)
	}

	segments, err := OpenSegmentStore(dir, cfg, fl)
	if err != nil {
		return nil, fmt.Errorf("fts: open segment store: %w", err)
	}

	trie := NewTokenTrie()
	trie.SyncFrom(dict)

	live := NewLiveSet()
	for entry := range iterDocLengths(idx) {
		live.MarkLive(entry)
	}
	for doc, meta := range segments.metaIndex {
		if meta.Deleted {
			live.MarkLive(doc)
			live.MarkDeleted(doc)
		}
	}

	e := &Engine{
		cfg:       cfg,
		root:      dir,
		dict:      dict,
		index:     idx,
		trie:      trie,
		segments:  segments,
		indexLog:  indexLog,
		live:      live,
		fl:        fl,
		mergeStop: make(chan struct{}),
		mergeDone: make(chan struct{}),
	}
	go e.runMerger()
	return e, nil
}

func iterDocLengths(idx *InvertedIndex) <-chan DocID {
	ch := make(chan DocID)
	go func() {
		defer close(ch)
		idx.mu.RLock()
		docs := make([]DocID, 0, len(idx.docLength))
		for d := range idx.docLength {
			docs = append(docs, d)
		}
		idx.mu.RUnlock()
		for _, d := range docs {
			ch <- d
		}
	}()
	return ch
}

// runMerger periodically calls Merge in the background, cooperatively
// cancelled on shutdown, per spec.md §5.
func (e *Engine) runMerger() {
	defer close(e.mergeDone)
	interval := e.cfg.FlushInterval * 10
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-e.mergeStop:
			return
		case <-ticker.C:
			if err := e.segments.Merge(); err != nil {
				slog.Warn("background merge failed", slog.Any("err", err))
			}
		}
	}
}

// Add analyzes text, persists the compressed body, then updates the
// in-memory inverted index and journals the change. Adding a doc_id that
// is currently live or was ever previously added (even if since deleted)
// fails with ErrAlreadyExists, per spec.md §9's resolution of the
// re-add-after-delete open question.
//
// The fallible disk write (segments.Put) runs before any in-memory or
// journal mutation: per spec.md §7 a write-side IoError must abort the
// ingest leaving in-memory state unchanged, and index.Add/indexLog/trie
// have no rollback path of their own once applied.
func (e *Engine) Add(doc DocID, text string) error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	if e.live.KnownBefore(doc) {
		return ErrAlreadyExists
	}

	positions := Analyze(text)

	if _, err := e.segments.Put(doc, []byte(text), uint32(len(positions))); err != nil {
		return fmt.Errorf("fts: persist document body: %w", err)
	}

	entries, err := e.index.Add(doc, positions)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		e.indexLog.AppendAdd(doc, entry.TokenID, entry.Positions, entry.PostingsNumAfter)
		if str, ok := e.dict.LookupString(entry.TokenID); ok {
			e.trie.Insert(str, entry.TokenID)
		}
	}

	e.live.MarkLive(doc)
	return nil
}

// Delete tombstones doc's body, then removes it from the in-memory index
// and journals the change — disk I/O first, for the same rollback-safety
// reason as Add.
func (e *Engine) Delete(doc DocID) error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	if !e.live.IsLive(doc) {
		return ErrNotFound
	}

	if err := e.segments.Delete(doc); err != nil {
		return fmt.Errorf("fts: tombstone document body: %w", err)
	}

	entries, err := e.index.Delete(doc)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		e.indexLog.AppendDelete(doc, entry.TokenID, entry.PostingsNumAfter)
	}
	e.live.MarkDeleted(doc)
	return nil
}

// Flush drains every registered buffer immediately.
func (e *Engine) Flush() error {
	return e.fl.FlushAll()
}

// Merge runs the segment merge synchronously.
func (e *Engine) Merge() error {
	return e.segments.Merge()
}

// Close stops background tasks and performs the final mandatory flush,
// per spec.md §5.
func (e *Engine) Close() error {
	var err error
	e.closeOnce.Do(func() {
		close(e.mergeStop)
		<-e.mergeDone

		if ferr := e.fl.Shutdown(); ferr != nil {
			err = ferr
		}
		if cerr := e.segments.Close(); cerr != nil && err == nil {
			err = cerr
		}
		if cerr := e.indexLog.Close(); cerr != nil && err == nil {
			err = cerr
		}
		if cerr := e.dict.Close(); cerr != nil && err == nil {
			err = cerr
		}
	})
	return err
}
