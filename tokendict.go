package fts

import (
	"encoding/binary"
	"os"
	"sync"
)

// TokenID is a monotonically allocated, never-recycled handle for an
// interned token string.
type TokenID uint32

// TokenDictionary is the bidirectional token string <-> TokenID map.
// Assignment is append-only: intern() either returns an existing id or
// allocates the next one and journals it, it never reassigns or removes.
type TokenDictionary struct {
	mu       sync.RWMutex
	strToID  map[string]TokenID
	idToStr  []string
	journal  *bufferedAppender // nil for a purely in-memory dictionary
}

// NewTokenDictionary creates an empty, non-persistent dictionary.
func NewTokenDictionary() *TokenDictionary {
	return &TokenDictionary{strToID: make(map[string]TokenID)}
}

// OpenTokenDictionary opens (creating if absent) the `tokens` journal at
// path and replays it to rebuild the in-memory map, per spec.md §4.1.
func OpenTokenDictionary(path string, cfg Config) (*TokenDictionary, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}

	td := NewTokenDictionary()
	if err := td.replay(f); err != nil {
		f.Close()
		return nil, err
	}

	appender, err := newBufferedAppender(f, cfg.FlushBytes, cfg.FlushInterval)
	if err != nil {
		f.Close()
		return nil, err
	}
	td.journal = appender
	return td, nil
}

// replay does a full sequential scan of the tokens file, tolerating only
// a truncated final record: a size prefix that promises more bytes than
// the file actually has. Everything up to that point is kept and the
// file is truncated there, per spec.md §4.10's truncated-tail rule
// (applied identically here, since the tokens journal shares the same
// append-only discipline as the segment meta file).
func (td *TokenDictionary) replay(f *os.File) error {
	info, err := f.Stat()
	if err != nil {
		return err
	}
	size := info.Size()

	buf := make([]byte, size)
	if _, err := f.ReadAt(buf, 0); err != nil && size > 0 {
		return err
	}

	offset := int64(0)
	for offset < size {
		if size-offset < 4 {
			break // truncated length prefix
		}
		strLen := int64(binary.LittleEndian.Uint32(buf[offset : offset+4]))
		need := 4 + strLen + 4
		if size-offset < need {
			break // truncated record
		}
		str := string(buf[offset+4 : offset+4+strLen])
		id := TokenID(binary.LittleEndian.Uint32(buf[offset+4+strLen : offset+4+strLen+4]))

		td.strToID[str] = id
		for int(id) >= len(td.idToStr) {
			td.idToStr = append(td.idToStr, "")
		}
		td.idToStr[id] = str

		offset += need
	}

	if offset < size {
		if err := truncateFile(f.Name(), offset); err != nil {
			return err
		}
	}
	return nil
}

// Intern returns the existing TokenID for s, or allocates and journals a
// fresh one.
func (td *TokenDictionary) Intern(s string) TokenID {
	td.mu.RLock()
	if id, ok := td.strToID[s]; ok {
		td.mu.RUnlock()
		return id
	}
	td.mu.RUnlock()

	td.mu.Lock()
	defer td.mu.Unlock()

	// Re-check: another writer may have interned s while we upgraded the lock.
	if id, ok := td.strToID[s]; ok {
		return id
	}

	id := TokenID(len(td.idToStr))
	td.idToStr = append(td.idToStr, s)
	td.strToID[s] = id

	if td.journal != nil {
		td.journal.Append(encodeTokenRecord(s, id))
	}
	return id
}

func encodeTokenRecord(s string, id TokenID) []byte {
	buf := make([]byte, 4+len(s)+4)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(s)))
	copy(buf[4:4+len(s)], s)
	binary.LittleEndian.PutUint32(buf[4+len(s):], uint32(id))
	return buf
}

// LookupID returns the TokenID for s, if it has ever been interned.
func (td *TokenDictionary) LookupID(s string) (TokenID, bool) {
	td.mu.RLock()
	defer td.mu.RUnlock()
	id, ok := td.strToID[s]
	return id, ok
}

// LookupString returns the token string for id.
func (td *TokenDictionary) LookupString(id TokenID) (string, bool) {
	td.mu.RLock()
	defer td.mu.RUnlock()
	if int(id) >= len(td.idToStr) {
		return "", false
	}
	return td.idToStr[id], true
}

// TokenEntry pairs a token string with its id, for IterTokens.
type TokenEntry struct {
	String string
	ID     TokenID
}

// IterTokens returns every (string, TokenID) pair known to the
// dictionary, in allocation order.
func (td *TokenDictionary) IterTokens() []TokenEntry {
	td.mu.RLock()
	defer td.mu.RUnlock()
	out := make([]TokenEntry, len(td.idToStr))
	for id, s := range td.idToStr {
		out[id] = TokenEntry{String: s, ID: TokenID(id)}
	}
	return out
}

func (td *TokenDictionary) Flush() error {
	if td.journal == nil {
		return nil
	}
	return td.journal.Flush()
}

func (td *TokenDictionary) Close() error {
	if td.journal == nil {
		return nil
	}
	return td.journal.Close()
}
