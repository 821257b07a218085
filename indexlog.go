package fts

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
)

// ═══════════════════════════════════════════════════════════════════════
// INVERTED-INDEX LOG: append-only ADD/DELETE entries + tail-first replay
// ═══════════════════════════════════════════════════════════════════════
// Grounded on the teacher's serialization.go length-prefixed record
// framing, generalized from a single whole-index snapshot format to an
// incremental append-only operation log plus a fixed-size side index
// (IndexRecord) enabling the backward scan spec.md §4.11 requires.
// ═══════════════════════════════════════════════════════════════════════

const indexRecordSize = 16 + 8 + 4 // doc_id | offset | size

const (
	opAdd    byte = 0
	opDelete byte = 1
)

// IndexLog is the `index` + `index_meta` file pair.
type IndexLog struct {
	indexFile *os.File
	indexPath string
	metaPath  string
	index     *bufferedAppender
	meta      *bufferedAppender
}

// OpenIndexLog opens (creating if absent) the index and index_meta files
// under root.
func OpenIndexLog(root string, cfg Config, fl *flusher) (*IndexLog, error) {
	indexPath := filepath.Join(root, "index")
	metaPath := filepath.Join(root, "index_meta")
	indexFile, err := os.OpenFile(indexPath, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}
	metaFile, err := os.OpenFile(metaPath, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}
	indexApp, err := newBufferedAppender(indexFile, cfg.FlushBytes, cfg.FlushInterval)
	if err != nil {
		return nil, err
	}
	metaApp, err := newBufferedAppender(metaFile, cfg.FlushBytes, cfg.FlushInterval)
	if err != nil {
		return nil, err
	}
	fl.register(indexApp)
	fl.register(metaApp)
	return &IndexLog{indexFile: indexFile, indexPath: indexPath, metaPath: metaPath, index: indexApp, meta: metaApp}, nil
}

func encodeAddEntry(tokenID TokenID, postingsNumAfter uint32, doc DocID, positions []uint32) []byte {
	buf := make([]byte, 1+4+4+16+4+4*len(positions))
	buf[0] = opAdd
	binary.LittleEndian.PutUint32(buf[1:5], uint32(tokenID))
	binary.LittleEndian.PutUint32(buf[5:9], postingsNumAfter)
	copy(buf[9:25], doc[:])
	binary.LittleEndian.PutUint32(buf[25:29], uint32(len(positions)))
	off := 29
	for _, p := range positions {
		binary.LittleEndian.PutUint32(buf[off:off+4], p)
		off += 4
	}
	return buf
}

func encodeDeleteEntry(tokenID TokenID, postingsNumAfter uint32) []byte {
	buf := make([]byte, 1+4+4)
	buf[0] = opDelete
	binary.LittleEndian.PutUint32(buf[1:5], uint32(tokenID))
	binary.LittleEndian.PutUint32(buf[5:9], postingsNumAfter)
	return buf
}

func (l *IndexLog) appendRecord(doc DocID, entry []byte) {
	offset := l.index.Append(entry)
	rec := make([]byte, indexRecordSize)
	copy(rec[0:16], doc[:])
	binary.LittleEndian.PutUint64(rec[16:24], uint64(offset))
	binary.LittleEndian.PutUint32(rec[24:28], uint32(len(entry)))
	l.meta.Append(rec)
}

// AppendAdd journals one (token, doc) posting contributed by an ADD.
func (l *IndexLog) AppendAdd(doc DocID, tokenID TokenID, positions []uint32, postingsNumAfter uint32) {
	l.appendRecord(doc, encodeAddEntry(tokenID, postingsNumAfter, doc, positions))
	_ = l.index.MaybeFlush()
	_ = l.meta.MaybeFlush()
}

// AppendDelete journals that tokenID's posting for doc was removed.
func (l *IndexLog) AppendDelete(doc DocID, tokenID TokenID, postingsNumAfter uint32) {
	l.appendRecord(doc, encodeDeleteEntry(tokenID, postingsNumAfter))
	_ = l.index.MaybeFlush()
	_ = l.meta.MaybeFlush()
}

func (l *IndexLog) Flush() error {
	if err := l.index.Flush(); err != nil {
		return err
	}
	return l.meta.Flush()
}

func (l *IndexLog) Close() error {
	if err := l.index.Close(); err != nil {
		return err
	}
	return l.meta.Close()
}

// decodedEntry is one parsed LogEntry.
type decodedEntry struct {
	op         byte
	tokenID    TokenID
	positions  []uint32
}

func decodeEntry(buf []byte) (decodedEntry, error) {
	if len(buf) < 9 {
		return decodedEntry{}, fmt.Errorf("fts: %w: truncated log entry", ErrCorruptData)
	}
	e := decodedEntry{op: buf[0], tokenID: TokenID(binary.LittleEndian.Uint32(buf[1:5]))}
	if e.op == opDelete {
		return e, nil
	}
	if len(buf) < 29 {
		return decodedEntry{}, fmt.Errorf("fts: %w: truncated add entry", ErrCorruptData)
	}
	n := binary.LittleEndian.Uint32(buf[25:29])
	positions := make([]uint32, n)
	off := 29
	for i := range positions {
		if len(buf) < off+4 {
			return decodedEntry{}, fmt.Errorf("fts: %w: truncated positions", ErrCorruptData)
		}
		positions[i] = binary.LittleEndian.Uint32(buf[off : off+4])
		off += 4
	}
	e.positions = positions
	return e, nil
}

// Replay rebuilds an InvertedIndex from the index/index_meta files by
// scanning index_meta back to front, per spec.md §4.11. Each doc_id's
// most recent operation determines whether it contributes at all; since
// a re-add after delete is illegal (spec.md §9), every ADD-only doc_id
// has exactly one contiguous run of per-token ADD entries, all of which
// are applied once the doc's fate is resolved as "ADD" from its most
// recent entry.
func (l *IndexLog) Replay(dict *TokenDictionary) (*InvertedIndex, error) {
	if err := l.Flush(); err != nil {
		return nil, err
	}

	metaBytes, err := readAllTolerateTruncated(l.metaPath, indexRecordSize)
	if err != nil {
		return nil, err
	}
	n := len(metaBytes) / indexRecordSize
	if rem := len(metaBytes) % indexRecordSize; rem != 0 {
		metaBytes = metaBytes[:n*indexRecordSize]
		if err := truncateFile(l.metaPath, int64(n*indexRecordSize)); err != nil {
			return nil, err
		}
	}

	decided := make(map[DocID]bool)
	accum := make(map[DocID]map[TokenID][]uint32)

	for i := n - 1; i >= 0; i-- {
		rec := metaBytes[i*indexRecordSize : (i+1)*indexRecordSize]
		var doc DocID
		copy(doc[:], rec[0:16])
		offset := int64(binary.LittleEndian.Uint64(rec[16:24]))
		size := binary.LittleEndian.Uint32(rec[24:28])

		entryBuf := make([]byte, size)
		if _, err := l.indexFile.ReadAt(entryBuf, offset); err != nil {
			return nil, fmt.Errorf("fts: read log entry: %w", err)
		}
		entry, err := decodeEntry(entryBuf)
		if err != nil {
			return nil, err
		}

		apply, known := decided[doc]
		if !known {
			apply = entry.op == opAdd
			decided[doc] = apply
		}
		if !apply || entry.op != opAdd {
			continue
		}

		if _, ok := accum[doc]; !ok {
			accum[doc] = make(map[TokenID][]uint32)
		}
		accum[doc][entry.tokenID] = entry.positions
	}

	idx := NewInvertedIndex(dict)
	for doc, toks := range accum {
		var positions []TokenPosition
		for tid, pos := range toks {
			str, ok := dict.LookupString(tid)
			if !ok {
				continue
			}
			for _, p := range pos {
				positions = append(positions, TokenPosition{Token: str, Position: p})
			}
		}
		if _, err := idx.Add(doc, positions); err != nil {
			return nil, fmt.Errorf("fts: replay add %s: %w", doc, err)
		}
	}
	return idx, nil
}
