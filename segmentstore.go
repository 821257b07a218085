package fts

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/pierrec/lz4/v4"
)

// ═══════════════════════════════════════════════════════════════════════
// DOCUMENT SEGMENT STORE
// ═══════════════════════════════════════════════════════════════════════
// Grounded on the teacher's serialization.go (Encode/Decode of a binary
// format with a length-prefixed header followed by per-term records) for
// the meta/del record framing, and on analyzer.go's overall "pipeline of
// small buffered steps" style for put/get. Document bodies are
// lz4-compressed (pierrec/lz4/v4) the way the teacher never had occasion
// to (it indexes position data, not document bodies) but which the
// domain stack calls for once real documents are persisted.
// ═══════════════════════════════════════════════════════════════════════

const metaRecordSize = 16 + 8 + 8 + 4 + 4 + 1 // doc_id|seg_id|offset|compressed_size|token_count|deleted
const delRecordSize = 16 + 4                  // doc_id|size

// DocumentMeta is the durable record of where one document's compressed
// body lives.
type DocumentMeta struct {
	DocID          DocID
	SegmentID      uint64
	Offset         int64
	CompressedSize uint32
	TokenCount     uint32
	Deleted        bool
}

func encodeMeta(m DocumentMeta) []byte {
	buf := make([]byte, metaRecordSize)
	copy(buf[0:16], m.DocID[:])
	binary.LittleEndian.PutUint64(buf[16:24], m.SegmentID)
	binary.LittleEndian.PutUint64(buf[24:32], uint64(m.Offset))
	binary.LittleEndian.PutUint32(buf[32:36], m.CompressedSize)
	binary.LittleEndian.PutUint32(buf[36:40], m.TokenCount)
	if m.Deleted {
		buf[40] = 1
	}
	return buf
}

func decodeMeta(buf []byte) DocumentMeta {
	var m DocumentMeta
	copy(m.DocID[:], buf[0:16])
	m.SegmentID = binary.LittleEndian.Uint64(buf[16:24])
	m.Offset = int64(binary.LittleEndian.Uint64(buf[24:32]))
	m.CompressedSize = binary.LittleEndian.Uint32(buf[32:36])
	m.TokenCount = binary.LittleEndian.Uint32(buf[36:40])
	m.Deleted = buf[40] != 0
	return m
}

// segment is one (data, meta, del) file triple.
type segment struct {
	id           uint64
	dir          string
	dataFile     *os.File
	data         *bufferedAppender
	meta         *bufferedAppender
	del          *bufferedAppender
	bytesWritten int64
	deletedBytes int64
	sealed       bool
}

func segmentDir(root string, id uint64) string {
	return filepath.Join(root, "segments", fmt.Sprintf("%d", id))
}

func openSegment(root string, id uint64, cfg Config) (*segment, error) {
	dir := segmentDir(root, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	dataFile, err := os.OpenFile(filepath.Join(dir, "data"), os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}
	metaFile, err := os.OpenFile(filepath.Join(dir, "meta"), os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}
	delFile, err := os.OpenFile(filepath.Join(dir, "del"), os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}

	dataApp, err := newBufferedAppender(dataFile, cfg.FlushBytes, cfg.FlushInterval)
	if err != nil {
		return nil, err
	}
	metaApp, err := newBufferedAppender(metaFile, cfg.FlushBytes, cfg.FlushInterval)
	if err != nil {
		return nil, err
	}
	delApp, err := newBufferedAppender(delFile, cfg.FlushBytes, cfg.FlushInterval)
	if err != nil {
		return nil, err
	}

	info, err := dataFile.Stat()
	if err != nil {
		return nil, err
	}
	return &segment{id: id, dir: dir, dataFile: dataFile, data: dataApp, meta: metaApp, del: delApp, bytesWritten: info.Size()}, nil
}

// SegmentStore is a directory of segments holding compressed document
// bodies, their metadata, and tombstones, per spec.md §4.10.
type SegmentStore struct {
	mu        sync.Mutex
	root      string
	cfg       Config
	segments  map[uint64]*segment
	active    *segment
	metaIndex map[DocID]*DocumentMeta
	nextSeg   uint64
	flusher   *flusher
}

// OpenSegmentStore opens (creating if absent) the segment directory
// under root, replaying every segment's meta/del files per spec.md
// §4.10's startup scan.
func OpenSegmentStore(root string, cfg Config, fl *flusher) (*SegmentStore, error) {
	ss := &SegmentStore{
		root:      root,
		cfg:       cfg,
		segments:  make(map[uint64]*segment),
		metaIndex: make(map[DocID]*DocumentMeta),
		flusher:   fl,
	}

	segRoot := filepath.Join(root, "segments")
	entries, err := os.ReadDir(segRoot)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	var maxID uint64
	haveSeg := false
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		var id uint64
		if _, err := fmt.Sscanf(e.Name(), "%d", &id); err != nil {
			continue
		}
		seg, err := openSegment(root, id, cfg)
		if err != nil {
			return nil, err
		}
		if err := ss.loadSegment(seg); err != nil {
			return nil, err
		}
		ss.segments[id] = seg
		ss.flusher.register(seg.data)
		ss.flusher.register(seg.meta)
		ss.flusher.register(seg.del)
		if id >= maxID {
			maxID = id
			haveSeg = true
		}
	}

	ss.nextSeg = maxID
	if haveSeg {
		ss.nextSeg = maxID + 1
	}

	if haveSeg {
		if last, ok := ss.segments[maxID]; ok && last.bytesWritten < cfg.SegmentMaxBytes {
			ss.active = last
		}
	}
	if ss.active == nil {
		if err := ss.allocateActive(); err != nil {
			return nil, err
		}
	}
	return ss, nil
}

// loadSegment scans one segment's meta and del files into ss.metaIndex,
// tolerating only a truncated final record (per spec.md §4.10).
func (ss *SegmentStore) loadSegment(seg *segment) error {
	metaBuf, err := readAllTolerateTruncated(filepath.Join(seg.dir, "meta"), 8)
	if err != nil {
		return err
	}
	offset := 0
	for offset < len(metaBuf) {
		if len(metaBuf)-offset < 8 {
			break
		}
		size := int(binary.LittleEndian.Uint64(metaBuf[offset : offset+8]))
		if len(metaBuf)-offset-8 < size {
			if err := truncateFile(filepath.Join(seg.dir, "meta"), int64(offset)); err != nil {
				return err
			}
			break
		}
		rec := metaBuf[offset+8 : offset+8+size]
		m := decodeMeta(rec)
		cp := m
		ss.metaIndex[m.DocID] = &cp
		offset += 8 + size
	}

	delBuf, err := readAllTolerateTruncated(filepath.Join(seg.dir, "del"), delRecordSize)
	if err != nil {
		return err
	}
	offset = 0
	for offset < len(delBuf) {
		if len(delBuf)-offset < delRecordSize {
			if err := truncateFile(filepath.Join(seg.dir, "del"), int64(offset)); err != nil {
				return err
			}
			break
		}
		var doc DocID
		copy(doc[:], delBuf[offset:offset+16])
		size := binary.LittleEndian.Uint32(delBuf[offset+16 : offset+20])
		if m, ok := ss.metaIndex[doc]; ok {
			m.Deleted = true
			seg.deletedBytes += int64(size)
		}
		offset += delRecordSize
	}

	var bw int64
	for _, m := range ss.metaIndex {
		if m.SegmentID == seg.id {
			end := m.Offset + int64(m.CompressedSize)
			if end > bw {
				bw = end
			}
		}
	}
	if bw > seg.bytesWritten {
		seg.bytesWritten = bw
	}
	return nil
}

func readAllTolerateTruncated(path string, minRecord int) ([]byte, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func truncateFile(path string, size int64) error {
	slog.Warn("truncating corrupt tail", slog.String("file", path), slog.Int64("truncateAt", size))
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Truncate(size)
}

func (ss *SegmentStore) allocateActive() error {
	seg, err := openSegment(ss.root, ss.nextSeg, ss.cfg)
	if err != nil {
		return err
	}
	ss.segments[ss.nextSeg] = seg
	ss.active = seg
	ss.nextSeg++
	ss.flusher.register(seg.data)
	ss.flusher.register(seg.meta)
	ss.flusher.register(seg.del)
	return nil
}

func compress(body []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(body); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompress(data []byte) ([]byte, error) {
	r := lz4.NewReader(bytes.NewReader(data))
	return io.ReadAll(r)
}

// Put compresses body, appends it to the active segment's data file, and
// records a DocumentMeta. The segment is sealed and a fresh one
// allocated when the write would exceed segment_max_bytes.
func (ss *SegmentStore) Put(doc DocID, body []byte, tokenCount uint32) (DocumentMeta, error) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	compressed, err := compress(body)
	if err != nil {
		return DocumentMeta{}, fmt.Errorf("fts: compress document: %w", err)
	}

	if ss.active.bytesWritten+int64(len(compressed)) > ss.cfg.SegmentMaxBytes {
		outgoing := ss.active
		outgoing.sealed = true
		// Get's non-active path reads a sealed segment straight off disk,
		// bypassing bufferedAppender's pending tail entirely, so every
		// byte must be durable before the segment stops being active.
		if err := outgoing.data.Flush(); err != nil {
			return DocumentMeta{}, fmt.Errorf("fts: flush sealed segment: %w", err)
		}
		if err := outgoing.meta.Flush(); err != nil {
			return DocumentMeta{}, fmt.Errorf("fts: flush sealed segment: %w", err)
		}
		if err := ss.allocateActive(); err != nil {
			return DocumentMeta{}, err
		}
	}

	seg := ss.active
	offset := seg.data.Append(compressed)
	seg.bytesWritten += int64(len(compressed))

	meta := DocumentMeta{
		DocID:          doc,
		SegmentID:      seg.id,
		Offset:         offset,
		CompressedSize: uint32(len(compressed)),
		TokenCount:     tokenCount,
	}
	rec := encodeMeta(meta)
	sizeHdr := make([]byte, 8)
	binary.LittleEndian.PutUint64(sizeHdr, uint64(len(rec)))
	seg.meta.Append(sizeHdr)
	seg.meta.Append(rec)

	cp := meta
	ss.metaIndex[doc] = &cp

	_ = seg.data.MaybeFlush()
	_ = seg.meta.MaybeFlush()

	return meta, nil
}

// Get decompresses and returns doc's body, or ErrNotFound.
func (ss *SegmentStore) Get(doc DocID) ([]byte, error) {
	ss.mu.Lock()
	meta, ok := ss.metaIndex[doc]
	if !ok || meta.Deleted {
		ss.mu.Unlock()
		return nil, ErrNotFound
	}
	seg, ok := ss.segments[meta.SegmentID]
	m := *meta
	ss.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}

	var compressed []byte
	var err error
	if seg == ss.active {
		compressed, err = seg.data.ReadAt(m.Offset, int(m.CompressedSize))
	} else {
		f, oerr := os.Open(filepath.Join(seg.dir, "data"))
		if oerr != nil {
			return nil, oerr
		}
		defer f.Close()
		compressed = make([]byte, m.CompressedSize)
		_, err = f.ReadAt(compressed, m.Offset)
	}
	if err != nil {
		return nil, fmt.Errorf("fts: read document body: %w", err)
	}
	return decompress(compressed)
}

// Delete marks doc's meta deleted and appends a tombstone to its
// segment's del file.
func (ss *SegmentStore) Delete(doc DocID) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	meta, ok := ss.metaIndex[doc]
	if !ok || meta.Deleted {
		return ErrNotFound
	}
	meta.Deleted = true

	seg := ss.segments[meta.SegmentID]
	if seg == nil {
		return ErrNotFound
	}
	buf := make([]byte, delRecordSize)
	copy(buf[0:16], doc[:])
	binary.LittleEndian.PutUint32(buf[16:20], meta.CompressedSize)
	seg.del.Append(buf)
	seg.deletedBytes += int64(meta.CompressedSize)
	_ = seg.del.MaybeFlush()
	return nil
}

// Merge rewrites every sealed segment whose deleted-bytes ratio meets or
// exceeds merge_deleted_ratio, skipping tombstoned documents, and
// publishes the result by atomically renaming the target directory into
// place before deleting the old segment's files.
func (ss *SegmentStore) Merge() error {
	ss.mu.Lock()
	candidates := make([]*segment, 0)
	for _, seg := range ss.segments {
		if !seg.sealed || seg.bytesWritten == 0 {
			continue
		}
		if float64(seg.deletedBytes)/float64(seg.bytesWritten) >= ss.cfg.MergeDeletedRatio {
			candidates = append(candidates, seg)
		}
	}
	ss.mu.Unlock()

	for _, seg := range candidates {
		if err := ss.mergeSegment(seg); err != nil {
			return err
		}
	}
	return nil
}

func (ss *SegmentStore) mergeSegment(seg *segment) error {
	ss.mu.Lock()
	tmpID := ss.nextSeg
	ss.nextSeg++
	ss.mu.Unlock()

	tmpDir := segmentDir(ss.root, tmpID) + ".merging"
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return err
	}
	dataFile, err := os.Create(filepath.Join(tmpDir, "data"))
	if err != nil {
		return err
	}
	metaFile, err := os.Create(filepath.Join(tmpDir, "meta"))
	if err != nil {
		return err
	}
	if _, err := os.Create(filepath.Join(tmpDir, "del")); err != nil {
		return err
	}

	oldData, err := os.Open(filepath.Join(seg.dir, "data"))
	if err != nil {
		return err
	}
	defer oldData.Close()

	ss.mu.Lock()
	var toMerge []*DocumentMeta
	for _, m := range ss.metaIndex {
		if m.SegmentID == seg.id && !m.Deleted {
			toMerge = append(toMerge, m)
		}
	}
	ss.mu.Unlock()

	var writeOffset int64
	newMetas := make(map[DocID]DocumentMeta, len(toMerge))
	for _, m := range toMerge {
		buf := make([]byte, m.CompressedSize)
		if _, err := oldData.ReadAt(buf, m.Offset); err != nil {
			return err
		}
		if _, err := dataFile.WriteAt(buf, writeOffset); err != nil {
			return err
		}
		newMeta := DocumentMeta{
			DocID:          m.DocID,
			SegmentID:      tmpID,
			Offset:         writeOffset,
			CompressedSize: m.CompressedSize,
			TokenCount:     m.TokenCount,
		}
		rec := encodeMeta(newMeta)
		sizeHdr := make([]byte, 8)
		binary.LittleEndian.PutUint64(sizeHdr, uint64(len(rec)))
		if _, err := metaFile.Write(sizeHdr); err != nil {
			return err
		}
		if _, err := metaFile.Write(rec); err != nil {
			return err
		}
		newMetas[m.DocID] = newMeta
		writeOffset += int64(m.CompressedSize)
	}
	if err := dataFile.Sync(); err != nil {
		return err
	}
	if err := metaFile.Sync(); err != nil {
		return err
	}
	dataFile.Close()
	metaFile.Close()

	finalDir := segmentDir(ss.root, tmpID)
	if err := os.Rename(tmpDir, finalDir); err != nil {
		return err
	}

	newSeg, err := openSegment(ss.root, tmpID, ss.cfg)
	if err != nil {
		return err
	}
	newSeg.bytesWritten = writeOffset
	newSeg.sealed = true

	ss.mu.Lock()
	for doc, m := range newMetas {
		cp := m
		ss.metaIndex[doc] = &cp
	}
	ss.segments[tmpID] = newSeg
	ss.flusher.register(newSeg.data)
	ss.flusher.register(newSeg.meta)
	ss.flusher.register(newSeg.del)
	delete(ss.segments, seg.id)
	ss.mu.Unlock()

	seg.data.Close()
	seg.meta.Close()
	seg.del.Close()
	return os.RemoveAll(seg.dir)
}

func (ss *SegmentStore) Close() error {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	var firstErr error
	for _, seg := range ss.segments {
		if err := seg.data.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		if err := seg.meta.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		if err := seg.del.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
