package fts

import (
	"os"
	"sync"
	"time"
)

// bufferedAppender is the single buffering discipline shared by the
// segment store's data/meta/del files and the inverted-index log's
// index/meta/tokens files: appends accumulate in memory and are fsynced
// to disk once the buffer crosses flushBytes or flushInterval elapses.
// A read can be served from either the flushed file or the still-pending
// tail without waiting on a flush, so query consistency never depends on
// durability timing — only crash recovery does.
type bufferedAppender struct {
	mu          sync.Mutex
	file        *os.File
	flushBytes  int
	flushAfter  time.Duration
	flushedSize int64
	pending     []byte
	lastFlush   time.Time
}

func newBufferedAppender(f *os.File, flushBytes int, flushAfter time.Duration) (*bufferedAppender, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	return &bufferedAppender{
		file:        f,
		flushBytes:  flushBytes,
		flushAfter:  flushAfter,
		flushedSize: info.Size(),
		lastFlush:   time.Now(),
	}, nil
}

// Append copies data into the pending buffer and returns the byte offset
// at which it will land in the file once flushed.
func (b *bufferedAppender) Append(data []byte) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	offset := b.flushedSize + int64(len(b.pending))
	b.pending = append(b.pending, data...)
	return offset
}

// ReadAt serves length bytes starting at offset from whichever of the
// flushed file or the pending tail currently holds them.
func (b *bufferedAppender) ReadAt(offset int64, length int) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]byte, length)
	end := offset + int64(length)

	switch {
	case end <= b.flushedSize:
		if _, err := b.file.ReadAt(out, offset); err != nil {
			return nil, err
		}
	case offset >= b.flushedSize:
		start := offset - b.flushedSize
		copy(out, b.pending[start:start+int64(length)])
	default:
		fromFile := b.flushedSize - offset
		if _, err := b.file.ReadAt(out[:fromFile], offset); err != nil {
			return nil, err
		}
		copy(out[fromFile:], b.pending[:int64(length)-fromFile])
	}
	return out, nil
}

// shouldFlush reports whether the age/size threshold has been crossed.
func (b *bufferedAppender) shouldFlush() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending) >= b.flushBytes || time.Since(b.lastFlush) >= b.flushAfter
}

// Flush fsyncs the pending tail unconditionally; force is implicit in
// the caller choosing to call it (e.g. on shutdown).
func (b *bufferedAppender) Flush() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.flushLocked()
}

func (b *bufferedAppender) flushLocked() error {
	if len(b.pending) == 0 {
		b.lastFlush = time.Now()
		return nil
	}
	if _, err := b.file.WriteAt(b.pending, b.flushedSize); err != nil {
		return err
	}
	if err := b.file.Sync(); err != nil {
		return err
	}
	b.flushedSize += int64(len(b.pending))
	b.pending = b.pending[:0]
	b.lastFlush = time.Now()
	return nil
}

// MaybeFlush flushes only if the threshold has been crossed.
func (b *bufferedAppender) MaybeFlush() error {
	if !b.shouldFlush() {
		return nil
	}
	return b.Flush()
}

func (b *bufferedAppender) Close() error {
	if err := b.Flush(); err != nil {
		return err
	}
	return b.file.Close()
}

// flusher runs a single background task that periodically drains every
// registered bufferedAppender, per the design note that one monotonic
// clock beats a waker per buffer.
type flusher struct {
	mu       sync.Mutex
	buffers  []*bufferedAppender
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
}

func newFlusher(interval time.Duration) *flusher {
	return &flusher{
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (f *flusher) register(b *bufferedAppender) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buffers = append(f.buffers, b)
}

func (f *flusher) run() {
	defer close(f.done)
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()
	for {
		select {
		case <-f.stop:
			return
		case <-ticker.C:
			f.mu.Lock()
			bufs := append([]*bufferedAppender(nil), f.buffers...)
			f.mu.Unlock()
			for _, b := range bufs {
				_ = b.MaybeFlush()
			}
		}
	}
}

// FlushAll flushes every registered buffer immediately without stopping
// the background loop.
func (f *flusher) FlushAll() error {
	f.mu.Lock()
	bufs := append([]*bufferedAppender(nil), f.buffers...)
	f.mu.Unlock()

	var firstErr error
	for _, b := range bufs {
		if err := b.Flush(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Shutdown stops the background loop and performs the final mandatory
// flush of every registered buffer.
func (f *flusher) Shutdown() error {
	close(f.stop)
	<-f.done

	f.mu.Lock()
	bufs := append([]*bufferedAppender(nil), f.buffers...)
	f.mu.Unlock()

	var firstErr error
	for _, b := range bufs {
		if err := b.Flush(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
