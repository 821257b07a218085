package fts

import (
	"bytes"
	"encoding/hex"

	"github.com/google/uuid"
)

// DocID is a 128-bit document identifier. It is stable for the life of
// the document and, once deleted, is never reused — the caller is free
// to pass its own id (e.g. a content hash) or call NewDocID for a random
// one backed by google/uuid.
type DocID [16]byte

// NewDocID returns a fresh random document id.
func NewDocID() DocID {
	return DocID(uuid.New())
}

// Compare orders two DocIDs by raw byte value. It is the single ordering
// used everywhere a posting list, segment meta map or DAAT cursor needs
// "doc_id order" — PostingList and the document store both sort by it.
func (d DocID) Compare(other DocID) int {
	return bytes.Compare(d[:], other[:])
}

func (d DocID) Less(other DocID) bool { return d.Compare(other) < 0 }

func (d DocID) String() string { return hex.EncodeToString(d[:]) }

// docIDMin and docIDMax are sentinels used by cursors to represent
// "before any document" and "past every document" without a separate
// boolean flag on every comparison.
var (
	docIDMin = DocID{}
	docIDMax = DocID{
		0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
		0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	}
)
