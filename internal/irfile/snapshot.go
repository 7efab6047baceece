package irfile

import (
	"bufio"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"ffigen/internal/diag"
)

// SnapshotExt is the file extension of msgpack snapshots.
const SnapshotExt = ".ffir"

const (
	snapshotMagic = "ffir"
	// increment when the Document encoding changes
	snapshotSchema uint16 = 1
)

type snapshot struct {
	Magic  string
	Schema uint16
	Doc    *Document
}

// WriteSnapshot encodes doc as a msgpack snapshot.
func WriteSnapshot(w io.Writer, doc *Document) error {
	bw := bufio.NewWriter(w)
	enc := msgpack.NewEncoder(bw)
	if err := enc.Encode(&snapshot{Magic: snapshotMagic, Schema: snapshotSchema, Doc: doc}); err != nil {
		return err
	}
	return bw.Flush()
}

// ReadSnapshot decodes a snapshot written by WriteSnapshot. Snapshots of
// another schema are rejected with IRSnapshotVersion; regenerate them from
// the YAML document.
func ReadSnapshot(r io.Reader) (*Document, error) {
	var s snapshot
	if err := msgpack.NewDecoder(bufio.NewReader(r)).Decode(&s); err != nil {
		return nil, diag.NewErrorf(diag.InvalidIR, diag.NodeRef{}, "snapshot: %v", err)
	}
	if s.Magic != snapshotMagic {
		return nil, diag.NewErrorf(diag.InvalidIR, diag.NodeRef{}, "not an ffigen snapshot")
	}
	if s.Schema != snapshotSchema {
		return nil, diag.NewErrorf(diag.IRSnapshotVersion, diag.NodeRef{}, "snapshot schema %d, expected %d", s.Schema, snapshotSchema)
	}
	if s.Doc == nil {
		return nil, diag.NewErrorf(diag.InvalidIR, diag.NodeRef{}, "snapshot holds no document")
	}
	return s.Doc, nil
}
