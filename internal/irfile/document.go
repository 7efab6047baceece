// Package irfile reads the IR document a front end extracts from a native
// library and turns it into a types.Builder. Documents are YAML (JSON is
// accepted as a subset); msgpack snapshots of the same document load faster
// and are used for caching.
package irfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"ffigen/internal/diag"
)

// Version is the document schema this package reads and writes.
const Version = 1

// Document is the IR of one native library.
type Document struct {
	Version   int         `yaml:"version" msgpack:"version"`
	Library   string      `yaml:"library,omitempty" msgpack:"library,omitempty"`
	Types     []TypeDecl  `yaml:"types,omitempty" msgpack:"types,omitempty"`
	Functions []FuncDecl  `yaml:"functions,omitempty" msgpack:"functions,omitempty"`
	Constants []ConstDecl `yaml:"constants,omitempty" msgpack:"constants,omitempty"`
}

// Kinds of TypeDecl.
const (
	KindStruct   = "struct"
	KindEnum     = "enum"
	KindOpaque   = "opaque"
	KindCallback = "callback"
)

// TypeDecl declares a nominal type or a named callback. Only the fields of
// its kind are read.
type TypeDecl struct {
	Kind      string `yaml:"kind" msgpack:"kind"`
	Name      string `yaml:"name" msgpack:"name"`
	Namespace string `yaml:"namespace,omitempty" msgpack:"namespace,omitempty"`
	Doc       string `yaml:"doc,omitempty" msgpack:"doc,omitempty"`

	// struct
	Generics []string    `yaml:"generics,omitempty" msgpack:"generics,omitempty"`
	Fields   []FieldDecl `yaml:"fields,omitempty" msgpack:"fields,omitempty"`
	Repr     string      `yaml:"repr,omitempty" msgpack:"repr,omitempty"`
	Hint     string      `yaml:"hint,omitempty" msgpack:"hint,omitempty"`
	Size     int         `yaml:"size,omitempty" msgpack:"size,omitempty"`
	Align    int         `yaml:"align,omitempty" msgpack:"align,omitempty"`

	// enum
	Base     string        `yaml:"base,omitempty" msgpack:"base,omitempty"`
	Variants []VariantDecl `yaml:"variants,omitempty" msgpack:"variants,omitempty"`

	// callback
	Args []string `yaml:"args,omitempty" msgpack:"args,omitempty"`
	Ret  string   `yaml:"ret,omitempty" msgpack:"ret,omitempty"`
}

type FieldDecl struct {
	Name string `yaml:"name" msgpack:"name"`
	Type string `yaml:"type" msgpack:"type"`
	Doc  string `yaml:"doc,omitempty" msgpack:"doc,omitempty"`
}

type VariantDecl struct {
	Name  string `yaml:"name" msgpack:"name"`
	Value int64  `yaml:"value" msgpack:"value"`
	Doc   string `yaml:"doc,omitempty" msgpack:"doc,omitempty"`
}

// FuncDecl is an exported function. An empty Ret means void.
type FuncDecl struct {
	Name          string      `yaml:"name" msgpack:"name"`
	Doc           string      `yaml:"doc,omitempty" msgpack:"doc,omitempty"`
	Params        []ParamDecl `yaml:"params,omitempty" msgpack:"params,omitempty"`
	Ret           string      `yaml:"ret,omitempty" msgpack:"ret,omitempty"`
	RetDoc        string      `yaml:"ret_doc,omitempty" msgpack:"ret_doc,omitempty"`
	Async         bool        `yaml:"async,omitempty" msgpack:"async,omitempty"`
	RaisesOnPanic bool        `yaml:"raises_on_panic,omitempty" msgpack:"raises_on_panic,omitempty"`
	MustCheck     bool        `yaml:"must_check,omitempty" msgpack:"must_check,omitempty"`
	// Lifecycle is "constructor" or "destructor" for service members the
	// naming conventions would not find.
	Lifecycle string `yaml:"lifecycle,omitempty" msgpack:"lifecycle,omitempty"`
}

type ParamDecl struct {
	Name string `yaml:"name" msgpack:"name"`
	Type string `yaml:"type" msgpack:"type"`
	Doc  string `yaml:"doc,omitempty" msgpack:"doc,omitempty"`
}

// ConstDecl is an exported constant. Value is the literal as written and is
// interpreted according to Type.
type ConstDecl struct {
	Name  string `yaml:"name" msgpack:"name"`
	Doc   string `yaml:"doc,omitempty" msgpack:"doc,omitempty"`
	Type  string `yaml:"type" msgpack:"type"`
	Value string `yaml:"value" msgpack:"value"`
}

// Decode reads a YAML or JSON document. Unknown keys are rejected so typos
// in hand-written documents surface early.
func Decode(r io.Reader) (*Document, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, diag.NewErrorf(diag.InvalidIR, diag.NodeRef{}, "empty document")
		}
		return nil, diag.NewErrorf(diag.InvalidIR, diag.NodeRef{}, "%v", err)
	}
	if doc.Version == 0 {
		doc.Version = Version
	}
	if doc.Version != Version {
		return nil, diag.NewErrorf(diag.InvalidIR, diag.NodeRef{}, "document version %d, expected %d", doc.Version, Version)
	}
	return &doc, nil
}

// Encode writes doc as YAML.
func Encode(w io.Writer, doc *Document) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}

// IsSnapshot reports whether path names a msgpack snapshot.
func IsSnapshot(path string) bool {
	return strings.EqualFold(filepath.Ext(path), SnapshotExt)
}

// Load reads a document or a snapshot, chosen by file extension.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc *Document
	if IsSnapshot(path) {
		doc, err = ReadSnapshot(bytes.NewReader(data))
	} else {
		doc, err = Decode(bytes.NewReader(data))
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}
