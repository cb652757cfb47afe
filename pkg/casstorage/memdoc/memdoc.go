// Package memdoc provides an in-memory casstorage.Document that records how
// often it was released. It is meant for tests, demos and callers that need
// a trivial document.
package memdoc

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/hashicorp-forge/casstore/pkg/docid"
)

// Document is an in-memory annotation document.
type Document struct {
	key docid.Key

	mu          sync.Mutex
	text        string
	annotations []Annotation

	releases   atomic.Int32
	releaseErr error
}

// Annotation is a span annotation on the document text.
type Annotation struct {
	Layer string
	Begin int
	End   int
	Value string
}

// New creates a document with the given text.
func New(key docid.Key, text string) *Document {
	return &Document{key: key, text: text}
}

// NewFailing creates a document whose Release always fails with err.
func NewFailing(key docid.Key, err error) *Document {
	return &Document{key: key, releaseErr: err}
}

// Key returns the key the document was created for.
func (d *Document) Key() docid.Key {
	return d.key
}

// Text returns the document text.
func (d *Document) Text() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.text
}

// Annotate adds an annotation. The span must lie within the text.
func (d *Document) Annotate(a Annotation) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if a.Begin < 0 || a.End < a.Begin || a.End > len(d.text) {
		return fmt.Errorf("annotation [%d, %d) outside of text of length %d",
			a.Begin, a.End, len(d.text))
	}
	d.annotations = append(d.annotations, a)
	return nil
}

// Annotations returns a copy of the annotations.
func (d *Document) Annotations() []Annotation {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Annotation(nil), d.annotations...)
}

// Release records the release. It can be called repeatedly.
func (d *Document) Release() error {
	d.releases.Add(1)
	return d.releaseErr
}

// Releases returns how often Release was called.
func (d *Document) Releases() int {
	return int(d.releases.Load())
}

// IsReleased returns true if Release was called at least once.
func (d *Document) IsReleased() bool {
	return d.releases.Load() > 0
}

// String returns the document key.
func (d *Document) String() string {
	return d.key.String()
}
