package casstorage

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/cenkalti/backoff/v4"

	"github.com/hashicorp-forge/casstore/pkg/docid"
)

// Holder is the outcome of obtaining the document for a key: either the
// document or the error that occurred while loading it.
//
// The document reference is owned by a single writer. The type system
// outdated and deleted flags may be read and written from any goroutine.
type Holder struct {
	key      docid.Key
	document Document
	err      error

	typeSystemOutdated atomic.Bool
	deleted            atomic.Bool
}

// NewHolder creates a holder for a document that is already available.
func NewHolder(key docid.Key, doc Document) *Holder {
	return &Holder{key: key, document: doc}
}

// HolderOf runs the loader and captures its outcome. It never fails: errors
// and panics raised by the loader end up in Err.
func HolderOf(key docid.Key, load Loader) *Holder {
	doc, err := runLoader(load)
	if err != nil {
		return &Holder{key: key, err: fmt.Errorf("error loading %s: %w", key, err)}
	}
	return &Holder{key: key, document: doc}
}

// HolderOfWithRetry is like HolderOf but retries the loader according to the
// given backoff policy. Wrap errors in backoff.Permanent to stop retrying
// early. The last error is captured if the loader never succeeds or the
// context is done. A nil context means context.Background; a nil policy is
// captured as ErrInvalidArgument.
func HolderOfWithRetry(ctx context.Context, key docid.Key, load Loader, b backoff.BackOff) *Holder {
	if load == nil {
		return HolderOf(key, nil)
	}
	if b == nil {
		return &Holder{key: key, err: fmt.Errorf("error loading %s: %w: backoff policy is nil", key, ErrInvalidArgument)}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var doc Document
	err := backoff.Retry(func() error {
		var err error
		doc, err = runLoader(load)
		return err
	}, backoff.WithContext(b, ctx))
	if err != nil {
		return &Holder{key: key, err: fmt.Errorf("error loading %s: %w", key, err)}
	}
	return &Holder{key: key, document: doc}
}

func runLoader(load Loader) (doc Document, err error) {
	if load == nil {
		return nil, fmt.Errorf("%w: loader is nil", ErrInvalidArgument)
	}

	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = fmt.Errorf("loader panicked: %v", r)
		}
	}()

	doc, err = load()
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, errors.New("loader returned no document")
	}
	if err := checkComparable(doc); err != nil {
		return nil, backoff.Permanent(err)
	}
	return doc, nil
}

// Key returns the key of the document.
func (h *Holder) Key() docid.Key {
	return h.key
}

// IsDocumentPresent returns true if the holder contains a document.
func (h *Holder) IsDocumentPresent() bool {
	return h.document != nil
}

// Err returns the error captured while loading the document, if any.
func (h *Holder) Err() error {
	return h.err
}

// Document returns the document. If no document is present, the returned
// error matches ErrDocumentNotSet and wraps the load error, if any. Callers
// are expected to check IsDocumentPresent or Err first.
func (h *Holder) Document() (Document, error) {
	if h.document == nil {
		if h.err != nil {
			return nil, fmt.Errorf("%w for %s: %w", ErrDocumentNotSet, h.key, h.err)
		}
		return nil, fmt.Errorf("%w for %s", ErrDocumentNotSet, h.key)
	}
	return h.document, nil
}

// MustDocument is like Document but panics if no document is present.
func (h *Holder) MustDocument() Document {
	doc, err := h.Document()
	if err != nil {
		panic(err)
	}
	return doc
}

// SetDocument replaces the document, e.g. after its type system has been
// upgraded. A previously captured load error is cleared.
func (h *Holder) SetDocument(doc Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document for %s cannot be nil", ErrInvalidArgument, h.key)
	}
	if err := checkComparable(doc); err != nil {
		return fmt.Errorf("cannot set document for %s: %w", h.key, err)
	}
	h.document = doc
	h.err = nil
	return nil
}

// SetTypeSystemOutdated marks the document as no longer matching the type
// system of its project. It must be upgraded before further use.
func (h *Holder) SetTypeSystemOutdated(outdated bool) {
	h.typeSystemOutdated.Store(outdated)
}

// IsTypeSystemOutdated returns true if the document needs a type system
// upgrade.
func (h *Holder) IsTypeSystemOutdated() bool {
	return h.typeSystemOutdated.Load()
}

// SetDeleted marks the document as deleted. The in-memory document may still
// be reachable, but must be treated as gone.
func (h *Holder) SetDeleted(deleted bool) {
	h.deleted.Store(deleted)
}

// IsDeleted returns true if the document has been deleted.
func (h *Holder) IsDeleted() bool {
	return h.deleted.Load()
}

// String returns a short description for logs.
func (h *Holder) String() string {
	state := "present"
	switch {
	case h.document == nil && h.err != nil:
		state = "failed"
	case h.document == nil:
		state = "empty"
	}
	return fmt.Sprintf("[%s] %s", state, h.key)
}
