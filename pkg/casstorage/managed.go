package casstorage

import (
	"fmt"
	"sync/atomic"

	"github.com/hashicorp-forge/casstore/pkg/docid"
)

// SpecialPurposeDocumentID is the document ID under which documents are
// managed that are registered for a purpose rather than a real document.
// Real document IDs are never negative.
const SpecialPurposeDocumentID int64 = -1

// documentRef is either a document owned by the managed document or one
// borrowed through a Holder.
type documentRef interface {
	get() Document
	isSet() bool
	set(doc Document) error
	holder() *Holder
}

type ownedRef struct {
	doc Document
}

func (r ownedRef) get() Document { return r.doc }
func (r ownedRef) isSet() bool { return r.doc != nil }
func (r ownedRef) holder() *Holder { return nil }
func (r ownedRef) set(Document) error {
	return ErrNotBorrowed
}

type borrowedRef struct {
	h *Holder
}

func (r borrowedRef) get() Document {
	if !r.h.IsDocumentPresent() {
		return nil
	}
	return r.h.document
}
func (r borrowedRef) isSet() bool { return r.h.IsDocumentPresent() }
func (r borrowedRef) holder() *Holder { return r.h }
func (r borrowedRef) set(doc Document) error { return r.h.SetDocument(doc) }

// ManagedDocument binds a document to the access mode under which a session
// manages it.
type ManagedDocument struct {
	documentID int64
	variant    docid.Variant
	mode       AccessMode
	ref        documentRef

	releaseOnClose atomic.Bool
	readCount      atomic.Int64
	writeCount     atomic.Int64
}

func newOwnedDocument(documentID int64, variant docid.Variant, mode AccessMode, doc Document) *ManagedDocument {
	md := &ManagedDocument{
		documentID: documentID,
		variant:    variant,
		mode:       mode,
		ref:        ownedRef{doc: doc},
	}
	md.releaseOnClose.Store(true)
	return md
}

func newBorrowedDocument(documentID int64, variant docid.Variant, mode AccessMode, h *Holder) *ManagedDocument {
	md := &ManagedDocument{
		documentID: documentID,
		variant:    variant,
		mode:       mode,
		ref:        borrowedRef{h: h},
	}
	md.releaseOnClose.Store(true)
	return md
}

// DocumentID returns the document ID, or SpecialPurposeDocumentID.
func (md *ManagedDocument) DocumentID() int64 {
	return md.documentID
}

// Variant returns the annotation set, or the purpose for special purpose
// documents.
func (md *ManagedDocument) Variant() docid.Variant {
	return md.variant
}

// Mode returns the access mode. It never changes.
func (md *ManagedDocument) Mode() AccessMode {
	return md.mode
}

// IsSpecialPurpose returns true if the document is managed by purpose.
func (md *ManagedDocument) IsSpecialPurpose() bool {
	return md.documentID == SpecialPurposeDocumentID
}

// Holder returns the holder the document was borrowed from, or nil if the
// managed document owns its document directly.
func (md *ManagedDocument) Holder() *Holder {
	return md.ref.holder()
}

// IsBorrowed returns true if the document was registered through a Holder.
func (md *ManagedDocument) IsBorrowed() bool {
	return md.ref.holder() != nil
}

// IsDocumentSet returns true if a document is available.
func (md *ManagedDocument) IsDocumentSet() bool {
	return md.ref.isSet()
}

// Document returns the managed document, or nil if a borrowed holder has
// none.
func (md *ManagedDocument) Document() Document {
	return md.ref.get()
}

// SetDocument replaces the managed document. Only borrowed documents may be
// replaced; owned ones fail with ErrNotBorrowed.
func (md *ManagedDocument) SetDocument(doc Document) error {
	if err := md.ref.set(doc); err != nil {
		return fmt.Errorf("cannot replace document %d (%s): %w", md.documentID, md.variant, err)
	}
	return nil
}

// IncrementReadCount records a read of the document.
func (md *ManagedDocument) IncrementReadCount() {
	md.readCount.Add(1)
}

// IncrementWriteCount records a write to the document.
func (md *ManagedDocument) IncrementWriteCount() {
	md.writeCount.Add(1)
}

// ReadCount returns the number of recorded reads.
func (md *ManagedDocument) ReadCount() int64 {
	return md.readCount.Load()
}

// WriteCount returns the number of recorded writes.
func (md *ManagedDocument) WriteCount() int64 {
	return md.writeCount.Load()
}

// IsWritingPermitted returns true if the document may be mutated.
func (md *ManagedDocument) IsWritingPermitted() bool {
	return md.mode == ExclusiveWrite
}

// SetReleaseOnClose controls whether closing the session releases the
// document. Disable it when the lifetime of the document is owned elsewhere,
// e.g. by a cache.
func (md *ManagedDocument) SetReleaseOnClose(release bool) {
	md.releaseOnClose.Store(release)
}

// IsReleaseOnClose returns true if closing the session releases the document.
func (md *ManagedDocument) IsReleaseOnClose() bool {
	return md.releaseOnClose.Load()
}

// Equal returns true if both managed documents occupy the same slot in the
// same mode, regardless of the documents they reference.
func (md *ManagedDocument) Equal(other *ManagedDocument) bool {
	if md == nil || other == nil {
		return md == other
	}
	return md.documentID == other.documentID &&
		md.variant == other.variant &&
		md.mode == other.mode
}

func (md *ManagedDocument) manages(doc Document) bool {
	return sameDocument(md.ref.get(), doc)
}

func (md *ManagedDocument) release() error {
	doc := md.ref.get()
	if doc == nil {
		return nil
	}
	if err := doc.Release(); err != nil {
		return fmt.Errorf("error releasing %s: %w", md, err)
	}
	return nil
}

// String returns a short description for logs.
func (md *ManagedDocument) String() string {
	ownership := "owned"
	if md.IsBorrowed() {
		ownership = "borrowed"
	}
	if md.IsSpecialPurpose() {
		return fmt.Sprintf("[%s] special purpose %s (%s, %s)",
			md.mode, md.variant, ownership, md.documentState())
	}
	return fmt.Sprintf("[%s] document %d (%s) (%s, %s)",
		md.mode, md.documentID, md.variant, ownership, md.documentState())
}

func (md *ManagedDocument) documentState() string {
	if md.IsDocumentSet() {
		return "set"
	}
	return "unset"
}
