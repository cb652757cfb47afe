package casstorage

import (
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"

	"github.com/hashicorp-forge/casstore/pkg/docid"
)

const maxCreatorFrames = 32

// Session tracks the documents an execution context may read or write.
// Sessions are opened with Manager.Open or Manager.OpenNested and must be
// closed with Close.
type Session struct {
	id       uuid.UUID
	manager  *Manager
	stack    *sessionStack
	previous *Session
	isolated bool
	closed   bool
	opened   time.Time
	creator  []uintptr
	logger   hclog.Logger

	managed         map[int64]map[docid.Variant]*ManagedDocument
	maxManagedCount int
	warnedCount     bool
}

func newSession(m *Manager, stack *sessionStack, previous *Session, isolated bool) *Session {
	id := uuid.New()

	var creator []uintptr
	if m.captureCreatorStack {
		pcs := make([]uintptr, maxCreatorFrames)
		// Skip runtime.Callers, newSession, Manager.newSession.
		n := runtime.Callers(3, pcs)
		creator = pcs[:n]
	}

	return &Session{
		id:       id,
		manager:  m,
		stack:    stack,
		previous: previous,
		isolated: isolated,
		opened:   time.Now(),
		creator:  creator,
		logger:   m.logger.With("session_id", id.String()),
		managed:  make(map[int64]map[docid.Variant]*ManagedDocument),
	}
}

// ID returns the unique session ID.
func (s *Session) ID() string {
	return s.id.String()
}

// IsIsolated returns true if lookups do not fall back to enclosing sessions.
func (s *Session) IsIsolated() bool {
	return s.isolated
}

// IsClosed returns true once Close succeeded.
func (s *Session) IsClosed() bool {
	return s.closed
}

// Previous returns the session this session is nested in, or nil.
func (s *Session) Previous() *Session {
	return s.previous
}

// CreatorStack returns the call stack that opened the session, or an empty
// string if capturing was disabled.
func (s *Session) CreatorStack() string {
	if len(s.creator) == 0 {
		return ""
	}

	var b strings.Builder
	frames := runtime.CallersFrames(s.creator)
	for {
		frame, more := frames.Next()
		fmt.Fprintf(&b, "%s\n\t%s:%d\n", frame.Function, frame.File, frame.Line)
		if !more {
			break
		}
	}
	return b.String()
}

// ManagedCount returns the number of documents managed by this session,
// excluding enclosing sessions.
func (s *Session) ManagedCount() int {
	count := 0
	for _, slots := range s.managed {
		count += len(slots)
	}
	return count
}

// MaxManagedCount returns the highest number of documents this session
// managed at the same time.
func (s *Session) MaxManagedCount() int {
	return s.maxManagedCount
}

// ManagedDocuments returns the documents managed by this session, excluding
// enclosing sessions, ordered by document ID and variant.
func (s *Session) ManagedDocuments() []*ManagedDocument {
	docs := make([]*ManagedDocument, 0, s.ManagedCount())
	for _, slots := range s.managed {
		for _, md := range slots {
			docs = append(docs, md)
		}
	}
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].documentID != docs[j].documentID {
			return docs[i].documentID < docs[j].documentID
		}
		return docs[i].variant < docs[j].variant
	})
	return docs
}

// Close closes the session and restores the enclosing session, if any, as
// the current session. Every managed document marked for release is
// released once, even if it is registered under several slots; failures do
// not stop the remaining releases and are returned together.
//
// Sessions must be closed in reverse opening order. Closing a session that
// is not the current one fails with ErrSessionNotCurrent and leaves the
// session open.
func (s *Session) Close() error {
	s.stack.mu.Lock()
	if s.closed {
		s.stack.mu.Unlock()
		return fmt.Errorf("%w: session %s", ErrSessionClosed, s.ID())
	}
	if s.stack.current != s {
		current := "none"
		if s.stack.current != nil {
			current = s.stack.current.ID()
		}
		s.stack.mu.Unlock()
		return fmt.Errorf("%w: session %s (current session: %s)",
			ErrSessionNotCurrent, s.ID(), current)
	}
	s.closed = true
	s.stack.current = s.previous
	s.stack.mu.Unlock()

	s.manager.openSessions.Add(-1)

	var result *multierror.Error
	released := 0
	seen := make(map[Document]struct{})
	for _, md := range s.ManagedDocuments() {
		if !md.IsReleaseOnClose() {
			continue
		}
		if doc := md.Document(); isComparable(doc) {
			if _, ok := seen[doc]; ok {
				continue
			}
			seen[doc] = struct{}{}
		}
		if err := md.release(); err != nil {
			s.logger.Error("error releasing managed document", "document", md.String(), "error", err)
			result = multierror.Append(result, err)
			continue
		}
		released++
	}

	managed := s.ManagedCount()
	s.managed = make(map[int64]map[docid.Variant]*ManagedDocument)

	s.logger.Trace("closed session",
		"managed", managed,
		"released", released,
		"max_managed", s.maxManagedCount,
		"duration", time.Since(s.opened),
	)

	if err := result.ErrorOrNil(); err != nil {
		return fmt.Errorf("error closing session %s: %w", s.ID(), err)
	}
	return nil
}

// Add registers a document owned by the session. An existing registration
// for the same document ID and variant is replaced, but not released.
func (s *Session) Add(documentID int64, variant docid.Variant, mode AccessMode, doc Document) (*ManagedDocument, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	err := validation.Errors{
		"document_id": validation.Validate(documentID, validation.Min(int64(0))),
		"variant":     validateVariant(variant),
		"mode":        validateMode(mode),
		"document":    validateDocument(doc),
	}.Filter()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	md := newOwnedDocument(documentID, variant, mode, doc)
	s.put(md)
	return md, nil
}

// AddHolder registers a document borrowed through a holder under the
// document ID and variant of the holder key. An existing registration for
// the same slot is replaced, but not released.
func (s *Session) AddHolder(mode AccessMode, holder *Holder) (*ManagedDocument, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	if holder == nil {
		return nil, fmt.Errorf("%w: holder cannot be nil", ErrInvalidArgument)
	}

	key := holder.Key()
	if key.IsProjectWide() {
		return nil, fmt.Errorf("%w: cannot manage project key %s", ErrInvalidArgument, key)
	}

	var document error
	if holder.IsDocumentPresent() {
		document = validateDocument(holder.document)
	}

	err := validation.Errors{
		"document_id": validation.Validate(key.DocumentID(), validation.Min(int64(0))),
		"variant":     validateVariant(key.Variant()),
		"mode":        validateMode(mode),
		"document":    document,
	}.Filter()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	md := newBorrowedDocument(key.DocumentID(), key.Variant(), mode, holder)
	s.put(md)
	return md, nil
}

// AddSpecialPurpose registers a document that is not tied to a real document
// identity, e.g. a scratch document used during a schema upgrade.
func (s *Session) AddSpecialPurpose(purpose string, mode AccessMode, doc Document) (*ManagedDocument, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	variant := docid.PurposeVariant(purpose)
	err := validation.Errors{
		"purpose":  validateVariant(variant),
		"mode":     validateMode(mode),
		"document": validateDocument(doc),
	}.Filter()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	md := newOwnedDocument(SpecialPurposeDocumentID, variant, mode, doc)
	s.put(md)
	return md, nil
}

func validateVariant(variant docid.Variant) error {
	return validation.Validate(variant,
		validation.Required,
		validation.By(func(value interface{}) error {
			if v, _ := value.(docid.Variant); !v.IsValid() {
				return errors.New("cannot be blank")
			}
			return nil
		}),
	)
}

func validateDocument(doc Document) error {
	return validation.Validate(doc,
		validation.NotNil,
		validation.By(func(value interface{}) error {
			if d, _ := value.(Document); d != nil && !isComparable(d) {
				return fmt.Errorf("document of type %T is not comparable", d)
			}
			return nil
		}),
	)
}

func validateMode(mode AccessMode) error {
	return validation.Validate(mode,
		validation.Required,
		validation.In(SharedRead, ExclusiveWrite),
	)
}

func (s *Session) checkOpen() error {
	if s.closed {
		return fmt.Errorf("%w: session %s", ErrSessionClosed, s.ID())
	}
	return nil
}

func (s *Session) put(md *ManagedDocument) {
	slots, ok := s.managed[md.documentID]
	if !ok {
		slots = make(map[docid.Variant]*ManagedDocument)
		s.managed[md.documentID] = slots
	}

	if old, ok := slots[md.variant]; ok {
		if !sameDocument(old.Document(), md.Document()) && old.IsReleaseOnClose() {
			s.logger.Warn("replacing managed document, the replaced document will not be released",
				"old", old.String(),
				"new", md.String(),
			)
		} else {
			s.logger.Debug("replacing managed document",
				"old", old.String(),
				"new", md.String(),
			)
		}
	}
	slots[md.variant] = md

	count := s.ManagedCount()
	if count > s.maxManagedCount {
		s.maxManagedCount = count
	}
	if warn := s.manager.managedCountWarning; warn > 0 && count > warn && !s.warnedCount {
		s.warnedCount = true
		s.logger.Warn("session manages many documents",
			"managed", count,
			"threshold", warn,
			"creator", s.CreatorStack(),
		)
	}
}

// Remove stops managing the document in the given slot of this session and
// returns it. The document is not released; that is up to the caller.
func (s *Session) Remove(documentID int64, variant docid.Variant) (*ManagedDocument, bool) {
	slots, ok := s.managed[documentID]
	if !ok {
		return nil, false
	}
	md, ok := slots[variant]
	if !ok {
		return nil, false
	}

	delete(slots, variant)
	if len(slots) == 0 {
		delete(s.managed, documentID)
	}
	s.logger.Debug("removed managed document", "document", md.String())
	return md, true
}

// RemoveDocument stops managing every slot of this session that references
// doc and returns the number of removed slots. Documents are not released.
func (s *Session) RemoveDocument(doc Document) int {
	if doc == nil {
		return 0
	}

	removed := 0
	for documentID, slots := range s.managed {
		for variant, md := range slots {
			if md.manages(doc) {
				delete(slots, variant)
				removed++
				s.logger.Debug("removed managed document", "document", md.String())
			}
		}
		if len(slots) == 0 {
			delete(s.managed, documentID)
		}
	}
	return removed
}

// Contains returns true if doc is managed by this session or an enclosing
// session reachable from it.
func (s *Session) Contains(doc Document) bool {
	_, ok := s.ManagedState(doc)
	return ok
}

// ManagedState finds the managed document referencing doc. Enclosing
// sessions are searched unless this session is isolated.
func (s *Session) ManagedState(doc Document) (*ManagedDocument, bool) {
	if doc == nil || s.closed {
		return nil, false
	}

	for _, slots := range s.managed {
		for _, md := range slots {
			if md.manages(doc) {
				return md, true
			}
		}
	}

	if !s.isolated && s.previous != nil {
		return s.previous.ManagedState(doc)
	}
	return nil, false
}

// ManagedStateByID finds the managed document in the given slot. Enclosing
// sessions are searched unless this session is isolated.
func (s *Session) ManagedStateByID(documentID int64, variant docid.Variant) (*ManagedDocument, bool) {
	if s.closed {
		return nil, false
	}

	if md, ok := s.managed[documentID][variant]; ok {
		return md, true
	}

	if !s.isolated && s.previous != nil {
		return s.previous.ManagedStateByID(documentID, variant)
	}
	return nil, false
}

// SpecialPurposeState finds the document registered for the given purpose.
func (s *Session) SpecialPurposeState(purpose string) (*ManagedDocument, bool) {
	return s.ManagedStateByID(SpecialPurposeDocumentID, docid.PurposeVariant(purpose))
}

// HasExclusiveAccess returns true if the document in the given slot is
// managed in ExclusiveWrite mode. Unmanaged documents are not writable.
func (s *Session) HasExclusiveAccess(documentID int64, variant docid.Variant) bool {
	md, ok := s.ManagedStateByID(documentID, variant)
	return ok && md.IsWritingPermitted()
}

// IsWritingPermitted returns true if doc is managed in ExclusiveWrite mode.
// Unmanaged documents are not writable.
func (s *Session) IsWritingPermitted(doc Document) bool {
	md, ok := s.ManagedState(doc)
	return ok && md.IsWritingPermitted()
}

// AssertWritingPermitted returns a *WriteAccessError unless doc is managed in
// ExclusiveWrite mode. Call it before mutating a document.
func (s *Session) AssertWritingPermitted(doc Document) error {
	md, ok := s.ManagedState(doc)
	if !ok {
		err := &WriteAccessError{
			Reason:    NotManaged,
			SessionID: s.ID(),
			Document:  describeDocument(doc),
		}
		s.logger.Error("write access denied",
			"reason", err.Reason.String(),
			"document", err.Document,
		)
		return err
	}

	if md.IsWritingPermitted() {
		return nil
	}

	err := &WriteAccessError{
		Reason:     ReadOnly,
		SessionID:  s.ID(),
		DocumentID: md.DocumentID(),
		Variant:    md.Variant(),
		Mode:       md.Mode(),
	}
	if h := md.Holder(); h != nil {
		err.Key = h.Key()
	}
	s.logger.Error("write access denied",
		"reason", err.Reason.String(),
		"document", md.String(),
	)
	return err
}

// String returns a short description for logs.
func (s *Session) String() string {
	return fmt.Sprintf("session %s (nested=%t, isolated=%t, closed=%t, managed=%d, max_managed=%d)",
		s.ID(), s.previous != nil, s.isolated, s.closed, s.ManagedCount(), s.maxManagedCount)
}
