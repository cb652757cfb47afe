package casstorage

import (
	"errors"
	"fmt"

	"github.com/hashicorp-forge/casstore/pkg/docid"
)

var (
	// ErrIllegalState is matched by every error that reports a bug in the
	// calling code rather than a runtime condition.
	ErrIllegalState = errors.New("illegal state")

	// ErrInvalidArgument is returned when an argument fails validation.
	ErrInvalidArgument = errors.New("invalid argument")

	ErrSessionAlreadyActive    = illegalState("CAS storage session already active")
	ErrNoActiveSession         = illegalState("no CAS storage session active")
	ErrSessionNotCurrent       = illegalState("CAS storage session is not the current session")
	ErrSessionClosed           = illegalState("CAS storage session already closed")
	ErrDocumentNotSet          = illegalState("document has not been set")
	ErrNotBorrowed             = illegalState("document must have been borrowed to be replaced")
	ErrWriteAccessNotPermitted = errors.New("write access not permitted")
)

// stateError is a sentinel that also matches ErrIllegalState.
type stateError struct {
	msg string
}

func illegalState(msg string) error {
	return &stateError{msg: msg}
}

func (e *stateError) Error() string {
	return e.msg
}

func (e *stateError) Is(target error) bool {
	return target == ErrIllegalState
}

// WriteAccessReason tells why write access to a document was denied.
type WriteAccessReason int

const (
	// NotManaged means no reachable session manages the document.
	NotManaged WriteAccessReason = iota + 1

	// ReadOnly means the document is managed in SharedRead mode.
	ReadOnly
)

// String returns the string representation of the reason.
func (r WriteAccessReason) String() string {
	switch r {
	case NotManaged:
		return "not managed"
	case ReadOnly:
		return "read only"
	default:
		return "unknown"
	}
}

// WriteAccessError is returned by Session.AssertWritingPermitted. It matches
// ErrWriteAccessNotPermitted.
type WriteAccessError struct {
	Reason     WriteAccessReason
	SessionID  string
	DocumentID int64
	Variant    docid.Variant
	Mode       AccessMode
	Key        docid.Key

	// Document describes the document for which access was denied. It is
	// set for unmanaged documents, which have no slot to report.
	Document string
}

func (e *WriteAccessError) Error() string {
	switch e.Reason {
	case NotManaged:
		document := "document"
		if e.Document != "" {
			document = "document " + e.Document
		}
		return fmt.Sprintf("%s: %s is not managed by session %s",
			ErrWriteAccessNotPermitted, document, e.SessionID)
	case ReadOnly:
		target := fmt.Sprintf("document %d (%s)", e.DocumentID, e.Variant)
		if e.DocumentID == SpecialPurposeDocumentID {
			target = fmt.Sprintf("special purpose document (%s)", e.Variant)
		}
		if e.Key != (docid.Key{}) {
			target = e.Key.DisplayString()
		}
		return fmt.Sprintf("%s: %s is managed in %s mode by session %s",
			ErrWriteAccessNotPermitted, target, e.Mode, e.SessionID)
	default:
		return ErrWriteAccessNotPermitted.Error()
	}
}

func (e *WriteAccessError) Is(target error) bool {
	return target == ErrWriteAccessNotPermitted
}
