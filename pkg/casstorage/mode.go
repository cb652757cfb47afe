package casstorage

import (
	"fmt"
	"strings"
)

// AccessMode is the access a session grants to a managed document.
type AccessMode int

const (
	// SharedRead allows reading the document. Several sessions may share it.
	SharedRead AccessMode = iota + 1

	// ExclusiveWrite allows mutating the document.
	ExclusiveWrite
)

// IsValid returns true if this is a known access mode.
func (m AccessMode) IsValid() bool {
	return m == SharedRead || m == ExclusiveWrite
}

// String returns the string representation of the access mode.
func (m AccessMode) String() string {
	switch m {
	case SharedRead:
		return "shared-read"
	case ExclusiveWrite:
		return "exclusive-write"
	default:
		return fmt.Sprintf("AccessMode(%d)", int(m))
	}
}

// ParseAccessMode parses an access mode. Accepts "shared-read" or "read" and
// "exclusive-write" or "write", case-insensitive.
func ParseAccessMode(s string) (AccessMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "shared-read", "read":
		return SharedRead, nil
	case "exclusive-write", "write":
		return ExclusiveWrite, nil
	default:
		return 0, fmt.Errorf("unknown access mode: %q (valid: shared-read, exclusive-write)", s)
	}
}
