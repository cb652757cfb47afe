package casstorage

import (
	"fmt"
	"reflect"
)

// Document is an in-memory annotation document managed by a Session.
//
// Documents are compared by identity, so implementations must be comparable;
// in practice they are pointer types. Documents whose dynamic value cannot be
// compared are rejected with ErrInvalidArgument. Release frees the resources
// held by the document and should be idempotent.
type Document interface {
	Release() error
}

// Loader obtains a document, e.g. by reading it from storage.
type Loader func() (Document, error)

// isComparable reports whether doc can be compared with == without
// panicking. The dynamic check also covers interface fields holding slices
// or maps.
func isComparable(doc Document) bool {
	return doc != nil && reflect.ValueOf(doc).Comparable()
}

func checkComparable(doc Document) error {
	if !isComparable(doc) {
		return fmt.Errorf("%w: document of type %T is not comparable", ErrInvalidArgument, doc)
	}
	return nil
}

// sameDocument compares documents by identity. Documents that cannot be
// compared are never the same.
func sameDocument(a, b Document) bool {
	if a == nil || b == nil || !isComparable(a) || !isComparable(b) {
		return false
	}
	return a == b
}

// describeDocument returns a description of doc for diagnostics.
func describeDocument(doc Document) string {
	if doc == nil {
		return "<nil>"
	}
	if s, ok := doc.(fmt.Stringer); ok {
		return fmt.Sprintf("%T %s", doc, s.String())
	}
	switch reflect.ValueOf(doc).Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return fmt.Sprintf("%T@%p", doc, doc)
	default:
		return fmt.Sprintf("%T", doc)
	}
}
