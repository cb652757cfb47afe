package docid

import (
	"strings"

	"github.com/iancoleman/strcase"
)

// Variant identifies which annotation set of a document a key refers to.
type Variant string

const (
	// InitialVariant identifies the document as it was imported, before any
	// user annotated it.
	InitialVariant Variant = "INITIAL_CAS"

	// CurationVariant identifies the curated (gold) annotation set.
	CurationVariant Variant = "CURATION_USER"
)

// UserVariant returns the variant holding the annotations of the given user.
func UserVariant(username string) Variant {
	return Variant(username)
}

// PurposeVariant returns the variant used for documents that are registered
// for a special purpose instead of a real document identity. Free-form
// purposes are normalised, so "schema upgrade" and "schemaUpgrade" both map
// to "SCHEMA_UPGRADE".
func PurposeVariant(purpose string) Variant {
	return Variant(strcase.ToScreamingSnake(strings.TrimSpace(purpose)))
}

// IsZero returns true if the variant is empty.
func (v Variant) IsZero() bool {
	return v == ""
}

// IsValid returns true if the variant can be used in a key.
func (v Variant) IsValid() bool {
	return strings.TrimSpace(string(v)) != ""
}

// String returns the string representation of the variant.
func (v Variant) String() string {
	return string(v)
}
