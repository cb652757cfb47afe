package docid

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Source is implemented by anything that knows which project and document it
// belongs to, e.g. a document record loaded from the database.
type Source interface {
	ProjectID() int64
	ProjectName() string
	DocumentID() int64
	DocumentName() string
}

// KeyID is the comparable identity of a Key. Use it as a map key.
type KeyID struct {
	ProjectID  int64
	DocumentID int64
	Variant    Variant
	Wildcard   bool
}

// Key identifies one in-memory instance of an annotation document:
//   - ProjectID: Project the document belongs to
//   - DocumentID: Source document within the project
//   - Variant: Annotation set (user, curation, initial)
//
// Project and document names are display metadata only. Keys are immutable;
// the With* methods return enriched copies.
type Key struct {
	projectID    int64
	documentID   int64
	variant      Variant
	wildcard     bool
	projectName  string
	documentName string
}

// NewKey creates a key for the given identity triple.
func NewKey(projectID, documentID int64, variant Variant) Key {
	return Key{
		projectID:  projectID,
		documentID: documentID,
		variant:    variant,
	}
}

// NewKeyFromSource creates a key for a document record and copies its names
// for diagnostics.
func NewKeyFromSource(src Source, variant Variant) Key {
	return Key{
		projectID:    src.ProjectID(),
		documentID:   src.DocumentID(),
		variant:      variant,
		projectName:  src.ProjectName(),
		documentName: src.DocumentName(),
	}
}

// ProjectKey creates a wildcard key matching every document of a project.
func ProjectKey(projectID int64) Key {
	return Key{projectID: projectID, wildcard: true}
}

// ProjectID returns the project ID.
func (k Key) ProjectID() int64 {
	return k.projectID
}

// DocumentID returns the document ID. Returns 0 for project keys.
func (k Key) DocumentID() int64 {
	return k.documentID
}

// Variant returns the annotation set. Returns the zero Variant for project
// keys.
func (k Key) Variant() Variant {
	return k.variant
}

// ProjectName returns the project name, if known.
func (k Key) ProjectName() string {
	return k.projectName
}

// DocumentName returns the document name, if known.
func (k Key) DocumentName() string {
	return k.documentName
}

// IsProjectWide returns true for wildcard keys created by ProjectKey.
func (k Key) IsProjectWide() bool {
	return k.wildcard
}

// WithProjectName returns a copy of the key carrying the project name.
func (k Key) WithProjectName(name string) Key {
	k.projectName = name
	return k
}

// WithDocumentName returns a copy of the key carrying the document name.
func (k Key) WithDocumentName(name string) Key {
	k.documentName = name
	return k
}

// ID returns the comparable identity of the key. Names are not part of it.
func (k Key) ID() KeyID {
	if k.wildcard {
		return KeyID{ProjectID: k.projectID, Wildcard: true}
	}
	return KeyID{
		ProjectID:  k.projectID,
		DocumentID: k.documentID,
		Variant:    k.variant,
	}
}

// Equal returns true if both keys refer to the same document instance. If
// either key is a project key, only the project IDs are compared.
func (k Key) Equal(other Key) bool {
	if k.wildcard || other.wildcard {
		return k.projectID == other.projectID
	}
	return k.projectID == other.projectID &&
		k.documentID == other.documentID &&
		k.variant == other.variant
}

// String returns the canonical string representation.
// Format: "project:{project}:document:{document}:variant:{variant}"
// Project keys use "project:{project}:document:*".
func (k Key) String() string {
	if k.wildcard {
		return fmt.Sprintf("project:%d:document:*", k.projectID)
	}
	return fmt.Sprintf("project:%d:document:%d:variant:%s",
		k.projectID, k.documentID, k.variant)
}

// DisplayString returns a human-readable form including names when known.
// Intended for log and error messages.
func (k Key) DisplayString() string {
	project := strconv.FormatInt(k.projectID, 10)
	if k.projectName != "" {
		project = fmt.Sprintf("%s [%d]", k.projectName, k.projectID)
	}
	if k.wildcard {
		return fmt.Sprintf("all documents of project %s", project)
	}

	document := strconv.FormatInt(k.documentID, 10)
	if k.documentName != "" {
		document = fmt.Sprintf("%s [%d]", k.documentName, k.documentID)
	}
	return fmt.Sprintf("%s (%s) in project %s", document, k.variant, project)
}

// ParseKey parses a key from its canonical string representation.
// Supports:
//   - "project:{project}:document:{document}:variant:{variant}"
//   - "project:{project}:document:*"
func ParseKey(s string) (Key, error) {
	if s == "" {
		return Key{}, fmt.Errorf("key string cannot be empty")
	}

	parts := strings.SplitN(s, ":", 6)
	if len(parts) < 4 || parts[0] != "project" || parts[2] != "document" {
		return Key{}, fmt.Errorf("invalid key format (expected project:{id}:document:{id}:variant:{variant}): %s", s)
	}

	projectID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return Key{}, fmt.Errorf("invalid project ID %q: %w", parts[1], err)
	}

	if parts[3] == "*" {
		if len(parts) != 4 {
			return Key{}, fmt.Errorf("project key cannot carry a variant: %s", s)
		}
		return ProjectKey(projectID), nil
	}

	documentID, err := strconv.ParseInt(parts[3], 10, 64)
	if err != nil {
		return Key{}, fmt.Errorf("invalid document ID %q: %w", parts[3], err)
	}

	if len(parts) != 6 || parts[4] != "variant" {
		return Key{}, fmt.Errorf("variant missing in key: %s", s)
	}

	variant := Variant(parts[5])
	if !variant.IsValid() {
		return Key{}, fmt.Errorf("invalid variant in key: %s", s)
	}

	return NewKey(projectID, documentID, variant), nil
}

// MarshalJSON implements json.Marshaler.
// Serializes as: {"project": 7, "document": 42, "variant": "alice", ...}
func (k Key) MarshalJSON() ([]byte, error) {
	obj := map[string]interface{}{
		"project": k.projectID,
	}
	if k.wildcard {
		obj["document"] = "*"
	} else {
		obj["document"] = k.documentID
		obj["variant"] = string(k.variant)
	}
	if k.projectName != "" {
		obj["project_name"] = k.projectName
	}
	if k.documentName != "" {
		obj["document_name"] = k.documentName
	}
	return json.Marshal(obj)
}
