// Package docid provides type-safe identification of annotation documents
// (CAS instances) for the CAS storage layer.
//
// # Core Concepts
//
//  1. Variant: Which annotation set of a document is meant, e.g. the
//     annotations of a single user, the curated result, or the initial
//     (unannotated) document.
//
//  2. Key: Fully-qualified reference to one in-memory document instance,
//     made of project ID, document ID and variant. Keys also carry project
//     and document names for log messages; the names never take part in
//     equality.
//
//  3. Project keys: Wildcard keys that match every document of a project.
//     They are used to invalidate all cached documents of a project at once.
//
// # Usage Examples
//
//	key := docid.NewKey(7, 42, docid.UserVariant("alice")).
//	    WithProjectName("treebank").
//	    WithDocumentName("chapter-01.txt")
//
//	// Map usage
//	seen := map[docid.KeyID]bool{key.ID(): true}
//
//	// Bulk invalidation
//	if docid.ProjectKey(7).Equal(key) {
//	    // evict
//	}
//
//	// Serialize for logs and parse back
//	s := key.String() // "project:7:document:42:variant:alice"
//	parsed, err := docid.ParseKey(s)
package docid
