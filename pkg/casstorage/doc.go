// Package casstorage tracks which in-memory annotation documents (CAS
// instances) an execution context may read or write, and releases them when
// the context is done with them.
//
// Every read or write of an annotation document must go through a Session.
// A Session registers documents as ManagedDocuments under one of two access
// modes:
//
//   - SharedRead: the document may be read, never mutated.
//   - ExclusiveWrite: the holder of the session may mutate the document.
//
// Code paths that mutate a document must call Session.AssertWritingPermitted
// first. Documents that are not managed by any reachable session are never
// writable.
//
// # Session stacks
//
// Sessions live on a stack carried by a context.Context. The innermost open
// session on the stack is the current one and is returned by Get. Nested
// sessions see the documents of their enclosing sessions unless they are
// isolated. Sessions must be closed in the reverse order in which they were
// opened; closing releases every managed document that is marked for release.
//
//	mgr := casstorage.NewManager(casstorage.ManagerConfig{Logger: logger})
//
//	err := mgr.WithSession(ctx, func(ctx context.Context, s *casstorage.Session) error {
//	    holder := casstorage.HolderOf(key, load)
//	    if _, err := s.AddHolder(casstorage.ExclusiveWrite, holder); err != nil {
//	        return err
//	    }
//	    doc, err := holder.Document()
//	    if err != nil {
//	        return err
//	    }
//	    if err := s.AssertWritingPermitted(doc); err != nil {
//	        return err
//	    }
//	    return annotate(doc)
//	})
//
// A stack must only be used by one goroutine at a time, just like the request
// it belongs to. Different requests get different stacks and never contend.
// Work spawned on another goroutine must use Detach to get a context without
// the parent's stack.
package casstorage
