package casstorage

import (
	"context"
	"sync"
)

type stackKey struct{}

// sessionStack holds the current session of one execution context. The
// enclosing sessions are reachable through Session.previous.
type sessionStack struct {
	mu      sync.Mutex
	current *Session
}

func stackFromContext(ctx context.Context) *sessionStack {
	if ctx == nil {
		return nil
	}
	stack, _ := ctx.Value(stackKey{}).(*sessionStack)
	return stack
}

// withStack returns ctx with a session stack, reusing an existing one.
func withStack(ctx context.Context) (context.Context, *sessionStack) {
	if ctx == nil {
		ctx = context.Background()
	}
	if stack := stackFromContext(ctx); stack != nil {
		return ctx, stack
	}
	stack := &sessionStack{}
	return context.WithValue(ctx, stackKey{}, stack), stack
}

// Detach returns a context derived from ctx that carries no session stack.
// Use it for goroutines spawned from a context with an open session: they
// get a stack of their own on their first Open or OpenNested instead of
// sharing the parent's. Values other than the session stack are kept.
func Detach(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if stackFromContext(ctx) == nil {
		return ctx
	}
	return context.WithValue(ctx, stackKey{}, (*sessionStack)(nil))
}

// Get returns the current session of ctx. It fails with ErrNoActiveSession
// if no session is open.
func Get(ctx context.Context) (*Session, error) {
	stack := stackFromContext(ctx)
	if stack == nil {
		return nil, ErrNoActiveSession
	}

	stack.mu.Lock()
	defer stack.mu.Unlock()

	if stack.current == nil {
		return nil, ErrNoActiveSession
	}
	return stack.current, nil
}

// Exists returns true if ctx has a current session.
func Exists(ctx context.Context) bool {
	_, err := Get(ctx)
	return err == nil
}
