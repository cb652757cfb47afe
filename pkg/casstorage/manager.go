package casstorage

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/hashicorp/go-hclog"
)

// ManagerConfig holds configuration for the session manager.
type ManagerConfig struct {
	// Logger receives session lifecycle and diagnostic messages.
	Logger hclog.Logger

	// DisableCreatorStack skips capturing the call stack that opened a
	// session. The stack is used to blame sessions that were never closed.
	DisableCreatorStack bool

	// ManagedCountWarning logs a warning once a session manages more than
	// this many documents. Zero disables the warning.
	ManagedCountWarning int
}

// Stats is a snapshot of the manager diagnostics.
type Stats struct {
	// OpenSessions is the number of sessions opened and not yet closed.
	OpenSessions int64

	// OpenedSessions is the number of sessions opened since the manager was
	// created.
	OpenedSessions int64
}

// Manager opens sessions. It is safe for concurrent use; the sessions it
// opens are not.
type Manager struct {
	logger              hclog.Logger
	captureCreatorStack bool
	managedCountWarning int

	openSessions   atomic.Int64
	openedSessions atomic.Int64
}

// NewManager creates a new session manager.
func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Logger == nil {
		cfg.Logger = hclog.NewNullLogger()
	}

	return &Manager{
		logger:              cfg.Logger.Named("cas-storage-session"),
		captureCreatorStack: !cfg.DisableCreatorStack,
		managedCountWarning: cfg.ManagedCountWarning,
	}
}

// Open opens a root session on the session stack of ctx and makes it the
// current session. It fails with ErrSessionAlreadyActive if the stack
// already has a current session. The returned context carries the stack and
// must be used for everything that should see the session.
func (m *Manager) Open(ctx context.Context) (context.Context, *Session, error) {
	ctx, stack := withStack(ctx)

	stack.mu.Lock()
	defer stack.mu.Unlock()

	if current := stack.current; current != nil {
		m.logger.Error("session already active",
			"active_session", current.ID(),
			"active_creator", current.CreatorStack(),
		)
		return ctx, nil, fmt.Errorf("%w: session %s", ErrSessionAlreadyActive, current.ID())
	}

	s := m.newSession(stack, nil, false)
	stack.current = s
	return ctx, s, nil
}

// OpenNested opens a session nested in the current session of ctx, if any,
// and makes it the current session. Nested sessions see the documents of
// the enclosing sessions unless isolated is set.
func (m *Manager) OpenNested(ctx context.Context, isolated bool) (context.Context, *Session) {
	ctx, stack := withStack(ctx)

	stack.mu.Lock()
	defer stack.mu.Unlock()

	s := m.newSession(stack, stack.current, isolated)
	stack.current = s
	return ctx, s
}

// Stats returns a snapshot of the manager diagnostics.
func (m *Manager) Stats() Stats {
	return Stats{
		OpenSessions:   m.openSessions.Load(),
		OpenedSessions: m.openedSessions.Load(),
	}
}

func (m *Manager) newSession(stack *sessionStack, previous *Session, isolated bool) *Session {
	s := newSession(m, stack, previous, isolated)

	m.openSessions.Add(1)
	m.openedSessions.Add(1)

	s.logger.Trace("opened session",
		"nested", previous != nil,
		"isolated", isolated,
		"open_sessions", m.openSessions.Load(),
	)
	return s
}
