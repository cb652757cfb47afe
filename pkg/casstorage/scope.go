package casstorage

import (
	"context"

	"github.com/hashicorp/go-multierror"
)

// SessionFunc is run inside a session by WithSession and WithNestedSession.
// The context carries the session.
type SessionFunc func(ctx context.Context, s *Session) error

// WithSession opens a root session, runs fn and closes the session on every
// exit path, including panics. Errors returned by fn and by Close are
// combined.
func (m *Manager) WithSession(ctx context.Context, fn SessionFunc) error {
	ctx, s, err := m.Open(ctx)
	if err != nil {
		return err
	}
	return runInSession(ctx, s, fn)
}

// WithNestedSession is like WithSession but opens a nested session.
func (m *Manager) WithNestedSession(ctx context.Context, isolated bool, fn SessionFunc) error {
	ctx, s := m.OpenNested(ctx, isolated)
	return runInSession(ctx, s, fn)
}

func runInSession(ctx context.Context, s *Session, fn SessionFunc) (err error) {
	defer func() {
		r := recover()

		if closeErr := s.Close(); closeErr != nil {
			switch {
			case r != nil:
				s.logger.Error("error closing session after panic", "error", closeErr)
			case err == nil:
				err = closeErr
			default:
				err = multierror.Append(err, closeErr)
			}
		}

		if r != nil {
			panic(r)
		}
	}()

	return fn(ctx, s)
}
