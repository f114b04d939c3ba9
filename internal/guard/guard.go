// Package guard wraps units of work against the record store with a
// verify-reconnect-retry discipline.
//
// The contract is deliberately narrow: one reconnect attempt when the
// liveness probe fails, and one reconnect-and-retry of the whole operation
// when it errors. The guard does not know whether an operation is
// idempotent; callers must make operations safe to repeat.
package guard

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/relo/internal/shared"
)

// Conn is the connection surface the guard manages. The record store
// implements it.
type Conn interface {
	Ping(ctx context.Context) error
	Reconnect(ctx context.Context) error
}

// Guard executes operations only over a verified connection.
type Guard struct {
	conn   Conn
	logger *log.Logger

	retries int // operations that needed the retry path
}

// New creates a Guard over the given connection. A nil logger falls back to
// the default stderr logger.
func New(conn Conn, logger *log.Logger) *Guard {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Guard{conn: conn, logger: logger}
}

// Retries returns how many guarded operations required a reconnect-and-retry.
func (g *Guard) Retries() int { return g.retries }

// Run verifies the connection, executes op, and on failure reconnects and
// retries op exactly once before reporting the failure.
func (g *Guard) Run(ctx context.Context, op func(ctx context.Context) error) error {
	if g.conn == nil {
		return fmt.Errorf("%w: no connection", shared.ErrStoreUnavailable)
	}

	if err := g.ensureLive(ctx); err != nil {
		return err
	}

	err := op(ctx)
	if err == nil {
		return nil
	}

	// A context cancellation is a caller decision, not a connection fault.
	if ctx.Err() != nil {
		return err
	}

	g.logger.Warn("operation failed, reconnecting for single retry", "err", err)
	g.retries++

	if rerr := g.conn.Reconnect(ctx); rerr != nil {
		return fmt.Errorf("%w: reconnect failed after %v: %v", shared.ErrConnectionLost, err, rerr)
	}

	if err := op(ctx); err != nil {
		return fmt.Errorf("operation failed after retry: %w", err)
	}

	return nil
}

// ensureLive probes the connection, reconnecting once on a failed probe.
func (g *Guard) ensureLive(ctx context.Context) error {
	if err := g.conn.Ping(ctx); err == nil {
		return nil
	}

	g.logger.Warn("liveness probe failed, reconnecting")
	if err := g.conn.Reconnect(ctx); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrConnectionLost, err)
	}

	if err := g.conn.Ping(ctx); err != nil {
		return fmt.Errorf("%w: probe failed after reconnect: %v", shared.ErrConnectionLost, err)
	}

	return nil
}
