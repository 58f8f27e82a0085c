// Package lifecycle guards application shutdown and navigation
// boundaries: nothing may terminate the process while debounced writes
// are still outstanding.
package lifecycle

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/inkpad-app/inkpad/internal/apperrors"
	"github.com/inkpad-app/inkpad/internal/logging"
	"github.com/inkpad-app/inkpad/internal/storage"
)

// DefaultSettleTimeout bounds how long a shutdown waits for pending
// writes to land.
const DefaultSettleTimeout = 10 * time.Second

// Saver is the slice of the store the guard needs.
type Saver interface {
	FlushAll(ctx context.Context) []storage.WriteResult
	HasUnsaved(id string) bool
	UnsavedIDs() []string
}

// Guard sits at the lifecycle boundary. Before the shell closes a
// window, navigates away from an editor, or exits, it asks the guard
// whether unsaved work exists and settles it.
type Guard struct {
	saver   Saver
	timeout time.Duration
	log     zerolog.Logger
}

// NewGuard creates a guard over the given saver. A timeout of zero
// selects DefaultSettleTimeout.
func NewGuard(saver Saver, timeout time.Duration) *Guard {
	if timeout <= 0 {
		timeout = DefaultSettleTimeout
	}
	return &Guard{
		saver:   saver,
		timeout: timeout,
		log:     logging.With("lifecycle.guard"),
	}
}

// HasUnsaved reports whether a debounced write is outstanding for id.
// The shell calls this before navigating away from an editor.
func (g *Guard) HasUnsaved(id string) bool {
	return g.saver.HasUnsaved(id)
}

// UnsavedIDs returns every id with outstanding unsaved work.
func (g *Guard) UnsavedIDs() []string {
	return g.saver.UnsavedIDs()
}

// Settle flushes all pending writes within the guard's timeout. Every
// write that fails to settle is reported; a nil return means the
// process may terminate without losing work.
func (g *Guard) Settle(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	var failed []string
	for _, res := range g.saver.FlushAll(ctx) {
		if res.Err != nil {
			failed = append(failed, res.ID)
			g.log.Error().Str("id", res.ID).Err(res.Err).Msg("write did not settle at shutdown")
		}
	}
	if len(failed) > 0 {
		return apperrors.Newf(apperrors.ErrInternal,
			"%d write(s) did not settle at shutdown: %v", len(failed), failed)
	}
	return nil
}

// WaitForShutdown blocks until the process receives an interrupt or
// termination signal, or ctx is cancelled, then settles pending writes.
func (g *Guard) WaitForShutdown(ctx context.Context) error {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	select {
	case sig := <-sigs:
		g.log.Info().Str("signal", fmt.Sprint(sig)).Msg("shutdown signal received")
	case <-ctx.Done():
		g.log.Info().Msg("shutdown requested")
	}

	// The settle deadline is independent of the triggering context; a
	// cancelled ctx must not abort the final flush.
	return g.Settle(context.Background())
}
