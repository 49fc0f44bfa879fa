package engine

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"gocha/internal/models"
	"gocha/internal/monitoring"
	"gocha/internal/notify"
	"gocha/internal/orders"
)

// CommandService submits status-update commands for single orders.
type CommandService interface {
	UpdateStatus(ctx context.Context, orderID string, status models.Status) error
}

// Notifier posts operator-facing toasts.
type Notifier interface {
	Notify(message string, cue notify.Cue)
}

// Coordinator applies status transitions optimistically and reconciles them
// against the order command service. At most one command per order id is in
// flight at a time; rapid repeat requests for the same order are rejected
// instead of queued.
type Coordinator struct {
	venueID  string
	cmd      CommandService
	coll     *orders.Collection
	loader   *SnapshotLoader
	notifier Notifier
	metrics  *monitoring.Metrics
	log      *zap.Logger

	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewCoordinator creates a coordinator for the venue.
func NewCoordinator(venueID string, cmd CommandService, coll *orders.Collection, loader *SnapshotLoader, notifier Notifier, metrics *monitoring.Metrics, log *zap.Logger) *Coordinator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Coordinator{
		venueID:  venueID,
		cmd:      cmd,
		coll:     coll,
		loader:   loader,
		notifier: notifier,
		metrics:  metrics,
		log:      log.With(zap.String("component", "coordinator")),
		inflight: make(map[string]struct{}),
	}
}

// RequestTransition advances one order to target. The change lands in the
// collection before the remote command is sent so the console never waits on
// the network; a failed command is rolled back and ground truth re-fetched.
func (c *Coordinator) RequestTransition(ctx context.Context, id string, target models.Status) error {
	current, ok := c.coll.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", orders.ErrUnknownOrder, id)
	}
	if !models.CanAdvance(current.Status, target) {
		return fmt.Errorf("%w: %s -> %s for order %s", orders.ErrInvalidTransition, current.Status, target, id)
	}

	if !c.acquire(id) {
		return fmt.Errorf("%w: order %s", ErrConflictingUpdate, id)
	}
	defer c.release(id)

	prior := current.Status
	if err := c.coll.SetStatus(id, target); err != nil {
		// A push merge advanced the record between the check and the apply.
		return err
	}

	if err := c.cmd.UpdateStatus(ctx, id, target); err != nil {
		if c.metrics != nil {
			c.metrics.Commands.WithLabelValues(monitoring.ResultError).Inc()
		}
		c.log.Warn("status command failed",
			zap.String("order_id", id),
			zap.String("target", string(target)),
			zap.Error(err))

		// Session torn down while the command was in flight: discard the
		// outcome entirely, the collection is about to go away.
		if ctx.Err() != nil {
			return ctx.Err()
		}

		c.reconcile(ctx, id, prior, target)
		if c.notifier != nil {
			c.notifier.Notify("Update failed", "")
		}
		return fmt.Errorf("%w: order %s: %v", ErrRemoteCommand, id, err)
	}

	if c.metrics != nil {
		c.metrics.Commands.WithLabelValues(monitoring.ResultOK).Inc()
	}
	if c.notifier != nil {
		c.notifier.Notify(successMessage(target), successCue(target))
	}
	return nil
}

// reconcile reverts the optimistic change and re-establishes ground truth
// from the query service. The failure reason is ambiguous (the command may
// have partially applied server-side), so rather than trusting the prior
// in-memory value alone, a fresh snapshot is merged on top of the revert.
func (c *Coordinator) reconcile(ctx context.Context, id string, prior, applied models.Status) {
	if c.coll.RollbackStatus(id, applied, prior) && c.metrics != nil {
		c.metrics.Rollbacks.Inc()
	}
	if err := c.loader.Load(ctx, c.venueID); err != nil {
		// The record stays at the reverted status; the next successful
		// load or push event heals it.
		c.log.Warn("reconcile fetch failed", zap.String("order_id", id), zap.Error(err))
	}
}

func (c *Coordinator) acquire(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.inflight[id]; busy {
		return false
	}
	c.inflight[id] = struct{}{}
	return true
}

func (c *Coordinator) release(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inflight, id)
}

func successMessage(target models.Status) string {
	if target == models.StatusReady {
		return "Marked as Ready"
	}
	return "Order Completed"
}

func successCue(target models.Status) notify.Cue {
	if target == models.StatusReady {
		return notify.CueReady
	}
	return notify.CueSuccess
}
