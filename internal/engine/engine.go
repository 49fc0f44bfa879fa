// Package engine ties the order sync components into one venue session: an
// initial snapshot load, a continuously fed push channel, and optimistic
// status transitions reconciled against the remote services.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"gocha/internal/ingress"
	"gocha/internal/models"
	"gocha/internal/monitoring"
	"gocha/internal/notify"
	"gocha/internal/orders"
)

// Options carries everything the engine needs. Query, Command and Scheduler
// are injected so tests can run the whole engine against fakes.
type Options struct {
	VenueID       string
	PushURL       string
	Query         QueryService
	Command       CommandService
	Scheduler     *notify.Scheduler
	RetryInterval time.Duration
	Metrics       *monitoring.Metrics
	Log           *zap.Logger
}

// Engine owns one venue session end to end.
type Engine struct {
	venueID     string
	coll        *orders.Collection
	loader      *SnapshotLoader
	coordinator *Coordinator
	ingress     *ingress.Ingress
	scheduler   *notify.Scheduler
	log         *zap.Logger

	mu         sync.Mutex
	sessionCtx context.Context
	cancel     context.CancelFunc
	running    bool
}

// New wires up a stopped engine for the venue described in opts.
func New(opts Options) *Engine {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}

	// A nil scheduler must stay an untyped nil inside the interfaces below.
	var notifier *notify.Scheduler
	var ingNotifier ingress.Notifier
	var coordNotifier Notifier
	if opts.Scheduler != nil {
		notifier = opts.Scheduler
		ingNotifier = opts.Scheduler
		coordNotifier = opts.Scheduler
	}

	coll := orders.NewCollection(log)
	loader := NewSnapshotLoader(opts.Query, coll, opts.Metrics, log)
	coordinator := NewCoordinator(opts.VenueID, opts.Command, coll, loader, coordNotifier, opts.Metrics, log)
	ing := ingress.New(opts.PushURL, opts.VenueID, coll, ingNotifier, opts.RetryInterval, opts.Metrics, log)

	return &Engine{
		venueID:     opts.VenueID,
		coll:        coll,
		loader:      loader,
		coordinator: coordinator,
		ingress:     ing,
		scheduler:   notifier,
		log:         log.With(zap.String("component", "engine"), zap.String("venue", opts.VenueID)),
	}
}

// Start opens the session: kicks off the initial snapshot load and the push
// channel. Both run until Stop.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return fmt.Errorf("engine already started for venue %s", e.venueID)
	}

	ctx, cancel := context.WithCancel(context.Background())
	e.sessionCtx = ctx
	e.cancel = cancel
	e.running = true

	go func() {
		if err := e.loader.Load(ctx, e.venueID); err != nil {
			e.log.Warn("initial snapshot load failed", zap.Error(err))
		}
	}()
	go e.ingress.Run(ctx)

	e.log.Info("session started")
	return nil
}

// Stop tears the session down: the push channel disconnects, pending toast
// timers are cleared, and in-flight snapshot or command results are discarded
// when they complete. Safe to call more than once.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	cancel := e.cancel
	e.mu.Unlock()

	cancel()
	e.ingress.Close()
	if e.scheduler != nil {
		e.scheduler.Stop()
	}
	e.log.Info("session stopped")
}

// session returns the live session context, or an error once torn down.
func (e *Engine) session() (context.Context, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running {
		return nil, ErrNotRunning
	}
	return e.sessionCtx, nil
}

// Refresh triggers an on-demand snapshot re-fetch for the venue.
func (e *Engine) Refresh() error {
	ctx, err := e.session()
	if err != nil {
		return err
	}
	return e.loader.Load(ctx, e.venueID)
}

// RequestTransition advances one order's status on behalf of the operator.
func (e *Engine) RequestTransition(id string, target models.Status) error {
	ctx, err := e.session()
	if err != nil {
		return err
	}
	return e.coordinator.RequestTransition(ctx, id, target)
}

// Orders exposes the read side of the collection.
func (e *Engine) Orders() *orders.Collection {
	return e.coll
}

// ConnectionState reports the push channel state.
func (e *Engine) ConnectionState() ingress.State {
	return e.ingress.State()
}

// Scheduler exposes the notification scheduler for the presentation layer.
func (e *Engine) Scheduler() *notify.Scheduler {
	return e.scheduler
}

// VenueID returns the venue this session serves.
func (e *Engine) VenueID() string {
	return e.venueID
}
