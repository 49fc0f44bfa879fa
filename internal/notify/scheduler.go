// Package notify schedules the transient operator-facing alerts: one visible
// toast at a time plus an audible cue that stays muted until the operator has
// interacted with the console once. The mute mirrors host autoplay policy:
// a cue played before any interaction would be rejected anyway, so it is
// skipped outright rather than queued.
package notify

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"gocha/internal/monitoring"
)

// Cue names an audible notification sound.
type Cue string

const (
	CueNewOrder Cue = "new_order"
	CueReady    Cue = "ready"
	CueSuccess  Cue = "success"
)

// Clock abstracts timer creation so expiry is testable.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is the stoppable handle a Clock hands back.
type Timer interface {
	Stop() bool
}

// SystemClock is the real wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

func (SystemClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// Sink plays audible cues. Implementations must tolerate being called from
// the engine's goroutines.
type Sink interface {
	Play(cue Cue) error
}

// LogSink logs cues instead of playing them. Used when the console runs
// headless and the presentation layer handles audio itself.
type LogSink struct {
	Log *zap.Logger
}

func (s LogSink) Play(cue Cue) error {
	log := s.Log
	if log == nil {
		log = zap.NewNop()
	}
	log.Info("audible cue", zap.String("cue", string(cue)))
	return nil
}

// Toast is the currently visible notification, if any.
type Toast struct {
	Message  string    `json:"message"`
	Cue      Cue       `json:"cue"`
	PostedAt time.Time `json:"postedAt"`
}

// Scheduler gates and schedules alerts. Only one toast is visible at a time;
// a new one replaces the old and restarts the expiry timer.
type Scheduler struct {
	clock   Clock
	sink    Sink
	ttl     time.Duration
	log     *zap.Logger
	metrics *monitoring.Metrics

	mu         sync.Mutex
	interacted bool
	current    *Toast
	timer      Timer
	stopped    bool
}

// NewScheduler creates a scheduler with the given toast lifetime.
func NewScheduler(clock Clock, sink Sink, ttl time.Duration, metrics *monitoring.Metrics, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		clock:   clock,
		sink:    sink,
		ttl:     ttl,
		metrics: metrics,
		log:     log.With(zap.String("component", "notify")),
	}
}

// MarkInteracted permanently arms audible cues. The first user-originated
// input anywhere in the session calls this; it is never reset.
func (s *Scheduler) MarkInteracted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.interacted {
		s.interacted = true
		s.log.Info("user interaction observed, audible cues armed")
	}
}

// Interacted reports whether cues are armed.
func (s *Scheduler) Interacted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interacted
}

// Notify posts a toast and, if armed, plays the cue. The toast always shows
// regardless of the audio gate.
func (s *Scheduler) Notify(message string, cue Cue) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}

	if s.timer != nil {
		s.timer.Stop()
	}
	toast := &Toast{Message: message, Cue: cue, PostedAt: s.clock.Now()}
	s.current = toast
	s.timer = s.clock.AfterFunc(s.ttl, func() { s.expire(toast) })

	play := s.interacted
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.ToastsPosted.Inc()
	}
	if cue == "" {
		// Silent toast, e.g. a failure banner.
		return
	}
	if !play {
		if s.metrics != nil {
			s.metrics.CuesSuppressed.Inc()
		}
		s.log.Debug("audible cue suppressed", zap.String("cue", string(cue)))
		return
	}
	if err := s.sink.Play(cue); err != nil {
		// Playback failure is cosmetic; never retried.
		s.log.Warn("audible cue failed", zap.String("cue", string(cue)), zap.Error(err))
	}
}

// expire clears the toast if it is still the visible one. A replacement
// posted in the meantime owns its own timer.
func (s *Scheduler) expire(toast *Toast) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == toast {
		s.current = nil
		s.timer = nil
	}
}

// Current returns the visible toast, or nil if none.
func (s *Scheduler) Current() *Toast {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	t := *s.current
	return &t
}

// Stop cancels any pending expiry timer and rejects further toasts. Called
// on session teardown.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.current = nil
	s.stopped = true
}
