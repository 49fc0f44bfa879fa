// Package ingress owns the push channel: one websocket connection per venue
// session, joined to the venue's room, feeding order-created events into the
// collection. The connection retries forever on a fixed interval until the
// session is torn down.
package ingress

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"gocha/internal/models"
	"gocha/internal/monitoring"
	"gocha/internal/notify"
	"gocha/internal/orders"
)

const (
	defaultRetryInterval = time.Second
	writeWait            = 10 * time.Second
	pongWait             = 60 * time.Second
	pingPeriod           = 30 * time.Second
	maxMessageSize       = 512 * 1024
)

// State is the connection lifecycle position.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateJoined
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateJoined:
		return "joined"
	default:
		return "disconnected"
	}
}

// Envelope is the wire frame for both directions on the push channel.
type Envelope struct {
	Event string          `json:"event"`
	Venue string          `json:"venue,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

const (
	eventJoinRoom     = "joinRoom"
	eventOrderCreated = "orderCreated"
)

// Notifier receives the new-order alert for each first-seen record.
type Notifier interface {
	Notify(message string, cue notify.Cue)
}

// Ingress manages the push channel for one venue.
type Ingress struct {
	url           string
	venueID       string
	coll          *orders.Collection
	notifier      Notifier
	dialer        *websocket.Dialer
	retryInterval time.Duration
	log           *zap.Logger
	metrics       *monitoring.Metrics

	mu      sync.Mutex
	conn    *websocket.Conn
	writeMu sync.Mutex
	state   State
	closed  bool
}

// New creates an ingress for the venue's push channel at url.
func New(url, venueID string, coll *orders.Collection, notifier Notifier, retryInterval time.Duration, metrics *monitoring.Metrics, log *zap.Logger) *Ingress {
	if retryInterval <= 0 {
		retryInterval = defaultRetryInterval
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Ingress{
		url:           url,
		venueID:       venueID,
		coll:          coll,
		notifier:      notifier,
		dialer:        websocket.DefaultDialer,
		retryInterval: retryInterval,
		metrics:       metrics,
		log:           log.With(zap.String("component", "ingress"), zap.String("venue", venueID)),
	}
}

// Run connects, joins the venue room and consumes events until the context
// is cancelled or Close is called. Lost connections are redialed on a fixed
// interval, and the room is rejoined after every reconnect because server-side
// membership does not survive the transport.
func (in *Ingress) Run(ctx context.Context) {
	attempt := 0
	for {
		if ctx.Err() != nil || in.isClosed() {
			in.setState(StateDisconnected)
			return
		}

		in.setState(StateConnecting)
		if attempt > 0 && in.metrics != nil {
			in.metrics.Reconnects.Inc()
		}
		attempt++

		conn, _, err := in.dialer.DialContext(ctx, in.url, nil)
		if err != nil {
			in.log.Warn("push channel dial failed", zap.Error(err))
			in.setState(StateDisconnected)
			if !in.sleep(ctx) {
				return
			}
			continue
		}

		if err := in.join(conn); err != nil {
			in.log.Warn("join failed", zap.Error(err))
			conn.Close()
			in.setState(StateDisconnected)
			if !in.sleep(ctx) {
				return
			}
			continue
		}

		in.setConn(conn)
		in.setState(StateJoined)
		in.log.Info("joined venue room")

		stopPing := in.startPing(conn)
		in.readLoop(conn)
		stopPing()

		in.setConn(nil)
		in.setState(StateDisconnected)
		if !in.sleep(ctx) {
			return
		}
	}
}

// join sends the room subscription for this venue.
func (in *Ingress) join(conn *websocket.Conn) error {
	in.writeMu.Lock()
	defer in.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(Envelope{Event: eventJoinRoom, Venue: in.venueID})
}

// readLoop consumes frames until the connection dies. Malformed frames are
// dropped; only transport errors end the loop.
func (in *Ingress) readLoop(conn *websocket.Conn) {
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) && !in.isClosed() {
				in.log.Warn("push channel read error", zap.Error(err))
			}
			return
		}
		in.handleMessage(message)
	}
}

// startPing keeps the connection alive the same way the server side expects.
func (in *Ingress) startPing(conn *websocket.Conn) (stop func()) {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				in.writeMu.Lock()
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				err := conn.WriteMessage(websocket.PingMessage, nil)
				in.writeMu.Unlock()
				if err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()
	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}

// handleMessage dispatches one inbound frame. Unknown events are ignored;
// this core only consumes order-created notifications.
func (in *Ingress) handleMessage(message []byte) {
	var env Envelope
	if err := json.Unmarshal(message, &env); err != nil {
		in.dropEvent("unparsable frame", err)
		return
	}
	if env.Event != eventOrderCreated {
		return
	}

	var payload models.OrderPayload
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		in.dropEvent("unparsable order payload", err)
		return
	}
	rec, err := models.FromPush(payload)
	if err != nil {
		in.dropEvent("rejected order payload", err)
		return
	}

	res := in.coll.Upsert(rec)
	if in.metrics != nil {
		in.metrics.OrdersIngested.WithLabelValues(monitoring.SourcePush).Inc()
	}

	// Reconnect replays can redeliver an event for an id already merged;
	// only a first-seen record produces an operator alert.
	if res.Created && in.notifier != nil {
		in.notifier.Notify(fmt.Sprintf("New Order #%s", idSuffix(rec.ID)), notify.CueNewOrder)
	}
}

func (in *Ingress) dropEvent(reason string, err error) {
	if in.metrics != nil {
		in.metrics.InputsDropped.WithLabelValues(monitoring.SourcePush).Inc()
	}
	in.log.Warn("push event dropped", zap.String("reason", reason), zap.Error(err))
}

// idSuffix trims an order id to the short form shown to operators.
func idSuffix(id string) string {
	if len(id) <= 4 {
		return id
	}
	return id[len(id)-4:]
}

// sleep waits one retry interval. It returns false if the session ended
// while waiting.
func (in *Ingress) sleep(ctx context.Context) bool {
	timer := time.NewTimer(in.retryInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return !in.isClosed()
	}
}

// State reports the connection lifecycle position.
func (in *Ingress) State() State {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.state
}

// Close tears the channel down. Safe to call repeatedly and the only cleanup
// the ingress needs.
func (in *Ingress) Close() {
	in.mu.Lock()
	if in.closed {
		in.mu.Unlock()
		return
	}
	in.closed = true
	conn := in.conn
	in.conn = nil
	in.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
}

func (in *Ingress) isClosed() bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.closed
}

func (in *Ingress) setConn(conn *websocket.Conn) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.closed && conn != nil {
		// Close raced the dial; drop the fresh connection immediately.
		conn.Close()
		return
	}
	in.conn = conn
}

func (in *Ingress) setState(state State) {
	in.mu.Lock()
	in.state = state
	in.mu.Unlock()
	if in.metrics != nil {
		in.metrics.ConnectionState.Set(float64(state))
	}
}
