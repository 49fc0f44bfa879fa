// Package orders owns the canonical in-memory order set for a venue
// session. All mutation funnels through the Collection, whose merge rules
// make the final state independent of the arrival order of snapshot rows,
// push events and local optimistic updates.
package orders

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"gocha/internal/models"
)

var (
	// ErrInvalidTransition is returned when a requested status is not
	// reachable from the order's current status.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrUnknownOrder is returned when no record exists for the given id.
	ErrUnknownOrder = errors.New("unknown order")
)

// UpsertResult describes what an upsert did to the collection.
type UpsertResult struct {
	Created bool
	Changed bool
}

// Collection is the authoritative order store. It is merge-only: records are
// never removed within a session, and status only moves forward through the
// lifecycle regardless of which source reported it.
type Collection struct {
	mu   sync.RWMutex
	byID map[string]*models.OrderRecord
	// ids keeps presentation order: push-created records are prepended so the
	// newest arrivals surface first, snapshot-created records are appended in
	// the order the query service returned them.
	ids []string
	log *zap.Logger
}

// NewCollection creates an empty collection.
func NewCollection(log *zap.Logger) *Collection {
	if log == nil {
		log = zap.NewNop()
	}
	return &Collection{
		byID: make(map[string]*models.OrderRecord),
		log:  log.With(zap.String("component", "orders")),
	}
}

// Upsert inserts or merges a single record, treating it as the most recently
// known order. This is the path push events take: a record unseen before is
// surfaced ahead of everything already in the collection.
func (c *Collection) Upsert(rec *models.OrderRecord) UpsertResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.upsertLocked(rec, true)
}

// MergeSnapshot merges a full snapshot into the collection. Records already
// present are merged field-by-field; records absent from the snapshot are
// left alone, since the snapshot may be stale relative to push arrivals.
// New records keep the service-provided order.
func (c *Collection) MergeSnapshot(recs []*models.OrderRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, rec := range recs {
		c.upsertLocked(rec, false)
	}
}

func (c *Collection) upsertLocked(rec *models.OrderRecord, prepend bool) UpsertResult {
	existing, ok := c.byID[rec.ID]
	if !ok {
		stored := rec.Clone()
		stored.Revision = 1
		c.byID[stored.ID] = stored
		if prepend {
			c.ids = append([]string{stored.ID}, c.ids...)
		} else {
			c.ids = append(c.ids, stored.ID)
		}
		return UpsertResult{Created: true, Changed: true}
	}

	changed := mergeInto(existing, rec)
	if changed {
		existing.Revision++
	}
	return UpsertResult{Changed: changed}
}

// mergeInto folds an incoming record into the existing one. Immutable fields
// already set on the existing record are never overwritten; a later source
// may only fill gaps. Status merges by rank so it can never regress.
func mergeInto(existing, incoming *models.OrderRecord) bool {
	changed := false

	if existing.VenueID == "" && incoming.VenueID != "" {
		existing.VenueID = incoming.VenueID
		changed = true
	}
	if len(existing.Items) == 0 && len(incoming.Items) > 0 {
		existing.Items = make([]models.Item, len(incoming.Items))
		copy(existing.Items, incoming.Items)
		changed = true
	}
	if existing.Customer.Name == "" && incoming.Customer.Name != "" {
		existing.Customer = incoming.Customer
		changed = true
	}
	if existing.Total.IsZero() && !incoming.Total.IsZero() {
		existing.Total = incoming.Total
		changed = true
	}
	if existing.CreatedAt.IsZero() && !incoming.CreatedAt.IsZero() {
		existing.CreatedAt = incoming.CreatedAt
		changed = true
	}
	if existing.ScheduledAt == nil && incoming.ScheduledAt != nil {
		t := *incoming.ScheduledAt
		existing.ScheduledAt = &t
		changed = true
	}
	if existing.PickupType == "" && incoming.PickupType != "" {
		existing.PickupType = incoming.PickupType
		changed = true
	}
	if models.Rank(incoming.Status) > models.Rank(existing.Status) {
		existing.Status = incoming.Status
		changed = true
	}
	return changed
}

// SetStatus applies a local-origin status change. The move must be a forward
// step on the lifecycle or it is rejected without touching the record.
func (c *Collection) SetStatus(id string, status models.Status) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownOrder, id)
	}
	if !models.CanAdvance(rec.Status, status) {
		return fmt.Errorf("%w: %s -> %s for order %s", ErrInvalidTransition, rec.Status, status, id)
	}
	rec.Status = status
	rec.Revision++
	return nil
}

// RollbackStatus reverts an optimistic status change after a failed remote
// command, bypassing the forward-only rule. The revert only applies if the
// record is still at the status the failed command put it in, so an advance
// that landed in the meantime is not stomped.
func (c *Collection) RollbackStatus(id string, from, to models.Status) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.byID[id]
	if !ok || rec.Status != from {
		return false
	}
	rec.Status = to
	rec.Revision++
	c.log.Warn("rolled back optimistic status",
		zap.String("order_id", id),
		zap.String("from", string(from)),
		zap.String("to", string(to)))
	return true
}

// Get returns a copy of the record for id.
func (c *Collection) Get(id string) (*models.OrderRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rec, ok := c.byID[id]
	if !ok {
		return nil, false
	}
	return rec.Clone(), true
}

// ByStatus returns copies of all records in the given status bucket, in
// presentation order.
func (c *Collection) ByStatus(status models.Status) []*models.OrderRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []*models.OrderRecord
	for _, id := range c.ids {
		if rec := c.byID[id]; rec.Status == status {
			out = append(out, rec.Clone())
		}
	}
	return out
}

// All returns copies of every record in presentation order.
func (c *Collection) All() []*models.OrderRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*models.OrderRecord, 0, len(c.ids))
	for _, id := range c.ids {
		out = append(out, c.byID[id].Clone())
	}
	return out
}

// Counts returns the number of orders in each status bucket.
func (c *Collection) Counts() map[models.Status]int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	counts := map[models.Status]int{
		models.StatusPending:   0,
		models.StatusReady:     0,
		models.StatusDelivered: 0,
	}
	for _, rec := range c.byID {
		counts[rec.Status]++
	}
	return counts
}

// Len returns the number of records in the collection.
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byID)
}
