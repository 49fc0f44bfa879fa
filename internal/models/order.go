package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ErrMalformedInput marks a snapshot row or push event that cannot be
// turned into an order. Callers drop the offending input and move on.
var ErrMalformedInput = errors.New("malformed order input")

// PickupType tags how an order leaves the venue.
type PickupType string

const (
	PickupTypePickup   PickupType = "pickup"
	PickupTypeDelivery PickupType = "delivery"
)

// Item is a single line of an order.
type Item struct {
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// Customer identifies who placed the order. Address is only present for
// delivery orders.
type Customer struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address,omitempty"`
}

// OrderRecord is the canonical in-memory representation of an order.
// Everything except Status and Revision is immutable after creation.
type OrderRecord struct {
	ID          string          `json:"id"`
	VenueID     string          `json:"venueId"`
	Items       []Item          `json:"items"`
	Customer    Customer        `json:"customer"`
	Total       decimal.Decimal `json:"total"`
	CreatedAt   time.Time       `json:"createdAt"`
	ScheduledAt *time.Time      `json:"scheduledAt,omitempty"`
	PickupType  PickupType      `json:"pickupType"`
	Status      Status          `json:"status"`
	Revision    int64           `json:"revision"`
}

// OrderPayload is the wire shape shared by snapshot rows and push events.
// The id may arrive under any of three keys depending on which backend
// component produced the document.
type OrderPayload struct {
	ID          string          `json:"id"`
	MongoID     string          `json:"_id"`
	OrderID     string          `json:"orderId"`
	VenueID     string          `json:"venueId"`
	Items       []Item          `json:"items"`
	Customer    Customer        `json:"customer"`
	Total       decimal.Decimal `json:"total"`
	CreatedAt   time.Time       `json:"createdAt"`
	ScheduledAt *time.Time      `json:"scheduledAt,omitempty"`
	PickupType  PickupType      `json:"pickupType"`
	Status      Status          `json:"status"`
}

// ResolveID returns the first non-empty id alias in the payload.
func (p OrderPayload) ResolveID() string {
	switch {
	case p.ID != "":
		return p.ID
	case p.MongoID != "":
		return p.MongoID
	default:
		return p.OrderID
	}
}

// FromSnapshot normalizes a snapshot row into an OrderRecord. Rows without a
// resolvable id are rejected; rows without a recognizable status default to
// pending.
func FromSnapshot(p OrderPayload) (*OrderRecord, error) {
	id := p.ResolveID()
	if id == "" {
		return nil, fmt.Errorf("%w: snapshot row has no resolvable id", ErrMalformedInput)
	}

	status := p.Status
	if !Valid(status) {
		status = StatusPending
	}

	return &OrderRecord{
		ID:          id,
		VenueID:     p.VenueID,
		Items:       p.Items,
		Customer:    p.Customer,
		Total:       p.Total,
		CreatedAt:   p.CreatedAt,
		ScheduledAt: p.ScheduledAt,
		PickupType:  p.PickupType,
		Status:      status,
	}, nil
}

// FromPush normalizes an order-created push event. New orders always start
// pending regardless of what the event claims. The event must carry an id,
// at least one item, and a named customer.
func FromPush(p OrderPayload) (*OrderRecord, error) {
	id := p.ResolveID()
	if id == "" {
		return nil, fmt.Errorf("%w: push event has no resolvable id", ErrMalformedInput)
	}
	if len(p.Items) == 0 {
		return nil, fmt.Errorf("%w: push event for order %s has no items", ErrMalformedInput, id)
	}
	if p.Customer.Name == "" {
		return nil, fmt.Errorf("%w: push event for order %s has no customer", ErrMalformedInput, id)
	}

	return &OrderRecord{
		ID:          id,
		VenueID:     p.VenueID,
		Items:       p.Items,
		Customer:    p.Customer,
		Total:       p.Total,
		CreatedAt:   p.CreatedAt,
		ScheduledAt: p.ScheduledAt,
		PickupType:  p.PickupType,
		Status:      StatusPending,
	}, nil
}

// Clone returns a deep copy of the record so callers can hold it without
// racing against collection merges.
func (r *OrderRecord) Clone() *OrderRecord {
	out := *r
	if r.Items != nil {
		out.Items = make([]Item, len(r.Items))
		copy(out.Items, r.Items)
	}
	if r.ScheduledAt != nil {
		t := *r.ScheduledAt
		out.ScheduledAt = &t
	}
	return &out
}
