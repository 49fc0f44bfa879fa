package models

// Status represents the fulfillment state of an order.
type Status string

const (
	StatusPending   Status = "pending"
	StatusReady     Status = "ready"
	StatusDelivered Status = "delivered"
)

// Rank returns the position of a status in the fulfillment lifecycle.
// Unknown statuses rank below pending so they can never win a merge.
func Rank(s Status) int {
	switch s {
	case StatusPending:
		return 1
	case StatusReady:
		return 2
	case StatusDelivered:
		return 3
	default:
		return 0
	}
}

// Valid reports whether s is one of the known fulfillment states.
func Valid(s Status) bool {
	return Rank(s) > 0
}

// CanAdvance reports whether an order may move from one status to another.
// The lifecycle only ever moves forward: pending, then ready, then delivered.
func CanAdvance(from, to Status) bool {
	return Valid(to) && Rank(to) > Rank(from)
}
