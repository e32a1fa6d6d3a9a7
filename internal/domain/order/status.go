package order

import "github.com/go-faster/errors"

// Status is the fulfillment state of an order. Transitions are forward-only:
// pending → processing → shipped → delivered, with cancelled reachable from
// pending and processing.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// PaymentStatus is the settlement state of an order's payment.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

var (
	// ErrInvalidStatus is returned for a status value outside the enumeration.
	ErrInvalidStatus = errors.New("invalid status")
	// ErrInvalidTransition is returned when the transition graph forbids a move.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrStatusConflict is returned when a concurrent update already moved the
	// order away from the expected status.
	ErrStatusConflict = errors.New("order status changed concurrently")
)

var statusTransitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered},
	StatusDelivered:  {},
	StatusCancelled:  {},
}

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentPending:  {PaymentPaid, PaymentFailed},
	PaymentPaid:     {PaymentRefunded},
	PaymentFailed:   {PaymentPending, PaymentPaid},
	PaymentRefunded: {},
}

// Valid reports whether s is a known order status.
func (s Status) Valid() bool {
	_, ok := statusTransitions[s]
	return ok
}

// CanTransitionTo reports whether the graph allows moving from s to next.
func (s Status) CanTransitionTo(next Status) bool {
	for _, t := range statusTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Valid reports whether s is a known payment status.
func (s PaymentStatus) Valid() bool {
	_, ok := paymentTransitions[s]
	return ok
}

// CanTransitionTo reports whether the graph allows moving from s to next.
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	for _, t := range paymentTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}
