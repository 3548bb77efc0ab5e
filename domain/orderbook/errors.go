package orderbook

import "errors"

var (
	// ErrDuplicateOrder is returned when an insert reuses an existing id.
	ErrDuplicateOrder = errors.New("orderbook: duplicate order id")

	// ErrOrderNotFound is returned by cancel/amend when the id is unknown
	// or already finalized (filled or cancelled).
	ErrOrderNotFound = errors.New("orderbook: order not found")

	// ErrInvalidAmend is returned when an amend increases quantity or
	// sets it to zero or below. Amend-up is cancel + reinsert.
	ErrInvalidAmend = errors.New("orderbook: invalid amend")

	// ErrInvalidFill reports a fill exceeding remaining quantity. It is an
	// internal invariant violation, not a caller-recoverable condition.
	ErrInvalidFill = errors.New("orderbook: fill exceeds remaining quantity")

	// ErrInvalidOrder is returned when a malformed submission reaches the
	// book despite the upstream validation contract.
	ErrInvalidOrder = errors.New("orderbook: invalid order")
)
