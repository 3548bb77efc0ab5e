package orderbook

import "strconv"

type Side uint8
type OrderType uint8
type Status uint8

const (
	Bid Side = iota
	Ask
)

const (
	Limit OrderType = iota
	Market
	IOC      // Immediate-Or-Cancel
	FOK      // Fill-Or-Kill
	PostOnly // Must not cross book
)

const (
	Active Status = iota
	PartiallyFilled
	Filled
	Cancelled
)

func (s Side) String() string {
	switch s {
	case Bid:
		return "bid"
	case Ask:
		return "ask"
	}
	panic("invalid side: " + strconv.Itoa(int(s)))
}

// Opposite returns the side an incoming order matches against.
func (s Side) Opposite() Side {
	if s == Bid {
		return Ask
	}
	return Bid
}

func (t OrderType) String() string {
	switch t {
	case Limit:
		return "limit"
	case Market:
		return "market"
	case IOC:
		return "ioc"
	case FOK:
		return "fok"
	case PostOnly:
		return "post-only"
	}
	panic("invalid order type: " + strconv.Itoa(int(t)))
}

func (s Status) String() string {
	switch s {
	case Active:
		return "active"
	case PartiallyFilled:
		return "partially-filled"
	case Filled:
		return "filled"
	case Cancelled:
		return "cancelled"
	}
	panic("invalid status: " + strconv.Itoa(int(s)))
}

// Terminal reports whether the status can never transition again.
func (s Status) Terminal() bool {
	return s == Filled || s == Cancelled
}

// Order is a single resting or incoming order. Identity (ID, Side, Type,
// Price, Qty, Owner, SeqID) is immutable after submission; only Remaining
// and Status change, and only through Fill, Cancel, or an amend-down.
type Order struct {
	ID        uint64
	Owner     uint64
	Price     int64 // ticks, never floating point
	Qty       int64 // original quantity
	Remaining int64
	SeqID     uint64 // arrival sequence, the FIFO tie-break
	Side      Side
	Type      OrderType
	Status    Status
	next      *Order // FIFO queue inside a price level
	prev      *Order
}

// Next returns the order behind this one in its price level queue.
func (o *Order) Next() *Order { return o.next }

// FilledQty returns how much of the original quantity has executed.
func (o *Order) FilledQty() int64 { return o.Qty - o.Remaining }

// Fill decrements the remaining quantity and advances the status.
// A request exceeding Remaining is a matching-engine bug, reported
// as ErrInvalidFill.
func (o *Order) Fill(qty int64) error {
	if qty <= 0 || qty > o.Remaining || o.Status.Terminal() {
		return ErrInvalidFill
	}
	o.Remaining -= qty
	if o.Remaining == 0 {
		o.Status = Filled
	} else {
		o.Status = PartiallyFilled
	}
	return nil
}

// Cancel marks the order cancelled. Idempotent: cancelling an already
// cancelled or filled order is a no-op.
func (o *Order) Cancel() {
	if o.Status.Terminal() {
		return
	}
	o.Status = Cancelled
}

// Reset implements the memory pool contract.
func (o *Order) Reset() { *o = Order{} }
