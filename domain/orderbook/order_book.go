package orderbook

import "fmt"

// OrderBook owns all resting liquidity for a single instrument: two
// price-ranked trees of levels plus an id index for O(log n) cancel and
// amend. It holds no locks; callers serialize mutations (one writer per
// book). Every public operation is all-or-nothing: validation happens
// before any state is touched.
type OrderBook struct {
	Bids  *RBTree
	Asks  *RBTree
	index map[uint64]*Order
}

func NewOrderBook() *OrderBook {
	return &OrderBook{
		Bids:  NewRBTree(),
		Asks:  NewRBTree(),
		index: make(map[uint64]*Order),
	}
}

// Len returns the number of resting orders.
func (b *OrderBook) Len() int { return len(b.index) }

// Contains reports whether an order id currently rests in the book.
func (b *OrderBook) Contains(id uint64) bool {
	_, ok := b.index[id]
	return ok
}

func (b *OrderBook) side(s Side) *RBTree {
	if s == Bid {
		return b.Bids
	}
	return b.Asks
}

// Insert places a resting order at the tail of its price level, creating
// the level if absent, and records it in the id index.
func (b *OrderBook) Insert(o *Order) error {
	if o == nil || o.Price <= 0 || o.Qty <= 0 || o.Remaining <= 0 || o.Remaining > o.Qty {
		return ErrInvalidOrder
	}
	if o.Status.Terminal() {
		return ErrInvalidOrder
	}
	if _, ok := b.index[o.ID]; ok {
		return fmt.Errorf("insert %d: %w", o.ID, ErrDuplicateOrder)
	}
	b.side(o.Side).UpsertLevel(o.Price).Enqueue(o)
	b.index[o.ID] = o
	return nil
}

// Cancel removes a resting order, marks it cancelled, and prunes its level
// if now empty. The removed order is returned so the caller can recycle it.
func (b *OrderBook) Cancel(id uint64) (*Order, error) {
	o, ok := b.index[id]
	if !ok {
		return nil, fmt.Errorf("cancel %d: %w", id, ErrOrderNotFound)
	}
	tree := b.side(o.Side)
	lvl := tree.FindLevel(o.Price)
	lvl.Unlink(o)
	if lvl.Empty() {
		tree.DeleteLevel(o.Price)
	}
	delete(b.index, id)
	o.Cancel()
	return o, nil
}

// AmendDown reduces a resting order's remaining quantity in place without
// losing time priority. Amend-up is cancel + reinsert, by convention.
func (b *OrderBook) AmendDown(id uint64, newQty int64) (*Order, error) {
	o, ok := b.index[id]
	if !ok {
		return nil, fmt.Errorf("amend %d: %w", id, ErrOrderNotFound)
	}
	if newQty <= 0 || newQty > o.Remaining {
		return nil, fmt.Errorf("amend %d to %d (remaining %d): %w",
			id, newQty, o.Remaining, ErrInvalidAmend)
	}
	lvl := b.side(o.Side).FindLevel(o.Price)
	lvl.reduce(o.Remaining - newQty)
	o.Remaining = newQty
	return o, nil
}

// TopLevel returns the best level on a side: highest bid or lowest ask.
func (b *OrderBook) TopLevel(s Side) *PriceLevel {
	if s == Bid {
		return b.Bids.MaxLevel()
	}
	return b.Asks.MinLevel()
}

// BestBid returns price and aggregate quantity at the top bid level.
func (b *OrderBook) BestBid() Quote { return quoteOf(b.Bids.MaxLevel()) }

// BestAsk returns price and aggregate quantity at the top ask level.
func (b *OrderBook) BestAsk() Quote { return quoteOf(b.Asks.MinLevel()) }

func quoteOf(lvl *PriceLevel) Quote {
	if lvl == nil {
		return Quote{}
	}
	return Quote{Price: lvl.Price, Qty: lvl.TotalQty, Orders: lvl.OrderCount, Ok: true}
}

// FillResting executes qty against a resting order. When the order is
// fully consumed it is popped from its level, the level pruned if empty,
// and the id index entry removed; removed is true in that case so the
// caller can recycle the order.
func (b *OrderBook) FillResting(o *Order, qty int64) (removed bool, err error) {
	tree := b.side(o.Side)
	lvl := tree.FindLevel(o.Price)
	if lvl == nil || lvl.Peek() != o {
		// Matching only ever consumes the head of the best level.
		return false, ErrInvalidFill
	}
	if err := o.Fill(qty); err != nil {
		return false, err
	}
	// Remaining already shrank, so Dequeue below subtracts zero; the
	// aggregate adjustment happens here for both outcomes.
	lvl.reduce(qty)
	if o.Remaining == 0 {
		lvl.Dequeue()
		if lvl.Empty() {
			tree.DeleteLevel(o.Price)
		}
		delete(b.index, o.ID)
		return true, nil
	}
	return false, nil
}

// AvailableAt sums opposing liquidity a taker at limitPrice could reach,
// stopping early once desired is covered. Used for the FOK dry-run.
func (b *OrderBook) AvailableAt(taker Side, limitPrice int64, desired int64) int64 {
	available := int64(0)
	if taker == Bid {
		b.Asks.ForEachAscending(func(lvl *PriceLevel) bool {
			if limitPrice > 0 && lvl.Price > limitPrice {
				return false
			}
			available += lvl.TotalQty
			return available < desired
		})
	} else {
		b.Bids.ForEachDescending(func(lvl *PriceLevel) bool {
			if limitPrice > 0 && lvl.Price < limitPrice {
				return false
			}
			available += lvl.TotalQty
			return available < desired
		})
	}
	return available
}

// Depth returns up to max levels on a side, best first. max <= 0 means all.
func (b *OrderBook) Depth(s Side, max int) []Quote {
	out := make([]Quote, 0, 16)
	visit := func(lvl *PriceLevel) bool {
		out = append(out, quoteOf(lvl))
		return max <= 0 || len(out) < max
	}
	if s == Bid {
		b.Bids.ForEachDescending(visit)
	} else {
		b.Asks.ForEachAscending(visit)
	}
	return out
}

// WalkActive visits every resting order, bids best-first then asks
// best-first, FIFO within each level.
func (b *OrderBook) WalkActive(visit func(o *Order)) {
	b.Bids.ForEachDescending(func(lvl *PriceLevel) bool {
		for o := lvl.Peek(); o != nil; o = o.next {
			visit(o)
		}
		return true
	})
	b.Asks.ForEachAscending(func(lvl *PriceLevel) bool {
		for o := lvl.Peek(); o != nil; o = o.next {
			visit(o)
		}
		return true
	})
}
