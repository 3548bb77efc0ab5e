package orderbook

// PriceLevel holds all resting orders at one price as an intrusive
// doubly-linked FIFO queue. Arrival order is never rearranged; an empty
// level is pruned from its tree, never kept as a placeholder.
type PriceLevel struct {
	Price      int64
	head       *Order
	tail       *Order
	TotalQty   int64 // sum of Remaining over queued orders
	OrderCount int
}

// Enqueue appends an order at the tail, preserving time priority.
func (p *PriceLevel) Enqueue(o *Order) {
	if p.head == nil {
		p.head = o
		p.tail = o
	} else {
		p.tail.next = o
		o.prev = p.tail
		p.tail = o
	}
	p.TotalQty += o.Remaining
	p.OrderCount++
}

// Peek returns the head order without removing it, or nil when empty.
func (p *PriceLevel) Peek() *Order { return p.head }

// Dequeue removes and returns the head order.
func (p *PriceLevel) Dequeue() *Order {
	o := p.head
	if o == nil {
		return nil
	}
	p.head = o.next
	if p.head != nil {
		p.head.prev = nil
	} else {
		p.tail = nil
	}
	o.next, o.prev = nil, nil
	p.TotalQty -= o.Remaining
	p.OrderCount--
	return o
}

// Unlink removes an order from anywhere in the queue in O(1), used for
// cancellation. Relative order of the remaining entries is preserved.
func (p *PriceLevel) Unlink(o *Order) {
	if o.prev != nil {
		o.prev.next = o.next
	} else {
		p.head = o.next
	}
	if o.next != nil {
		o.next.prev = o.prev
	} else {
		p.tail = o.prev
	}
	o.next, o.prev = nil, nil
	p.TotalQty -= o.Remaining
	p.OrderCount--
}

// reduce lowers the aggregate after a partial fill or amend-down of a
// queued order, which mutates Remaining in place.
func (p *PriceLevel) reduce(qty int64) {
	p.TotalQty -= qty
	if p.TotalQty < 0 {
		p.TotalQty = 0
	}
}

// Empty reports whether the level should be pruned from its tree.
func (p *PriceLevel) Empty() bool { return p.head == nil }
