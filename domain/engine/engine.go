package engine

import (
	"fmt"
	"strconv"

	"vega/domain/orderbook"
	"vega/infra/memory"
	"vega/infra/sequence"
)

// SelfMatchPolicy controls what happens when an incoming order would trade
// against a resting order from the same owner. The default allows it; the
// core does not assume a prevention rule.
type SelfMatchPolicy uint8

const (
	SelfMatchAllow SelfMatchPolicy = iota
	SelfMatchCancelTaker
	SelfMatchCancelResting
)

func (p SelfMatchPolicy) String() string {
	switch p {
	case SelfMatchAllow:
		return "allow"
	case SelfMatchCancelTaker:
		return "cancel-taker"
	case SelfMatchCancelResting:
		return "cancel-resting"
	}
	panic("invalid self-match policy: " + strconv.Itoa(int(p)))
}

// Config holds engine options.
type Config struct {
	SelfMatch SelfMatchPolicy
}

// SubmitParams is a fully validated order submission. Price is in ticks
// and ignored for market orders.
type SubmitParams struct {
	ID    uint64
	Owner uint64
	Side  orderbook.Side
	Type  orderbook.OrderType
	Price int64
	Qty   int64
}

// Result reports the outcome of a mutating call: trades generated, the
// incoming order's final state, and the post-call top of book.
type Result struct {
	OrderID   uint64
	SeqID     uint64
	Status    orderbook.Status
	Remaining int64
	Rested    bool
	Trades    []orderbook.Trade
	BestBid   orderbook.Quote
	BestAsk   orderbook.Quote
}

// Engine matches incoming flow against the book under strict price-time
// priority: better price first, earlier arrival first at equal price,
// execution always at the resting order's price. It models one instrument
// with single-writer semantics; callers serialize Submit/Cancel/Amend.
type Engine struct {
	book    *orderbook.OrderBook
	arrival *sequence.Sequencer
	trades  *sequence.Sequencer
	pool    *memory.Pool[orderbook.Order]
	policy  SelfMatchPolicy
	maxID   uint64
}

func New(cfg Config) *Engine {
	return &Engine{
		book:    orderbook.NewOrderBook(),
		arrival: sequence.New(0),
		trades:  sequence.New(0),
		pool:    memory.NewPool(func() *orderbook.Order { return &orderbook.Order{} }),
		policy:  cfg.SelfMatch,
	}
}

// Book exposes the underlying book for read-only queries.
func (e *Engine) Book() *orderbook.OrderBook { return e.book }

// LastArrival returns the last assigned arrival sequence number.
func (e *Engine) LastArrival() uint64 { return e.arrival.Current() }

// ResumeSequence restores the arrival sequencer after replay.
func (e *Engine) ResumeSequence(last uint64) { e.arrival.Reset(last) }

// LastTrade returns the last assigned trade sequence number.
func (e *Engine) LastTrade() uint64 { return e.trades.Current() }

// ResumeTradeSequence restores the trade sequencer after a snapshot load,
// so trades generated after recovery continue the pre-crash numbering.
func (e *Engine) ResumeTradeSequence(last uint64) { e.trades.Reset(last) }

// HighestOrderID returns the largest order id ever accepted, including
// orders that have since filled or been cancelled.
func (e *Engine) HighestOrderID() uint64 { return e.maxID }

// ResumeOrderIDs raises the id high-water mark after a snapshot load.
func (e *Engine) ResumeOrderIDs(last uint64) {
	if last > e.maxID {
		e.maxID = last
	}
}

// Submit is the sole entry point for new flow. It either fully completes,
// producing trades and/or a resting insert, or fails before mutating
// anything.
func (e *Engine) Submit(p SubmitParams) (Result, error) {
	if err := validate(p); err != nil {
		return Result{}, err
	}
	if e.book.Contains(p.ID) {
		return Result{}, fmt.Errorf("submit %d: %w", p.ID, orderbook.ErrDuplicateOrder)
	}
	if p.ID > e.maxID {
		e.maxID = p.ID
	}

	o := e.pool.Get()
	*o = orderbook.Order{
		ID:        p.ID,
		Owner:     p.Owner,
		Price:     p.Price,
		Qty:       p.Qty,
		Remaining: p.Qty,
		SeqID:     e.arrival.Next(),
		Side:      p.Side,
		Type:      p.Type,
		Status:    orderbook.Active,
	}
	if o.Type == orderbook.Market {
		o.Price = 0
	}

	// PostOnly never takes liquidity: reject up front if it would cross.
	if o.Type == orderbook.PostOnly && e.wouldCross(o) {
		return e.discard(o), nil
	}

	// FOK dry-run: all or nothing, decided before any fill.
	if o.Type == orderbook.FOK {
		if e.availableTo(o) < o.Remaining {
			return e.discard(o), nil
		}
	}

	trades, stopped := e.match(o)

	res := Result{
		OrderID: o.ID,
		SeqID:   o.SeqID,
		Trades:  trades,
	}

	if o.Remaining > 0 {
		rests := (o.Type == orderbook.Limit || o.Type == orderbook.PostOnly) && !stopped
		if rests {
			if err := e.book.Insert(o); err != nil {
				// Duplicate and shape checks already ran; nothing recoverable here.
				panic(fmt.Errorf("engine: rest leftover %d: %w", o.ID, err))
			}
			res.Rested = true
		} else {
			o.Cancel()
		}
	}

	res.Status = o.Status
	res.Remaining = o.Remaining
	res.BestBid = e.book.BestBid()
	res.BestAsk = e.book.BestAsk()
	if !res.Rested {
		e.pool.Put(o)
	}
	return res, nil
}

// Cancel removes a resting order. Unknown or finalized ids fail with
// ErrOrderNotFound; cancelling twice therefore fails the second time,
// while Order.Cancel itself stays idempotent.
func (e *Engine) Cancel(id uint64) (Result, error) {
	o, err := e.book.Cancel(id)
	if err != nil {
		return Result{}, err
	}
	res := Result{
		OrderID:   o.ID,
		SeqID:     o.SeqID,
		Status:    o.Status,
		Remaining: o.Remaining,
		BestBid:   e.book.BestBid(),
		BestAsk:   e.book.BestAsk(),
	}
	e.pool.Put(o)
	return res, nil
}

// Amend reduces remaining quantity in place, price and priority unchanged.
func (e *Engine) Amend(id uint64, newQty int64) (Result, error) {
	o, err := e.book.AmendDown(id, newQty)
	if err != nil {
		return Result{}, err
	}
	return Result{
		OrderID:   o.ID,
		SeqID:     o.SeqID,
		Status:    o.Status,
		Remaining: o.Remaining,
		BestBid:   e.book.BestBid(),
		BestAsk:   e.book.BestAsk(),
	}, nil
}

// Restore places a resting order directly into the book during snapshot
// load, preserving its original arrival sequence. No matching runs: a
// snapshot of a valid book is uncrossed by construction.
func (e *Engine) Restore(o orderbook.Order) error {
	r := e.pool.Get()
	*r = o
	if err := e.book.Insert(r); err != nil {
		e.pool.Put(r)
		return err
	}
	if o.SeqID > e.arrival.Current() {
		e.arrival.Reset(o.SeqID)
	}
	if o.ID > e.maxID {
		e.maxID = o.ID
	}
	return nil
}

// availableTo sums opposing liquidity the order could actually execute
// against under the self-match policy: cancel-resting skips the owner's
// own orders, cancel-taker counts nothing past the first one.
func (e *Engine) availableTo(o *orderbook.Order) int64 {
	if e.policy == SelfMatchAllow || o.Owner == 0 {
		return e.book.AvailableAt(o.Side, o.Price, o.Remaining)
	}
	var available int64
	scan := func(lvl *orderbook.PriceLevel) bool {
		if !crosses(o.Side, o.Price, lvl.Price) {
			return false
		}
		for m := lvl.Peek(); m != nil; m = m.Next() {
			if m.Owner == o.Owner {
				if e.policy == SelfMatchCancelTaker {
					return false
				}
				continue
			}
			available += m.Remaining
			if available >= o.Remaining {
				return false
			}
		}
		return true
	}
	if o.Side == orderbook.Bid {
		e.book.Asks.ForEachAscending(scan)
	} else {
		e.book.Bids.ForEachDescending(scan)
	}
	return available
}

// match runs the greedy price-time loop. stopped reports a self-match
// cancel-taker halt, which discards the remainder regardless of type.
func (e *Engine) match(o *orderbook.Order) (trades []orderbook.Trade, stopped bool) {
	opp := o.Side.Opposite()
	for o.Remaining > 0 {
		lvl := e.book.TopLevel(opp)
		if lvl == nil {
			break
		}
		if o.Type != orderbook.Market && !crosses(o.Side, o.Price, lvl.Price) {
			break
		}
		maker := lvl.Peek()

		if e.policy != SelfMatchAllow && maker.Owner != 0 && maker.Owner == o.Owner {
			if e.policy == SelfMatchCancelResting {
				dead, err := e.book.Cancel(maker.ID)
				if err != nil {
					panic(fmt.Errorf("engine: self-match cancel %d: %w", maker.ID, err))
				}
				e.pool.Put(dead)
				continue
			}
			return trades, true // cancel-taker
		}

		qty := min(o.Remaining, maker.Remaining)
		makerID := maker.ID
		price := maker.Price

		removed, err := e.book.FillResting(maker, qty)
		if err != nil {
			panic(fmt.Errorf("engine: fill resting %d: %w", makerID, err))
		}
		if err := o.Fill(qty); err != nil {
			panic(fmt.Errorf("engine: fill incoming %d: %w", o.ID, err))
		}

		trades = append(trades, orderbook.Trade{
			Seq:       e.trades.Next(),
			MakerID:   makerID,
			TakerID:   o.ID,
			Price:     price,
			Qty:       qty,
			MakerDone: removed,
		})
		if removed {
			e.pool.Put(maker)
		}
	}
	return trades, false
}

// discard finalizes an order that never rests and never trades.
func (e *Engine) discard(o *orderbook.Order) Result {
	o.Cancel()
	res := Result{
		OrderID:   o.ID,
		SeqID:     o.SeqID,
		Status:    o.Status,
		Remaining: o.Remaining,
		BestBid:   e.book.BestBid(),
		BestAsk:   e.book.BestAsk(),
	}
	e.pool.Put(o)
	return res
}

func (e *Engine) wouldCross(o *orderbook.Order) bool {
	lvl := e.book.TopLevel(o.Side.Opposite())
	return lvl != nil && crosses(o.Side, o.Price, lvl.Price)
}

func validate(p SubmitParams) error {
	if p.ID == 0 || p.Qty <= 0 {
		return fmt.Errorf("submit: id=%d qty=%d: %w", p.ID, p.Qty, orderbook.ErrInvalidOrder)
	}
	if p.Side != orderbook.Bid && p.Side != orderbook.Ask {
		return fmt.Errorf("submit %d: bad side: %w", p.ID, orderbook.ErrInvalidOrder)
	}
	switch p.Type {
	case orderbook.Limit, orderbook.IOC, orderbook.FOK, orderbook.PostOnly:
		if p.Price <= 0 {
			return fmt.Errorf("submit %d: price=%d: %w", p.ID, p.Price, orderbook.ErrInvalidOrder)
		}
	case orderbook.Market:
		// price ignored
	default:
		return fmt.Errorf("submit %d: bad type: %w", p.ID, orderbook.ErrInvalidOrder)
	}
	return nil
}

func crosses(taker orderbook.Side, takerPrice, restingPrice int64) bool {
	if taker == orderbook.Bid {
		return takerPrice >= restingPrice
	}
	return takerPrice <= restingPrice
}

func min(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
