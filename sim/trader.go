// Package sim drives the matching engine with a population of agent
// traders: noise traders, informed traders and a market maker. Agents work
// in decimal prices and quantities; the Simulation converts to ticks and
// lots at the service boundary and routes fills back to agent accounts.
package sim

import (
	"math"
	"math/rand"

	"github.com/shopspring/decimal"

	"vega/domain/orderbook"
)

// BookView is the per-step market state handed to each trader.
type BookView struct {
	BestBid *Quote
	BestAsk *Quote
	Mid     decimal.Decimal
}

// Quote is a top-of-book level in decimal terms.
type Quote struct {
	Price decimal.Decimal
	Qty   decimal.Decimal
}

// Intent is a trader's desired order, before tick/lot conversion.
type Intent struct {
	Side  orderbook.Side
	Type  orderbook.OrderType
	Price decimal.Decimal
	Qty   decimal.Decimal
}

// Trader is a simulated market participant.
type Trader interface {
	Owner() uint64
	Name() string

	// ShouldTrade decides whether the trader acts this step, given the
	// step length in seconds.
	ShouldTrade(dt float64) bool

	// GenerateOrder produces the trader's next order, or nil to pass.
	GenerateOrder(view BookView) *Intent

	// OnFill credits an execution against the trader's account.
	OnFill(side orderbook.Side, price, qty decimal.Decimal)
}

// Refresher is implemented by traders that manage resting quotes and may
// want to pull them before quoting again.
type Refresher interface {
	Refresh(view BookView) (cancels []uint64)
}

// AcceptSink is implemented by traders that track their resting orders.
type AcceptSink interface {
	OnAccept(orderID uint64, intent Intent, remaining decimal.Decimal)
}

// DoneSink is implemented by traders that want to know when one of their
// resting orders left the book, whether filled out or cancelled.
type DoneSink interface {
	OnOrderDone(orderID uint64)
}

// Base carries the bookkeeping shared by every trader type.
type Base struct {
	owner uint64
	name  string
	rng   *rand.Rand

	Cash      decimal.Decimal
	Inventory decimal.Decimal
}

func newBase(owner uint64, name string, seed int64) Base {
	return Base{
		owner: owner,
		name:  name,
		rng:   rand.New(rand.NewSource(seed)),
	}
}

func (b *Base) Owner() uint64 { return b.owner }
func (b *Base) Name() string  { return b.name }

func (b *Base) OnFill(side orderbook.Side, price, qty decimal.Decimal) {
	notional := price.Mul(qty)
	if side == orderbook.Bid {
		b.Cash = b.Cash.Sub(notional)
		b.Inventory = b.Inventory.Add(qty)
	} else {
		b.Cash = b.Cash.Add(notional)
		b.Inventory = b.Inventory.Sub(qty)
	}
}

// uniform returns a value drawn uniformly from [lo, hi).
func (b *Base) uniform(lo, hi float64) float64 {
	return lo + b.rng.Float64()*(hi-lo)
}

// poissonArrival reports whether at least one event of a Poisson process
// with the given rate fires during a step of length dt.
func (b *Base) poissonArrival(rate, dt float64) bool {
	if rate <= 0 || dt <= 0 {
		return false
	}
	return b.rng.Float64() < 1-math.Exp(-rate*dt)
}
