package sim

import (
	"github.com/shopspring/decimal"

	"vega/domain/orderbook"
)

// InformedTrader holds a private estimate of fair value and crosses the
// spread when the market drifts far enough away from it. Order size scales
// with the size of the mispricing.
type InformedTrader struct {
	Base

	rate      float64
	trueValue decimal.Decimal
	threshold float64 // minimum relative mispricing to act on
	strength  float64 // size multiplier per unit of mispricing
	maxQty    decimal.Decimal
}

func NewInformedTrader(owner uint64, name string, seed int64, rate float64, trueValue decimal.Decimal, threshold, strength float64, maxQty decimal.Decimal) *InformedTrader {
	return &InformedTrader{
		Base:      newBase(owner, name, seed),
		rate:      rate,
		trueValue: trueValue,
		threshold: threshold,
		strength:  strength,
		maxQty:    maxQty,
	}
}

// SetTrueValue replaces the trader's fair-value estimate.
func (t *InformedTrader) SetTrueValue(v decimal.Decimal) { t.trueValue = v }

func (t *InformedTrader) ShouldTrade(dt float64) bool {
	return t.poissonArrival(t.rate, dt)
}

func (t *InformedTrader) GenerateOrder(view BookView) *Intent {
	if view.Mid.Sign() <= 0 {
		return nil
	}
	mispricing, _ := t.trueValue.Sub(view.Mid).Div(view.Mid).Float64()
	abs := mispricing
	if abs < 0 {
		abs = -abs
	}
	if abs < t.threshold {
		return nil
	}

	var side orderbook.Side
	var price decimal.Decimal
	if mispricing > 0 {
		side = orderbook.Bid
		if view.BestAsk != nil {
			price = view.BestAsk.Price
		} else {
			price = view.Mid.Mul(decimal.NewFromFloat(1.02))
		}
	} else {
		side = orderbook.Ask
		if view.BestBid != nil {
			price = view.BestBid.Price
		} else {
			price = view.Mid.Mul(decimal.NewFromFloat(0.98))
		}
	}

	sizeFactor := abs * t.strength
	if sizeFactor > 1 {
		sizeFactor = 1
	}
	qty := t.maxQty.Mul(decimal.NewFromFloat(sizeFactor * t.rng.Float64()))
	if qty.Sign() <= 0 {
		return nil
	}

	// Priced through the touch so the remainder never rests stale.
	return &Intent{
		Side:  side,
		Type:  orderbook.IOC,
		Price: price,
		Qty:   qty,
	}
}
