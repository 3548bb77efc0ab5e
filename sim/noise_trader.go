package sim

import (
	"github.com/shopspring/decimal"

	"vega/domain/orderbook"
)

// NoiseTrader submits uninformed limit orders at random around the mid,
// arriving as a Poisson process.
type NoiseTrader struct {
	Base

	rate     float64 // arrivals per second
	priceVol float64 // max relative deviation from mid
	minQty   decimal.Decimal
	maxQty   decimal.Decimal
}

func NewNoiseTrader(owner uint64, name string, seed int64, rate, priceVol float64, minQty, maxQty decimal.Decimal) *NoiseTrader {
	return &NoiseTrader{
		Base:     newBase(owner, name, seed),
		rate:     rate,
		priceVol: priceVol,
		minQty:   minQty,
		maxQty:   maxQty,
	}
}

func (t *NoiseTrader) ShouldTrade(dt float64) bool {
	return t.poissonArrival(t.rate, dt)
}

func (t *NoiseTrader) GenerateOrder(view BookView) *Intent {
	side := orderbook.Bid
	if t.rng.Float64() < 0.5 {
		side = orderbook.Ask
	}

	dev := decimal.NewFromFloat(1 + t.uniform(-t.priceVol, t.priceVol))
	price := view.Mid.Mul(dev)
	if price.Sign() <= 0 {
		return nil
	}

	span := t.maxQty.Sub(t.minQty)
	qty := t.minQty.Add(span.Mul(decimal.NewFromFloat(t.rng.Float64())))
	if qty.Sign() <= 0 {
		return nil
	}

	return &Intent{
		Side:  side,
		Type:  orderbook.Limit,
		Price: price,
		Qty:   qty,
	}
}
