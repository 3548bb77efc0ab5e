package sim

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Scale converts between human decimal prices/quantities and the integer
// tick/lot counts the core works in. The core never sees a float.
type Scale struct {
	Tick decimal.Decimal
	Lot  decimal.Decimal
}

func NewScale(tick, lot string) (Scale, error) {
	t, err := decimal.NewFromString(tick)
	if err != nil {
		return Scale{}, fmt.Errorf("scale tick %q: %w", tick, err)
	}
	l, err := decimal.NewFromString(lot)
	if err != nil {
		return Scale{}, fmt.Errorf("scale lot %q: %w", lot, err)
	}
	if t.Sign() <= 0 || l.Sign() <= 0 {
		return Scale{}, fmt.Errorf("scale: tick and lot must be positive")
	}
	return Scale{Tick: t, Lot: l}, nil
}

// PriceTicks rounds a decimal price to the nearest tick count.
func (s Scale) PriceTicks(p decimal.Decimal) int64 {
	return p.DivRound(s.Tick, 0).IntPart()
}

// QtyLots rounds a decimal quantity to the nearest lot count.
func (s Scale) QtyLots(q decimal.Decimal) int64 {
	return q.DivRound(s.Lot, 0).IntPart()
}

// PriceFromTicks converts a tick count back to a decimal price.
func (s Scale) PriceFromTicks(t int64) decimal.Decimal {
	return s.Tick.Mul(decimal.NewFromInt(t))
}

// QtyFromLots converts a lot count back to a decimal quantity.
func (s Scale) QtyFromLots(l int64) decimal.Decimal {
	return s.Lot.Mul(decimal.NewFromInt(l))
}
