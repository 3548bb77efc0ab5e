package sim

import (
	"github.com/shopspring/decimal"

	"vega/domain/orderbook"
)

// restingQuote tracks one side of the maker's inventory on the book.
type restingQuote struct {
	orderID uint64
	price   decimal.Decimal
}

// MarketMaker keeps a quote resting on each side of the mid, pulled and
// reposted when the market moves, with size skewed against inventory.
type MarketMaker struct {
	Base

	offset    decimal.Decimal // half-spread quoted around the mid
	baseSize  decimal.Decimal
	jitter    float64 // relative size randomisation
	invLimit  decimal.Decimal
	refreshAt decimal.Decimal // absolute mid move that triggers a repost

	bid     *restingQuote
	ask     *restingQuote
	lastMid decimal.Decimal
}

func NewMarketMaker(owner uint64, name string, seed int64, offset, baseSize decimal.Decimal, jitter float64, invLimit, refreshAt decimal.Decimal) *MarketMaker {
	return &MarketMaker{
		Base:      newBase(owner, name, seed),
		offset:    offset,
		baseSize:  baseSize,
		jitter:    jitter,
		invLimit:  invLimit,
		refreshAt: refreshAt,
	}
}

// The maker acts every step; pacing comes from the refresh threshold.
func (m *MarketMaker) ShouldTrade(dt float64) bool { return true }

// Refresh pulls both quotes when the mid has moved beyond the threshold
// since the last repost.
func (m *MarketMaker) Refresh(view BookView) []uint64 {
	if m.lastMid.Sign() > 0 && view.Mid.Sub(m.lastMid).Abs().LessThan(m.refreshAt) {
		return nil
	}
	var cancels []uint64
	if m.bid != nil {
		cancels = append(cancels, m.bid.orderID)
	}
	if m.ask != nil {
		cancels = append(cancels, m.ask.orderID)
	}
	m.lastMid = view.Mid
	return cancels
}

func (m *MarketMaker) GenerateOrder(view BookView) *Intent {
	if view.Mid.Sign() <= 0 {
		return nil
	}
	if m.bid == nil && m.Inventory.LessThan(m.invLimit) {
		return m.quote(orderbook.Bid, view.Mid.Sub(m.offset))
	}
	if m.ask == nil && m.Inventory.GreaterThan(m.invLimit.Neg()) {
		return m.quote(orderbook.Ask, view.Mid.Add(m.offset))
	}
	return nil
}

func (m *MarketMaker) quote(side orderbook.Side, price decimal.Decimal) *Intent {
	if price.Sign() <= 0 {
		return nil
	}
	size := m.baseSize.Mul(decimal.NewFromFloat(1 + m.uniform(-m.jitter, m.jitter)))
	if size.Sign() <= 0 {
		return nil
	}
	return &Intent{
		Side:  side,
		Type:  orderbook.PostOnly,
		Price: price,
		Qty:   size,
	}
}

func (m *MarketMaker) OnAccept(orderID uint64, intent Intent, remaining decimal.Decimal) {
	q := &restingQuote{orderID: orderID, price: intent.Price}
	if intent.Side == orderbook.Bid {
		m.bid = q
	} else {
		m.ask = q
	}
}

func (m *MarketMaker) OnOrderDone(orderID uint64) {
	if m.bid != nil && m.bid.orderID == orderID {
		m.bid = nil
	}
	if m.ask != nil && m.ask.orderID == orderID {
		m.ask = nil
	}
}
