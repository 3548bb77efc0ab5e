package sim

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"vega/domain/orderbook"
	"vega/service"
)

// Stats accumulates run totals in tick/lot units.
type Stats struct {
	Steps     int
	Submitted int
	Accepted  int
	Rejected  int
	Cancelled int
	Trades    int
	Volume    int64 // lots
	Notional  int64 // tick * lot units
	HighTicks int64
	LowTicks  int64
}

// VWAP returns the volume-weighted average trade price in ticks, or zero
// when nothing traded.
func (s Stats) VWAP() float64 {
	if s.Volume == 0 {
		return 0
	}
	return float64(s.Notional) / float64(s.Volume)
}

// Simulation steps a set of traders against the order service. One instance
// owns the order id space it allocates from; runs with the same seed, trader
// set and starting book produce the same event stream.
type Simulation struct {
	ID uuid.UUID

	svc     *service.OrderService
	scale   Scale
	base    decimal.Decimal // fallback mid for an empty book
	traders []Trader
	dt      float64
	log     *zap.Logger

	nextID     uint64
	orderOwner map[uint64]Trader
	stats      Stats
}

func New(svc *service.OrderService, scale Scale, basePrice decimal.Decimal, traders []Trader, dt float64, firstOrderID uint64, log *zap.Logger) *Simulation {
	if log == nil {
		log = zap.NewNop()
	}
	if firstOrderID == 0 {
		firstOrderID = 1
	}
	return &Simulation{
		ID:         uuid.New(),
		svc:        svc,
		scale:      scale,
		base:       basePrice,
		traders:    traders,
		dt:         dt,
		log:        log,
		nextID:     firstOrderID,
		orderOwner: make(map[uint64]Trader),
	}
}

// Run executes the given number of steps, or fewer if the context ends.
func (s *Simulation) Run(ctx context.Context, steps int) (Stats, error) {
	for step := 0; step < steps; step++ {
		select {
		case <-ctx.Done():
			return s.stats, ctx.Err()
		default:
		}
		s.stats.Steps++
		view := s.view()
		for _, tr := range s.traders {
			if !tr.ShouldTrade(s.dt) {
				continue
			}
			if r, ok := tr.(Refresher); ok {
				for _, id := range r.Refresh(view) {
					s.cancel(id)
				}
				view = s.view()
			}
			intent := tr.GenerateOrder(view)
			if intent == nil {
				continue
			}
			if err := s.place(tr, *intent); err != nil {
				return s.stats, err
			}
			view = s.view()
		}
	}
	return s.stats, nil
}

// Stats returns the totals accumulated so far.
func (s *Simulation) Stats() Stats { return s.stats }

func (s *Simulation) view() BookView {
	bid, ask := s.svc.TopOfBook()
	v := BookView{Mid: s.base}
	if bid.Ok {
		v.BestBid = &Quote{
			Price: s.scale.PriceFromTicks(bid.Price),
			Qty:   s.scale.QtyFromLots(bid.Qty),
		}
	}
	if ask.Ok {
		v.BestAsk = &Quote{
			Price: s.scale.PriceFromTicks(ask.Price),
			Qty:   s.scale.QtyFromLots(ask.Qty),
		}
	}
	switch {
	case bid.Ok && ask.Ok:
		v.Mid = v.BestBid.Price.Add(v.BestAsk.Price).Div(decimal.NewFromInt(2))
	case bid.Ok:
		v.Mid = v.BestBid.Price
	case ask.Ok:
		v.Mid = v.BestAsk.Price
	}
	return v
}

func (s *Simulation) place(tr Trader, intent Intent) error {
	price := s.scale.PriceTicks(intent.Price)
	qty := s.scale.QtyLots(intent.Qty)
	if qty <= 0 || (intent.Type != orderbook.Market && price <= 0) {
		return nil
	}

	id := s.nextID
	s.nextID++
	s.stats.Submitted++

	res, err := s.svc.PlaceOrder(id, tr.Owner(), intent.Side, intent.Type, price, qty)
	if err != nil {
		if errors.Is(err, orderbook.ErrInvalidOrder) || errors.Is(err, orderbook.ErrDuplicateOrder) {
			s.stats.Rejected++
			return nil
		}
		return fmt.Errorf("place order %d for %s: %w", id, tr.Name(), err)
	}

	s.stats.Accepted++
	s.routeFills(tr, intent.Side, res.Trades)
	if res.Rested {
		s.orderOwner[id] = tr
		if sink, ok := tr.(AcceptSink); ok {
			sink.OnAccept(id, intent, s.scale.QtyFromLots(res.Remaining))
		}
	}
	return nil
}

func (s *Simulation) cancel(id uint64) {
	if _, err := s.svc.CancelOrder(id); err != nil {
		// Raced with a fill that finalized the order; done routing below
		// has already cleared it.
		if errors.Is(err, orderbook.ErrOrderNotFound) {
			s.finishOrder(id)
			return
		}
		s.log.Warn("cancel failed", zap.Uint64("id", id), zap.Error(err))
		return
	}
	s.stats.Cancelled++
	s.finishOrder(id)
}

func (s *Simulation) routeFills(taker Trader, takerSide orderbook.Side, trades []orderbook.Trade) {
	for _, t := range trades {
		price := s.scale.PriceFromTicks(t.Price)
		qty := s.scale.QtyFromLots(t.Qty)

		taker.OnFill(takerSide, price, qty)
		if maker, ok := s.orderOwner[t.MakerID]; ok {
			maker.OnFill(takerSide.Opposite(), price, qty)
		}
		if t.MakerDone {
			s.finishOrder(t.MakerID)
		}

		s.stats.Trades++
		s.stats.Volume += t.Qty
		s.stats.Notional += t.Price * t.Qty
		if s.stats.HighTicks == 0 || t.Price > s.stats.HighTicks {
			s.stats.HighTicks = t.Price
		}
		if s.stats.LowTicks == 0 || t.Price < s.stats.LowTicks {
			s.stats.LowTicks = t.Price
		}
	}
}

func (s *Simulation) finishOrder(id uint64) {
	tr, ok := s.orderOwner[id]
	if !ok {
		return
	}
	delete(s.orderOwner, id)
	if sink, ok := tr.(DoneSink); ok {
		sink.OnOrderDone(id)
	}
}
