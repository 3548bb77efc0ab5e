package service

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"vega/domain/engine"
	"vega/domain/orderbook"
	"vega/journal"
	"vega/tradestore"
)

// TradeEvent is the outbound JSON shape handed to the trade outbox.
type TradeEvent struct {
	V     int    `json:"v"`
	Type  string `json:"type"`
	RunID string `json:"run_id"`
	Seq   uint64 `json:"seq"`
	Maker uint64 `json:"maker"`
	Taker uint64 `json:"taker"`
	Price int64  `json:"price"`
	Qty   int64  `json:"qty"`
	Time  int64  `json:"ts"`
}

// OrderService is the only write entry point into the system. It owns the
// mutual exclusion the core requires (one mutation in flight per book),
// journals intent before applying it, and records executed trades in the
// outbox. Journal and outbox are optional; a nil collaborator is skipped.
type OrderService struct {
	mu    sync.Mutex
	eng   *engine.Engine
	jrnl  *journal.Journal
	sink  *tradestore.Store
	runID string
	log   *zap.Logger
}

func NewOrderService(
	eng *engine.Engine,
	jrnl *journal.Journal,
	sink *tradestore.Store,
	runID string,
	log *zap.Logger,
) *OrderService {
	if log == nil {
		log = zap.NewNop()
	}
	return &OrderService{
		eng:   eng,
		jrnl:  jrnl,
		sink:  sink,
		runID: runID,
		log:   log,
	}
}

// PlaceOrder journals and submits a new order, then records its trades.
func (s *OrderService) PlaceOrder(
	id, owner uint64,
	side orderbook.Side,
	otype orderbook.OrderType,
	price, qty int64,
) (engine.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.jrnl != nil {
		payload := journal.SubmitPayload{
			ID:    id,
			Owner: owner,
			Side:  uint8(side),
			Type:  uint8(otype),
			Price: price,
			Qty:   qty,
		}
		if _, err := s.jrnl.Append(journal.RecordSubmit, payload.Encode()); err != nil {
			return engine.Result{}, fmt.Errorf("journal submit: %w", err)
		}
	}

	res, err := s.eng.Submit(engine.SubmitParams{
		ID:    id,
		Owner: owner,
		Side:  side,
		Type:  otype,
		Price: price,
		Qty:   qty,
	})
	if err != nil {
		return engine.Result{}, err
	}

	s.recordTrades(res.Trades)
	s.log.Debug("order placed",
		zap.Uint64("id", id),
		zap.Stringer("side", side),
		zap.Stringer("type", otype),
		zap.Int64("price", price),
		zap.Int64("qty", qty),
		zap.Int("trades", len(res.Trades)),
		zap.Stringer("status", res.Status),
	)
	return res, nil
}

// CancelOrder journals and applies a cancel.
func (s *OrderService) CancelOrder(id uint64) (engine.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.jrnl != nil {
		payload := journal.CancelPayload{ID: id}
		if _, err := s.jrnl.Append(journal.RecordCancel, payload.Encode()); err != nil {
			return engine.Result{}, fmt.Errorf("journal cancel: %w", err)
		}
	}
	res, err := s.eng.Cancel(id)
	if err != nil {
		return engine.Result{}, err
	}
	s.log.Debug("order cancelled", zap.Uint64("id", id))
	return res, nil
}

// AmendOrder journals and applies an amend-down.
func (s *OrderService) AmendOrder(id uint64, newQty int64) (engine.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.jrnl != nil {
		payload := journal.AmendPayload{ID: id, NewQty: newQty}
		if _, err := s.jrnl.Append(journal.RecordAmend, payload.Encode()); err != nil {
			return engine.Result{}, fmt.Errorf("journal amend: %w", err)
		}
	}
	res, err := s.eng.Amend(id, newQty)
	if err != nil {
		return engine.Result{}, err
	}
	s.log.Debug("order amended", zap.Uint64("id", id), zap.Int64("new_qty", newQty))
	return res, nil
}

// TopOfBook returns the current best bid and ask.
func (s *OrderService) TopOfBook() (bid, ask orderbook.Quote) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eng.Book().BestBid(), s.eng.Book().BestAsk()
}

// Depth returns up to max aggregated levels on one side, best first.
func (s *OrderService) Depth(side orderbook.Side, max int) []orderbook.Quote {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eng.Book().Depth(side, max)
}

// ActiveOrders returns value copies of every resting order, bids then asks.
func (s *OrderService) ActiveOrders() []orderbook.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]orderbook.Order, 0, s.eng.Book().Len())
	s.eng.Book().WalkActive(func(o *orderbook.Order) {
		out = append(out, *o)
	})
	return out
}

func (s *OrderService) recordTrades(trades []orderbook.Trade) {
	if s.sink == nil {
		return
	}
	for _, t := range trades {
		ev := TradeEvent{
			V:     1,
			Type:  "trade",
			RunID: s.runID,
			Seq:   t.Seq,
			Maker: t.MakerID,
			Taker: t.TakerID,
			Price: t.Price,
			Qty:   t.Qty,
			Time:  time.Now().UnixNano(),
		}
		payload, err := json.Marshal(ev)
		if err != nil {
			s.log.Error("trade event marshal failed", zap.Error(err))
			continue
		}
		if err := s.sink.Put(t.Seq, payload); err != nil {
			s.log.Error("trade outbox write failed",
				zap.Uint64("seq", t.Seq), zap.Error(err))
		}
	}
}
