package snapshot

import (
	"encoding/gob"
	"fmt"
	"os"

	"vega/domain/engine"
	"vega/domain/orderbook"
)

// Load restores resting orders into a fresh engine. A missing file is not
// an error: snapshots are an optimization over full journal replay.
// Returns the sequencer state at capture time.
func Load(path string, eng *engine.Engine) (Meta, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Meta{}, nil
		}
		return Meta{}, fmt.Errorf("load snapshot: %w", err)
	}
	defer f.Close()

	var s Snapshot
	if err := gob.NewDecoder(f).Decode(&s); err != nil {
		return Meta{}, fmt.Errorf("load snapshot: %w", err)
	}

	for _, e := range s.Orders {
		o := orderbook.Order{
			ID:        e.ID,
			Owner:     e.Owner,
			Price:     e.Price,
			Qty:       e.Qty,
			Remaining: e.Remaining,
			SeqID:     e.SeqID,
			Side:      orderbook.Side(e.Side),
			Type:      orderbook.OrderType(e.Type),
			Status:    orderbook.Active,
		}
		if e.Remaining < e.Qty {
			o.Status = orderbook.PartiallyFilled
		}
		if err := eng.Restore(o); err != nil {
			return Meta{}, fmt.Errorf("load snapshot order %d: %w", e.ID, err)
		}
	}
	if s.Meta.Seq > 0 {
		eng.ResumeSequence(s.Meta.Seq)
	}
	if s.Meta.TradeSeq > 0 {
		eng.ResumeTradeSequence(s.Meta.TradeSeq)
	}
	eng.ResumeOrderIDs(s.Meta.MaxOrderID)
	return s.Meta, nil
}
