package service

import (
	"errors"
	"fmt"

	"vega/domain/engine"
	"vega/domain/orderbook"
	"vega/journal"
)

// ReplayJournal rebuilds engine state by re-driving every journaled event
// with a sequence above afterSeq. It must run before the service accepts
// traffic; afterSeq is the journal seq the loaded snapshot recorded, so
// records a crash left untrimmed are not applied twice. Business errors
// that occurred on the original run (duplicate id, amend on a filled
// order) recur deterministically and are skipped; corruption aborts the
// replay.
func ReplayJournal(jrnl *journal.Journal, eng *engine.Engine, afterSeq uint64) (uint64, error) {
	last, err := jrnl.Replay(func(rec *journal.Record) error {
		if rec.Seq <= afterSeq {
			return nil
		}
		switch rec.Type {
		case journal.RecordSubmit:
			p, err := journal.DecodeSubmit(rec.Data)
			if err != nil {
				return err
			}
			_, err = eng.Submit(engine.SubmitParams{
				ID:    p.ID,
				Owner: p.Owner,
				Side:  orderbook.Side(p.Side),
				Type:  orderbook.OrderType(p.Type),
				Price: p.Price,
				Qty:   p.Qty,
			})
			return skipBusiness(err)
		case journal.RecordCancel:
			p, err := journal.DecodeCancel(rec.Data)
			if err != nil {
				return err
			}
			_, err = eng.Cancel(p.ID)
			return skipBusiness(err)
		case journal.RecordAmend:
			p, err := journal.DecodeAmend(rec.Data)
			if err != nil {
				return err
			}
			_, err = eng.Amend(p.ID, p.NewQty)
			return skipBusiness(err)
		default:
			return fmt.Errorf("replay: unknown record type %d: %w",
				rec.Type, journal.ErrCorruptRecord)
		}
	})
	if err != nil {
		return last, fmt.Errorf("journal replay: %w", err)
	}
	return last, nil
}

func skipBusiness(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, orderbook.ErrDuplicateOrder),
		errors.Is(err, orderbook.ErrOrderNotFound),
		errors.Is(err, orderbook.ErrInvalidAmend),
		errors.Is(err, orderbook.ErrInvalidOrder):
		return nil
	default:
		return err
	}
}
