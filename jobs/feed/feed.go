// Package feed publishes periodic depth snapshots to a market-data topic.
package feed

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"vega/domain/orderbook"
	"vega/infra/kafka"
)

// BookSource is the query surface the feed reads from.
type BookSource interface {
	TopOfBook() (bid, ask orderbook.Quote)
	Depth(side orderbook.Side, max int) []orderbook.Quote
}

type LevelJSON struct {
	Price int64 `json:"price"`
	Qty   int64 `json:"qty"`
}

type SnapshotJSON struct {
	V       int         `json:"v"`
	RunID   string      `json:"run_id"`
	Time    int64       `json:"ts"`
	BestBid *LevelJSON  `json:"best_bid,omitempty"`
	BestAsk *LevelJSON  `json:"best_ask,omitempty"`
	Bids    []LevelJSON `json:"bids"`
	Asks    []LevelJSON `json:"asks"`
}

type Feed struct {
	src      BookSource
	producer *kafka.Producer
	runID    string
	levels   int
	interval time.Duration
	log      *zap.Logger
}

func New(
	src BookSource,
	producer *kafka.Producer,
	runID string,
	levels int,
	interval time.Duration,
	log *zap.Logger,
) *Feed {
	if levels <= 0 {
		levels = 10
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &Feed{
		src:      src,
		producer: producer,
		runID:    runID,
		levels:   levels,
		interval: interval,
		log:      log,
	}
}

// Start publishes snapshots until ctx is cancelled.
func (f *Feed) Start(ctx context.Context) {
	f.log.Info("depth feed started", zap.Int("levels", f.levels))
	go func() {
		ticker := time.NewTicker(f.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				f.publishOnce(ctx)
			}
		}
	}()
}

func (f *Feed) publishOnce(ctx context.Context) {
	bid, ask := f.src.TopOfBook()
	snap := SnapshotJSON{
		V:     1,
		RunID: f.runID,
		Time:  time.Now().UnixNano(),
		Bids:  levelsJSON(f.src.Depth(orderbook.Bid, f.levels)),
		Asks:  levelsJSON(f.src.Depth(orderbook.Ask, f.levels)),
	}
	if bid.Ok {
		snap.BestBid = &LevelJSON{Price: bid.Price, Qty: bid.Qty}
	}
	if ask.Ok {
		snap.BestAsk = &LevelJSON{Price: ask.Price, Qty: ask.Qty}
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		f.log.Error("snapshot marshal failed", zap.Error(err))
		return
	}
	if err := f.producer.Send(ctx, []byte(f.runID), payload); err != nil {
		f.log.Warn("depth publish failed", zap.Error(err))
	}
}

func levelsJSON(quotes []orderbook.Quote) []LevelJSON {
	out := make([]LevelJSON, 0, len(quotes))
	for _, q := range quotes {
		out = append(out, LevelJSON{Price: q.Price, Qty: q.Qty})
	}
	return out
}
