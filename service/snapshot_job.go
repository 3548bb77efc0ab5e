package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"vega/snapshot"
)

// StartSnapshotJob periodically captures the full book and truncates the
// journal, holding the write lock so snapshot and truncation observe one
// consistent state.
func (s *OrderService) StartSnapshotJob(ctx context.Context, dir string, interval time.Duration) {
	w := &snapshot.Writer{Dir: dir}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.snapshotOnce(w)
			}
		}
	}()
}

func (s *OrderService) snapshotOnce(w *snapshot.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta := snapshot.Meta{
		Seq:        s.eng.LastArrival(),
		TradeSeq:   s.eng.LastTrade(),
		MaxOrderID: s.eng.HighestOrderID(),
	}
	if s.jrnl != nil {
		meta.JournalSeq = s.jrnl.LastSeq()
	}
	if err := w.Write(meta, s.eng.Book()); err != nil {
		s.log.Error("snapshot write failed", zap.Error(err))
		return
	}
	if s.jrnl != nil {
		if err := s.jrnl.Reset(); err != nil {
			s.log.Error("journal truncate failed", zap.Error(err))
			return
		}
	}
	s.log.Info("snapshot written",
		zap.Uint64("seq", meta.Seq),
		zap.Uint64("journal_seq", meta.JournalSeq))
}
