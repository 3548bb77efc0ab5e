package snapshot

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"vega/domain/orderbook"
)

const fileName = "snapshot.bin"

type Writer struct {
	Dir string
}

// Write captures every resting order. Entries are sorted by arrival
// sequence so a restore replays them in original priority order.
func (w *Writer) Write(meta Meta, book *orderbook.OrderBook) error {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	s := Snapshot{
		Meta:    meta,
		Created: time.Now(),
		Orders:  make([]OrderEntry, 0, book.Len()),
	}
	book.WalkActive(func(o *orderbook.Order) {
		s.Orders = append(s.Orders, OrderEntry{
			ID:        o.ID,
			Owner:     o.Owner,
			Side:      uint8(o.Side),
			Type:      uint8(o.Type),
			Price:     o.Price,
			Qty:       o.Qty,
			Remaining: o.Remaining,
			SeqID:     o.SeqID,
		})
	})
	sort.Slice(s.Orders, func(i, j int) bool {
		return s.Orders[i].SeqID < s.Orders[j].SeqID
	})

	// Write then rename so a crash never leaves a half snapshot behind.
	tmp := filepath.Join(w.Dir, fileName+".tmp")
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := gob.NewEncoder(f).Encode(&s); err != nil {
		_ = f.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return os.Rename(tmp, filepath.Join(w.Dir, fileName))
}

// Path returns the snapshot file location for a directory.
func Path(dir string) string {
	return filepath.Join(dir, fileName)
}
