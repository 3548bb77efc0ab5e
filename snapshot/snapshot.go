// Package snapshot persists and restores full book state. A snapshot plus
// the journal tail is enough to rebuild the engine after a restart; after
// a successful snapshot the journal can be truncated.
package snapshot

import "time"

// Meta carries the sequencer state captured alongside the orders. The
// journal seq lets recovery skip records the snapshot already covers,
// even if a crash prevented truncating them.
type Meta struct {
	Seq        uint64 // last arrival sequence at capture time
	JournalSeq uint64 // last journal record covered by this snapshot
	TradeSeq   uint64 // last trade sequence at capture time
	MaxOrderID uint64 // order id high-water mark at capture time
}

type Snapshot struct {
	Meta    Meta
	Created time.Time
	Orders  []OrderEntry
}

// OrderEntry is one resting order, enough to rebuild it verbatim.
type OrderEntry struct {
	ID        uint64
	Owner     uint64
	Side      uint8
	Type      uint8
	Price     int64
	Qty       int64
	Remaining int64
	SeqID     uint64
}
