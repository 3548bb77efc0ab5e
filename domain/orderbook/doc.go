// Package orderbook implements price-ranked order storage for a single
// instrument: red-black trees of FIFO price levels on each side, plus an
// order-id index for O(log n) cancel and amend-down.
//
// The book is single-writer. It never locks internally; callers
// serialize mutating calls, one in flight per instrument.
package orderbook
