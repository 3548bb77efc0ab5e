package orderbook

// Trade is a single match between an incoming (taker) order and a resting
// (maker) order. Execution price is always the resting order's price.
// Trades are immutable once emitted; the book keeps no trade history.
type Trade struct {
	Seq       uint64 // trade sequence, assigned by the engine
	MakerID   uint64 // resting order
	TakerID   uint64 // incoming order
	Price     int64
	Qty       int64
	MakerDone bool // resting order fully consumed by this trade
}

// Quote is the aggregate view of the top (or any) price level on one side.
type Quote struct {
	Price  int64
	Qty    int64
	Orders int
	Ok     bool // false when the side is empty
}
