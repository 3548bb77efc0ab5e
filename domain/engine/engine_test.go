package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vega/domain/orderbook"
)

func submit(t *testing.T, e *Engine, id uint64, side orderbook.Side, otype orderbook.OrderType, price, qty int64) Result {
	t.Helper()
	res, err := e.Submit(SubmitParams{ID: id, Owner: id, Side: side, Type: otype, Price: price, Qty: qty})
	require.NoError(t, err)
	return res
}

func TestSimpleMatch(t *testing.T) {
	e := New(Config{})
	submit(t, e, 1, orderbook.Ask, orderbook.Limit, 100, 5)
	res := submit(t, e, 2, orderbook.Bid, orderbook.Limit, 100, 5)

	require.Len(t, res.Trades, 1)
	tr := res.Trades[0]
	assert.Equal(t, uint64(1), tr.MakerID)
	assert.Equal(t, uint64(2), tr.TakerID)
	assert.Equal(t, int64(100), tr.Price)
	assert.Equal(t, int64(5), tr.Qty)
	assert.True(t, tr.MakerDone)

	assert.Equal(t, orderbook.Filled, res.Status)
	assert.Equal(t, int64(0), res.Remaining)
	assert.Equal(t, 0, e.Book().Len())
}

func TestPartialFillRests(t *testing.T) {
	e := New(Config{})
	submit(t, e, 1, orderbook.Ask, orderbook.Limit, 100, 10)
	res := submit(t, e, 2, orderbook.Bid, orderbook.Limit, 100, 4)

	require.Len(t, res.Trades, 1)
	assert.Equal(t, int64(4), res.Trades[0].Qty)
	assert.False(t, res.Trades[0].MakerDone)
	assert.Equal(t, orderbook.Filled, res.Status)

	ask := e.Book().BestAsk()
	require.True(t, ask.Ok)
	assert.Equal(t, int64(6), ask.Qty)
}

func TestExecutionAtRestingPrice(t *testing.T) {
	e := New(Config{})
	submit(t, e, 1, orderbook.Ask, orderbook.Limit, 100, 5)
	res := submit(t, e, 2, orderbook.Bid, orderbook.Limit, 105, 5)

	require.Len(t, res.Trades, 1)
	assert.Equal(t, int64(100), res.Trades[0].Price, "trade prints at the maker's price")
}

func TestTimePriorityAtEqualPrice(t *testing.T) {
	e := New(Config{})
	submit(t, e, 1, orderbook.Ask, orderbook.Limit, 100, 5)
	submit(t, e, 2, orderbook.Ask, orderbook.Limit, 100, 5)
	res := submit(t, e, 3, orderbook.Bid, orderbook.Limit, 100, 7)

	require.Len(t, res.Trades, 2)
	assert.Equal(t, uint64(1), res.Trades[0].MakerID, "earlier arrival fills first")
	assert.Equal(t, int64(5), res.Trades[0].Qty)
	assert.Equal(t, uint64(2), res.Trades[1].MakerID)
	assert.Equal(t, int64(2), res.Trades[1].Qty)
}

func TestPricePriorityAcrossLevels(t *testing.T) {
	e := New(Config{})
	submit(t, e, 1, orderbook.Ask, orderbook.Limit, 102, 5)
	submit(t, e, 2, orderbook.Ask, orderbook.Limit, 100, 5)
	submit(t, e, 3, orderbook.Ask, orderbook.Limit, 101, 5)
	res := submit(t, e, 4, orderbook.Bid, orderbook.Limit, 102, 12)

	require.Len(t, res.Trades, 3)
	assert.Equal(t, int64(100), res.Trades[0].Price)
	assert.Equal(t, int64(101), res.Trades[1].Price)
	assert.Equal(t, int64(102), res.Trades[2].Price)
	assert.Equal(t, int64(2), res.Trades[2].Qty)
}

func TestLimitLeftoverRests(t *testing.T) {
	e := New(Config{})
	submit(t, e, 1, orderbook.Ask, orderbook.Limit, 100, 3)
	res := submit(t, e, 2, orderbook.Bid, orderbook.Limit, 100, 10)

	assert.True(t, res.Rested)
	assert.Equal(t, int64(7), res.Remaining)
	assert.Equal(t, orderbook.PartiallyFilled, res.Status)

	bid := e.Book().BestBid()
	require.True(t, bid.Ok)
	assert.Equal(t, int64(100), bid.Price)
	assert.Equal(t, int64(7), bid.Qty)
}

func TestIOCDiscardsRemainder(t *testing.T) {
	e := New(Config{})
	submit(t, e, 1, orderbook.Ask, orderbook.Limit, 100, 3)
	res := submit(t, e, 2, orderbook.Bid, orderbook.IOC, 100, 10)

	require.Len(t, res.Trades, 1)
	assert.Equal(t, int64(3), res.Trades[0].Qty)
	assert.False(t, res.Rested)
	assert.Equal(t, orderbook.Cancelled, res.Status)
	assert.False(t, e.Book().BestBid().Ok, "IOC remainder must not rest")
}

func TestIOCNoLiquidity(t *testing.T) {
	e := New(Config{})
	res := submit(t, e, 1, orderbook.Bid, orderbook.IOC, 100, 5)

	assert.Empty(t, res.Trades)
	assert.Equal(t, orderbook.Cancelled, res.Status)
	assert.Equal(t, 0, e.Book().Len())
}

func TestFOKAllOrNothing(t *testing.T) {
	e := New(Config{})
	submit(t, e, 1, orderbook.Ask, orderbook.Limit, 100, 3)
	submit(t, e, 2, orderbook.Ask, orderbook.Limit, 101, 3)

	// Not enough liquidity within the limit: nothing executes.
	res := submit(t, e, 3, orderbook.Bid, orderbook.FOK, 100, 5)
	assert.Empty(t, res.Trades)
	assert.Equal(t, orderbook.Cancelled, res.Status)
	assert.Equal(t, int64(5), res.Remaining)
	assert.Equal(t, 2, e.Book().Len(), "failed FOK must leave the book untouched")

	// Enough within the limit across two levels: fills completely.
	res = submit(t, e, 4, orderbook.Bid, orderbook.FOK, 101, 5)
	require.Len(t, res.Trades, 2)
	assert.Equal(t, orderbook.Filled, res.Status)
	assert.Equal(t, int64(0), res.Remaining)
}

func TestMarketSweepsBook(t *testing.T) {
	e := New(Config{})
	submit(t, e, 1, orderbook.Ask, orderbook.Limit, 100, 3)
	submit(t, e, 2, orderbook.Ask, orderbook.Limit, 200, 3)
	res := submit(t, e, 3, orderbook.Bid, orderbook.Market, 0, 10)

	require.Len(t, res.Trades, 2)
	assert.Equal(t, int64(200), res.Trades[1].Price)
	assert.Equal(t, orderbook.Cancelled, res.Status, "unfilled market remainder is discarded")
	assert.Equal(t, int64(4), res.Remaining)
	assert.Equal(t, 0, e.Book().Len())
}

func TestPostOnlyRestsOrRejects(t *testing.T) {
	e := New(Config{})
	submit(t, e, 1, orderbook.Ask, orderbook.Limit, 100, 5)

	// Crossing post-only is rejected before any fill.
	res := submit(t, e, 2, orderbook.Bid, orderbook.PostOnly, 100, 5)
	assert.Empty(t, res.Trades)
	assert.Equal(t, orderbook.Cancelled, res.Status)
	ask := e.Book().BestAsk()
	require.True(t, ask.Ok)
	assert.Equal(t, int64(5), ask.Qty, "rejected post-only must not consume liquidity")

	// Passive post-only rests.
	res = submit(t, e, 3, orderbook.Bid, orderbook.PostOnly, 99, 5)
	assert.True(t, res.Rested)
	assert.Equal(t, int64(99), e.Book().BestBid().Price)
}

func TestNoCrossAfterSubmit(t *testing.T) {
	e := New(Config{})
	submit(t, e, 1, orderbook.Bid, orderbook.Limit, 100, 5)
	submit(t, e, 2, orderbook.Ask, orderbook.Limit, 105, 5)
	submit(t, e, 3, orderbook.Bid, orderbook.Limit, 103, 2)

	bid, ask := e.Book().BestBid(), e.Book().BestAsk()
	require.True(t, bid.Ok)
	require.True(t, ask.Ok)
	assert.Less(t, bid.Price, ask.Price)
}

func TestDuplicateSubmit(t *testing.T) {
	e := New(Config{})
	submit(t, e, 1, orderbook.Bid, orderbook.Limit, 100, 5)
	_, err := e.Submit(SubmitParams{ID: 1, Side: orderbook.Ask, Type: orderbook.Limit, Price: 105, Qty: 5})
	assert.ErrorIs(t, err, orderbook.ErrDuplicateOrder)
}

func TestSubmitValidation(t *testing.T) {
	e := New(Config{})
	cases := []SubmitParams{
		{ID: 0, Side: orderbook.Bid, Type: orderbook.Limit, Price: 100, Qty: 5},
		{ID: 1, Side: orderbook.Bid, Type: orderbook.Limit, Price: 100, Qty: 0},
		{ID: 2, Side: orderbook.Bid, Type: orderbook.Limit, Price: 0, Qty: 5},
		{ID: 3, Side: orderbook.Bid, Type: orderbook.Limit, Price: -1, Qty: 5},
		{ID: 4, Side: 9, Type: orderbook.Limit, Price: 100, Qty: 5},
		{ID: 5, Side: orderbook.Bid, Type: 9, Price: 100, Qty: 5},
	}
	for _, p := range cases {
		_, err := e.Submit(p)
		assert.ErrorIs(t, err, orderbook.ErrInvalidOrder, "params %+v", p)
	}
	assert.Equal(t, 0, e.Book().Len())
}

func TestCancelThroughEngine(t *testing.T) {
	e := New(Config{})
	submit(t, e, 1, orderbook.Bid, orderbook.Limit, 100, 5)

	res, err := e.Cancel(1)
	require.NoError(t, err)
	assert.Equal(t, orderbook.Cancelled, res.Status)
	assert.False(t, res.BestBid.Ok)

	_, err = e.Cancel(1)
	assert.ErrorIs(t, err, orderbook.ErrOrderNotFound)
}

func TestAmendThroughEngine(t *testing.T) {
	e := New(Config{})
	submit(t, e, 1, orderbook.Ask, orderbook.Limit, 100, 10)

	res, err := e.Amend(1, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(4), res.Remaining)
	assert.Equal(t, int64(4), res.BestAsk.Qty)

	_, err = e.Amend(1, 8)
	assert.ErrorIs(t, err, orderbook.ErrInvalidAmend)
	_, err = e.Amend(99, 1)
	assert.ErrorIs(t, err, orderbook.ErrOrderNotFound)
}

func TestSelfMatchAllow(t *testing.T) {
	e := New(Config{SelfMatch: SelfMatchAllow})
	_, err := e.Submit(SubmitParams{ID: 1, Owner: 7, Side: orderbook.Ask, Type: orderbook.Limit, Price: 100, Qty: 5})
	require.NoError(t, err)
	res, err := e.Submit(SubmitParams{ID: 2, Owner: 7, Side: orderbook.Bid, Type: orderbook.Limit, Price: 100, Qty: 5})
	require.NoError(t, err)
	assert.Len(t, res.Trades, 1)
}

func TestSelfMatchCancelTaker(t *testing.T) {
	e := New(Config{SelfMatch: SelfMatchCancelTaker})
	_, err := e.Submit(SubmitParams{ID: 1, Owner: 7, Side: orderbook.Ask, Type: orderbook.Limit, Price: 100, Qty: 5})
	require.NoError(t, err)
	res, err := e.Submit(SubmitParams{ID: 2, Owner: 7, Side: orderbook.Bid, Type: orderbook.Limit, Price: 100, Qty: 5})
	require.NoError(t, err)

	assert.Empty(t, res.Trades)
	assert.Equal(t, orderbook.Cancelled, res.Status)
	assert.Equal(t, int64(5), e.Book().BestAsk().Qty, "resting order survives")
}

func TestSelfMatchCancelResting(t *testing.T) {
	e := New(Config{SelfMatch: SelfMatchCancelResting})
	_, err := e.Submit(SubmitParams{ID: 1, Owner: 7, Side: orderbook.Ask, Type: orderbook.Limit, Price: 100, Qty: 5})
	require.NoError(t, err)
	_, err = e.Submit(SubmitParams{ID: 2, Owner: 8, Side: orderbook.Ask, Type: orderbook.Limit, Price: 100, Qty: 5})
	require.NoError(t, err)

	res, err := e.Submit(SubmitParams{ID: 3, Owner: 7, Side: orderbook.Bid, Type: orderbook.Limit, Price: 100, Qty: 5})
	require.NoError(t, err)

	// Own order is pulled, then matching continues against the next maker.
	require.Len(t, res.Trades, 1)
	assert.Equal(t, uint64(2), res.Trades[0].MakerID)
	assert.False(t, e.Book().Contains(1))
}

func TestFOKCancelTakerIgnoresOwnLiquidity(t *testing.T) {
	e := New(Config{SelfMatch: SelfMatchCancelTaker})
	_, err := e.Submit(SubmitParams{ID: 1, Owner: 8, Side: orderbook.Ask, Type: orderbook.Limit, Price: 100, Qty: 5})
	require.NoError(t, err)
	_, err = e.Submit(SubmitParams{ID: 2, Owner: 7, Side: orderbook.Ask, Type: orderbook.Limit, Price: 100, Qty: 5})
	require.NoError(t, err)

	// 10 rest at 100 but half is owner 7's, which matching would stop at.
	// All-or-nothing means nothing: no partial print, book untouched.
	res, err := e.Submit(SubmitParams{ID: 3, Owner: 7, Side: orderbook.Bid, Type: orderbook.FOK, Price: 100, Qty: 10})
	require.NoError(t, err)

	assert.Empty(t, res.Trades)
	assert.Equal(t, orderbook.Cancelled, res.Status)
	assert.Equal(t, int64(10), res.Remaining)
	assert.Equal(t, int64(10), e.Book().BestAsk().Qty)
	assert.True(t, e.Book().Contains(1))
	assert.True(t, e.Book().Contains(2))
}

func TestFOKCancelTakerStopsAtOwnOrder(t *testing.T) {
	e := New(Config{SelfMatch: SelfMatchCancelTaker})
	_, err := e.Submit(SubmitParams{ID: 1, Owner: 7, Side: orderbook.Ask, Type: orderbook.Limit, Price: 100, Qty: 5})
	require.NoError(t, err)
	_, err = e.Submit(SubmitParams{ID: 2, Owner: 8, Side: orderbook.Ask, Type: orderbook.Limit, Price: 100, Qty: 5})
	require.NoError(t, err)

	// Owner 7's ask heads the queue, so nothing behind it is reachable.
	res, err := e.Submit(SubmitParams{ID: 3, Owner: 7, Side: orderbook.Bid, Type: orderbook.FOK, Price: 100, Qty: 5})
	require.NoError(t, err)

	assert.Empty(t, res.Trades)
	assert.Equal(t, orderbook.Cancelled, res.Status)
	assert.Equal(t, int64(10), e.Book().BestAsk().Qty)
}

func TestFOKCancelRestingSkipsOwnLiquidity(t *testing.T) {
	e := New(Config{SelfMatch: SelfMatchCancelResting})
	_, err := e.Submit(SubmitParams{ID: 1, Owner: 7, Side: orderbook.Ask, Type: orderbook.Limit, Price: 100, Qty: 5})
	require.NoError(t, err)
	_, err = e.Submit(SubmitParams{ID: 2, Owner: 8, Side: orderbook.Ask, Type: orderbook.Limit, Price: 100, Qty: 5})
	require.NoError(t, err)
	_, err = e.Submit(SubmitParams{ID: 3, Owner: 8, Side: orderbook.Ask, Type: orderbook.Limit, Price: 101, Qty: 5})
	require.NoError(t, err)

	// Owner 7's own ask doesn't count, but the two behind it cover the
	// order, so it fills fully and the own ask is pulled along the way.
	res, err := e.Submit(SubmitParams{ID: 4, Owner: 7, Side: orderbook.Bid, Type: orderbook.FOK, Price: 101, Qty: 10})
	require.NoError(t, err)

	require.Len(t, res.Trades, 2)
	assert.Equal(t, uint64(2), res.Trades[0].MakerID)
	assert.Equal(t, uint64(3), res.Trades[1].MakerID)
	assert.Equal(t, orderbook.Filled, res.Status)
	assert.False(t, e.Book().Contains(1))
}

func TestFOKCancelRestingInsufficientWithoutOwn(t *testing.T) {
	e := New(Config{SelfMatch: SelfMatchCancelResting})
	_, err := e.Submit(SubmitParams{ID: 1, Owner: 7, Side: orderbook.Ask, Type: orderbook.Limit, Price: 100, Qty: 5})
	require.NoError(t, err)
	_, err = e.Submit(SubmitParams{ID: 2, Owner: 8, Side: orderbook.Ask, Type: orderbook.Limit, Price: 100, Qty: 5})
	require.NoError(t, err)

	res, err := e.Submit(SubmitParams{ID: 3, Owner: 7, Side: orderbook.Bid, Type: orderbook.FOK, Price: 100, Qty: 10})
	require.NoError(t, err)

	assert.Empty(t, res.Trades)
	assert.Equal(t, orderbook.Cancelled, res.Status)
	assert.True(t, e.Book().Contains(1), "own ask survives a rejected dry-run")
}

func TestArrivalSequenceMonotonic(t *testing.T) {
	e := New(Config{})
	r1 := submit(t, e, 1, orderbook.Bid, orderbook.Limit, 100, 5)
	r2 := submit(t, e, 2, orderbook.Bid, orderbook.Limit, 99, 5)

	assert.Greater(t, r2.SeqID, r1.SeqID)
	assert.Equal(t, r2.SeqID, e.LastArrival())
}

func TestRestorePreservesSequence(t *testing.T) {
	e := New(Config{})
	err := e.Restore(orderbook.Order{
		ID: 1, Owner: 3, Side: orderbook.Bid, Type: orderbook.Limit,
		Price: 100, Qty: 10, Remaining: 6, SeqID: 41,
		Status: orderbook.PartiallyFilled,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(41), e.LastArrival())

	// New flow continues after the restored sequence.
	res := submit(t, e, 2, orderbook.Ask, orderbook.Limit, 100, 6)
	assert.Greater(t, res.SeqID, uint64(41))
	require.Len(t, res.Trades, 1)
	assert.Equal(t, uint64(1), res.Trades[0].MakerID)
}

func TestTradeSequenceMonotonic(t *testing.T) {
	e := New(Config{})
	submit(t, e, 1, orderbook.Ask, orderbook.Limit, 100, 2)
	submit(t, e, 2, orderbook.Ask, orderbook.Limit, 100, 2)
	res := submit(t, e, 3, orderbook.Bid, orderbook.Limit, 100, 4)

	require.Len(t, res.Trades, 2)
	assert.Greater(t, res.Trades[1].Seq, res.Trades[0].Seq)
}

func TestResumeTradeSequence(t *testing.T) {
	e := New(Config{})
	e.ResumeTradeSequence(9)
	assert.Equal(t, uint64(9), e.LastTrade())

	submit(t, e, 1, orderbook.Ask, orderbook.Limit, 100, 5)
	res := submit(t, e, 2, orderbook.Bid, orderbook.Limit, 100, 5)

	require.Len(t, res.Trades, 1)
	assert.Equal(t, uint64(10), res.Trades[0].Seq)
	assert.Equal(t, uint64(10), e.LastTrade())
}

func TestHighestOrderIDCoversFinalizedOrders(t *testing.T) {
	e := New(Config{})
	submit(t, e, 5, orderbook.Ask, orderbook.Limit, 100, 5)
	submit(t, e, 9, orderbook.Bid, orderbook.Limit, 100, 5)

	// Both orders are gone from the book, yet their ids stay burned.
	assert.Equal(t, 0, e.Book().Len())
	assert.Equal(t, uint64(9), e.HighestOrderID())

	e.ResumeOrderIDs(20)
	assert.Equal(t, uint64(20), e.HighestOrderID())
	e.ResumeOrderIDs(3)
	assert.Equal(t, uint64(20), e.HighestOrderID(), "never lowers the mark")
}
