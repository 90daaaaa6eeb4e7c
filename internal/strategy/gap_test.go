package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memduhb/orderbook-strategy/internal/schema"
)

// fakeBook is a scripted BookView.
type fakeBook struct {
	open   bool
	hasTop bool
	bid    schema.Price
	bidQty schema.Quantity
	ask    schema.Price
	askQty schema.Quantity
	lastPx schema.Price
}

func (f fakeBook) TradingOpen() bool                        { return f.open }
func (f fakeBook) HasTop() bool                             { return f.hasTop }
func (f fakeBook) BestBid() (schema.Price, schema.Quantity) { return f.bid, f.bidQty }
func (f fakeBook) BestAsk() (schema.Price, schema.Quantity) { return f.ask, f.askQty }
func (f fakeBook) LastTradePrice() schema.Price             { return f.lastPx }

func top(bid, ask schema.Price) fakeBook {
	return fakeBook{open: true, hasTop: true, bid: bid, bidQty: 100, ask: ask, askQty: 100}
}

func dummyBatch(ns schema.Nanos) []schema.Event {
	return []schema.Event{schema.AddOrder{Timestamp: ns, BookID: 7, OrderID: 1, Side: schema.SideBuy, Price: 100, Quantity: 10}}
}

func closeBatch(ns schema.Nanos) []schema.Event {
	return []schema.Event{schema.StateChange{Timestamp: ns, BookID: 7, State: schema.StateMarketClose}}
}

func newGap(t *testing.T, cfg Config) (*Gap, *[]Trade) {
	t.Helper()
	trades := &[]Trade{}
	if cfg.OnTrade == nil {
		cfg.OnTrade = func(tr Trade) { *trades = append(*trades, tr) }
	}
	if cfg.TargetBook == 0 {
		cfg.TargetBook = 7
	}
	return New(cfg, nil), trades
}

func TestGapBuysWhenAskVanishes(t *testing.T) {
	g, trades := newGap(t, Config{OrderQty: 100, MaxPosition: 1000, MinPosition: -1000, Tick: 10})

	g.OnBatch(1000, top(100, 110), dummyBatch(1000))
	g.OnBatch(2000, top(100, 120), dummyBatch(2000))

	require.Len(t, *trades, 1)
	tr := (*trades)[0]
	assert.Equal(t, schema.SideBuy, tr.Side)
	assert.Equal(t, schema.Price(110), tr.Price)
	assert.Equal(t, int64(100), tr.Quantity)
	assert.Equal(t, int64(100), g.Position())
	assert.Equal(t, int64(-11000), g.RealizedPnL())
}

func TestGapSellsWhenBidVanishes(t *testing.T) {
	g, trades := newGap(t, Config{OrderQty: 100, MaxPosition: 1000, MinPosition: -1000, Tick: 10})

	g.OnBatch(1000, top(100, 110), dummyBatch(1000))
	g.OnBatch(2000, top(90, 110), dummyBatch(2000))

	require.Len(t, *trades, 1)
	tr := (*trades)[0]
	assert.Equal(t, schema.SideSell, tr.Side)
	assert.Equal(t, schema.Price(100), tr.Price)
	assert.Equal(t, int64(-100), g.Position())
	assert.Equal(t, int64(10000), g.RealizedPnL())
}

func TestGapRequiresExactSpreads(t *testing.T) {
	g, trades := newGap(t, Config{OrderQty: 100, MaxPosition: 1000, MinPosition: -1000, Tick: 10})

	// Previous spread two ticks: no trade even if it widens.
	g.OnBatch(1000, top(100, 120), dummyBatch(1000))
	g.OnBatch(2000, top(100, 130), dummyBatch(2000))
	assert.Empty(t, *trades)

	// Tight to three ticks: no trade.
	g.OnBatch(3000, top(100, 110), dummyBatch(3000))
	g.OnBatch(4000, top(100, 140), dummyBatch(4000))
	assert.Empty(t, *trades)
}

func TestGapIgnoresAmbiguousMove(t *testing.T) {
	g, trades := newGap(t, Config{OrderQty: 100, MaxPosition: 1000, MinPosition: -1000, Tick: 10})

	// Both sides moved half a tick each; spread went one tick to two ticks
	// but neither single-side pattern matches.
	g.OnBatch(1000, top(100, 110), dummyBatch(1000))
	g.OnBatch(2000, top(95, 115), dummyBatch(2000))
	assert.Empty(t, *trades)
}

func TestGapPositionLimitCapsAndBlocks(t *testing.T) {
	g, trades := newGap(t, Config{OrderQty: 100, MaxPosition: 150, MinPosition: 0, Tick: 10})

	g.OnBatch(1000, top(100, 110), dummyBatch(1000))
	g.OnBatch(2000, top(100, 120), dummyBatch(2000))
	require.Len(t, *trades, 1)
	assert.Equal(t, int64(100), g.Position())

	// Headroom is 50: the next fill is clipped.
	g.OnBatch(3000, top(100, 110), dummyBatch(3000))
	g.OnBatch(4000, top(100, 120), dummyBatch(4000))
	require.Len(t, *trades, 2)
	assert.Equal(t, int64(50), (*trades)[1].Quantity)
	assert.Equal(t, int64(150), g.Position())

	// No headroom left: blocked entirely.
	g.OnBatch(5000, top(100, 110), dummyBatch(5000))
	g.OnBatch(6000, top(100, 120), dummyBatch(6000))
	assert.Len(t, *trades, 2)
	assert.Equal(t, int64(150), g.Position())
}

func TestGapSellBlockedAtMinPosition(t *testing.T) {
	g, trades := newGap(t, Config{OrderQty: 100, MaxPosition: 1000, MinPosition: 0, Tick: 10})

	g.OnBatch(1000, top(100, 110), dummyBatch(1000))
	g.OnBatch(2000, top(90, 110), dummyBatch(2000))

	assert.Empty(t, *trades)
	assert.Zero(t, g.Position())
}

func TestGapSettlesOnMarketClose(t *testing.T) {
	g, trades := newGap(t, Config{OrderQty: 100, MaxPosition: 1000, MinPosition: -1000, Tick: 10})

	g.OnBatch(1000, top(100, 110), dummyBatch(1000))
	g.OnBatch(2000, top(100, 120), dummyBatch(2000))
	require.Len(t, *trades, 1)
	require.Equal(t, int64(100), g.Position())

	book := top(100, 120)
	book.lastPx = 115
	g.OnBatch(3000, book, closeBatch(3000))

	assert.True(t, g.DayClosed())
	// -11000 from the buy, +100*115 settlement.
	assert.Equal(t, int64(500), g.RealizedPnL())
	assert.Equal(t, int64(100), g.Position())

	// Everything after the close is ignored.
	g.OnBatch(4000, top(100, 110), dummyBatch(4000))
	g.OnBatch(5000, top(100, 120), dummyBatch(5000))
	assert.Len(t, *trades, 1)
}

func TestGapSettleWithoutLastPrice(t *testing.T) {
	g, _ := newGap(t, Config{OrderQty: 100, MaxPosition: 1000, MinPosition: -1000, Tick: 10})

	g.OnBatch(1000, top(100, 110), dummyBatch(1000))
	g.OnBatch(2000, top(100, 120), dummyBatch(2000))
	pnlBefore := g.RealizedPnL()

	g.OnBatch(3000, top(100, 120), closeBatch(3000))

	assert.True(t, g.DayClosed())
	assert.Equal(t, pnlBefore, g.RealizedPnL())
}

func TestGapBaselineSurvivesHaltedBatches(t *testing.T) {
	g, trades := newGap(t, Config{OrderQty: 100, MaxPosition: 1000, MinPosition: -1000, Tick: 10})

	g.OnBatch(1000, top(100, 110), dummyBatch(1000))

	// Trading halted and an empty top: neither touches the baseline.
	halted := top(100, 200)
	halted.open = false
	g.OnBatch(2000, halted, dummyBatch(2000))

	noTop := fakeBook{open: true}
	g.OnBatch(3000, noTop, dummyBatch(3000))

	// The gap is still measured against the batch at ns=1000.
	g.OnBatch(4000, top(100, 120), dummyBatch(4000))
	require.Len(t, *trades, 1)
	assert.Equal(t, schema.Price(110), (*trades)[0].Price)
}

func TestGapEmptyBatchIsIgnored(t *testing.T) {
	g, trades := newGap(t, Config{OrderQty: 100, MaxPosition: 1000, MinPosition: -1000, Tick: 10})

	g.OnBatch(1000, top(100, 110), dummyBatch(1000))
	g.OnBatch(2000, top(100, 120), nil)

	// The empty batch did not move the baseline, so the widening is still
	// visible one batch later.
	g.OnBatch(3000, top(100, 120), dummyBatch(3000))
	require.Len(t, *trades, 1)
	assert.Equal(t, schema.Price(110), (*trades)[0].Price)
}

func TestGapFirstSnapshotNeverTrades(t *testing.T) {
	g, trades := newGap(t, Config{OrderQty: 100, MaxPosition: 1000, MinPosition: -1000, Tick: 10})
	g.OnBatch(1000, top(100, 120), dummyBatch(1000))
	assert.Empty(t, *trades)
}

func TestGapInvalidConfigRunsInert(t *testing.T) {
	g, trades := newGap(t, Config{OrderQty: 0, MaxPosition: 0, MinPosition: 0, Tick: 10})

	g.OnBatch(1000, top(100, 110), dummyBatch(1000))
	g.OnBatch(2000, top(100, 120), dummyBatch(2000))

	assert.Empty(t, *trades)
	assert.Zero(t, g.Position())
	assert.Zero(t, g.RealizedPnL())
}

func TestGapDefaultTick(t *testing.T) {
	g, trades := newGap(t, Config{OrderQty: 100, MaxPosition: 1000, MinPosition: -1000})

	g.OnBatch(1000, top(100, 110), dummyBatch(1000))
	g.OnBatch(2000, top(100, 120), dummyBatch(2000))

	assert.Len(t, *trades, 1)
}
