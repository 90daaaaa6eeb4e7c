// Package strategy implements the one-tick liquidity-gap trading rule.
//
// The strategy watches top-of-book transitions between consecutive
// same-timestamp batches. When a tight (one tick) spread widens to exactly
// two ticks because one side's best level vanished, it trades at the
// vanished price, within position limits. It never mutates the book; it only
// reads it and maintains its own position and realized P&L.
package strategy

import (
	"github.com/memduhb/orderbook-strategy/internal/obs"
	"github.com/memduhb/orderbook-strategy/internal/schema"
)

// defaultTick is the minimum price increment in minor currency units.
const defaultTick = schema.Price(10)

// BookView is the read-only query surface the strategy needs from the book.
type BookView interface {
	TradingOpen() bool
	HasTop() bool
	BestBid() (schema.Price, schema.Quantity)
	BestAsk() (schema.Price, schema.Quantity)
	LastTradePrice() schema.Price
}

// Trade is one simulated fill, reported through Config.OnTrade. This is
// inventory and cash accounting, not an order submission.
type Trade struct {
	Timestamp schema.Nanos
	Side      schema.Side
	Price     schema.Price
	Quantity  int64
	Position  int64
	PnL       int64
}

// Config fixes the strategy's instrument and limits for the whole run.
type Config struct {
	TargetBook  schema.BookID
	OrderQty    int64
	MaxPosition int64 // maximum long position
	MinPosition int64 // most negative (or zero) position
	Tick        schema.Price

	// OnTrade, when set, observes every fill.
	OnTrade func(Trade)
}

// Gap is the strategy state machine. Construct once per run; terminal once
// the day closes.
type Gap struct {
	cfg  Config
	sink obs.Sink

	position int64
	pnl      int64

	prevBid  schema.Price
	prevAsk  schema.Price
	havePrev bool

	dayClosed bool
}

// New validates cfg and builds the strategy. Invalid parameters are reported
// but do not fail construction; with a zero order size or inverted limits
// the strategy simply never fills anything.
func New(cfg Config, sink obs.Sink) *Gap {
	if sink == nil {
		sink = obs.Nop()
	}
	if cfg.Tick == 0 {
		cfg.Tick = defaultTick
	}
	if cfg.TargetBook == 0 {
		sink.Errorf("strategy: target book is zero")
	}
	if cfg.OrderQty == 0 {
		sink.Errorf("strategy: order quantity is zero")
	}
	if cfg.MaxPosition <= cfg.MinPosition {
		sink.Errorf("strategy: position limits inverted (max %d <= min %d)", cfg.MaxPosition, cfg.MinPosition)
	}
	return &Gap{cfg: cfg, sink: sink}
}

// OnBatch runs the gap rule against the book state left by one fully applied
// same-timestamp batch. The batch must already be filtered to the target
// instrument and applied to the book in arrival order.
func (g *Gap) OnBatch(ns schema.Nanos, book BookView, batch []schema.Event) {
	if g.dayClosed {
		g.sink.Debugf("strategy: ns=%d skip: day closed", ns)
		return
	}
	if len(batch) == 0 {
		g.sink.Debugf("strategy: ns=%d skip: empty batch", ns)
		return
	}

	// A market-close label anywhere in the batch ends the day; the previous
	// snapshot is deliberately not updated afterwards.
	for _, ev := range batch {
		if st, ok := ev.(schema.StateChange); ok && st.State == schema.StateMarketClose {
			g.sink.Debugf("strategy: ns=%d market close, settling", ns)
			g.settle(book)
			return
		}
	}

	// Conditions below return without touching the previous snapshot so the
	// next batch compares against the same baseline once conditions recover.
	if !book.TradingOpen() {
		g.sink.Debugf("strategy: ns=%d skip: trading not open", ns)
		return
	}
	if !book.HasTop() {
		g.sink.Debugf("strategy: ns=%d skip: no top-of-book", ns)
		return
	}

	currBid, _ := book.BestBid()
	currAsk, _ := book.BestAsk()
	currSpread := int64(currAsk) - int64(currBid)

	if g.havePrev {
		g.evaluate(ns, currBid, currAsk, currSpread)
	} else {
		g.sink.Debugf("strategy: ns=%d first snapshot", ns)
	}

	// Gap detection is always relative to the immediately preceding batch,
	// never an older baseline.
	g.prevBid = currBid
	g.prevAsk = currAsk
	g.havePrev = true
}

// evaluate fires a trade iff the spread was exactly one tick and is now
// exactly two, with exactly one side having moved one tick.
func (g *Gap) evaluate(ns schema.Nanos, currBid, currAsk schema.Price, currSpread int64) {
	tick := int64(g.cfg.Tick)
	prevSpread := int64(g.prevAsk) - int64(g.prevBid)
	if prevSpread != tick || currSpread != 2*tick {
		g.sink.Debugf("strategy: ns=%d skip: prev not tight or curr not gap", ns)
		return
	}

	switch {
	case currBid == g.prevBid && int64(currAsk)-int64(g.prevAsk) == tick:
		// Best ask vanished; buy at the price that disappeared.
		g.tryBuy(ns, g.prevAsk)
	case currAsk == g.prevAsk && int64(g.prevBid)-int64(currBid) == tick:
		// Best bid vanished; sell at the price that disappeared.
		g.trySell(ns, g.prevBid)
	default:
		g.sink.Debugf("strategy: ns=%d skip: ambiguous move", ns)
	}
}

func (g *Gap) tryBuy(ns schema.Nanos, price schema.Price) bool {
	headroom := g.cfg.MaxPosition - g.position
	if headroom <= 0 {
		g.sink.Warnf("strategy: buy blocked, max position %d reached", g.cfg.MaxPosition)
		return false
	}
	qty := min(g.cfg.OrderQty, headroom)
	if qty <= 0 {
		return false
	}
	g.pnl -= qty * int64(price)
	g.position += qty
	g.fill(Trade{Timestamp: ns, Side: schema.SideBuy, Price: price, Quantity: qty, Position: g.position, PnL: g.pnl})
	return true
}

func (g *Gap) trySell(ns schema.Nanos, price schema.Price) bool {
	headroom := g.position - g.cfg.MinPosition
	if headroom <= 0 {
		g.sink.Warnf("strategy: sell blocked, min position %d reached", g.cfg.MinPosition)
		return false
	}
	qty := min(g.cfg.OrderQty, headroom)
	if qty <= 0 {
		return false
	}
	g.pnl += qty * int64(price)
	g.position -= qty
	g.fill(Trade{Timestamp: ns, Side: schema.SideSell, Price: price, Quantity: qty, Position: g.position, PnL: g.pnl})
	return true
}

func (g *Gap) fill(t Trade) {
	g.sink.Infof("strategy: %s %d @ %d pos=%d pnl=%d", t.Side, t.Quantity, t.Price, t.Position, t.PnL)
	if g.cfg.OnTrade != nil {
		g.cfg.OnTrade(t)
	}
}

// settle marks any open position to the last trade price and closes the day.
// The closed flag is set even when there is nothing to settle.
func (g *Gap) settle(book BookView) {
	last := book.LastTradePrice()
	if last != 0 && g.position != 0 {
		g.pnl += g.position * int64(last)
	}
	g.sink.Infof("strategy: day closed last_px=%d pos=%d pnl=%d", last, g.position, g.pnl)
	g.dayClosed = true
}

// Position returns the current signed position.
func (g *Gap) Position() int64 { return g.position }

// RealizedPnL returns the cumulative realized P&L in minor currency units.
func (g *Gap) RealizedPnL() int64 { return g.pnl }

// DayClosed reports whether end-of-day settlement has run.
func (g *Gap) DayClosed() bool { return g.dayClosed }
