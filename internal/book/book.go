// Package book maintains a single instrument's limit order book from a
// stream of decoded feed events.
package book

import (
	"github.com/memduhb/orderbook-strategy/internal/obs"
	"github.com/memduhb/orderbook-strategy/internal/schema"
)

// defaultMaxExecQty is the execute-quantity sanity ceiling. It is a policy
// guess, not a venue rule; override it through Config when the instrument's
// scale demands it.
const defaultMaxExecQty = schema.Quantity(1_000_000_000)

// Config tunes the engine's anomaly policy.
type Config struct {
	// MaxExecQty rejects executions above this quantity as corrupt.
	// Zero selects the default ceiling.
	MaxExecQty schema.Quantity
}

// Engine is the authoritative book state for one instrument. It is not safe
// for concurrent use; the apply path owns it exclusively.
type Engine struct {
	cfg  Config
	sink obs.Sink

	arena arena
	bids  ladder
	asks  ladder
	index map[schema.OrderID]int32

	tradingOpen    bool
	lastTradePrice schema.Price

	warnings uint64
}

// NewEngine creates an empty book. A nil sink discards diagnostics.
func NewEngine(cfg Config, sink obs.Sink) *Engine {
	if cfg.MaxExecQty == 0 {
		cfg.MaxExecQty = defaultMaxExecQty
	}
	if sink == nil {
		sink = obs.Nop()
	}
	return &Engine{
		cfg:   cfg,
		sink:  sink,
		bids:  newBidLadder(),
		asks:  newAskLadder(),
		index: make(map[schema.OrderID]int32),
	}
}

// Apply folds one event into the book. Malformed or inconsistent events are
// reported and ignored; Apply never fails and never leaves the book in a
// state violating its invariants.
func (e *Engine) Apply(ev schema.Event) {
	switch ev := ev.(type) {
	case schema.StateChange:
		e.applyState(ev)
	case schema.AddOrder:
		e.applyAdd(ev)
	case schema.Execute:
		e.applyExecute(ev)
	case schema.Delete:
		e.applyDelete(ev)
	}
}

func (e *Engine) applyState(ev schema.StateChange) {
	e.tradingOpen = ev.State == schema.StateContinuousTrading
}

func (e *Engine) applyAdd(ev schema.AddOrder) {
	if ev.Quantity == 0 || ev.Price == 0 {
		e.warn("book: add with zero qty/price id=%d qty=%d px=%d", ev.OrderID, ev.Quantity, ev.Price)
	}
	if _, exists := e.index[ev.OrderID]; exists {
		// The feed should never reuse a live id. Keep the overwrite so a
		// replay of a real tape behaves identically either way.
		e.warn("book: add for live order id=%d, index entry overwritten", ev.OrderID)
	}

	slot := e.arena.alloc(Order{
		ID:          ev.OrderID,
		Side:        ev.Side,
		Price:       ev.Price,
		Remaining:   ev.Quantity,
		RankingTime: ev.RankingTime,
		RankingSeq:  ev.RankingSeq,
	})
	level := e.ladderFor(ev.Side).levelFor(ev.Price)
	e.enqueue(level, slot)
	level.Aggregate += ev.Quantity
	level.Count++
	e.index[ev.OrderID] = slot
}

func (e *Engine) applyExecute(ev schema.Execute) {
	slot, ok := e.index[ev.OrderID]
	if !ok {
		e.warn("book: exec for unknown order id=%d qty=%d", ev.OrderID, ev.Quantity)
		return
	}
	if ev.Quantity == 0 || ev.Quantity > e.cfg.MaxExecQty {
		e.warn("book: exec suspicious qty id=%d qty=%d", ev.OrderID, ev.Quantity)
		return
	}

	order := e.arena.at(slot)
	level := e.ladderFor(order.Side).find(order.Price)
	if level == nil {
		e.warn("book: exec for order id=%d with no level at px=%d", ev.OrderID, order.Price)
		return
	}

	// The decoded wire subset carries no execution price; fall back to the
	// resting order's price. Callers needing a verified trade tape must
	// treat this as an approximation.
	price := ev.Price
	if price == 0 {
		price = order.Price
	}
	e.lastTradePrice = price

	if ev.Quantity >= order.Remaining {
		e.remove(level, slot, order)
		return
	}
	order.Remaining -= ev.Quantity
	level.Aggregate -= ev.Quantity
}

func (e *Engine) applyDelete(ev schema.Delete) {
	slot, ok := e.index[ev.OrderID]
	if !ok {
		e.warn("book: delete for unknown order id=%d", ev.OrderID)
		return
	}
	order := e.arena.at(slot)
	level := e.ladderFor(order.Side).find(order.Price)
	if level == nil {
		e.warn("book: delete for order id=%d with no level at px=%d", ev.OrderID, order.Price)
		return
	}
	e.remove(level, slot, order)
}

// remove takes an order out of its level entirely and prunes the level if it
// drained.
func (e *Engine) remove(level *PriceLevel, slot int32, order *Order) {
	level.Aggregate -= order.Remaining
	level.Count--
	e.unlink(level, slot)
	delete(e.index, order.ID)

	side, price := order.Side, order.Price
	e.arena.release(slot)
	e.ladderFor(side).pruneIfEmpty(price)
}

func (e *Engine) ladderFor(side schema.Side) *ladder {
	if side == schema.SideBuy {
		return &e.bids
	}
	return &e.asks
}

// enqueue inserts slot into the level's chain before the first order whose
// ranking key is strictly greater, keeping ascending (time, seq) order.
func (e *Engine) enqueue(level *PriceLevel, slot int32) {
	order := e.arena.at(slot)
	for at := level.head; at != noSlot; at = e.arena.at(at).next {
		if order.ranksBefore(e.arena.at(at)) {
			e.linkBefore(level, slot, at)
			return
		}
	}
	e.linkTail(level, slot)
}

func (e *Engine) linkBefore(level *PriceLevel, slot, at int32) {
	order, succ := e.arena.at(slot), e.arena.at(at)
	order.next = at
	order.prev = succ.prev
	if succ.prev != noSlot {
		e.arena.at(succ.prev).next = slot
	} else {
		level.head = slot
	}
	succ.prev = slot
}

func (e *Engine) linkTail(level *PriceLevel, slot int32) {
	order := e.arena.at(slot)
	order.prev = level.tail
	order.next = noSlot
	if level.tail != noSlot {
		e.arena.at(level.tail).next = slot
	} else {
		level.head = slot
	}
	level.tail = slot
}

func (e *Engine) unlink(level *PriceLevel, slot int32) {
	order := e.arena.at(slot)
	if order.prev != noSlot {
		e.arena.at(order.prev).next = order.next
	} else {
		level.head = order.next
	}
	if order.next != noSlot {
		e.arena.at(order.next).prev = order.prev
	} else {
		level.tail = order.prev
	}
}

func (e *Engine) warn(format string, args ...any) {
	e.warnings++
	e.sink.Warnf(format, args...)
}

// TradingOpen reports whether the book saw a continuous-trading state label
// more recently than any other label.
func (e *Engine) TradingOpen() bool { return e.tradingOpen }

// HasTop reports whether both sides have at least one level.
func (e *Engine) HasTop() bool {
	return len(e.bids.levels) > 0 && len(e.asks.levels) > 0
}

// BestBid returns the highest bid price and its aggregate quantity, or
// zeros if the bid side is empty.
func (e *Engine) BestBid() (schema.Price, schema.Quantity) {
	if level := e.bids.best(); level != nil {
		return level.Price, level.Aggregate
	}
	return 0, 0
}

// BestAsk returns the lowest ask price and its aggregate quantity, or zeros
// if the ask side is empty.
func (e *Engine) BestAsk() (schema.Price, schema.Quantity) {
	if level := e.asks.best(); level != nil {
		return level.Price, level.Aggregate
	}
	return 0, 0
}

// LastTradePrice returns the price of the most recent execution, zero before
// the first one. When the feed omits the execution price this is the resting
// order's price, an approximation rather than a verified tape price.
func (e *Engine) LastTradePrice() schema.Price { return e.lastTradePrice }

// OrderCount returns the number of live orders.
func (e *Engine) OrderCount() int { return e.arena.live() }

// Warnings returns how many anomalies the engine has reported.
func (e *Engine) Warnings() uint64 { return e.warnings }

// Snapshot returns up to n non-empty levels per side, bids best-first then
// asks best-first. It does not mutate state.
func (e *Engine) Snapshot(n int) (bids, asks []Level) {
	bids = e.bids.snapshot(n, make([]Level, 0, n))
	asks = e.asks.snapshot(n, make([]Level, 0, n))
	return bids, asks
}
