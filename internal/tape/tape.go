// Package tape renders events, snapshots and trades for human inspection.
// It only reads core state; it never mutates it.
package tape

import (
	"io"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/memduhb/orderbook-strategy/internal/book"
	"github.com/memduhb/orderbook-strategy/internal/schema"
	"github.com/memduhb/orderbook-strategy/internal/strategy"
)

// minorPerMajor converts realized P&L from minor currency units to the
// display currency.
const minorPerMajor = 1000

// Printer formats lines into a single writer. Not safe for concurrent use.
type Printer struct {
	w   io.Writer
	buf []byte
}

// New builds a printer over w.
func New(w io.Writer) *Printer {
	return &Printer{w: w, buf: make([]byte, 0, 256)}
}

// Event prints a one-line trace of a decoded event.
func (p *Printer) Event(ev schema.Event) {
	if p == nil {
		return
	}
	buf := p.buf[:0]
	buf = append(buf, "[MSG] ns="...)
	buf = strconv.AppendUint(buf, uint64(ev.Nanos()), 10)
	buf = append(buf, " type="...)
	buf = append(buf, ev.Kind().String()...)

	switch ev := ev.(type) {
	case schema.StateChange:
		buf = append(buf, " book="...)
		buf = strconv.AppendUint(buf, uint64(ev.BookID), 10)
		buf = append(buf, " state="...)
		buf = append(buf, ev.State...)
	case schema.AddOrder:
		buf = append(buf, " id="...)
		buf = strconv.AppendUint(buf, ev.OrderID, 10)
		buf = append(buf, " side="...)
		buf = append(buf, ev.Side.String()...)
		buf = append(buf, " qty="...)
		buf = strconv.AppendUint(buf, ev.Quantity, 10)
		buf = append(buf, " px="...)
		buf = strconv.AppendUint(buf, uint64(ev.Price), 10)
	case schema.Execute:
		buf = append(buf, " id="...)
		buf = strconv.AppendUint(buf, ev.OrderID, 10)
		buf = append(buf, " side="...)
		buf = append(buf, ev.Side.String()...)
		buf = append(buf, " qty="...)
		buf = strconv.AppendUint(buf, ev.Quantity, 10)
	case schema.Delete:
		buf = append(buf, " id="...)
		buf = strconv.AppendUint(buf, ev.OrderID, 10)
		buf = append(buf, " side="...)
		buf = append(buf, ev.Side.String()...)
	}
	buf = append(buf, '\n')
	p.flush(buf)
}

// Snapshot prints up to depth levels per side plus the best prices.
func (p *Printer) Snapshot(eng *book.Engine, depth int, ns schema.Nanos) {
	if p == nil {
		return
	}
	bids, asks := eng.Snapshot(depth)

	buf := p.buf[:0]
	buf = append(buf, "---- SNAPSHOT ns="...)
	buf = strconv.AppendUint(buf, uint64(ns), 10)
	buf = append(buf, " open="...)
	if eng.TradingOpen() {
		buf = append(buf, 'Y')
	} else {
		buf = append(buf, 'N')
	}
	buf = append(buf, " ----\n"...)
	buf = appendSide(buf, "BIDS", bids)
	buf = appendSide(buf, "ASKS", asks)

	if eng.HasTop() {
		bidPx, bidQty := eng.BestBid()
		askPx, askQty := eng.BestAsk()
		buf = append(buf, "BEST: bid "...)
		buf = appendLevel(buf, bidPx, bidQty)
		buf = append(buf, " | ask "...)
		buf = appendLevel(buf, askPx, askQty)
		buf = append(buf, " | spread="...)
		buf = strconv.AppendInt(buf, int64(askPx)-int64(bidPx), 10)
		buf = append(buf, '\n')
	}
	p.flush(buf)
}

// Trade prints one strategy fill.
func (p *Printer) Trade(t strategy.Trade) {
	if p == nil {
		return
	}
	buf := p.buf[:0]
	buf = append(buf, "[TRADE] "...)
	if t.Side == schema.SideBuy {
		buf = append(buf, "BUY  "...)
	} else {
		buf = append(buf, "SELL "...)
	}
	buf = strconv.AppendInt(buf, t.Quantity, 10)
	buf = append(buf, " @ "...)
	buf = strconv.AppendUint(buf, uint64(t.Price), 10)
	buf = append(buf, " pos="...)
	buf = strconv.AppendInt(buf, t.Position, 10)
	buf = append(buf, " pnl="...)
	buf = strconv.AppendInt(buf, t.PnL, 10)
	buf = append(buf, '\n')
	p.flush(buf)
}

// Summary prints the end-of-run line, with P&L converted to major units.
func (p *Printer) Summary(batches, events uint64, position, pnl int64, lastPx schema.Price) {
	if p == nil {
		return
	}
	major := decimal.NewFromInt(pnl).Div(decimal.NewFromInt(minorPerMajor))

	buf := p.buf[:0]
	buf = append(buf, "[FINAL] batches="...)
	buf = strconv.AppendUint(buf, batches, 10)
	buf = append(buf, " msgs="...)
	buf = strconv.AppendUint(buf, events, 10)
	buf = append(buf, " pos="...)
	buf = strconv.AppendInt(buf, position, 10)
	buf = append(buf, " last_px="...)
	buf = strconv.AppendUint(buf, uint64(lastPx), 10)
	buf = append(buf, " pnl="...)
	buf = strconv.AppendInt(buf, pnl, 10)
	buf = append(buf, " ("...)
	buf = append(buf, major.StringFixed(2)...)
	buf = append(buf, " TL)\n"...)
	p.flush(buf)
}

func appendSide(buf []byte, name string, levels []book.Level) []byte {
	buf = append(buf, name...)
	buf = append(buf, " (price, qty):\n"...)
	if len(levels) == 0 {
		buf = append(buf, "  (none)\n"...)
		return buf
	}
	for i, lvl := range levels {
		buf = append(buf, "  ["...)
		buf = strconv.AppendInt(buf, int64(i), 10)
		buf = append(buf, "] "...)
		buf = strconv.AppendUint(buf, uint64(lvl.Price), 10)
		buf = append(buf, ", "...)
		buf = strconv.AppendUint(buf, lvl.Quantity, 10)
		buf = append(buf, '\n')
	}
	return buf
}

func appendLevel(buf []byte, px schema.Price, qty schema.Quantity) []byte {
	buf = strconv.AppendUint(buf, uint64(px), 10)
	buf = append(buf, " x "...)
	buf = strconv.AppendUint(buf, qty, 10)
	return buf
}

func (p *Printer) flush(buf []byte) {
	p.buf = buf[:0]
	_, _ = p.w.Write(buf)
}
