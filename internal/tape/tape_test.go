package tape

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memduhb/orderbook-strategy/internal/book"
	"github.com/memduhb/orderbook-strategy/internal/schema"
	"github.com/memduhb/orderbook-strategy/internal/strategy"
)

func TestEventLines(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf)

	p.Event(schema.StateChange{Timestamp: 100, BookID: 7, State: "P_SUREKLI_ISLEM"})
	p.Event(schema.AddOrder{Timestamp: 200, BookID: 7, OrderID: 11, Side: schema.SideBuy, Price: 1000, Quantity: 500})
	p.Event(schema.Execute{Timestamp: 300, BookID: 7, OrderID: 11, Side: schema.SideBuy, Quantity: 200})
	p.Event(schema.Delete{Timestamp: 400, BookID: 7, OrderID: 11, Side: schema.SideBuy})

	out := buf.String()
	assert.Contains(t, out, "[MSG] ns=100 type=STATE book=7 state=P_SUREKLI_ISLEM")
	assert.Contains(t, out, "[MSG] ns=200 type=ADD id=11 side=B qty=500 px=1000")
	assert.Contains(t, out, "[MSG] ns=300 type=EXEC id=11 side=B qty=200")
	assert.Contains(t, out, "[MSG] ns=400 type=DEL id=11 side=B")
}

func TestSnapshotRendersTopLevels(t *testing.T) {
	eng := book.NewEngine(book.Config{}, nil)
	eng.Apply(schema.StateChange{Timestamp: 1, BookID: 7, State: schema.StateContinuousTrading})
	eng.Apply(schema.AddOrder{Timestamp: 1, BookID: 7, OrderID: 1, Side: schema.SideBuy, Price: 100, Quantity: 500, RankingTime: 1})
	eng.Apply(schema.AddOrder{Timestamp: 1, BookID: 7, OrderID: 2, Side: schema.SideSell, Price: 110, Quantity: 300, RankingTime: 2})

	var buf bytes.Buffer
	New(&buf).Snapshot(eng, 3, 1000)

	out := buf.String()
	assert.Contains(t, out, "---- SNAPSHOT ns=1000 open=Y ----")
	assert.Contains(t, out, "BIDS (price, qty):\n  [0] 100, 500")
	assert.Contains(t, out, "ASKS (price, qty):\n  [0] 110, 300")
	assert.Contains(t, out, "BEST: bid 100 x 500 | ask 110 x 300 | spread=10")
}

func TestSnapshotEmptySides(t *testing.T) {
	eng := book.NewEngine(book.Config{}, nil)

	var buf bytes.Buffer
	New(&buf).Snapshot(eng, 3, 50)

	out := buf.String()
	assert.Contains(t, out, "open=N")
	assert.Contains(t, out, "(none)")
	assert.NotContains(t, out, "BEST:")
}

func TestTradeLine(t *testing.T) {
	var buf bytes.Buffer
	New(&buf).Trade(strategy.Trade{
		Timestamp: 2000,
		Side:      schema.SideSell,
		Price:     100,
		Quantity:  100,
		Position:  -100,
		PnL:       10000,
	})
	assert.Equal(t, "[TRADE] SELL 100 @ 100 pos=-100 pnl=10000\n", buf.String())
}

func TestSummaryConvertsPnLToMajorUnits(t *testing.T) {
	var buf bytes.Buffer
	New(&buf).Summary(12, 340, -100, -11500, 110)

	out := buf.String()
	require.Contains(t, out, "[FINAL] batches=12 msgs=340 pos=-100 last_px=110 pnl=-11500")
	assert.Contains(t, out, "(-11.50 TL)")
}
