package book

import (
	"sort"

	"github.com/memduhb/orderbook-strategy/internal/schema"
)

// PriceLevel aggregates all resting orders at one price. head/tail chain the
// orders through the arena in time-priority order.
type PriceLevel struct {
	Price     schema.Price
	Aggregate schema.Quantity
	Count     uint32

	head, tail int32
}

// Level is one (price, aggregate) pair of a snapshot.
type Level struct {
	Price    schema.Price
	Quantity schema.Quantity
}

// ladder is one side of the book: price levels kept best-first. The same
// implementation serves both sides; only the comparison direction differs
// (bids descending, asks ascending).
type ladder struct {
	levels []*PriceLevel
	better func(a, b schema.Price) bool
}

func newBidLadder() ladder {
	return ladder{better: func(a, b schema.Price) bool { return a > b }}
}

func newAskLadder() ladder {
	return ladder{better: func(a, b schema.Price) bool { return a < b }}
}

// rank returns the index where price sits or would be inserted.
func (l *ladder) rank(price schema.Price) int {
	return sort.Search(len(l.levels), func(i int) bool {
		return !l.better(l.levels[i].Price, price)
	})
}

// find returns the level at price, or nil.
func (l *ladder) find(price schema.Price) *PriceLevel {
	i := l.rank(price)
	if i < len(l.levels) && l.levels[i].Price == price {
		return l.levels[i]
	}
	return nil
}

// levelFor returns the level at price, creating it if absent.
func (l *ladder) levelFor(price schema.Price) *PriceLevel {
	i := l.rank(price)
	if i < len(l.levels) && l.levels[i].Price == price {
		return l.levels[i]
	}
	level := &PriceLevel{Price: price, head: noSlot, tail: noSlot}
	l.levels = append(l.levels, nil)
	copy(l.levels[i+1:], l.levels[i:])
	l.levels[i] = level
	return level
}

// pruneIfEmpty removes the level at price once it holds no orders. The
// aggregate is normalized to zero first so a drained level can never satisfy
// a best-of-book query between removal steps.
func (l *ladder) pruneIfEmpty(price schema.Price) {
	i := l.rank(price)
	if i >= len(l.levels) || l.levels[i].Price != price {
		return
	}
	level := l.levels[i]
	if level.Count == 0 {
		level.Aggregate = 0
	}
	if level.Count == 0 && level.Aggregate == 0 {
		copy(l.levels[i:], l.levels[i+1:])
		l.levels[len(l.levels)-1] = nil
		l.levels = l.levels[:len(l.levels)-1]
	}
}

// best returns the first level with non-zero aggregate. Empty levels are
// pruned eagerly, so the skip is a consistency safeguard, not a hot path.
func (l *ladder) best() *PriceLevel {
	for _, level := range l.levels {
		if level.Aggregate > 0 {
			return level
		}
	}
	return nil
}

// snapshot appends up to n non-empty levels in side order.
func (l *ladder) snapshot(n int, out []Level) []Level {
	taken := 0
	for _, level := range l.levels {
		if taken >= n {
			break
		}
		if level.Aggregate > 0 {
			out = append(out, Level{Price: level.Price, Quantity: level.Aggregate})
			taken++
		}
	}
	return out
}
