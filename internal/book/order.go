package book

import "github.com/memduhb/orderbook-strategy/internal/schema"

// noSlot marks an empty arena link.
const noSlot = int32(-1)

// Order is one resting order. Orders live in a slot arena; next/prev link
// them into their price level's time-priority chain, so removal never
// invalidates another order's handle.
type Order struct {
	ID          schema.OrderID
	Side        schema.Side
	Price       schema.Price
	Remaining   schema.Quantity
	RankingTime schema.RankingTime
	RankingSeq  schema.RankingSeq

	next, prev int32
}

// ranksBefore reports whether o has strictly higher time priority than other,
// by (ranking time, ranking sequence number) lexicographically.
func (o *Order) ranksBefore(other *Order) bool {
	if o.RankingTime != other.RankingTime {
		return o.RankingTime < other.RankingTime
	}
	return o.RankingSeq < other.RankingSeq
}

// arena is slot-indexed order storage with a free list. Slots are stable for
// the lifetime of an order; freed slots are reused.
type arena struct {
	orders []Order
	free   []int32
}

func (a *arena) alloc(o Order) int32 {
	o.next, o.prev = noSlot, noSlot
	if n := len(a.free); n > 0 {
		slot := a.free[n-1]
		a.free = a.free[:n-1]
		a.orders[slot] = o
		return slot
	}
	a.orders = append(a.orders, o)
	return int32(len(a.orders) - 1)
}

func (a *arena) release(slot int32) {
	a.orders[slot] = Order{next: noSlot, prev: noSlot}
	a.free = append(a.free, slot)
}

func (a *arena) at(slot int32) *Order {
	return &a.orders[slot]
}

// live returns the number of allocated orders.
func (a *arena) live() int {
	return len(a.orders) - len(a.free)
}
