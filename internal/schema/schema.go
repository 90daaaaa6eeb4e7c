package schema

// Price is an order book price in minor currency units. There is no
// fractional representation anywhere in the system.
type Price = uint32

// Quantity is an order quantity in the smallest tradable unit.
type Quantity = uint64

// OrderID identifies a single order for its whole lifetime.
type OrderID = uint64

// BookID identifies one instrument's order book.
type BookID = uint32

// Nanos is the event timestamp in nanoseconds since the session reference.
type Nanos = uint32

// RankingTime and RankingSeq establish an order's time priority within its
// price level. RankingSeq breaks ties when RankingTime is equal.
type (
	RankingTime = uint64
	RankingSeq  = uint32
)

// Book state labels carried by StateChange events.
const (
	StateContinuousTrading = "P_SUREKLI_ISLEM"
	StateMarketClose       = "P_MARJ_YAYIN_KAPANIS"
)

// Side is the order side as carried on the wire.
type Side byte

const (
	SideUnknown Side = 0
	SideBuy     Side = 'B'
	SideSell    Side = 'S'
)

// ParseSide maps a wire side byte to a Side. Anything other than 'B' or 'S'
// is SideUnknown; downstream components treat that as invalid for
// order-affecting events rather than as an error.
func ParseSide(b byte) Side {
	switch b {
	case 'B':
		return SideBuy
	case 'S':
		return SideSell
	default:
		return SideUnknown
	}
}

func (s Side) String() string {
	switch s {
	case SideBuy:
		return "B"
	case SideSell:
		return "S"
	default:
		return "?"
	}
}
