package schema

// EventKind discriminates the decoded message variants.
type EventKind uint8

const (
	KindUnrecognized EventKind = iota
	KindStateChange
	KindAddOrder
	KindExecute
	KindDelete
)

func (k EventKind) String() string {
	switch k {
	case KindStateChange:
		return "STATE"
	case KindAddOrder:
		return "ADD"
	case KindExecute:
		return "EXEC"
	case KindDelete:
		return "DEL"
	default:
		return "OTHER"
	}
}

// Event is one decoded feed message. Each message kind carries only the
// fields that are meaningful for it, so field validity is a property of the
// type rather than a convention.
type Event interface {
	Kind() EventKind
	Nanos() Nanos
	Book() BookID
}

// StateChange reports a book trading-state transition.
type StateChange struct {
	Timestamp Nanos
	BookID    BookID
	State     string
}

// AddOrder places a new resting order into the book.
type AddOrder struct {
	Timestamp   Nanos
	BookID      BookID
	OrderID     OrderID
	Side        Side
	Price       Price
	Quantity    Quantity
	RankingTime RankingTime
	RankingSeq  RankingSeq
}

// Execute fills a resting order, partially or fully. The wire subset decoded
// here carries no execution price, so Price is zero unless a caller
// constructs it directly; the book falls back to the resting order's price.
type Execute struct {
	Timestamp Nanos
	BookID    BookID
	OrderID   OrderID
	Side      Side
	Quantity  Quantity
	Price     Price
}

// Delete removes a resting order regardless of remaining quantity.
type Delete struct {
	Timestamp Nanos
	BookID    BookID
	OrderID   OrderID
	Side      Side
}

// Unrecognized stands in for a message with an unknown type tag or a payload
// shorter than its kind's minimum. It is not an error; frame processing
// continues past it.
type Unrecognized struct {
	Tag byte
}

func (e StateChange) Kind() EventKind { return KindStateChange }
func (e StateChange) Nanos() Nanos    { return e.Timestamp }
func (e StateChange) Book() BookID    { return e.BookID }

func (e AddOrder) Kind() EventKind { return KindAddOrder }
func (e AddOrder) Nanos() Nanos    { return e.Timestamp }
func (e AddOrder) Book() BookID    { return e.BookID }

func (e Execute) Kind() EventKind { return KindExecute }
func (e Execute) Nanos() Nanos    { return e.Timestamp }
func (e Execute) Book() BookID    { return e.BookID }

func (e Delete) Kind() EventKind { return KindDelete }
func (e Delete) Nanos() Nanos    { return e.Timestamp }
func (e Delete) Book() BookID    { return e.BookID }

func (e Unrecognized) Kind() EventKind { return KindUnrecognized }
func (e Unrecognized) Nanos() Nanos    { return 0 }
func (e Unrecognized) Book() BookID    { return 0 }
