package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSide(t *testing.T) {
	assert.Equal(t, SideBuy, ParseSide('B'))
	assert.Equal(t, SideSell, ParseSide('S'))
	assert.Equal(t, SideUnknown, ParseSide('X'))
	assert.Equal(t, SideUnknown, ParseSide(0))
}

func TestEventKinds(t *testing.T) {
	assert.Equal(t, KindStateChange, StateChange{}.Kind())
	assert.Equal(t, KindAddOrder, AddOrder{}.Kind())
	assert.Equal(t, KindExecute, Execute{}.Kind())
	assert.Equal(t, KindDelete, Delete{}.Kind())
	assert.Equal(t, KindUnrecognized, Unrecognized{}.Kind())
}

func TestEventAccessors(t *testing.T) {
	ev := AddOrder{Timestamp: 123, BookID: 7}
	assert.Equal(t, Nanos(123), ev.Nanos())
	assert.Equal(t, BookID(7), ev.Book())

	u := Unrecognized{Tag: 'Z'}
	assert.Zero(t, u.Nanos())
	assert.Zero(t, u.Book())
}
