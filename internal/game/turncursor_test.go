package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTurnCursorAdvanceWraps(t *testing.T) {
	c := NewTurnCursor([]string{"a", "b", "c"})
	require.Equal(t, "a", c.Current())

	c.Advance()
	assert.Equal(t, "b", c.Current())
	c.Advance()
	assert.Equal(t, "c", c.Current())
	c.Advance()
	assert.Equal(t, "a", c.Current())
}

func TestTurnCursorReverseFlipsDirectionInPlace(t *testing.T) {
	c := NewTurnCursor([]string{"a", "b", "c"})
	c.Advance() // b
	c.Reverse()
	assert.Equal(t, DirCCW, c.Direction())
	assert.Equal(t, "b", c.Current(), "reverse must not move the current seat")
	c.Advance()
	assert.Equal(t, "a", c.Current())
}

func TestTurnCursorSkipTwoSeatsLandsOnSameSeat(t *testing.T) {
	c := NewTurnCursor([]string{"a", "b"})
	require.Equal(t, "a", c.Current())
	c.Skip()
	assert.Equal(t, "a", c.Current(), "skipping in a two-seat ring lands back on the same seat")
}

func TestTurnCursorInsertAfterCurrent(t *testing.T) {
	c := NewTurnCursor([]string{"a", "b", "c"})
	c.Insert("d", true)
	assert.Equal(t, []string{"a", "d", "b", "c"}, c.Seats())
	assert.Equal(t, "a", c.Current())
}

func TestTurnCursorRemoveCurrentAdvancesFirst(t *testing.T) {
	c := NewTurnCursor([]string{"a", "b", "c"})
	c.Remove("a")
	assert.Equal(t, "b", c.Current())
	assert.Equal(t, []string{"b", "c"}, c.Seats())
}

func TestTurnCursorRemoveLastSeatClearsCurrent(t *testing.T) {
	c := NewTurnCursor([]string{"a"})
	c.Remove("a")
	assert.Equal(t, "", c.Current())
	assert.Equal(t, 0, c.Len())
}

func TestTurnCursorReplaceAtPreservesCurrentSlot(t *testing.T) {
	c := NewTurnCursor([]string{"a", "b", "c"})
	c.Advance() // b
	c.ReplaceAt(c.IndexOf("b"), "bot-for-b")
	assert.Equal(t, "bot-for-b", c.Current())
}
