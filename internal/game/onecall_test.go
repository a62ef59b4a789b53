package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallOneRequiresExactlyOneCard(t *testing.T) {
	s := &Seat{Hand: []Card{{ID: "c1"}, {ID: "c2"}}}
	err := callOne(s)
	require.Error(t, err)
	assert.Equal(t, ErrNotEligible, AsGameError(err).Code)
}

func TestCallOneSucceedsAtOneCard(t *testing.T) {
	s := &Seat{Hand: []Card{{ID: "c1"}}}
	require.NoError(t, callOne(s))
	assert.True(t, s.CalledOne)
}

func TestCatchableOnlyWhileWindowOpen(t *testing.T) {
	now := time.Now()
	s := &Seat{Hand: []Card{{ID: "c1"}}, CallWindowOpenedAt: now}
	assert.True(t, catchable(s, now.Add(1*time.Second), defaultOneCallWindow))
	assert.False(t, catchable(s, now.Add(defaultOneCallWindow+time.Millisecond), defaultOneCallWindow),
		"after the window lapses the automatic expiry penalty takes over")
}

func TestCatchableFalseIfAlreadyCalled(t *testing.T) {
	now := time.Now()
	s := &Seat{Hand: []Card{{ID: "c1"}}, CallWindowOpenedAt: now, CalledOne: true}
	assert.False(t, catchable(s, now.Add(time.Second), defaultOneCallWindow))
}

func TestCatchableFalseWithMoreThanOneCard(t *testing.T) {
	now := time.Now()
	s := &Seat{Hand: []Card{{ID: "c1"}, {ID: "c2"}}, CallWindowOpenedAt: now}
	assert.False(t, catchable(s, now.Add(time.Second), defaultOneCallWindow))
}

func TestCallWindowExpiredAfterDeadline(t *testing.T) {
	now := time.Now()
	s := &Seat{Hand: []Card{{ID: "c1"}}, CallWindowOpenedAt: now}
	assert.False(t, callWindowExpired(s, now.Add(1*time.Second), defaultOneCallWindow))
	assert.True(t, callWindowExpired(s, now.Add(defaultOneCallWindow), defaultOneCallWindow))
}

func TestCallWindowExpiredFalseOnceCalled(t *testing.T) {
	now := time.Now()
	s := &Seat{Hand: []Card{{ID: "c1"}}, CallWindowOpenedAt: now, CalledOne: true}
	assert.False(t, callWindowExpired(s, now.Add(time.Hour), defaultOneCallWindow))
}

func TestOpenOneCallWindowBumpsSequence(t *testing.T) {
	s := &Seat{Hand: []Card{{ID: "c1"}}, CalledOne: true}
	before := s.callWindowSeq
	openOneCallWindow(s, time.Now())
	assert.False(t, s.CalledOne)
	assert.Equal(t, before+1, s.callWindowSeq)
}

func TestAddCardsClearsCalledOneFlag(t *testing.T) {
	s := &Seat{Hand: []Card{{ID: "c1"}}, CalledOne: true}
	s.AddCards(Card{ID: "c2"})
	assert.False(t, s.CalledOne)
	assert.Equal(t, 2, s.HandSize())
}
