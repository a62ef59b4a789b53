package game

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingFanout captures every event handed to it so tests can assert on
// ordering and payload shape without standing up a real transport.
type recordingFanout struct {
	mu     sync.Mutex
	events []Event
}

func (f *recordingFanout) Broadcast(_ string, ev Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
}
func (f *recordingFanout) ToSeat(_, _ string, ev Event) { f.Broadcast("", ev) }
func (f *recordingFanout) ToUser(_ string, ev Event)    { f.Broadcast("", ev) }

func (f *recordingFanout) last(t EventType) (Event, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.events) - 1; i >= 0; i-- {
		if f.events[i].Type == t {
			return f.events[i], true
		}
	}
	return Event{}, false
}

// recordingHooks hands every RecordGameEnd summary to a channel so a test
// can wait for the detached hook dispatch.
type recordingHooks struct {
	ch chan GameEndSummary
}

func newRecordingHooks() *recordingHooks {
	return &recordingHooks{ch: make(chan GameEndSummary, 1)}
}

func (h *recordingHooks) RecordGameEnd(summary GameEndSummary) { h.ch <- summary }

func testConfig() SessionConfig {
	return SessionConfig{
		MaxPlayers: 6, InitialHandSize: 7, StackingAllowed: true, PointsToWin: 500,
		BotThinkingDelay: time.Millisecond, MaxBotActions: 20, CallOneWindow: 3 * time.Second,
	}
}

func newSeats(seatIDs ...string) []*Seat {
	seats := make([]*Seat, len(seatIDs))
	for i, id := range seatIDs {
		uid := id + "-user"
		seats[i] = &Seat{ID: id, ExternalUserID: &uid, Nickname: id, Kind: SeatHuman, Connected: true}
	}
	return seats
}

func newTestSessionWithConfig(t *testing.T, cfg SessionConfig, hooks LifecycleHooks, seatIDs ...string) (*Session, *recordingFanout) {
	t.Helper()
	fanout := &recordingFanout{}
	s := NewSession("sess1", "ROOM01", cfg, newSeats(seatIDs...), seatIDs[0], rand.New(rand.NewSource(42)), fanout, hooks)
	t.Cleanup(s.Close)
	return s, fanout
}

func newTestSession(t *testing.T, seatIDs ...string) (*Session, *recordingFanout) {
	t.Helper()
	return newTestSessionWithConfig(t, testConfig(), nil, seatIDs...)
}

// totalCards sums draw pile, discard pile, and every hand — the card
// conservation invariant says this is 108 at all times once dealt.
func totalCards(s *Session) int {
	v, _ := s.call(func() (any, error) {
		n := s.deck.DrawCount() + s.deck.DiscardCount()
		for _, seat := range s.seats {
			n += seat.HandSize()
		}
		return n, nil
	})
	n, _ := v.(int)
	return n
}

func TestSessionStartRequiresMinPlayers(t *testing.T) {
	s, _ := newTestSession(t, "p1")
	err := s.Start("p1")
	require.Error(t, err)
	assert.Equal(t, ErrTooFewPlayers, AsGameError(err).Code)
}

func TestSessionStartRejectsNonLeader(t *testing.T) {
	s, _ := newTestSession(t, "p1", "p2")
	err := s.Start("p2")
	require.Error(t, err)
	assert.Equal(t, ErrNotLeader, AsGameError(err).Code)
}

func TestSessionStartDealsHandsAndOpensNonWildDiscard(t *testing.T) {
	s, fanout := newTestSession(t, "p1", "p2")
	require.NoError(t, s.Start("p1"))
	assert.Equal(t, StatusPlaying, s.Status())

	snap := s.Snapshot()
	require.NotNil(t, snap.TopCard)
	assert.Equal(t, KindNumber, snap.TopCard.Kind, "the opening discard is always a number card")
	for _, seat := range snap.Seats {
		assert.Equal(t, 7, seat.HandSize)
	}
	_, ok := fanout.last(EventGameStarted)
	assert.True(t, ok)
}

func TestPlayCardRejectsOutOfTurn(t *testing.T) {
	s, _ := newTestSession(t, "p1", "p2")
	require.NoError(t, s.Start("p1"))
	err := s.PlayCard("p2", "whatever", nil)
	require.Error(t, err)
	assert.Equal(t, ErrNotYourTurn, AsGameError(err).Code)
}

// TestPlayLastCardEndsGame drives the writer directly (white-box, same
// package) to set up a deterministic near-end-of-game position: p1 holds a
// single playable card, plays it, and the session must transition straight
// to GAME_OVER with a GAME_ENDED broadcast.
func TestPlayLastCardEndsGame(t *testing.T) {
	s, fanout := newTestSession(t, "p1", "p2")
	require.NoError(t, s.Start("p1"))

	_, err := s.call(func() (any, error) {
		p1 := s.seatByID("p1")
		winning := Card{ID: "win1", Kind: KindNumber, Color: ColorRed, Value: 5}
		p1.Hand = []Card{winning}
		s.deck.discard = []Card{{ID: "top1", Kind: KindNumber, Color: ColorRed, Value: 1}}
		s.cursor = NewTurnCursor([]string{"p1", "p2"})
		return nil, nil
	})
	require.NoError(t, err)

	require.NoError(t, s.PlayCard("p1", "win1", nil))
	assert.Equal(t, StatusGameOver, s.Status())

	ev, ok := fanout.last(EventGameEnded)
	require.True(t, ok)
	payload := ev.Payload.(GameEndedPayload)
	assert.Equal(t, "p1", payload.WinnerSeatID)
	require.Len(t, payload.Rankings, 2)
	assert.Equal(t, 1, payload.Rankings[0].Position)
	assert.Equal(t, "p1", payload.Rankings[0].SeatID)
}

func TestDrawCardUnderPendingPenaltyForcesStackOrForfeit(t *testing.T) {
	s, _ := newTestSession(t, "p1", "p2")
	require.NoError(t, s.Start("p1"))

	_, err := s.call(func() (any, error) {
		p1 := s.seatByID("p1")
		p1.Hand = []Card{{ID: "d2", Kind: KindDrawTwo, Color: ColorRed}}
		s.deck.discard = []Card{{ID: "top1", Kind: KindDrawTwo, Color: ColorBlue}}
		s.pendingDrawCount = 2
		s.cursor = NewTurnCursor([]string{"p1", "p2"})
		return nil, nil
	})
	require.NoError(t, err)

	drawErr := s.DrawCard("p1", false, nil)
	require.Error(t, drawErr)
	assert.Equal(t, ErrMustStackOrForfeit, AsGameError(drawErr).Code)
}

func TestCatchNoOnePenalizesUncalledSingleCardHand(t *testing.T) {
	s, fanout := newTestSession(t, "p1", "p2")
	require.NoError(t, s.Start("p1"))

	_, err := s.call(func() (any, error) {
		p2 := s.seatByID("p2")
		p2.Hand = []Card{{ID: "lonely", Kind: KindNumber, Color: ColorRed, Value: 3}}
		p2.CallWindowOpenedAt = time.Now()
		return nil, nil
	})
	require.NoError(t, err)

	require.NoError(t, s.CatchNoOne("p1", "p2"))
	snap := s.Snapshot()
	for _, seat := range snap.Seats {
		if seat.SeatID == "p2" {
			assert.Equal(t, 3, seat.HandSize)
			assert.False(t, seat.CalledOne)
		}
	}
	ev, ok := fanout.last(EventOneCaught)
	require.True(t, ok)
	payload := ev.Payload.(OneCaughtPayload)
	assert.Equal(t, "p2", payload.SeatID)
	assert.Equal(t, "p1", payload.ByCaller)
	assert.Equal(t, 2, payload.Penalty)
}

func TestCatchNoOneRejectedOnceWindowLapsed(t *testing.T) {
	s, _ := newTestSession(t, "p1", "p2")
	require.NoError(t, s.Start("p1"))

	_, err := s.call(func() (any, error) {
		p2 := s.seatByID("p2")
		p2.Hand = []Card{{ID: "lonely", Kind: KindNumber, Color: ColorRed, Value: 3}}
		p2.CallWindowOpenedAt = time.Now().Add(-s.Config.CallOneWindow - time.Second)
		return nil, nil
	})
	require.NoError(t, err)

	catchErr := s.CatchNoOne("p1", "p2")
	require.Error(t, catchErr)
	assert.Equal(t, ErrNotEligible, AsGameError(catchErr).Code)
}

func TestKickRemovesSeatAndReturnsKickedUser(t *testing.T) {
	s, _ := newTestSession(t, "p1", "p2")
	kickedUser, err := s.Kick("p1", "p2")
	require.NoError(t, err)
	require.NotNil(t, kickedUser)
	assert.Equal(t, "p2-user", *kickedUser)
	assert.Equal(t, 1, s.SeatCount())
}

func TestKickRejectsSelfKick(t *testing.T) {
	s, _ := newTestSession(t, "p1", "p2")
	_, err := s.Kick("p1", "p1")
	require.Error(t, err)
	assert.Equal(t, ErrSelfKick, AsGameError(err).Code)
}

// TestTwoSeatReverseActsAsSkip is spec §8 Scenario A: with seats [A,B] CW
// and A current, A playing REVERSE flips direction and A plays again.
func TestTwoSeatReverseActsAsSkip(t *testing.T) {
	s, _ := newTestSession(t, "pa", "pb")
	require.NoError(t, s.Start("pa"))

	_, err := s.call(func() (any, error) {
		pa := s.seatByID("pa")
		pa.Hand = []Card{
			{ID: "rev", Kind: KindReverse, Color: ColorBlue},
			{ID: "pad", Kind: KindNumber, Color: ColorRed, Value: 1},
		}
		s.deck.discard = []Card{{ID: "top", Kind: KindNumber, Color: ColorBlue, Value: 6}}
		s.cursor = NewTurnCursor([]string{"pa", "pb"})
		return nil, nil
	})
	require.NoError(t, err)

	require.NoError(t, s.PlayCard("pa", "rev", nil))
	snap := s.Snapshot()
	assert.Equal(t, DirCCW, snap.Direction)
	assert.Equal(t, "pa", snap.CurrentSeatID, "the reverser goes again in a two-seat game")
}

// TestStackThenForfeit is spec §8 Scenario B: two DRAW_TWOs accumulate to a
// pending 4, and the seat with no stacker pays it and loses their turn.
func TestStackThenForfeit(t *testing.T) {
	s, _ := newTestSession(t, "pa", "pb", "pc", "pd")
	require.NoError(t, s.Start("pa"))

	_, err := s.call(func() (any, error) {
		s.seatByID("pa").Hand = []Card{
			{ID: "d2r", Kind: KindDrawTwo, Color: ColorRed},
			{ID: "fa", Kind: KindNumber, Color: ColorRed, Value: 1},
		}
		s.seatByID("pb").Hand = []Card{
			{ID: "d2b", Kind: KindDrawTwo, Color: ColorBlue},
			{ID: "fb", Kind: KindNumber, Color: ColorGreen, Value: 2},
		}
		s.seatByID("pc").Hand = []Card{
			{ID: "fc1", Kind: KindNumber, Color: ColorYellow, Value: 3},
			{ID: "fc2", Kind: KindNumber, Color: ColorGreen, Value: 4},
		}
		s.deck.discard = []Card{{ID: "top", Kind: KindNumber, Color: ColorRed, Value: 5}}
		s.cursor = NewTurnCursor([]string{"pa", "pb", "pc", "pd"})
		s.pendingDrawCount = 0
		return nil, nil
	})
	require.NoError(t, err)

	require.NoError(t, s.PlayCard("pa", "d2r", nil))
	snap := s.Snapshot()
	assert.Equal(t, 2, snap.PendingDrawCount)
	assert.Equal(t, "pb", snap.CurrentSeatID)

	require.NoError(t, s.PlayCard("pb", "d2b", nil))
	snap = s.Snapshot()
	assert.Equal(t, 4, snap.PendingDrawCount)
	assert.Equal(t, "pc", snap.CurrentSeatID)

	require.NoError(t, s.DrawCard("pc", false, nil))
	snap = s.Snapshot()
	assert.Equal(t, 0, snap.PendingDrawCount)
	assert.Equal(t, "pd", snap.CurrentSeatID)
	for _, seat := range snap.Seats {
		if seat.SeatID == "pc" {
			assert.Equal(t, 6, seat.HandSize, "pc pays the accumulated 4-card penalty")
		}
	}
}

func TestPlayCardUnderPendingPenaltyRequiresStacker(t *testing.T) {
	s, _ := newTestSession(t, "pa", "pb")
	require.NoError(t, s.Start("pa"))

	_, err := s.call(func() (any, error) {
		s.seatByID("pa").Hand = []Card{{ID: "num", Kind: KindNumber, Color: ColorRed, Value: 5}}
		s.deck.discard = []Card{{ID: "top", Kind: KindDrawTwo, Color: ColorRed}}
		s.pendingDrawCount = 2
		s.lastPlayedKind = KindDrawTwo
		s.cursor = NewTurnCursor([]string{"pa", "pb"})
		return nil, nil
	})
	require.NoError(t, err)

	playErr := s.PlayCard("pa", "num", nil)
	require.Error(t, playErr)
	assert.Equal(t, ErrMustStack, AsGameError(playErr).Code)
}

// TestWildColorCommit is spec §8 Scenario C: a wild carries its chosen color
// onto the discard top and the committed color follows it.
func TestWildColorCommit(t *testing.T) {
	s, _ := newTestSession(t, "pa", "pb")
	require.NoError(t, s.Start("pa"))

	_, err := s.call(func() (any, error) {
		s.seatByID("pa").Hand = []Card{
			{ID: "w", Kind: KindWild, Color: ColorWild},
			{ID: "pad", Kind: KindNumber, Color: ColorRed, Value: 1},
		}
		s.deck.discard = []Card{{ID: "top", Kind: KindNumber, Color: ColorRed, Value: 3}}
		s.cursor = NewTurnCursor([]string{"pa", "pb"})
		return nil, nil
	})
	require.NoError(t, err)

	green := ColorGreen
	require.NoError(t, s.PlayCard("pa", "w", &green))
	snap := s.Snapshot()
	require.NotNil(t, snap.TopCard)
	require.NotNil(t, snap.TopCard.ChosenColor)
	assert.Equal(t, ColorGreen, *snap.TopCard.ChosenColor)
	assert.Equal(t, ColorGreen, snap.CommittedColor)
	assert.Equal(t, "pb", snap.CurrentSeatID)
}

func TestPlayWildWithoutColorRejected(t *testing.T) {
	s, _ := newTestSession(t, "pa", "pb")
	require.NoError(t, s.Start("pa"))

	_, err := s.call(func() (any, error) {
		s.seatByID("pa").Hand = []Card{
			{ID: "w", Kind: KindWild, Color: ColorWild},
			{ID: "pad", Kind: KindNumber, Color: ColorRed, Value: 1},
		}
		s.cursor = NewTurnCursor([]string{"pa", "pb"})
		return nil, nil
	})
	require.NoError(t, err)

	playErr := s.PlayCard("pa", "w", nil)
	require.Error(t, playErr)
	assert.Equal(t, ErrMissingColor, AsGameError(playErr).Code)
}

func TestNonStackingDrawTwoAppliesImmediatePenalty(t *testing.T) {
	cfg := testConfig()
	cfg.StackingAllowed = false
	s, _ := newTestSessionWithConfig(t, cfg, nil, "pa", "pb", "pc")
	require.NoError(t, s.Start("pa"))

	_, err := s.call(func() (any, error) {
		s.seatByID("pa").Hand = []Card{
			{ID: "d2", Kind: KindDrawTwo, Color: ColorRed},
			{ID: "pad", Kind: KindNumber, Color: ColorBlue, Value: 1},
		}
		s.seatByID("pb").Hand = []Card{
			{ID: "fb1", Kind: KindNumber, Color: ColorGreen, Value: 2},
			{ID: "fb2", Kind: KindNumber, Color: ColorYellow, Value: 3},
		}
		s.deck.discard = []Card{{ID: "top", Kind: KindNumber, Color: ColorRed, Value: 5}}
		s.cursor = NewTurnCursor([]string{"pa", "pb", "pc"})
		return nil, nil
	})
	require.NoError(t, err)

	require.NoError(t, s.PlayCard("pa", "d2", nil))
	snap := s.Snapshot()
	assert.Equal(t, 0, snap.PendingDrawCount, "non-stacking mode never leaves a pending penalty")
	assert.Equal(t, "pc", snap.CurrentSeatID, "the penalized seat's turn is forfeited")
	for _, seat := range snap.Seats {
		if seat.SeatID == "pb" {
			assert.Equal(t, 4, seat.HandSize, "pb draws 2 immediately")
		}
	}
}

func TestDrawCardMayAutoPlayTheDrawnCard(t *testing.T) {
	s, _ := newTestSession(t, "pa", "pb")
	require.NoError(t, s.Start("pa"))

	_, err := s.call(func() (any, error) {
		s.seatByID("pa").Hand = []Card{{ID: "stuck", Kind: KindNumber, Color: ColorBlue, Value: 9}}
		s.deck.discard = []Card{{ID: "top", Kind: KindNumber, Color: ColorRed, Value: 3}}
		// Put a known playable card on top of the draw pile.
		s.deck.draw = append(s.deck.draw, Card{ID: "lucky", Kind: KindNumber, Color: ColorRed, Value: 7})
		s.cursor = NewTurnCursor([]string{"pa", "pb"})
		return nil, nil
	})
	require.NoError(t, err)

	require.NoError(t, s.DrawCard("pa", true, nil))
	snap := s.Snapshot()
	require.NotNil(t, snap.TopCard)
	assert.Equal(t, 7, snap.TopCard.Value)
	assert.Equal(t, ColorRed, snap.TopCard.Color)
	assert.Equal(t, "pb", snap.CurrentSeatID)
	for _, seat := range snap.Seats {
		if seat.SeatID == "pa" {
			assert.Equal(t, 1, seat.HandSize, "drew one, played it in the same action")
		}
	}
}

func TestDrawCardWithoutAutoPlayEndsTurn(t *testing.T) {
	s, _ := newTestSession(t, "pa", "pb")
	require.NoError(t, s.Start("pa"))

	_, err := s.call(func() (any, error) {
		s.seatByID("pa").Hand = []Card{{ID: "stuck", Kind: KindNumber, Color: ColorBlue, Value: 9}}
		s.deck.discard = []Card{{ID: "top", Kind: KindNumber, Color: ColorRed, Value: 3}}
		s.deck.draw = append(s.deck.draw, Card{ID: "lucky", Kind: KindNumber, Color: ColorRed, Value: 7})
		s.cursor = NewTurnCursor([]string{"pa", "pb"})
		return nil, nil
	})
	require.NoError(t, err)

	require.NoError(t, s.DrawCard("pa", false, nil))
	snap := s.Snapshot()
	assert.Equal(t, "pb", snap.CurrentSeatID)
	for _, seat := range snap.Seats {
		if seat.SeatID == "pa" {
			assert.Equal(t, 2, seat.HandSize)
		}
	}
}

// TestGameEndScoring is spec §8 Scenario F: positions by (handSize asc,
// handPoints asc), 50/10/0 points, hooks fired once with the winner's
// external user id.
func TestGameEndScoring(t *testing.T) {
	hooks := newRecordingHooks()
	s, fanout := newTestSessionWithConfig(t, testConfig(), hooks, "pa", "pb", "pc", "pd")
	require.NoError(t, s.Start("pa"))

	_, err := s.call(func() (any, error) {
		s.seatByID("pa").Hand = []Card{{ID: "last", Kind: KindNumber, Color: ColorRed, Value: 5}}
		// B: 3 cards, 17 points.
		s.seatByID("pb").Hand = []Card{
			{ID: "b1", Kind: KindNumber, Color: ColorBlue, Value: 9},
			{ID: "b2", Kind: KindNumber, Color: ColorGreen, Value: 8},
			{ID: "b3", Kind: KindNumber, Color: ColorYellow, Value: 0},
		}
		// C: 5 cards, 40 points.
		s.seatByID("pc").Hand = []Card{
			{ID: "c1", Kind: KindSkip, Color: ColorBlue},
			{ID: "c2", Kind: KindReverse, Color: ColorGreen},
			{ID: "c3", Kind: KindNumber, Color: ColorRed, Value: 0},
			{ID: "c4", Kind: KindNumber, Color: ColorBlue, Value: 0},
			{ID: "c5", Kind: KindNumber, Color: ColorGreen, Value: 0},
		}
		// D: 1 card, 50 points — fewer cards than B, so D outranks B.
		s.seatByID("pd").Hand = []Card{{ID: "d1", Kind: KindWild, Color: ColorWild}}
		s.deck.discard = []Card{{ID: "top", Kind: KindNumber, Color: ColorRed, Value: 1}}
		s.cursor = NewTurnCursor([]string{"pa", "pb", "pc", "pd"})
		return nil, nil
	})
	require.NoError(t, err)

	require.NoError(t, s.PlayCard("pa", "last", nil))
	assert.Equal(t, StatusGameOver, s.Status())

	ev, ok := fanout.last(EventGameEnded)
	require.True(t, ok)
	payload := ev.Payload.(GameEndedPayload)
	assert.Equal(t, "pa", payload.WinnerSeatID)
	require.Len(t, payload.Rankings, 4)
	assert.Equal(t, []string{"pa", "pd", "pb", "pc"}, []string{
		payload.Rankings[0].SeatID, payload.Rankings[1].SeatID,
		payload.Rankings[2].SeatID, payload.Rankings[3].SeatID,
	})
	assert.Equal(t, 50, payload.Rankings[0].PointsEarned)
	assert.Equal(t, 10, payload.Rankings[1].PointsEarned)
	assert.Equal(t, 0, payload.Rankings[2].PointsEarned)
	assert.Equal(t, 0, payload.Rankings[3].PointsEarned)

	select {
	case summary := <-hooks.ch:
		assert.Equal(t, "pa-user", summary.Winner)
		assert.Len(t, summary.ParticipantUserIDs, 4)
		assert.GreaterOrEqual(t, summary.DurationMinutes, 1)
	case <-time.After(2 * time.Second):
		t.Fatal("LifecycleHooks.RecordGameEnd was never invoked")
	}
}

func TestNoMutationsAfterGameOver(t *testing.T) {
	s, _ := newTestSession(t, "pa", "pb")
	require.NoError(t, s.Start("pa"))

	_, err := s.call(func() (any, error) {
		s.seatByID("pa").Hand = []Card{{ID: "last", Kind: KindNumber, Color: ColorRed, Value: 5}}
		s.deck.discard = []Card{{ID: "top", Kind: KindNumber, Color: ColorRed, Value: 1}}
		s.cursor = NewTurnCursor([]string{"pa", "pb"})
		return nil, nil
	})
	require.NoError(t, err)
	require.NoError(t, s.PlayCard("pa", "last", nil))
	require.Equal(t, StatusGameOver, s.Status())

	before := s.Snapshot()
	assert.Equal(t, ErrWrongState, AsGameError(s.PlayCard("pb", "anything", nil)).Code)
	assert.Equal(t, ErrWrongState, AsGameError(s.DrawCard("pb", false, nil)).Code)
	after := s.Snapshot()
	assert.Equal(t, before.Seats, after.Seats)
	assert.Equal(t, before.DeckSize, after.DeckSize)
}

func TestResetReturnsFinishedGameToLobby(t *testing.T) {
	s, _ := newTestSession(t, "pa", "pb")
	require.NoError(t, s.Start("pa"))

	_, err := s.call(func() (any, error) {
		s.seatByID("pa").Hand = []Card{{ID: "last", Kind: KindNumber, Color: ColorRed, Value: 5}}
		s.deck.discard = []Card{{ID: "top", Kind: KindNumber, Color: ColorRed, Value: 1}}
		s.cursor = NewTurnCursor([]string{"pa", "pb"})
		return nil, nil
	})
	require.NoError(t, err)
	require.NoError(t, s.PlayCard("pa", "last", nil))
	require.Equal(t, StatusGameOver, s.Status())

	resetErr := s.Reset("pb")
	require.Error(t, resetErr)
	assert.Equal(t, ErrNotLeader, AsGameError(resetErr).Code)

	require.NoError(t, s.Reset("pa"))
	assert.Equal(t, StatusLobby, s.Status())
	snap := s.Snapshot()
	for _, seat := range snap.Seats {
		assert.Equal(t, 0, seat.HandSize)
		assert.Equal(t, 0, seat.Score)
	}
}

func TestCardConservationAcrossActions(t *testing.T) {
	s, _ := newTestSession(t, "pa", "pb", "pc")
	require.NoError(t, s.Start("pa"))
	assert.Equal(t, 108, totalCards(s))

	require.NoError(t, s.DrawCard("pa", false, nil))
	assert.Equal(t, 108, totalCards(s))
	require.NoError(t, s.DrawCard("pb", false, nil))
	assert.Equal(t, 108, totalCards(s))
}

func TestKickMidGameReturnsHandToDeck(t *testing.T) {
	s, _ := newTestSession(t, "pa", "pb", "pc")
	require.NoError(t, s.Start("pa"))
	require.Equal(t, 108, totalCards(s))

	_, err := s.Kick("pa", "pb")
	require.NoError(t, err)
	assert.Equal(t, 2, s.SeatCount())
	assert.Equal(t, 108, totalCards(s), "a kicked seat's cards go back to the draw pile")
}

// TestPlayerLeaveMidGameBecomesSubstituteBot covers spec §8 Scenario E: the
// leaver's seat is inherited in place by a substitute bot (same ring slot,
// same hand), leadership moves to the earliest remaining human, and the
// cursor stays on the substituted seat.
func TestPlayerLeaveMidGameBecomesSubstituteBot(t *testing.T) {
	cfg := testConfig()
	// Keep the substitute's first bot action far away so the assertions
	// below observe the handoff itself, not the bot's move.
	cfg.BotThinkingDelay = time.Hour
	s, _ := newTestSessionWithConfig(t, cfg, nil, "p1", "p2", "p3")
	require.NoError(t, s.Start("p1"))

	destroyed, err := s.PlayerLeave("p1")
	require.NoError(t, err)
	assert.False(t, destroyed)

	snap := s.Snapshot()
	found := false
	for _, seat := range snap.Seats {
		if seat.SeatID == "p1" {
			found = true
			assert.Equal(t, SeatSubstituteBot, seat.Kind)
			assert.Equal(t, 7, seat.HandSize, "the substitute inherits the hand")
			assert.False(t, seat.Connected)
		}
	}
	assert.True(t, found)
	assert.Equal(t, "p1", snap.CurrentSeatID, "the cursor stays on the substituted seat")
	assert.Equal(t, []string{"p1", "p2", "p3"}, snap.TurnOrder)
	assert.Equal(t, "p2", s.LeaderSeatID(), "leadership moves to the earliest remaining human")
	assert.Equal(t, "p1", s.seatIDForUser("p1-user"), "the substituted user can still be resolved to the seat")
}

func TestPlayerLeaveLastHumanDestroysSession(t *testing.T) {
	s, _ := newTestSession(t, "p1", "p2")
	require.NoError(t, s.Start("p1"))

	_, err := s.PlayerLeave("p1")
	require.NoError(t, err)
	destroyed, err := s.PlayerLeave("p2")
	require.NoError(t, err)
	assert.True(t, destroyed)
}
