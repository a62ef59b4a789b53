package game

import (
	"log"
	"math/rand"
	"time"
)

// SessionStatus is the Session's coarse state machine (spec §4.8).
type SessionStatus string

const (
	StatusLobby    SessionStatus = "LOBBY"
	StatusPlaying  SessionStatus = "PLAYING"
	StatusGameOver SessionStatus = "GAME_OVER"
)

// SessionConfig is the per-room ruleset fixed at room creation.
type SessionConfig struct {
	MaxPlayers       int
	InitialHandSize  int
	StackingAllowed  bool
	PointsToWin      int
	MaxBots          int
	BotThinkingDelay time.Duration
	MaxBotActions    int
	CallOneWindow    time.Duration
}

// job is a single request-reply intent processed by the Session's writer
// goroutine. Every public method builds one of these and posts it to in,
// then blocks on reply — this is the single-writer model spec §5 requires:
// all mutation happens on one goroutine, external callers only ever see a
// finished result.
type job struct {
	run   func() (any, error)
	reply chan jobResult
}

type jobResult struct {
	value any
	err   error
}

// Session is the per-room game runtime: deck, seats, turn cursor, and the
// draw-penalty/call-one bookkeeping layered on top. Everything named here is
// touched only by the writer goroutine started in NewSession.
type Session struct {
	SessionID string
	RoomCode  string
	Config    SessionConfig

	status           SessionStatus
	seats            []*Seat
	cursor           *TurnCursor
	deck             *Deck
	pendingDrawCount int
	lastPlayedKind   Kind
	startedAt        time.Time
	totalCardsPlayed int

	leaderSeatID string

	rng    *rand.Rand
	clock  clockFunc
	events EventFanout
	hooks  LifecycleHooks

	in        chan job
	botTimer  *time.Timer
	botTimerC chan struct{} // closed+replaced to cancel a pending bot fire
	closed    chan struct{}
}

// NewSession constructs a LOBBY-status session and starts its writer
// goroutine. seats must already be populated (the Room adds seats before a
// Session exists to play in).
func NewSession(sessionID, roomCode string, cfg SessionConfig, seats []*Seat, leaderSeatID string, rng *rand.Rand, events EventFanout, hooks LifecycleHooks) *Session {
	if events == nil {
		events = NopFanout{}
	}
	if hooks == nil {
		hooks = NopHooks{}
	}
	if cfg.CallOneWindow <= 0 {
		cfg.CallOneWindow = defaultOneCallWindow
	}
	if cfg.MaxBots <= 0 {
		cfg.MaxBots = 3
	}
	s := &Session{
		SessionID:    sessionID,
		RoomCode:     roomCode,
		Config:       cfg,
		status:       StatusLobby,
		seats:        seats,
		leaderSeatID: leaderSeatID,
		rng:          rng,
		clock:        time.Now,
		events:       events,
		hooks:        hooks,
		in:           make(chan job, 32),
		closed:       make(chan struct{}),
	}
	go s.writerLoop()
	return s
}

// call posts fn to the writer and blocks for its result. Every exported
// Session method is a thin wrapper around call.
func (s *Session) call(fn func() (any, error)) (any, error) {
	j := job{run: fn, reply: make(chan jobResult, 1)}
	select {
	case s.in <- j:
	case <-s.closed:
		return nil, newErr(ErrInternal, "session closed")
	}
	select {
	case r := <-j.reply:
		return r.value, r.err
	case <-s.closed:
		return nil, newErr(ErrInternal, "session closed")
	}
}

func (s *Session) writerLoop() {
	for {
		select {
		case j, ok := <-s.in:
			if !ok {
				return
			}
			v, err := j.run()
			j.reply <- jobResult{value: v, err: err}
		case <-s.closed:
			return
		}
	}
}

// Close stops the writer loop and cancels any pending bot timer. Called by
// the registry once the Session is destroyed (spec §4.9's "destroy
// Session"). The shutdown runs as a job so the timer fields are only ever
// touched by the writer; closing an already-closed session is a no-op.
func (s *Session) Close() {
	_, _ = s.call(func() (any, error) {
		select {
		case <-s.closed:
		default:
			s.cancelBotTimer()
			close(s.closed)
		}
		return nil, nil
	})
}

func (s *Session) seatByID(id string) *Seat {
	for _, seat := range s.seats {
		if seat.ID == id {
			return seat
		}
	}
	return nil
}

func (s *Session) humanCount() int {
	n := 0
	for _, seat := range s.seats {
		if seat.Kind == SeatHuman {
			n++
		}
	}
	return n
}

func (s *Session) botCount() int {
	n := 0
	for _, seat := range s.seats {
		if seat.Kind == SeatBot {
			n++
		}
	}
	return n
}

// ---- Start ----

// Start deals hands and flips the session into PLAYING (spec §4.8 `start`).
func (s *Session) Start(leaderSeatID string) error {
	_, err := s.call(func() (any, error) {
		if s.status != StatusLobby {
			return nil, newErr(ErrWrongState, "session is not in LOBBY")
		}
		if leaderSeatID != s.leaderSeatID {
			return nil, newErr(ErrNotLeader, "only the leader can start the game")
		}
		if len(s.seats) < 2 {
			return nil, newErr(ErrTooFewPlayers, "at least 2 seats required to start")
		}

		seatIDs := make([]string, len(s.seats))
		for i, seat := range s.seats {
			seatIDs[i] = seat.ID
		}
		s.cursor = NewTurnCursor(seatIDs)
		s.deck = NewDeck(s.rng)

		for _, seat := range s.seats {
			hand, err := s.deck.DrawN(s.Config.InitialHandSize, s.rng)
			if err != nil {
				return nil, err
			}
			seat.Hand = hand
			seat.CalledOne = false
		}

		// The first discard must be a NUMBER so the game opens with an
		// unambiguous committed color and no effect to resolve. Rejected
		// action/wild cards slide back under the draw pile.
		var first Card
		for {
			c, err := s.deck.DrawN(1, s.rng)
			if err != nil {
				return nil, err
			}
			first = c[0]
			if first.Kind == KindNumber {
				break
			}
			s.deck.draw = append([]Card{first}, s.deck.draw...)
		}
		s.deck.PlayToDiscard(first)

		s.status = StatusPlaying
		s.startedAt = s.clock()
		s.pendingDrawCount = 0

		s.emitStartedAndState()
		s.maybeScheduleBotAction(0)
		return nil, nil
	})
	return err
}

// ---- PlayCard ----

// PlayCard applies spec §4.2/§4.3 to a human or bot's chosen card.
func (s *Session) PlayCard(seatID, cardID string, chosenColor *Color) error {
	_, err := s.call(func() (any, error) {
		return nil, s.playCardLocked(seatID, cardID, chosenColor)
	})
	return err
}

func (s *Session) playCardLocked(seatID, cardID string, chosenColor *Color) error {
	if s.status != StatusPlaying {
		return newErr(ErrWrongState, "session is not in PLAYING")
	}
	if s.cursor.Current() != seatID {
		return newErr(ErrNotYourTurn, "it is not your turn")
	}
	seat := s.seatByID(seatID)
	if seat == nil {
		return newErr(ErrNotFound, "seat not found")
	}
	idx, ok := seat.HasCard(cardID)
	if !ok {
		return newErr(ErrCardNotInHand, "card not in hand")
	}
	top, _ := s.deck.TopDiscard()
	card := seat.Hand[idx]
	if s.pendingDrawCount > 0 && !card.IsStacker() {
		return newErr(ErrMustStack, "a draw penalty is pending: stack onto it or draw")
	}
	if !isPlayable(card, top, s.pendingDrawCount) {
		return newErr(ErrIllegalPlay, "card is not playable on the current top")
	}
	if card.IsWild() {
		if chosenColor == nil {
			return newErr(ErrMissingColor, "wild card requires a chosenColor")
		}
		card = card.WithChosenColor(*chosenColor)
	}
	if card.Kind == KindWildDrawFour {
		committed := committedColor(top)
		for i, c := range seat.Hand {
			if i != idx && c.Color == committed {
				log.Printf("[RULES %s] wild_draw_four played by seat %s while holding a %s card", s.SessionID, seatID, committed)
				break
			}
		}
	}

	seat.RemoveCard(idx)
	s.deck.PlayToDiscard(card)
	s.totalCardsPlayed++

	s.events.Broadcast(s.RoomCode, Event{Type: EventCardPlayed, Payload: CardPlayedPayload{
		SeatID: seatID, Card: card, ChosenColor: committedColor(card),
	}})

	if seat.HandSize() == 0 {
		s.endGameLocked(seatID)
		return nil
	}

	if seat.HandSize() == 1 {
		openOneCallWindow(seat, s.clock())
		s.scheduleOneCallExpiry(seat)
	}

	res := resolveEffect(s.cursor, card, s.Config.StackingAllowed)
	if res.stackDelta > 0 {
		s.pendingDrawCount += res.stackDelta
		s.lastPlayedKind = res.lastPlayedKind
	} else if res.drawForNext > 0 {
		// Non-stacking mode: the cursor now sits on the penalized seat; deal
		// the cards and advance once more so their turn is forfeited.
		victim := s.seatByID(s.cursor.Current())
		if victim != nil {
			cards, derr := s.deck.DrawN(res.drawForNext, s.rng)
			if derr != nil {
				log.Printf("[SESSION %s] draw penalty for seat %s not applied: %v", s.SessionID, victim.ID, derr)
			} else {
				victim.AddCards(cards...)
				s.events.Broadcast(s.RoomCode, Event{Type: EventCardDrawn, Payload: CardDrawnPayload{
					SeatID: victim.ID, Count: res.drawForNext,
				}})
			}
		}
		s.cursor.Advance()
	}

	s.events.Broadcast(s.RoomCode, Event{Type: EventTurnChanged, Payload: TurnChangedPayload{
		CurrentSeatID: s.cursor.Current(), Direction: s.cursor.Direction(),
	}})
	s.emitState()
	s.maybeScheduleBotAction(0)
	return nil
}

// ---- DrawCard ----

// DrawCard implements spec §4.4's draw-then-maybe-play action.
func (s *Session) DrawCard(seatID string, autoPlay bool, autoPlayColor *Color) error {
	_, err := s.call(func() (any, error) {
		return nil, s.drawCardLocked(seatID, autoPlay, autoPlayColor)
	})
	return err
}

func (s *Session) drawCardLocked(seatID string, autoPlay bool, autoPlayColor *Color) error {
	if s.status != StatusPlaying {
		return newErr(ErrWrongState, "session is not in PLAYING")
	}
	if s.cursor.Current() != seatID {
		return newErr(ErrNotYourTurn, "it is not your turn")
	}
	seat := s.seatByID(seatID)
	if seat == nil {
		return newErr(ErrNotFound, "seat not found")
	}

	if s.pendingDrawCount > 0 {
		if hasStacker(seat.Hand) {
			return newErr(ErrMustStackOrForfeit, "hold a stacker: play it or it forfeits your turn")
		}
		n := s.pendingDrawCount
		cards, err := s.deck.DrawN(n, s.rng)
		if err != nil {
			return err
		}
		seat.AddCards(cards...)
		s.pendingDrawCount = 0
		s.events.Broadcast(s.RoomCode, Event{Type: EventCardDrawn, Payload: CardDrawnPayload{SeatID: seatID, Count: n}})
		s.cursor.Advance()
		s.events.Broadcast(s.RoomCode, Event{Type: EventTurnChanged, Payload: TurnChangedPayload{
			CurrentSeatID: s.cursor.Current(), Direction: s.cursor.Direction(),
		}})
		s.emitState()
		s.maybeScheduleBotAction(0)
		return nil
	}

	cards, err := s.deck.DrawN(1, s.rng)
	if err != nil {
		return err
	}
	drawn := cards[0]
	seat.AddCards(drawn)
	s.events.Broadcast(s.RoomCode, Event{Type: EventCardDrawn, Payload: CardDrawnPayload{SeatID: seatID, Count: 1}})

	// The seat MAY play the drawn card in the same action. A drawn wild
	// without a color to commit just ends the turn instead of failing the
	// action halfway through (the draw itself already happened).
	top, _ := s.deck.TopDiscard()
	if autoPlay && isPlayable(drawn, top, 0) && (!drawn.IsWild() || autoPlayColor != nil) {
		return s.playCardLocked(seatID, drawn.ID, autoPlayColor)
	}

	s.cursor.Advance()
	s.events.Broadcast(s.RoomCode, Event{Type: EventTurnChanged, Payload: TurnChangedPayload{
		CurrentSeatID: s.cursor.Current(), Direction: s.cursor.Direction(),
	}})
	s.emitState()
	s.maybeScheduleBotAction(0)
	return nil
}

// ---- CallOne / CatchNoOne ----

func (s *Session) CallOne(seatID string) error {
	_, err := s.call(func() (any, error) {
		if s.status != StatusPlaying {
			return nil, newErr(ErrWrongState, "session is not in PLAYING")
		}
		seat := s.seatByID(seatID)
		if seat == nil {
			return nil, newErr(ErrNotFound, "seat not found")
		}
		if err := callOne(seat); err != nil {
			return nil, err
		}
		s.events.Broadcast(s.RoomCode, Event{Type: EventOneCalled, Payload: OneCalledPayload{SeatID: seatID}})
		return nil, nil
	})
	return err
}

func (s *Session) CatchNoOne(callerSeatID, targetSeatID string) error {
	_, err := s.call(func() (any, error) {
		if s.status != StatusPlaying {
			return nil, newErr(ErrWrongState, "session is not in PLAYING")
		}
		target := s.seatByID(targetSeatID)
		if target == nil {
			return nil, newErr(ErrNotFound, "seat not found")
		}
		if !catchable(target, s.clock(), s.Config.CallOneWindow) {
			return nil, newErr(ErrNotEligible, "target is not catchable for failing to call ONE")
		}
		cards, err := s.deck.DrawN(2, s.rng)
		if err != nil {
			return nil, err
		}
		target.AddCards(cards...)
		s.events.Broadcast(s.RoomCode, Event{Type: EventOneCaught, Payload: OneCaughtPayload{
			SeatID: targetSeatID, ByCaller: callerSeatID, Penalty: 2,
		}})
		s.emitState()
		return nil, nil
	})
	return err
}

// scheduleOneCallExpiry arms the automatic no-call penalty for a seat whose
// hand just dropped to one card: if the window lapses with no ONE call and no
// manual catch, the seat draws 2 anyway (spec §4.6 "penalty on successful
// catch or window expiry"). The seat's window sequence counter keeps a stale
// timer from penalizing a later, unrelated single-card stretch. Must be
// called from within the writer.
func (s *Session) scheduleOneCallExpiry(seat *Seat) {
	seatID := seat.ID
	seq := seat.callWindowSeq
	time.AfterFunc(s.Config.CallOneWindow, func() {
		_, _ = s.call(func() (any, error) {
			if s.status != StatusPlaying {
				return nil, nil
			}
			target := s.seatByID(seatID)
			if target == nil || target.callWindowSeq != seq {
				return nil, nil
			}
			if !callWindowExpired(target, s.clock(), s.Config.CallOneWindow) {
				return nil, nil
			}
			cards, err := s.deck.DrawN(2, s.rng)
			if err != nil {
				return nil, nil
			}
			target.AddCards(cards...)
			s.events.Broadcast(s.RoomCode, Event{Type: EventOneCaught, Payload: OneCaughtPayload{
				SeatID: seatID, Penalty: 2,
			}})
			s.emitState()
			return nil, nil
		})
	})
}

// ---- Bot lobby management ----

func (s *Session) AddBot(leaderSeatID string, botSeatID, nickname string) error {
	_, err := s.call(func() (any, error) {
		if s.status != StatusLobby {
			return nil, newErr(ErrWrongState, "can only add bots in LOBBY")
		}
		if leaderSeatID != s.leaderSeatID {
			return nil, newErr(ErrNotLeader, "only the leader can add a bot")
		}
		if len(s.seats) >= s.Config.MaxPlayers {
			return nil, newErr(ErrRoomFull, "room is full")
		}
		if s.botCount() >= s.Config.MaxBots {
			return nil, newErr(ErrBotLimit, "bot limit reached")
		}
		seat := &Seat{ID: botSeatID, Nickname: nickname, Kind: SeatBot, Connected: true}
		s.seats = append(s.seats, seat)
		s.events.Broadcast(s.RoomCode, Event{Type: EventPlayerJoined, Payload: PlayerJoinedPayload{Seat: s.seatView(seat)}})
		return nil, nil
	})
	return err
}

// Join adds a human seat in LOBBY (spec §4.11's joinRoom ultimately lands
// here once the Registry has checked kick/room-existence concerns).
func (s *Session) Join(seatID, externalUserID, nickname string) (*Seat, error) {
	v, err := s.call(func() (any, error) {
		if s.status != StatusLobby {
			return nil, newErr(ErrWrongState, "can only join while the room is in LOBBY")
		}
		if len(s.seats) >= s.Config.MaxPlayers {
			return nil, newErr(ErrRoomFull, "room is full")
		}
		for _, seat := range s.seats {
			if seat.ExternalUserID != nil && *seat.ExternalUserID == externalUserID {
				return nil, newErr(ErrAlreadyInRoom, "already seated in this room")
			}
		}
		userID := externalUserID
		seat := &Seat{ID: seatID, ExternalUserID: &userID, Nickname: nickname, Kind: SeatHuman, Connected: true}
		s.seats = append(s.seats, seat)
		if s.leaderSeatID == "" {
			s.leaderSeatID = seatID
		}
		s.events.Broadcast(s.RoomCode, Event{Type: EventPlayerJoined, Payload: PlayerJoinedPayload{Seat: s.seatView(seat)}})
		return seat, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Seat), nil
}

// Reconnect restores a disconnected human seat (or hands a SUBSTITUTE_BOT
// seat back to the human it was standing in for) without disturbing its
// position in the turn ring, hand, or score. Re-arming the bot scheduler
// discards any pending bot action for the reclaimed seat (spec §5's
// cancellation rule) while keeping genuine bot seats ticking.
func (s *Session) Reconnect(externalUserID string) (*Seat, error) {
	v, err := s.call(func() (any, error) {
		for _, seat := range s.seats {
			if seat.Kind == SeatSubstituteBot && seat.SubstitutedUserID != nil && *seat.SubstitutedUserID == externalUserID {
				userID := externalUserID
				seat.Kind = SeatHuman
				seat.Connected = true
				seat.ExternalUserID = &userID
				seat.SubstitutedUserID = nil
				s.events.Broadcast(s.RoomCode, Event{Type: EventPlayerJoined, Payload: PlayerJoinedPayload{Seat: s.seatView(seat)}})
				s.emitState()
				s.maybeScheduleBotAction(0)
				return seat, nil
			}
			if seat.ExternalUserID != nil && *seat.ExternalUserID == externalUserID {
				seat.Connected = true
				return seat, nil
			}
		}
		return nil, newErr(ErrNotFound, "no seat to reconnect to")
	})
	if err != nil {
		return nil, err
	}
	return v.(*Seat), nil
}

func (s *Session) RemoveBot(leaderSeatID, botSeatID string) error {
	_, err := s.call(func() (any, error) {
		if s.status != StatusLobby {
			return nil, newErr(ErrWrongState, "can only remove bots in LOBBY")
		}
		if leaderSeatID != s.leaderSeatID {
			return nil, newErr(ErrNotLeader, "only the leader can remove a bot")
		}
		for i, seat := range s.seats {
			if seat.ID == botSeatID && seat.Kind == SeatBot {
				s.seats = append(s.seats[:i], s.seats[i+1:]...)
				s.events.Broadcast(s.RoomCode, Event{Type: EventPlayerLeft, Payload: PlayerLeftPayload{SeatID: botSeatID, Reason: "removed"}})
				return nil, nil
			}
		}
		return nil, newErr(ErrNotFound, "bot seat not found")
	})
	return err
}

// ---- Kick / transfer leadership ----

func (s *Session) Kick(leaderSeatID, targetSeatID string) (*string, error) {
	v, err := s.call(func() (any, error) {
		if leaderSeatID != s.leaderSeatID {
			return nil, newErr(ErrNotLeader, "only the leader can kick")
		}
		if targetSeatID == leaderSeatID {
			return nil, newErr(ErrSelfKick, "leader cannot kick themselves")
		}
		target := s.seatByID(targetSeatID)
		if target == nil {
			return nil, newErr(ErrNotFound, "seat not found")
		}
		kickedUser := target.ExternalUserID
		s.removeSeat(targetSeatID)
		s.events.Broadcast(s.RoomCode, Event{Type: EventPlayerKicked, Payload: PlayerKickedPayload{SeatID: targetSeatID}})
		if s.status == StatusPlaying {
			s.emitState()
			s.maybeScheduleBotAction(0)
		}
		return kickedUser, nil
	})
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	return v.(*string), nil
}

func (s *Session) TransferLeader(currentLeaderSeatID, newLeaderSeatID string) error {
	_, err := s.call(func() (any, error) {
		if currentLeaderSeatID != s.leaderSeatID {
			return nil, newErr(ErrNotLeader, "only the leader can transfer leadership")
		}
		target := s.seatByID(newLeaderSeatID)
		if target == nil || target.Kind != SeatHuman {
			return nil, newErr(ErrTargetIsBot, "new leader must be a connected human seat")
		}
		old := s.leaderSeatID
		s.leaderSeatID = newLeaderSeatID
		s.events.Broadcast(s.RoomCode, Event{Type: EventLeaderChanged, Payload: LeaderChangedPayload{OldSeatID: old, NewSeatID: newLeaderSeatID}})
		return nil, nil
	})
	return err
}

// LeaderSeatID reports the current leader (used by the Room/Registry).
func (s *Session) LeaderSeatID() string {
	v, _ := s.call(func() (any, error) { return s.leaderSeatID, nil })
	if v == nil {
		return ""
	}
	return v.(string)
}

// removeSeat takes seat out of the ring/roster, fixing up the cursor if it
// was mid-game. A mid-game removal returns the seat's hand to the bottom of
// the draw pile so the 108-card conservation invariant survives. Caller must
// already be inside the writer (call-locked).
func (s *Session) removeSeat(seatID string) {
	for i, seat := range s.seats {
		if seat.ID == seatID {
			if s.status == StatusPlaying && s.deck != nil && len(seat.Hand) > 0 {
				returned := make([]Card, len(seat.Hand))
				for j, c := range seat.Hand {
					returned[j] = c.WithoutChosenColor()
				}
				s.deck.draw = append(returned, s.deck.draw...)
				seat.Hand = nil
			}
			s.seats = append(s.seats[:i], s.seats[i+1:]...)
			break
		}
	}
	if s.cursor != nil {
		s.cursor.Remove(seatID)
	}
}

// ---- Player leave (spec §4.9) ----

// PlayerLeave handles a disconnect/leave intent for seatID. destroyed is true
// when no human seat would remain; the caller then closes the Session and
// drops the Room.
func (s *Session) PlayerLeave(seatID string) (destroyed bool, err error) {
	v, callErr := s.call(func() (any, error) {
		seat := s.seatByID(seatID)
		if seat == nil {
			return false, nil
		}

		if s.status != StatusPlaying {
			wasLeader := seatID == s.leaderSeatID
			s.removeSeat(seatID)
			if wasLeader {
				s.reassignLeaderToEarliestHuman()
			}
			if s.humanCount() == 0 {
				return true, nil
			}
			s.events.Broadcast(s.RoomCode, Event{Type: EventPlayerLeft, Payload: PlayerLeftPayload{SeatID: seatID, Reason: "left"}})
			return false, nil
		}

		remainingHumans := 0
		for _, other := range s.seats {
			if other.ID != seatID && other.Kind == SeatHuman {
				remainingHumans++
			}
		}
		if remainingHumans == 0 {
			return true, nil
		}

		// The substitute inherits the seat in place: same ring position,
		// hand, score, and calledOne flag. The cursor stays put — if it was
		// the leaver's turn, the bot loop picks the turn up below.
		userID := seat.ExternalUserID
		seat.Kind = SeatSubstituteBot
		seat.Connected = false
		seat.SubstitutedUserID = userID
		seat.ExternalUserID = nil

		if seatID == s.leaderSeatID {
			s.reassignLeaderToEarliestHuman()
		}

		s.events.Broadcast(s.RoomCode, Event{Type: EventPlayerLeft, Payload: PlayerLeftPayload{SeatID: seatID, Reason: "disconnected"}})
		s.emitState()
		s.maybeScheduleBotAction(0)
		return false, nil
	})
	if callErr != nil {
		return false, callErr
	}
	return v.(bool), nil
}

func (s *Session) reassignLeaderToEarliestHuman() {
	for _, seat := range s.seats {
		if seat.Kind == SeatHuman {
			old := s.leaderSeatID
			s.leaderSeatID = seat.ID
			s.events.Broadcast(s.RoomCode, Event{Type: EventLeaderChanged, Payload: LeaderChangedPayload{OldSeatID: old, NewSeatID: seat.ID}})
			return
		}
	}
	s.leaderSeatID = ""
}

// ---- End game (spec §4.8 endGame, §6 scoring) ----

func (s *Session) endGameLocked(winnerSeatID string) {
	s.cancelBotTimer()
	s.status = StatusGameOver

	type scored struct {
		seat   *Seat
		points int
	}
	ranked := make([]scored, 0, len(s.seats))
	for _, seat := range s.seats {
		ranked = append(ranked, scored{seat: seat, points: seat.HandPoints()})
	}
	// Stable-ish selection sort by (handSize asc, handPoints asc); winner
	// (handSize 0) always sorts first since 0 is the minimum.
	for i := 0; i < len(ranked); i++ {
		best := i
		for j := i + 1; j < len(ranked); j++ {
			a, b := ranked[j], ranked[best]
			if a.seat.HandSize() < b.seat.HandSize() ||
				(a.seat.HandSize() == b.seat.HandSize() && a.points < b.points) {
				best = j
			}
		}
		ranked[i], ranked[best] = ranked[best], ranked[i]
	}

	rankings := make([]RankingEntry, 0, len(ranked))
	participants := map[string]ParticipantResult{}
	var participantIDs []string
	winnerUserID := ""
	for i, r := range ranked {
		position := i + 1
		earned := 0
		switch position {
		case 1:
			earned = 50
		case 2:
			earned = 10
		}
		r.seat.Score += earned
		rankings = append(rankings, RankingEntry{
			SeatID: r.seat.ID, Position: position, RemainingCards: r.seat.HandSize(),
			HandPoints: r.points, PointsEarned: earned,
		})
		if r.seat.ExternalUserID != nil {
			participantIDs = append(participantIDs, *r.seat.ExternalUserID)
			participants[*r.seat.ExternalUserID] = ParticipantResult{
				Position: position, RemainingCards: r.seat.HandSize(), HandPoints: r.points, PointsEarned: earned,
			}
			if position == 1 && winnerUserID == "" {
				winnerUserID = *r.seat.ExternalUserID
			}
		} else if position == 1 {
			// Bot won; winner for hooks purposes falls to the first human
			// in ranking order per spec §6.
		}
	}
	if winnerUserID == "" {
		for _, r := range ranked {
			if r.seat.ExternalUserID != nil {
				winnerUserID = *r.seat.ExternalUserID
				break
			}
		}
	}

	s.events.Broadcast(s.RoomCode, Event{Type: EventGameEnded, Payload: GameEndedPayload{
		WinnerSeatID: winnerSeatID, Rankings: rankings,
	}})
	s.emitState()

	if len(participantIDs) == 0 {
		return
	}
	endedAt := s.clock()
	duration := int(endedAt.Sub(s.startedAt).Minutes())
	if duration < 1 {
		duration = 1
	}
	summary := GameEndSummary{
		RoomCode: s.RoomCode, StartedAt: s.startedAt, EndedAt: endedAt,
		DurationMinutes: duration, ParticipantUserIDs: participantIDs,
		Winner: winnerUserID, FinalScores: participants, TotalCardsPlayed: s.totalCardsPlayed,
	}
	go s.hooks.RecordGameEnd(summary)
}

// ---- Bot autoplay loop (spec §4.10) ----

// maybeScheduleBotAction arms a cancelable timer if the current seat is a
// bot. Must be called from within the writer. consecutive tracks how many
// bot actions have fired back-to-back without a human turn in between, to
// feed the MaxBotActions safeguard.
func (s *Session) maybeScheduleBotAction(consecutive int) {
	s.cancelBotTimer()
	if s.status != StatusPlaying || s.cursor == nil {
		return
	}
	seat := s.seatByID(s.cursor.Current())
	if seat == nil || !seat.IsBot() {
		return
	}
	delay := s.Config.BotThinkingDelay
	if s.Config.MaxBotActions > 0 && consecutive >= s.Config.MaxBotActions {
		// A legal game can still route turns between bots indefinitely
		// (skip chains over the remaining humans), so the safeguard backs
		// off and resets the chain rather than wedging the session.
		log.Printf("[SESSION %s] bot chain safeguard hit after %d consecutive actions, backing off", s.SessionID, consecutive)
		consecutive = 0
		delay = s.Config.BotThinkingDelay * 10
	}
	gen := make(chan struct{})
	s.botTimerC = gen
	s.botTimer = time.AfterFunc(delay, func() {
		select {
		case <-gen:
			return // canceled — turn moved on before this fired
		default:
		}
		s.runBotTurn(consecutive)
	})
}

func (s *Session) cancelBotTimer() {
	if s.botTimer != nil {
		s.botTimer.Stop()
		s.botTimer = nil
	}
	if s.botTimerC != nil {
		close(s.botTimerC)
		s.botTimerC = nil
	}
}

// runBotTurn consults BotStrategy and applies exactly one play/draw through
// the same locked code path a human intent uses, then re-arms the timer for
// the next seat if it's also a bot. Called from a timer goroutine, never
// from within the writer itself.
func (s *Session) runBotTurn(consecutive int) {
	_, err := s.call(func() (any, error) {
		if s.status != StatusPlaying || s.cursor == nil {
			return nil, nil
		}
		seat := s.seatByID(s.cursor.Current())
		if seat == nil || !seat.IsBot() {
			return nil, nil
		}
		top, _ := s.deck.TopDiscard()
		next := s.cursor.PeekNext()
		nextHandSize := 99
		if ns := s.seatByID(next); ns != nil {
			nextHandSize = ns.HandSize()
		}
		action := chooseBotAction(seat.Hand, top, s.pendingDrawCount, nextHandSize, s.rng)

		var actErr error
		if action.draw {
			// Pre-pick a color so a drawn wild can be auto-played.
			drawColor := pickBestColor(seat.Hand, s.rng)
			actErr = s.drawCardLocked(seat.ID, true, &drawColor)
		} else {
			var color *Color
			if action.chosenColor != "" {
				c := action.chosenColor
				color = &c
			}
			actErr = s.playCardLocked(seat.ID, seat.Hand[action.handIndex].ID, color)
		}
		if actErr != nil {
			// A bot producing an error advances the turn so the loop never
			// wedges on a seat nobody is driving (spec §7).
			log.Printf("[SESSION %s] bot action failed for seat %s: %v", s.SessionID, seat.ID, actErr)
			s.cursor.Advance()
			s.events.Broadcast(s.RoomCode, Event{Type: EventTurnChanged, Payload: TurnChangedPayload{
				CurrentSeatID: s.cursor.Current(), Direction: s.cursor.Direction(),
			}})
			s.emitState()
			s.maybeScheduleBotAction(consecutive + 1)
			return nil, nil
		}
		if seat.HandSize() == 1 && shouldCallOne(s.rng) {
			_ = callOne(seat)
			s.events.Broadcast(s.RoomCode, Event{Type: EventOneCalled, Payload: OneCalledPayload{SeatID: seat.ID}})
		}
		// playCardLocked/drawCardLocked already called maybeScheduleBotAction(0)
		// for the new current seat; re-arm with the incremented counter so the
		// safeguard actually accumulates across a bot-to-bot chain.
		s.maybeScheduleBotAction(consecutive + 1)
		return nil, nil
	})
	if err != nil {
		log.Printf("[SESSION %s] bot turn dropped: %v", s.SessionID, err)
	}
}

// ---- Snapshots / view helpers ----

func (s *Session) seatView(seat *Seat) SeatView {
	return SeatView{
		SeatID: seat.ID, Nickname: seat.Nickname, Kind: seat.Kind,
		HandSize: seat.HandSize(), CalledOne: seat.CalledOne,
		Connected: seat.Connected, Score: seat.Score,
	}
}

func (s *Session) publicStateLocked() PublicStatePayload {
	seatViews := make([]SeatView, 0, len(s.seats))
	for _, seat := range s.seats {
		seatViews = append(seatViews, s.seatView(seat))
	}
	var turnOrder []string
	var current string
	var direction Direction = DirCW
	if s.cursor != nil {
		turnOrder = s.cursor.Seats()
		current = s.cursor.Current()
		direction = s.cursor.Direction()
	}
	var topView *TopCardView
	var committed Color
	if s.deck != nil {
		if top, ok := s.deck.TopDiscard(); ok {
			topView = &TopCardView{Color: top.Color, Kind: top.Kind, Value: top.Value, ChosenColor: top.ChosenColor}
			committed = committedColor(top)
		}
	}
	deckSize := 0
	if s.deck != nil {
		deckSize = s.deck.DrawCount()
	}
	return PublicStatePayload{
		SessionID: s.SessionID, RoomCode: s.RoomCode, Status: s.status,
		CurrentSeatID: current, Direction: direction, TopCard: topView,
		CommittedColor: committed, DeckSize: deckSize, PendingDrawCount: s.pendingDrawCount,
		Seats: seatViews, TurnOrder: turnOrder,
	}
}

// emitState fans out PUBLIC_STATE then one PRIVATE_HAND per human seat, in
// that fixed order (spec §5's per-room ordering guarantee). Hands are copied
// because the fanout delivers asynchronously and the writer keeps mutating
// the live slices.
func (s *Session) emitState() {
	s.events.Broadcast(s.RoomCode, Event{Type: EventPublicState, Payload: s.publicStateLocked()})
	for _, seat := range s.seats {
		if seat.Kind == SeatHuman && seat.ExternalUserID != nil {
			hand := append([]Card(nil), seat.Hand...)
			s.events.ToSeat(s.RoomCode, seat.ID, Event{Type: EventPrivateHand, Payload: PrivateHandPayload{Cards: hand}})
		}
	}
}

func (s *Session) emitStartedAndState() {
	s.events.Broadcast(s.RoomCode, Event{Type: EventGameStarted, Payload: s.publicStateLocked()})
	for _, seat := range s.seats {
		if seat.Kind == SeatHuman && seat.ExternalUserID != nil {
			hand := append([]Card(nil), seat.Hand...)
			s.events.ToSeat(s.RoomCode, seat.ID, Event{Type: EventPrivateHand, Payload: PrivateHandPayload{Cards: hand}})
		}
	}
}

// Status reports the session's current coarse state (safe to call from
// outside the writer; it's a single word read via the same job queue).
func (s *Session) Status() SessionStatus {
	v, _ := s.call(func() (any, error) { return s.status, nil })
	if v == nil {
		return ""
	}
	return v.(SessionStatus)
}

// Snapshot returns the current PUBLIC_STATE (used by HTTP GET /rooms/:code
// and by reconnect flows). A closed session yields a zero payload.
func (s *Session) Snapshot() PublicStatePayload {
	v, _ := s.call(func() (any, error) { return s.publicStateLocked(), nil })
	snap, _ := v.(PublicStatePayload)
	return snap
}

// SeatCount reports the number of seats currently in the roster.
func (s *Session) SeatCount() int {
	v, _ := s.call(func() (any, error) { return len(s.seats), nil })
	n, _ := v.(int)
	return n
}

// SeatIDForUser is the exported form of seatIDForUser, for transport-layer
// callers (internal/ws) that need to resolve a connection to its seat.
func (s *Session) SeatIDForUser(externalUserID string) string {
	return s.seatIDForUser(externalUserID)
}

// seatIDForUser resolves an externalUserId to its current seatId, checking
// both HUMAN seats and SUBSTITUTE_BOT seats standing in for a disconnected
// user (so a disconnected-but-not-yet-left user can still be found by the
// registry's leave path).
func (s *Session) seatIDForUser(externalUserID string) string {
	v, _ := s.call(func() (any, error) {
		for _, seat := range s.seats {
			if seat.ExternalUserID != nil && *seat.ExternalUserID == externalUserID {
				return seat.ID, nil
			}
			if seat.SubstitutedUserID != nil && *seat.SubstitutedUserID == externalUserID {
				return seat.ID, nil
			}
		}
		return "", nil
	})
	s2, _ := v.(string)
	return s2
}

// UserIDForSeat resolves a seatId to the externalUserId that should receive
// that seat's messages: the seated human, or, for a SUBSTITUTE_BOT seat, the
// disconnected user it stands in for. Returns "" for plain bot seats.
func (s *Session) UserIDForSeat(seatID string) string {
	v, _ := s.call(func() (any, error) {
		seat := s.seatByID(seatID)
		if seat == nil {
			return "", nil
		}
		if seat.SubstitutedUserID != nil {
			return *seat.SubstitutedUserID, nil
		}
		if seat.ExternalUserID != nil {
			return *seat.ExternalUserID, nil
		}
		return "", nil
	})
	id, _ := v.(string)
	return id
}

// Reset returns a GAME_OVER session to LOBBY for a rematch in the same
// Room. Bots and substitutes are dropped; connected humans keep their
// seatId but their hand, score, and calledOne flag are cleared. Not part of
// spec.md's explicit op table, but required by the Room lifecycle note that
// "creating a new game after GAME_OVER requires explicit reset back to
// LOBBY" (§3). Only the leader may reset, same as start.
func (s *Session) Reset(callerSeatID string) error {
	_, err := s.call(func() (any, error) {
		if s.status != StatusGameOver {
			return nil, newErr(ErrWrongState, "can only reset a finished game")
		}
		if callerSeatID != s.leaderSeatID {
			return nil, newErr(ErrNotLeader, "only the leader can reset the game")
		}
		humans := s.seats[:0]
		for _, seat := range s.seats {
			if seat.Kind == SeatHuman {
				seat.Hand = nil
				seat.Score = 0
				seat.CalledOne = false
				humans = append(humans, seat)
			}
		}
		s.seats = humans
		s.cursor = nil
		s.deck = nil
		s.pendingDrawCount = 0
		s.lastPlayedKind = ""
		s.totalCardsPlayed = 0
		s.status = StatusLobby
		if s.leaderSeatID != "" {
			if s.seatByID(s.leaderSeatID) == nil {
				s.reassignLeaderToEarliestHuman()
			}
		}
		s.events.Broadcast(s.RoomCode, Event{Type: EventRoomUpdated, Payload: s.publicStateLocked()})
		return nil, nil
	})
	return err
}
