package game

import (
	"math/rand"
	"sync"
	"time"
)

const (
	roomCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	roomCodeLength   = 6
	roomCodeMaxTries = 100
)

// RoomRegistry owns the process-wide roomCode -> Room map and the
// externalUserId -> roomCode index. It is the single cross-session shared
// structure described in spec §5 and is guarded by one mutex rather than
// sharded per-session; its operations are index lookups only — the
// expensive per-room work happens on the Session's own writer.
type RoomRegistry struct {
	mu sync.Mutex

	rooms       map[string]*Room
	userToRoom  map[string]string
	leavingLock map[string]bool // "currently leaving" single-flight guard, keyed roomCode+"/"+seatId

	rng    *rand.Rand
	events EventFanout
	hooks  LifecycleHooks

	idSeq int
}

func NewRoomRegistry(events EventFanout, hooks LifecycleHooks) *RoomRegistry {
	return &RoomRegistry{
		rooms:       map[string]*Room{},
		userToRoom:  map[string]string{},
		leavingLock: map[string]bool{},
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		events:      events,
		hooks:       hooks,
	}
}

func (reg *RoomRegistry) nextSessionID() string {
	reg.idSeq++
	return "sess_" + itoa(reg.idSeq)
}

func (reg *RoomRegistry) nextSeatID() string {
	reg.idSeq++
	return "seat_" + itoa(reg.idSeq)
}

// NextSeatID is the locked, externally callable form of nextSeatID — used by
// the Dispatcher when minting a seatId for a bot added mid-lobby, outside of
// CreateRoom/JoinRoom's own locked sections.
func (reg *RoomRegistry) NextSeatID() string {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return reg.nextSeatID()
}

// itoa avoids pulling in strconv just for this; kept local and tiny.
func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

func (reg *RoomRegistry) generateRoomCode() (string, error) {
	for attempt := 0; attempt < roomCodeMaxTries; attempt++ {
		b := make([]byte, roomCodeLength)
		for i := range b {
			b[i] = roomCodeAlphabet[reg.rng.Intn(len(roomCodeAlphabet))]
		}
		code := string(b)
		if _, exists := reg.rooms[code]; !exists {
			return code, nil
		}
	}
	return "", newErr(ErrInternal, "could not generate a unique room code")
}

// CreateRoom makes a new Room in LOBBY with the creator seated as leader. If
// the creator is already in another live room, that membership is dropped
// first via the same path playerLeave would take (spec §4.11's atomicity
// requirement).
func (reg *RoomRegistry) CreateRoom(creatorUserID, creatorNickname string, cfg SessionConfig, isPrivate bool) (*Room, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if oldCode, ok := reg.userToRoom[creatorUserID]; ok {
		reg.leaveLocked(oldCode, creatorUserID)
	}

	code, err := reg.generateRoomCode()
	if err != nil {
		return nil, err
	}
	sessionID := reg.nextSessionID()
	seatID := reg.nextSeatID()
	room := NewRoom(code, isPrivate, sessionID, cfg, seatID, creatorUserID, creatorNickname, reg.rng, reg.events, reg.hooks)
	reg.rooms[code] = room
	reg.userToRoom[creatorUserID] = code

	reg.events.Broadcast(code, Event{Type: EventRoomCreated, Payload: room.Session.Snapshot()})
	return room, nil
}

// JoinRoom seats externalUserID into an existing room, leaving any previous
// room membership atomically first.
func (reg *RoomRegistry) JoinRoom(roomCode, externalUserID, nickname string) (*Room, *Seat, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	room, ok := reg.rooms[roomCode]
	if !ok {
		return nil, nil, newErr(ErrNotFound, "room not found")
	}
	if room.IsKicked(externalUserID) {
		return nil, nil, newErr(ErrPlayerKicked, "you were kicked from this room")
	}

	if oldCode, ok := reg.userToRoom[externalUserID]; ok && oldCode != roomCode {
		reg.leaveLocked(oldCode, externalUserID)
	}

	seatID := reg.nextSeatID()
	seat, err := room.Session.Join(seatID, externalUserID, nickname)
	if err != nil {
		// Mid-game joins are rejected, but a player whose seat is being held
		// by a substitute bot may reclaim it (spec §4.9 reconnection).
		if AsGameError(err).Code == ErrWrongState {
			if reclaimed, rerr := room.Session.Reconnect(externalUserID); rerr == nil {
				reg.userToRoom[externalUserID] = roomCode
				return room, reclaimed, nil
			}
		}
		return nil, nil, err
	}
	reg.userToRoom[externalUserID] = roomCode
	return room, seat, nil
}

// KickFromRoom resolves the caller's current room, performs the kick there,
// and atomically drops the kicked user's membership index entry so they can
// immediately create or join elsewhere.
func (reg *RoomRegistry) KickFromRoom(callerUserID, leaderSeatID, targetSeatID string) error {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	roomCode, ok := reg.userToRoom[callerUserID]
	if !ok {
		return newErr(ErrNotFound, "not in a room")
	}
	room, ok := reg.rooms[roomCode]
	if !ok {
		return newErr(ErrNotFound, "room not found")
	}
	kickedUserID, err := room.Kick(leaderSeatID, targetSeatID)
	if err != nil {
		return err
	}
	if kickedUserID != nil {
		delete(reg.userToRoom, *kickedUserID)
	}
	return nil
}

// LeaveRoom runs §4.9's playerLeave against externalUserId's current room,
// guarded so concurrent/duplicate leave calls for the same seat are
// idempotent (spec §5).
func (reg *RoomRegistry) LeaveRoom(externalUserID string) error {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	roomCode, ok := reg.userToRoom[externalUserID]
	if !ok {
		return nil
	}
	reg.leaveLocked(roomCode, externalUserID)
	return nil
}

// leaveLocked must be called with reg.mu held. It resolves externalUserID's
// seatId within roomCode and single-flights the leave.
func (reg *RoomRegistry) leaveLocked(roomCode, externalUserID string) {
	room, ok := reg.rooms[roomCode]
	if !ok {
		delete(reg.userToRoom, externalUserID)
		return
	}
	// PUBLIC_STATE deliberately never carries externalUserId, so resolve the
	// seat directly against the session roster instead of the snapshot.
	seatID := room.Session.seatIDForUser(externalUserID)
	if seatID == "" {
		delete(reg.userToRoom, externalUserID)
		return
	}

	flightKey := roomCode + "/" + seatID
	if reg.leavingLock[flightKey] {
		return
	}
	reg.leavingLock[flightKey] = true
	defer delete(reg.leavingLock, flightKey)

	destroyed, err := room.Session.PlayerLeave(seatID)
	if err != nil {
		return
	}
	delete(reg.userToRoom, externalUserID)
	if destroyed {
		room.Session.Close()
		reg.events.Broadcast(roomCode, Event{Type: EventRoomClosed})
		delete(reg.rooms, roomCode)
	}
}

// FindRoom looks up a room by code without mutating anything.
func (reg *RoomRegistry) FindRoom(roomCode string) (*Room, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	room, ok := reg.rooms[roomCode]
	return room, ok
}

// PublicRooms lists joinable rooms: not private, not GAME_OVER.
func (reg *RoomRegistry) PublicRooms() []*Room {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	out := make([]*Room, 0, len(reg.rooms))
	for _, room := range reg.rooms {
		if room.IsPrivate {
			continue
		}
		if room.Session.Status() == StatusGameOver {
			continue
		}
		out = append(out, room)
	}
	return out
}

// CurrentRoomOf returns the roomCode externalUserID currently occupies, if
// any.
func (reg *RoomRegistry) CurrentRoomOf(externalUserID string) (string, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	code, ok := reg.userToRoom[externalUserID]
	return code, ok
}
