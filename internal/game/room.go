package game

import "math/rand"

// Room is the pre-game/post-game shell around a Session (spec's Data Model
// §3). It owns the Session for its entire life; creating a new game after
// GAME_OVER requires an explicit reset back to LOBBY rather than a new Room.
type Room struct {
	RoomCode  string
	IsPrivate bool

	kickedExternalUserIDs map[string]bool

	Session *Session
}

// NewRoom creates a Room and its backing LOBBY Session in one step — this
// engine keeps exactly one Session per Room for its whole life, rather than
// constructing the Session only at start, so AddBot/Kick/TransferLeader have
// somewhere to apply even before the first human has finished seating.
func NewRoom(roomCode string, isPrivate bool, sessionID string, cfg SessionConfig, creatorSeatID, creatorUserID, creatorNickname string, rng *rand.Rand, events EventFanout, hooks LifecycleHooks) *Room {
	creator := &Seat{ID: creatorSeatID, ExternalUserID: &creatorUserID, Nickname: creatorNickname, Kind: SeatHuman, Connected: true}
	session := NewSession(sessionID, roomCode, cfg, []*Seat{creator}, creatorSeatID, rng, events, hooks)
	return &Room{
		RoomCode:              roomCode,
		IsPrivate:             isPrivate,
		kickedExternalUserIDs: map[string]bool{},
		Session:               session,
	}
}

// IsKicked reports whether externalUserID was previously kicked from this
// room and so may not rejoin.
func (r *Room) IsKicked(externalUserID string) bool {
	return r.kickedExternalUserIDs[externalUserID]
}

// MarkKicked records externalUserID as barred from rejoining this room.
func (r *Room) MarkKicked(externalUserID string) {
	r.kickedExternalUserIDs[externalUserID] = true
}

// Kick removes targetSeatID via the Session and, if it belonged to a human,
// bars that externalUserId from rejoining this room (spec §4.8 kick). The
// kicked user's id is returned so the registry can drop its user->room
// mapping.
func (r *Room) Kick(leaderSeatID, targetSeatID string) (*string, error) {
	userID, err := r.Session.Kick(leaderSeatID, targetSeatID)
	if err != nil {
		return nil, err
	}
	if userID != nil {
		r.MarkKicked(*userID)
	}
	return userID, nil
}
