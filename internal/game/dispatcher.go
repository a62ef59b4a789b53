package game

import "encoding/json"

// IntentType names every client intent from spec §6. Wire framing (the
// envelope around these) is owned by internal/ws; this package only cares
// about the decoded intent and its data.
type IntentType string

const (
	IntentCreateRoom     IntentType = "CREATE_ROOM"
	IntentJoinRoom       IntentType = "JOIN_ROOM"
	IntentLeaveRoom      IntentType = "LEAVE_ROOM"
	IntentAddBot         IntentType = "ADD_BOT"
	IntentRemoveBot      IntentType = "REMOVE_BOT"
	IntentKick           IntentType = "KICK"
	IntentTransferLeader IntentType = "TRANSFER_LEADER"
	IntentStartGame      IntentType = "START_GAME"
	IntentResetGame      IntentType = "RESET_GAME"
	IntentPlayCard       IntentType = "PLAY_CARD"
	IntentDrawCard       IntentType = "DRAW_CARD"
	IntentCallOne        IntentType = "CALL_ONE"
	IntentCatchNoOne     IntentType = "CATCH_NO_ONE"
	IntentChat           IntentType = "CHAT"
	IntentPing           IntentType = "PING"
)

// Dispatcher decodes inbound client intents and forwards them to the owning
// Session (or the RoomRegistry for room-lifecycle intents), replying errors
// to the requester via EventFanout.ToUser rather than returning them — the
// transport layer is fire-and-forget per spec §6 ("ERROR (per-user queue)").
type Dispatcher struct {
	registry *RoomRegistry
	events   EventFanout

	defaultConfig SessionConfig
}

func NewDispatcher(registry *RoomRegistry, events EventFanout, defaultConfig SessionConfig) *Dispatcher {
	return &Dispatcher{registry: registry, events: events, defaultConfig: defaultConfig}
}

type createRoomData struct {
	IsPrivate bool   `json:"isPrivate"`
	Nickname  string `json:"nickname"`
}

type joinRoomData struct {
	RoomCode string `json:"roomCode"`
	Nickname string `json:"nickname"`
}

type removeBotData struct {
	BotSeatID string `json:"botSeatId"`
}

type kickData struct {
	TargetSeatID string `json:"targetSeatId"`
}

type transferLeaderData struct {
	NewSeatID string `json:"newSeatId"`
}

type playCardData struct {
	CardID      string `json:"cardId"`
	ChosenColor string `json:"chosenColor"`
}

type drawCardData struct {
	AutoPlay    bool   `json:"autoPlay"`
	ChosenColor string `json:"chosenColor"`
}

type catchNoOneData struct {
	TargetSeatID string `json:"targetSeatId"`
}

type chatData struct {
	Text string `json:"text"`
}

// Handle routes one decoded intent for externalUserID. seatID is the
// caller's seat in their current room, resolved by the caller (internal/ws)
// before invoking intents that require one; it may be empty for
// CREATE_ROOM/JOIN_ROOM.
func (d *Dispatcher) Handle(externalUserID, seatID string, intent IntentType, raw json.RawMessage) {
	switch intent {
	case IntentCreateRoom:
		var data createRoomData
		_ = json.Unmarshal(raw, &data)
		if _, err := d.registry.CreateRoom(externalUserID, data.Nickname, d.defaultConfig, data.IsPrivate); err != nil {
			d.sendError(externalUserID, err)
		}

	case IntentJoinRoom:
		var data joinRoomData
		_ = json.Unmarshal(raw, &data)
		if _, _, err := d.registry.JoinRoom(data.RoomCode, externalUserID, data.Nickname); err != nil {
			d.sendError(externalUserID, err)
		}

	case IntentLeaveRoom:
		if err := d.registry.LeaveRoom(externalUserID); err != nil {
			d.sendError(externalUserID, err)
		}

	case IntentStartGame:
		d.withRoom(externalUserID, seatID, func(room *Room) error {
			return room.Session.Start(seatID)
		})

	case IntentResetGame:
		d.withRoom(externalUserID, seatID, func(room *Room) error {
			return room.Session.Reset(seatID)
		})

	case IntentAddBot:
		d.withRoom(externalUserID, seatID, func(room *Room) error {
			botSeatID := d.registry.NextSeatID()
			return room.Session.AddBot(seatID, botSeatID, "Bot")
		})

	case IntentRemoveBot:
		var data removeBotData
		_ = json.Unmarshal(raw, &data)
		d.withRoom(externalUserID, seatID, func(room *Room) error {
			return room.Session.RemoveBot(seatID, data.BotSeatID)
		})

	case IntentKick:
		var data kickData
		_ = json.Unmarshal(raw, &data)
		if err := d.registry.KickFromRoom(externalUserID, seatID, data.TargetSeatID); err != nil {
			d.sendError(externalUserID, err)
		}

	case IntentTransferLeader:
		var data transferLeaderData
		_ = json.Unmarshal(raw, &data)
		d.withRoom(externalUserID, seatID, func(room *Room) error {
			return room.Session.TransferLeader(seatID, data.NewSeatID)
		})

	case IntentPlayCard:
		var data playCardData
		_ = json.Unmarshal(raw, &data)
		d.withRoom(externalUserID, seatID, func(room *Room) error {
			var color *Color
			if data.ChosenColor != "" {
				c := Color(data.ChosenColor)
				color = &c
			}
			return room.Session.PlayCard(seatID, data.CardID, color)
		})

	case IntentDrawCard:
		var data drawCardData
		_ = json.Unmarshal(raw, &data)
		d.withRoom(externalUserID, seatID, func(room *Room) error {
			var color *Color
			if data.ChosenColor != "" {
				c := Color(data.ChosenColor)
				color = &c
			}
			return room.Session.DrawCard(seatID, data.AutoPlay, color)
		})

	case IntentCallOne:
		d.withRoom(externalUserID, seatID, func(room *Room) error {
			return room.Session.CallOne(seatID)
		})

	case IntentCatchNoOne:
		var data catchNoOneData
		_ = json.Unmarshal(raw, &data)
		d.withRoom(externalUserID, seatID, func(room *Room) error {
			return room.Session.CatchNoOne(seatID, data.TargetSeatID)
		})

	case IntentChat:
		var data chatData
		_ = json.Unmarshal(raw, &data)
		if data.Text == "" {
			return
		}
		d.withRoom(externalUserID, seatID, func(room *Room) error {
			d.events.Broadcast(room.RoomCode, Event{Type: EventChatMessage, Payload: ChatMessagePayload{
				SeatID: seatID, Text: data.Text,
			}})
			return nil
		})

	case IntentPing:
		// No-op; the transport layer answers liveness on its own.

	default:
		d.events.ToUser(externalUserID, Event{Type: EventError, Payload: ErrorPayload{Code: ErrNotFound, Message: "unknown intent"}})
	}
}

func (d *Dispatcher) withRoom(externalUserID, seatID string, fn func(room *Room) error) {
	roomCode, ok := d.registry.CurrentRoomOf(externalUserID)
	if !ok {
		d.events.ToUser(externalUserID, Event{Type: EventError, Payload: ErrorPayload{Code: ErrNotFound, Message: "not in a room"}})
		return
	}
	room, ok := d.registry.FindRoom(roomCode)
	if !ok {
		d.events.ToUser(externalUserID, Event{Type: EventError, Payload: ErrorPayload{Code: ErrNotFound, Message: "room not found"}})
		return
	}
	if err := fn(room); err != nil {
		d.sendError(externalUserID, err)
	}
}

func (d *Dispatcher) sendError(externalUserID string, err error) {
	ge := AsGameError(err)
	d.events.ToUser(externalUserID, Event{Type: EventError, Payload: ErrorPayload{Code: ge.Code, Message: ge.Message}})
}
