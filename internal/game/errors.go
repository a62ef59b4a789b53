package game

// ErrCode is a stable machine-readable error code surfaced to clients.
type ErrCode string

const (
	ErrNotLeader   ErrCode = "NOT_LEADER"
	ErrNotYourTurn ErrCode = "NOT_YOUR_TURN"
	ErrSelfKick    ErrCode = "SELF_KICK"
	ErrTargetIsBot ErrCode = "TARGET_IS_BOT"

	ErrWrongState    ErrCode = "WRONG_STATE"
	ErrTooFewPlayers ErrCode = "TOO_FEW_PLAYERS"
	ErrRoomFull      ErrCode = "ROOM_FULL"
	ErrBotLimit      ErrCode = "BOT_LIMIT"
	ErrPlayerKicked  ErrCode = "PLAYER_KICKED"
	ErrAlreadyInRoom ErrCode = "ALREADY_IN_ROOM"

	ErrCardNotInHand      ErrCode = "CARD_NOT_IN_HAND"
	ErrIllegalPlay        ErrCode = "ILLEGAL_PLAY"
	ErrMissingColor       ErrCode = "MISSING_COLOR"
	ErrMustStack          ErrCode = "MUST_STACK"
	ErrMustStackOrForfeit ErrCode = "MUST_STACK_OR_FORFEIT"
	ErrNotEligible        ErrCode = "NOT_ELIGIBLE"
	ErrNotFound           ErrCode = "NOT_FOUND"

	ErrDeckExhausted ErrCode = "DECK_EXHAUSTED"
	ErrInternal      ErrCode = "INTERNAL"
)

// GameError is the typed error returned by every validation/state-machine
// failure in the rules core. No exceptions are used for control flow; every
// fallible operation returns one of these (or nil) explicitly.
type GameError struct {
	Code    ErrCode
	Message string
}

func (e *GameError) Error() string {
	return string(e.Code) + ": " + e.Message
}

func newErr(code ErrCode, message string) *GameError {
	return &GameError{Code: code, Message: message}
}

// AsGameError unwraps err into a *GameError if possible, otherwise wraps it
// as an INTERNAL error so callers never have to special-case raw errors.
func AsGameError(err error) *GameError {
	if err == nil {
		return nil
	}
	if ge, ok := err.(*GameError); ok {
		return ge
	}
	return newErr(ErrInternal, err.Error())
}
