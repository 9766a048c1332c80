// internal/game/errors.go
package game

import "errors"

// Business-rule failures. All of them are expected, non-fatal outcomes that
// leave room state untouched; handlers translate them into failure payloads.
var (
	ErrRoomNotFound         = errors.New("room not found")
	ErrNotInRoom            = errors.New("player is not in the room")
	ErrNotAuthorized        = errors.New("only the room owner may perform this action")
	ErrRoomFull             = errors.New("room is full")
	ErrAlreadyInOtherRoom   = errors.New("player is already in another room")
	ErrInvalidPhase         = errors.New("action is not allowed in the current room status")
	ErrPlayersNotReady      = errors.New("all players must be ready first")
	ErrMissingConfiguration = errors.New("target word has not been configured")
	ErrDrawerCannotGuess    = errors.New("the drawer does not take part in guessing")
	ErrNotDrawer            = errors.New("only the current drawer may do this")
	ErrDrawerNotInRoom      = errors.New("drawer must be a member of the room")
	ErrAlreadyResolved      = errors.New("player has already guessed or skipped this turn")
	ErrNoImageAvailable     = errors.New("no drawing data is available to guess from")
	ErrTurnSuperseded       = errors.New("the turn ended while recognition was in flight")
)
