package domain

import "errors"

var (
	ErrRoomNotFound      = errors.New("room-not-found")
	ErrPlayerNotFound    = errors.New("player-not-found")
	ErrRoomFull          = errors.New("room-full")
	ErrRoomStarted       = errors.New("room-already-started")
	ErrNotHost           = errors.New("not-host")
	ErrNotEnoughPlayers  = errors.New("not-enough-players")
	ErrNoActiveGame      = errors.New("no-active-game")
	ErrInvalidVote       = errors.New("invalid-vote")
	ErrDuplicateRoomCode = errors.New("duplicate-room-code")
	ErrMissingField      = errors.New("missing-required-field")
	ErrNoWordPairs       = errors.New("no-word-pairs")

	UnexpectedDatabaseError = errors.New("unexpected database error")
)
