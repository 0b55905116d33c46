package domain

import "errors"

var (
	// ErrRoomNotFound is returned when no room exists under the given code.
	ErrRoomNotFound = errors.New("room not found")
	// ErrTeamNotFound is returned when a team id does not resolve to a team.
	ErrTeamNotFound = errors.New("team not found")
	// ErrQuestionNotFound indicates a submitted question id is invalid for the room.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrQuestionAlreadySolved signals that a team already holds credit for a
	// question; callers treat it as the idempotent already-solved path, never
	// as a failure.
	ErrQuestionAlreadySolved = errors.New("question already solved")
	// ErrPositionTaken indicates an attempt to claim a grid cell the team
	// already holds.
	ErrPositionTaken = errors.New("position already claimed")
)
