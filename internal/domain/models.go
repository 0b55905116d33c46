package domain

import (
	"strings"
	"time"
)

// Room is a contest instance identified by a short uppercase code. Rooms are
// created by the admin panel; the game core only reads them.
type Room struct {
	Code       string
	Title      string
	RoundEndAt *time.Time
}

// TimeRemaining reports the seconds left in the round, or 0 when no deadline
// is set or the deadline has passed.
func (r Room) TimeRemaining(now time.Time) int {
	if r.RoundEndAt == nil {
		return 0
	}
	left := int(r.RoundEndAt.Sub(now).Seconds())
	if left < 0 {
		return 0
	}
	return left
}

// Ended reports whether the round deadline has passed.
func (r Room) Ended(now time.Time) bool {
	return r.RoundEndAt != nil && r.RoundEndAt.Before(now)
}

// Question is a prompt with one expected answer. Real questions grant a grid
// cell when answered correctly; decoy questions are informational bonus only.
type Question struct {
	ID       int
	RoomCode string
	Text     string
	Answer   string
	IsReal   bool
}

// Team owns one bingo card's worth of progress inside a room.
// LinesCompleted is denormalized and always recomputable from the team's
// solved positions.
type Team struct {
	ID             string
	RoomCode       string
	Name           string
	LinesCompleted int
	StartTime      time.Time
	EndTime        *time.Time
}

// Score is the display score derived from completed lines.
func (t Team) Score() int { return t.LinesCompleted * 10 }

// Winner reports whether the team has reached the win threshold.
func (t Team) Winner() bool { return t.LinesCompleted >= WinLines }

// TimeTaken returns the duration from start to completion, or false while the
// team is still playing.
func (t Team) TimeTaken() (time.Duration, bool) {
	if t.EndTime == nil {
		return 0, false
	}
	return t.EndTime.Sub(t.StartTime), true
}

// GridAssignment is a precomputed question-to-cell hint for one team. It is
// display/compat data only; scoring assigns cells on solve.
type GridAssignment struct {
	TeamID     string
	QuestionID int
	Position   Position
}

// Attempt is one immutable audit record of an answer submission, correct or
// not. Attempts feed the activity view and are never consulted for scoring.
type Attempt struct {
	ID          int64
	TeamID      string
	QuestionID  int
	RoomCode    string
	Answer      string
	Correct     bool
	AttemptedAt time.Time
}

// NormalizeRoomCode uppercases a submitted room code and clamps it to the
// 10-character limit.
func NormalizeRoomCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) > 10 {
		code = code[:10]
	}
	return code
}

// AnswerMatches grades a submitted answer against the expected one:
// case- and surrounding-whitespace-insensitive exact match, no partial credit.
func AnswerMatches(expected, submitted string) bool {
	return strings.ToLower(strings.TrimSpace(submitted)) == strings.ToLower(strings.TrimSpace(expected))
}
