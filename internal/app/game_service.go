package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"

	"trivia-bingo-service/internal/domain"
)

// RoomRepository reads contest rooms; rooms are owned by the admin panel.
type RoomRepository interface {
	GetRoom(ctx context.Context, code string) (domain.Room, error)
}

// QuestionRepository loads room question content (from cache/backing store).
type QuestionRepository interface {
	GetQuestion(ctx context.Context, roomCode string, questionID int) (domain.Question, error)
	QuestionsByRoom(ctx context.Context, roomCode string) ([]domain.Question, error)
}

// TeamRepository stores team rows.
type TeamRepository interface {
	GetTeam(ctx context.Context, teamID string) (domain.Team, error)
	GetTeamByName(ctx context.Context, roomCode, name string) (domain.Team, error)
	CreateTeam(ctx context.Context, team domain.Team) error
	TeamsByRoom(ctx context.Context, roomCode string) ([]domain.Team, error)
}

// ProgressStore is the durable record of a team's solved questions and
// claimed grid cells. InTeamTx serializes all mutations for one team: two
// concurrent submissions from the same team never interleave inside it, and a
// failed fn leaves no partial state behind.
type ProgressStore interface {
	SolvedPositions(ctx context.Context, teamID string) ([]domain.Position, error)
	SolvedQuestions(ctx context.Context, teamID string) ([]int, error)
	HasSolvedQuestion(ctx context.Context, teamID string, questionID int) (bool, error)
	SolvedQuestionCounts(ctx context.Context, roomCode string) (map[string]int, error)
	InTeamTx(ctx context.Context, teamID string, fn func(tx ProgressTx) error) error
}

// ProgressTx is the mutation surface available inside InTeamTx.
type ProgressTx interface {
	// MarkQuestionSolved credits the question to the team. It reports false
	// without error when the credit already exists.
	MarkQuestionSolved(ctx context.Context, teamID string, questionID int, at time.Time) (bool, error)
	SolvedPositions(ctx context.Context, teamID string) ([]domain.Position, error)
	ClaimPosition(ctx context.Context, teamID string, pos domain.Position) error
	UpdateLineCount(ctx context.Context, teamID string, lines int) error
	// SetEndTimeIfUnset records the completion time only when none exists, so
	// a later win never moves an earlier finish.
	SetEndTimeIfUnset(ctx context.Context, teamID string, at time.Time) error
}

// AttemptLog is the append-only audit trail of answer submissions.
type AttemptLog interface {
	Append(ctx context.Context, attempt domain.Attempt) error
	RecentByRoom(ctx context.Context, roomCode string, limit int) ([]domain.Attempt, error)
}

// AssignmentRepository stores the precomputed question-to-cell hint map.
// Inserts are additive; duplicates of an existing (team, question) or
// (team, position) pair are silently ignored.
type AssignmentRepository interface {
	AssignmentsForTeam(ctx context.Context, teamID string) ([]domain.GridAssignment, error)
	AddAssignment(ctx context.Context, assignment domain.GridAssignment) error
}

// GameService contains the bingo contest use cases: login, game state,
// answer submission, leaderboard, and the recent-activity feed.
type GameService struct {
	rooms       RoomRepository
	questions   QuestionRepository
	teams       TeamRepository
	progress    ProgressStore
	attempts    AttemptLog
	assignments AssignmentRepository
	now         func() time.Time
	intn        func(n int) int
}

func NewGameService(
	rooms RoomRepository,
	questions QuestionRepository,
	teams TeamRepository,
	progress ProgressStore,
	attempts AttemptLog,
	assignments AssignmentRepository,
) *GameService {
	return &GameService{
		rooms:       rooms,
		questions:   questions,
		teams:       teams,
		progress:    progress,
		attempts:    attempts,
		assignments: assignments,
		now:         time.Now,
		intn:        rand.Intn,
	}
}

// NewGameServiceWithClock is test-only for deterministic timestamps and cell picks.
func NewGameServiceWithClock(
	rooms RoomRepository,
	questions QuestionRepository,
	teams TeamRepository,
	progress ProgressStore,
	attempts AttemptLog,
	assignments AssignmentRepository,
	now func() time.Time,
	intn func(n int) int,
) *GameService {
	s := NewGameService(rooms, questions, teams, progress, attempts, assignments)
	if now != nil {
		s.now = now
	}
	if intn != nil {
		s.intn = intn
	}
	return s
}

// Login resolves a room and returns the team playing under the given name,
// creating a fresh team row when the name is new or its previous run already
// finished. New teams get their hint mapping bootstrapped.
func (s *GameService) Login(ctx context.Context, roomCode, teamName string) (domain.Team, domain.Room, error) {
	code := domain.NormalizeRoomCode(roomCode)
	room, err := s.rooms.GetRoom(ctx, code)
	if err != nil {
		return domain.Team{}, domain.Room{}, err
	}

	existing, err := s.teams.GetTeamByName(ctx, code, teamName)
	switch {
	case err == nil && existing.EndTime == nil:
		// Still active: resume the existing run.
		return existing, room, nil
	case err == nil:
		// Finished run; the name is reusable for a fresh board.
	case errors.Is(err, domain.ErrTeamNotFound):
	default:
		return domain.Team{}, domain.Room{}, fmt.Errorf("lookup team: %w", err)
	}

	team := domain.Team{
		ID:        uuid.NewString(),
		RoomCode:  code,
		Name:      teamName,
		StartTime: s.now(),
	}
	if err := s.teams.CreateTeam(ctx, team); err != nil {
		return domain.Team{}, domain.Room{}, fmt.Errorf("create team: %w", err)
	}
	// The hint map is display-only; a failure here must not block login.
	if err := s.FillMappingGaps(ctx, team.ID, code); err != nil {
		log.Printf("bootstrap mapping for team %s: %v", team.ID, err)
	}
	return team, room, nil
}

// GameState is the polling read model for one team's view of the contest.
type GameState struct {
	Room            domain.Room
	Team            domain.Team
	Questions       []domain.Question
	SolvedPositions []domain.Position
	TimeRemaining   int
	GameEnded       bool
}

// GameState assembles the current view for a team, topping up the hint
// mapping when it is short of the question count.
func (s *GameService) GameState(ctx context.Context, roomCode, teamID string) (GameState, error) {
	code := domain.NormalizeRoomCode(roomCode)
	room, err := s.rooms.GetRoom(ctx, code)
	if err != nil {
		return GameState{}, err
	}
	team, err := s.teams.GetTeam(ctx, teamID)
	if err != nil {
		return GameState{}, err
	}
	questions, err := s.questions.QuestionsByRoom(ctx, code)
	if err != nil {
		return GameState{}, fmt.Errorf("load questions: %w", err)
	}

	mappings, err := s.assignments.AssignmentsForTeam(ctx, teamID)
	if err != nil {
		return GameState{}, fmt.Errorf("load assignments: %w", err)
	}
	needed := len(questions)
	if needed > 25 {
		needed = 25
	}
	if len(mappings) < needed {
		if err := s.SeedMapping(ctx, teamID, code); err != nil {
			log.Printf("seed mapping for team %s: %v", teamID, err)
		}
	}

	solved, err := s.progress.SolvedPositions(ctx, teamID)
	if err != nil {
		return GameState{}, fmt.Errorf("load solved positions: %w", err)
	}

	now := s.now()
	return GameState{
		Room:            room,
		Team:            team,
		Questions:       questions,
		SolvedPositions: solved,
		TimeRemaining:   room.TimeRemaining(now),
		GameEnded:       room.Ended(now),
	}, nil
}

// Submit grades one answer and, for a correct answer to a real question the
// team has not solved yet, atomically claims one free grid cell and refreshes
// the team's line count. Every attempt is logged regardless of outcome.
func (s *GameService) Submit(ctx context.Context, roomCode, teamID string, questionID int, answer string) (domain.SubmissionResult, error) {
	code := domain.NormalizeRoomCode(roomCode)
	question, err := s.questions.GetQuestion(ctx, code, questionID)
	if err != nil {
		return domain.SubmissionResult{}, err
	}
	team, err := s.teams.GetTeam(ctx, teamID)
	if err != nil {
		return domain.SubmissionResult{}, err
	}

	correct := domain.AnswerMatches(question.Answer, answer)

	// The audit trail is best-effort and lives outside the scoring
	// transaction's rollback domain.
	if err := s.attempts.Append(ctx, domain.Attempt{
		TeamID:      teamID,
		QuestionID:  questionID,
		RoomCode:    code,
		Answer:      answer,
		Correct:     correct,
		AttemptedAt: s.now(),
	}); err != nil {
		log.Printf("append attempt team=%s question=%d: %v", teamID, questionID, err)
	}

	if !correct {
		return domain.SubmissionResult{
			Outcome:        domain.OutcomeIncorrect,
			QuestionReal:   question.IsReal,
			LinesCompleted: team.LinesCompleted,
			Winner:         team.Winner(),
		}, nil
	}
	if !question.IsReal {
		return domain.SubmissionResult{
			Outcome:        domain.OutcomeDecoy,
			LinesCompleted: team.LinesCompleted,
			Winner:         team.Winner(),
		}, nil
	}

	alreadySolved, err := s.progress.HasSolvedQuestion(ctx, teamID, questionID)
	if err != nil {
		return domain.SubmissionResult{}, fmt.Errorf("check solved question: %w", err)
	}
	if alreadySolved {
		return domain.SubmissionResult{
			Outcome:        domain.OutcomeAlreadySolved,
			QuestionReal:   true,
			LinesCompleted: team.LinesCompleted,
			Winner:         team.Winner(),
		}, nil
	}

	var assigned *domain.Position
	var lines int
	err = s.progress.InTeamTx(ctx, teamID, func(tx ProgressTx) error {
		inserted, err := tx.MarkQuestionSolved(ctx, teamID, questionID, s.now())
		if err != nil {
			return err
		}
		if !inserted {
			// A concurrent duplicate won the race after the check above.
			return domain.ErrQuestionAlreadySolved
		}

		positions, err := tx.SolvedPositions(ctx, teamID)
		if err != nil {
			return err
		}
		if free := domain.FreePositions(positions); len(free) > 0 {
			pick := free[s.intn(len(free))]
			if err := tx.ClaimPosition(ctx, teamID, pick); err != nil {
				return err
			}
			positions = append(positions, pick)
			assigned = &pick
		}

		lines = domain.CompletedLines(positions)
		if err := tx.UpdateLineCount(ctx, teamID, lines); err != nil {
			return err
		}
		if domain.IsWin(lines) {
			if err := tx.SetEndTimeIfUnset(ctx, teamID, s.now()); err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, domain.ErrQuestionAlreadySolved) {
		return domain.SubmissionResult{
			Outcome:        domain.OutcomeAlreadySolved,
			QuestionReal:   true,
			LinesCompleted: team.LinesCompleted,
			Winner:         team.Winner(),
		}, nil
	}
	if err != nil {
		return domain.SubmissionResult{}, fmt.Errorf("submit transaction: %w", err)
	}

	return domain.SubmissionResult{
		Outcome:          domain.OutcomeAssigned,
		QuestionReal:     true,
		AssignedPosition: assigned,
		LinesCompleted:   lines,
		Winner:           domain.IsWin(lines),
	}, nil
}

// LeaderboardRow is one ranked team in a room's standings.
type LeaderboardRow struct {
	Team        domain.Team
	SolvedCount int
	Rank        int
}

// Leaderboard ranks a room's teams: completed lines first, then fastest
// finish, then number of solved questions.
func (s *GameService) Leaderboard(ctx context.Context, roomCode string) ([]LeaderboardRow, error) {
	code := domain.NormalizeRoomCode(roomCode)
	teams, err := s.teams.TeamsByRoom(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("load teams: %w", err)
	}
	counts, err := s.progress.SolvedQuestionCounts(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("load solved counts: %w", err)
	}

	rows := make([]LeaderboardRow, 0, len(teams))
	for _, team := range teams {
		rows = append(rows, LeaderboardRow{Team: team, SolvedCount: counts[team.ID]})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Team.LinesCompleted != rows[j].Team.LinesCompleted {
			return rows[i].Team.LinesCompleted > rows[j].Team.LinesCompleted
		}
		ti, iDone := rows[i].Team.TimeTaken()
		tj, jDone := rows[j].Team.TimeTaken()
		if iDone != jDone {
			return iDone
		}
		if iDone && ti != tj {
			return ti < tj
		}
		return rows[i].SolvedCount > rows[j].SolvedCount
	})
	for i := range rows {
		rows[i].Rank = i + 1
	}
	return rows, nil
}

// RecentAttempts returns the latest answer attempts in a room, newest first.
func (s *GameService) RecentAttempts(ctx context.Context, roomCode string, limit int) ([]domain.Attempt, error) {
	code := domain.NormalizeRoomCode(roomCode)
	attempts, err := s.attempts.RecentByRoom(ctx, code, limit)
	if err != nil {
		return nil, fmt.Errorf("load attempts: %w", err)
	}
	return attempts, nil
}
