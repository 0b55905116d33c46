package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"trivia-bingo-service/internal/app"
	"trivia-bingo-service/internal/domain"
)

// ProgressStore is the Postgres team-progress record. InTeamTx takes a row
// lock on the team, so all scoring mutations for one team serialize on the
// database regardless of how many service processes run.
type ProgressStore struct {
	pool *pgxpool.Pool
}

func NewProgressStore(pool *pgxpool.Pool) *ProgressStore {
	return &ProgressStore{pool: pool}
}

func (s *ProgressStore) SolvedPositions(ctx context.Context, teamID string) ([]domain.Position, error) {
	return solvedPositions(ctx, s.pool, teamID)
}

type queryer interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

func solvedPositions(ctx context.Context, q queryer, teamID string) ([]domain.Position, error) {
	rows, err := q.Query(ctx,
		`SELECT position FROM team_solved_positions WHERE team_id=$1`, teamID)
	if err != nil {
		return nil, fmt.Errorf("load solved positions: %w", err)
	}
	defer rows.Close()

	var positions []domain.Position
	for rows.Next() {
		var p domain.Position
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan position: %w", err)
		}
		positions = append(positions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate positions: %w", err)
	}
	return positions, nil
}

func (s *ProgressStore) SolvedQuestions(ctx context.Context, teamID string) ([]int, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT question_id FROM team_solved_questions WHERE team_id=$1`, teamID)
	if err != nil {
		return nil, fmt.Errorf("load solved questions: %w", err)
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan question id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate question ids: %w", err)
	}
	return ids, nil
}

func (s *ProgressStore) HasSolvedQuestion(ctx context.Context, teamID string, questionID int) (bool, error) {
	var solved bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM team_solved_questions WHERE team_id=$1 AND question_id=$2
		)`, teamID, questionID,
	).Scan(&solved)
	if err != nil {
		return false, fmt.Errorf("check solved question: %w", err)
	}
	return solved, nil
}

func (s *ProgressStore) SolvedQuestionCounts(ctx context.Context, roomCode string) (map[string]int, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT t.team_id, COUNT(sq.question_id)
		 FROM teams t
		 LEFT JOIN team_solved_questions sq ON sq.team_id = t.team_id
		 WHERE t.room_code=$1
		 GROUP BY t.team_id`, roomCode)
	if err != nil {
		return nil, fmt.Errorf("load solved counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var teamID string
		var count int
		if err := rows.Scan(&teamID, &count); err != nil {
			return nil, fmt.Errorf("scan solved count: %w", err)
		}
		counts[teamID] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate solved counts: %w", err)
	}
	return counts, nil
}

// InTeamTx runs fn inside one transaction holding a SELECT ... FOR UPDATE
// lock on the team row. Concurrent submissions for the same team queue here;
// fn's reads always see the previous submission's committed writes.
func (s *ProgressStore) InTeamTx(ctx context.Context, teamID string, fn func(tx app.ProgressTx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var locked string
	err = tx.QueryRow(ctx,
		`SELECT team_id FROM teams WHERE team_id=$1 FOR UPDATE`, teamID,
	).Scan(&locked)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrTeamNotFound
	}
	if err != nil {
		return fmt.Errorf("lock team: %w", err)
	}

	if err := fn(&progressTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type progressTx struct {
	tx pgx.Tx
}

func (p *progressTx) MarkQuestionSolved(ctx context.Context, teamID string, questionID int, at time.Time) (bool, error) {
	tag, err := p.tx.Exec(ctx,
		`INSERT INTO team_solved_questions (team_id, question_id, solved_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (team_id, question_id) DO NOTHING`,
		teamID, questionID, at,
	)
	if err != nil {
		return false, fmt.Errorf("mark question solved: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (p *progressTx) SolvedPositions(ctx context.Context, teamID string) ([]domain.Position, error) {
	return solvedPositions(ctx, p.tx, teamID)
}

func (p *progressTx) ClaimPosition(ctx context.Context, teamID string, pos domain.Position) error {
	tag, err := p.tx.Exec(ctx,
		`INSERT INTO team_solved_positions (team_id, position)
		 VALUES ($1, $2)
		 ON CONFLICT (team_id, position) DO NOTHING`,
		teamID, pos,
	)
	if err != nil {
		return fmt.Errorf("claim position: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPositionTaken
	}
	return nil
}

func (p *progressTx) UpdateLineCount(ctx context.Context, teamID string, lines int) error {
	_, err := p.tx.Exec(ctx,
		`UPDATE teams SET lines_completed=$2 WHERE team_id=$1`, teamID, lines)
	if err != nil {
		return fmt.Errorf("update line count: %w", err)
	}
	return nil
}

func (p *progressTx) SetEndTimeIfUnset(ctx context.Context, teamID string, at time.Time) error {
	_, err := p.tx.Exec(ctx,
		`UPDATE teams SET end_time=$2 WHERE team_id=$1 AND end_time IS NULL`, teamID, at)
	if err != nil {
		return fmt.Errorf("set end time: %w", err)
	}
	return nil
}
