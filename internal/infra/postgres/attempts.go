package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"trivia-bingo-service/internal/domain"
)

// AttemptLog appends submission audit rows; they are never updated or deleted.
type AttemptLog struct {
	pool *pgxpool.Pool
}

func NewAttemptLog(pool *pgxpool.Pool) *AttemptLog {
	return &AttemptLog{pool: pool}
}

func (l *AttemptLog) Append(ctx context.Context, attempt domain.Attempt) error {
	_, err := l.pool.Exec(ctx,
		`INSERT INTO submission_attempts (team_id, question_id, room_code, submitted_answer, is_correct, attempted_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		attempt.TeamID, attempt.QuestionID, attempt.RoomCode, attempt.Answer, attempt.Correct, attempt.AttemptedAt,
	)
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

func (l *AttemptLog) RecentByRoom(ctx context.Context, roomCode string, limit int) ([]domain.Attempt, error) {
	rows, err := l.pool.Query(ctx,
		`SELECT id, team_id, question_id, room_code, submitted_answer, is_correct, attempted_at
		 FROM submission_attempts
		 WHERE room_code=$1
		 ORDER BY attempted_at DESC
		 LIMIT $2`, roomCode, limit)
	if err != nil {
		return nil, fmt.Errorf("load attempts: %w", err)
	}
	defer rows.Close()

	var attempts []domain.Attempt
	for rows.Next() {
		var a domain.Attempt
		if err := rows.Scan(&a.ID, &a.TeamID, &a.QuestionID, &a.RoomCode, &a.Answer, &a.Correct, &a.AttemptedAt); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempts: %w", err)
	}
	return attempts, nil
}
