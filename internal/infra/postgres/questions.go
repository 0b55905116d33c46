package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"trivia-bingo-service/internal/domain"
)

// QuestionLoader loads a room's question pool from Postgres. It sits behind
// the redis/memory question caches rather than serving requests directly.
type QuestionLoader struct {
	pool *pgxpool.Pool
}

func NewQuestionLoader(pool *pgxpool.Pool) *QuestionLoader {
	return &QuestionLoader{pool: pool}
}

func (l *QuestionLoader) LoadRoomQuestions(ctx context.Context, roomCode string) ([]domain.Question, error) {
	rows, err := l.pool.Query(ctx,
		`SELECT question_id, room_code, question_text, correct_answer, is_real
		 FROM questions WHERE room_code=$1 ORDER BY question_id`,
		roomCode,
	)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	var questions []domain.Question
	for rows.Next() {
		var q domain.Question
		if err := rows.Scan(&q.ID, &q.RoomCode, &q.Text, &q.Answer, &q.IsReal); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate questions: %w", err)
	}
	return questions, nil
}
