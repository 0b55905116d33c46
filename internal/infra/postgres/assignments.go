package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"trivia-bingo-service/internal/domain"
)

// AssignmentRepository stores the question-to-cell hint map. Inserts are
// additive; the unique constraints make duplicate (team, question) or
// (team, position) pairs no-ops.
type AssignmentRepository struct {
	pool *pgxpool.Pool
}

func NewAssignmentRepository(pool *pgxpool.Pool) *AssignmentRepository {
	return &AssignmentRepository{pool: pool}
}

func (r *AssignmentRepository) AssignmentsForTeam(ctx context.Context, teamID string) ([]domain.GridAssignment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT team_id, question_id, grid_position
		 FROM team_question_mapping WHERE team_id=$1`, teamID)
	if err != nil {
		return nil, fmt.Errorf("load assignments: %w", err)
	}
	defer rows.Close()

	var assignments []domain.GridAssignment
	for rows.Next() {
		var a domain.GridAssignment
		if err := rows.Scan(&a.TeamID, &a.QuestionID, &a.Position); err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		assignments = append(assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assignments: %w", err)
	}
	return assignments, nil
}

func (r *AssignmentRepository) AddAssignment(ctx context.Context, assignment domain.GridAssignment) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO team_question_mapping (team_id, question_id, grid_position)
		 VALUES ($1, $2, $3)
		 ON CONFLICT DO NOTHING`,
		assignment.TeamID, assignment.QuestionID, assignment.Position,
	)
	if err != nil {
		return fmt.Errorf("insert assignment: %w", err)
	}
	return nil
}
