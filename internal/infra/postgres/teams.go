package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"trivia-bingo-service/internal/domain"
)

// TeamRepository stores team rows in Postgres.
type TeamRepository struct {
	pool *pgxpool.Pool
}

func NewTeamRepository(pool *pgxpool.Pool) *TeamRepository {
	return &TeamRepository{pool: pool}
}

const teamColumns = `team_id, room_code, team_name, lines_completed, start_time, end_time`

func scanTeam(row pgx.Row) (domain.Team, error) {
	var team domain.Team
	err := row.Scan(&team.ID, &team.RoomCode, &team.Name, &team.LinesCompleted, &team.StartTime, &team.EndTime)
	return team, err
}

func (r *TeamRepository) GetTeam(ctx context.Context, teamID string) (domain.Team, error) {
	team, err := scanTeam(r.pool.QueryRow(ctx,
		`SELECT `+teamColumns+` FROM teams WHERE team_id=$1`, teamID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Team{}, domain.ErrTeamNotFound
	}
	if err != nil {
		return domain.Team{}, fmt.Errorf("load team: %w", err)
	}
	return team, nil
}

// GetTeamByName resolves the latest team row under a display name; finished
// teams may be recreated under the same name, so the newest row wins.
func (r *TeamRepository) GetTeamByName(ctx context.Context, roomCode, name string) (domain.Team, error) {
	team, err := scanTeam(r.pool.QueryRow(ctx,
		`SELECT `+teamColumns+` FROM teams
		 WHERE room_code=$1 AND team_name=$2
		 ORDER BY start_time DESC LIMIT 1`, roomCode, name))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Team{}, domain.ErrTeamNotFound
	}
	if err != nil {
		return domain.Team{}, fmt.Errorf("load team by name: %w", err)
	}
	return team, nil
}

func (r *TeamRepository) CreateTeam(ctx context.Context, team domain.Team) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO teams (team_id, room_code, team_name, lines_completed, start_time, end_time)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		team.ID, team.RoomCode, team.Name, team.LinesCompleted, team.StartTime, team.EndTime,
	)
	if err != nil {
		return fmt.Errorf("insert team: %w", err)
	}
	return nil
}

func (r *TeamRepository) TeamsByRoom(ctx context.Context, roomCode string) ([]domain.Team, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+teamColumns+` FROM teams WHERE room_code=$1`, roomCode)
	if err != nil {
		return nil, fmt.Errorf("load teams: %w", err)
	}
	defer rows.Close()

	var teams []domain.Team
	for rows.Next() {
		team, err := scanTeam(rows)
		if err != nil {
			return nil, fmt.Errorf("scan team: %w", err)
		}
		teams = append(teams, team)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate teams: %w", err)
	}
	return teams, nil
}
