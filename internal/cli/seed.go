package cli

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"

	"trivia-bingo-service/internal/config"
)

// NewSeedCmd loads the demo room and its questions into Postgres so a fresh
// database has something playable.
func NewSeedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert the demo room and questions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), *configPath)
		},
	}
}

func runSeed(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}
	if err := runMigrationsWithConfig(ctx, cfg); err != nil {
		return err
	}

	pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	room := demoRoom()
	if _, err := pool.Exec(ctx,
		`INSERT INTO rooms (code, title) VALUES ($1, $2) ON CONFLICT (code) DO NOTHING`,
		room.Code, room.Title,
	); err != nil {
		return fmt.Errorf("insert room: %w", err)
	}

	for _, q := range demoQuestions()[room.Code] {
		if _, err := pool.Exec(ctx,
			`INSERT INTO questions (question_id, room_code, question_text, correct_answer, is_real)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (question_id) DO NOTHING`,
			q.ID, q.RoomCode, q.Text, q.Answer, q.IsReal,
		); err != nil {
			return fmt.Errorf("insert question %d: %w", q.ID, err)
		}
	}

	log.Printf("seeded room %s", room.Code)
	return nil
}
