package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"trivia-bingo-service/internal/domain"
)

// RoomRepository reads contest rooms from Postgres.
type RoomRepository struct {
	pool *pgxpool.Pool
}

func NewRoomRepository(pool *pgxpool.Pool) *RoomRepository {
	return &RoomRepository{pool: pool}
}

func (r *RoomRepository) GetRoom(ctx context.Context, code string) (domain.Room, error) {
	var room domain.Room
	err := r.pool.QueryRow(ctx,
		`SELECT code, title, round_end_at FROM rooms WHERE code=$1`,
		code,
	).Scan(&room.Code, &room.Title, &room.RoundEndAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Room{}, domain.ErrRoomNotFound
	}
	if err != nil {
		return domain.Room{}, fmt.Errorf("load room: %w", err)
	}
	return room, nil
}
