package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"trivia-bingo-service/internal/domain"
)

// QuestionLoader fetches a room's question pool from a backing store.
type QuestionLoader interface {
	LoadRoomQuestions(ctx context.Context, roomCode string) ([]domain.Question, error)
}

// QuestionCache caches room question pools in Redis (hash per room) and falls
// back to a loader on cache miss.
// Questions are stored as: HSET room:{code}:questions {questionID} {json}
type QuestionCache struct {
	client *redis.Client
	loader QuestionLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewQuestionCache(client *redis.Client, loader QuestionLoader, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

type cachedQuestion struct {
	ID     int    `json:"id"`
	Text   string `json:"text"`
	Answer string `json:"answer"`
	IsReal bool   `json:"isReal"`
}

func (c *QuestionCache) QuestionsByRoom(ctx context.Context, roomCode string) ([]domain.Question, error) {
	key := c.roomKey(roomCode)

	fields, err := c.client.HGetAll(ctx, key).Result()
	if err == nil && len(fields) > 0 {
		return decodeQuestions(roomCode, fields)
	}

	result, err, _ := c.sf.Do(roomCode, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		fields, err := c.client.HGetAll(ctx, key).Result()
		if err == nil && len(fields) > 0 {
			questions, err := decodeQuestions(roomCode, fields)
			if err != nil {
				return nil, err
			}
			return questions, nil
		}
		questions, err := c.fill(ctx, roomCode)
		if err != nil {
			return nil, err
		}
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (c *QuestionCache) GetQuestion(ctx context.Context, roomCode string, questionID int) (domain.Question, error) {
	key := c.roomKey(roomCode)

	raw, err := c.client.HGet(ctx, key, strconv.Itoa(questionID)).Result()
	if err == nil {
		return decodeQuestion(roomCode, raw)
	}

	questions, err := c.QuestionsByRoom(ctx, roomCode)
	if err != nil {
		return domain.Question{}, err
	}
	for _, q := range questions {
		if q.ID == questionID {
			return q, nil
		}
	}
	return domain.Question{}, domain.ErrQuestionNotFound
}

func (c *QuestionCache) fill(ctx context.Context, roomCode string) ([]domain.Question, error) {
	questions, err := c.loader.LoadRoomQuestions(ctx, roomCode)
	if err != nil {
		return nil, err
	}

	pipe := c.client.Pipeline()
	key := c.roomKey(roomCode)
	for _, q := range questions {
		data, err := json.Marshal(cachedQuestion{ID: q.ID, Text: q.Text, Answer: q.Answer, IsReal: q.IsReal})
		if err != nil {
			return nil, fmt.Errorf("marshal question: %w", err)
		}
		pipe.HSet(ctx, key, strconv.Itoa(q.ID), data)
	}
	if ttl := c.ttlWithJitter(); ttl > 0 {
		pipe.Expire(ctx, key, ttl)
	}
	// Cache writes are best-effort; the loader result is authoritative.
	_, _ = pipe.Exec(ctx)

	return questions, nil
}

func (c *QuestionCache) roomKey(roomCode string) string {
	return "room:" + roomCode + ":questions"
}

func decodeQuestions(roomCode string, fields map[string]string) ([]domain.Question, error) {
	questions := make([]domain.Question, 0, len(fields))
	for _, raw := range fields {
		q, err := decodeQuestion(roomCode, raw)
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, nil
}

func decodeQuestion(roomCode, raw string) (domain.Question, error) {
	var cached cachedQuestion
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		return domain.Question{}, fmt.Errorf("unmarshal question: %w", err)
	}
	return domain.Question{
		ID:       cached.ID,
		RoomCode: roomCode,
		Text:     cached.Text,
		Answer:   cached.Answer,
		IsReal:   cached.IsReal,
	}, nil
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
