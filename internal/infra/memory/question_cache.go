package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"trivia-bingo-service/internal/domain"
)

// QuestionLoader fetches a room's question pool from a backing store.
type QuestionLoader interface {
	LoadRoomQuestions(ctx context.Context, roomCode string) ([]domain.Question, error)
}

// QuestionCache caches room question pools with TTL to avoid repeated DB hits.
type QuestionCache struct {
	loader QuestionLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedRoom
}

type cachedRoom struct {
	questions []domain.Question
	expiresAt time.Time
}

func NewQuestionCache(loader QuestionLoader, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedRoom),
	}
}

func (c *QuestionCache) QuestionsByRoom(ctx context.Context, roomCode string) ([]domain.Question, error) {
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.cache[roomCode]; ok && entry.expiresAt.After(now) {
		c.mu.RUnlock()
		return entry.questions, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do(roomCode, func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if entry, ok := c.cache[roomCode]; ok && entry.expiresAt.After(now) {
			c.mu.RUnlock()
			return entry.questions, nil
		}
		c.mu.RUnlock()

		questions, err := c.loader.LoadRoomQuestions(ctx, roomCode)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.cache[roomCode] = cachedRoom{
			questions: questions,
			expiresAt: now.Add(c.ttlWithJitter()),
		}
		c.mu.Unlock()
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (c *QuestionCache) GetQuestion(ctx context.Context, roomCode string, questionID int) (domain.Question, error) {
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

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

// StaticQuestionLoader is a simple loader backed by an in-memory map (useful
// for tests/demos).
type StaticQuestionLoader struct {
	rooms map[string][]domain.Question
}

func NewStaticQuestionLoader(rooms map[string][]domain.Question) *StaticQuestionLoader {
	return &StaticQuestionLoader{rooms: rooms}
}

func (l *StaticQuestionLoader) LoadRoomQuestions(_ context.Context, roomCode string) ([]domain.Question, error) {
	if questions, ok := l.rooms[roomCode]; ok {
		return questions, nil
	}
	return nil, domain.ErrRoomNotFound
}
