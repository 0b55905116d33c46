package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"trivia-bingo-service/internal/domain"
	"trivia-bingo-service/internal/infra/memory"
)

type countingLoader struct {
	memory.QuestionLoader
	calls int
}

func (l *countingLoader) LoadRoomQuestions(ctx context.Context, roomCode string) ([]domain.Question, error) {
	l.calls++
	return l.QuestionLoader.LoadRoomQuestions(ctx, roomCode)
}

func sampleQuestions() []domain.Question {
	return []domain.Question{
		{ID: 1, RoomCode: "TRIVIA", Text: "What is 2 + 2?", Answer: "4", IsReal: true},
		{ID: 2, RoomCode: "TRIVIA", Text: "Sides of a heptagon?", Answer: "7", IsReal: false},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}

func TestQuestionCacheCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)
	loader := &countingLoader{
		QuestionLoader: memory.NewStaticQuestionLoader(map[string][]domain.Question{
			"TRIVIA": sampleQuestions(),
		}),
	}
	cache := NewQuestionCache(client, loader, time.Minute)

	questions, err := cache.QuestionsByRoom(context.Background(), "TRIVIA")
	if err != nil {
		t.Fatalf("load questions: %v", err)
	}
	if len(questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(questions))
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}

	// Second call should hit the redis hash, loader not incremented.
	_, _ = cache.QuestionsByRoom(context.Background(), "TRIVIA")
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}

	if !mr.Exists("room:TRIVIA:questions") {
		t.Fatalf("expected room hash in redis")
	}
}

func TestQuestionCacheGetQuestionFastPath(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)
	loader := &countingLoader{
		QuestionLoader: memory.NewStaticQuestionLoader(map[string][]domain.Question{
			"TRIVIA": sampleQuestions(),
		}),
	}
	cache := NewQuestionCache(client, loader, time.Minute)

	// First lookup fills the hash via the loader.
	question, err := cache.GetQuestion(context.Background(), "TRIVIA", 2)
	if err != nil {
		t.Fatalf("get question: %v", err)
	}
	if question.ID != 2 || question.IsReal || question.RoomCode != "TRIVIA" {
		t.Fatalf("unexpected question %+v", question)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}

	// Second lookup should be served by HGET alone.
	if _, err := cache.GetQuestion(context.Background(), "TRIVIA", 1); err != nil {
		t.Fatalf("cached get: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected HGET fast path, loader calls=%d", loader.calls)
	}
}

func TestQuestionCacheUnknownQuestion(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)
	loader := &countingLoader{
		QuestionLoader: memory.NewStaticQuestionLoader(map[string][]domain.Question{
			"TRIVIA": sampleQuestions(),
		}),
	}
	cache := NewQuestionCache(client, loader, time.Minute)

	if _, err := cache.GetQuestion(context.Background(), "TRIVIA", 42); !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected question-not-found, got %v", err)
	}
}

func TestQuestionCacheReloadsAfterExpiry(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)
	loader := &countingLoader{
		QuestionLoader: memory.NewStaticQuestionLoader(map[string][]domain.Question{
			"TRIVIA": sampleQuestions(),
		}),
	}
	cache := NewQuestionCache(client, loader, time.Minute)

	if _, err := cache.QuestionsByRoom(context.Background(), "TRIVIA"); err != nil {
		t.Fatalf("load questions: %v", err)
	}

	// Fast-forward past the TTL (plus jitter headroom).
	mr.FastForward(2 * time.Minute)

	if _, err := cache.QuestionsByRoom(context.Background(), "TRIVIA"); err != nil {
		t.Fatalf("reload questions: %v", err)
	}
	if loader.calls != 2 {
		t.Fatalf("expected reload after expiry, loader calls=%d", loader.calls)
	}
}
