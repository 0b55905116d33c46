package memory_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"trivia-bingo-service/internal/domain"
	"trivia-bingo-service/internal/infra/memory"
)

type countingLoader struct {
	calls int32
	delay time.Duration
	rooms map[string][]domain.Question
	err   error
}

func (l *countingLoader) LoadRoomQuestions(_ context.Context, roomCode string) ([]domain.Question, error) {
	atomic.AddInt32(&l.calls, 1)
	if l.delay > 0 {
		time.Sleep(l.delay)
	}
	if l.err != nil {
		return nil, l.err
	}
	questions, ok := l.rooms[roomCode]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	return questions, nil
}

func sampleQuestions() []domain.Question {
	return []domain.Question{
		{ID: 1, RoomCode: "ROOM", Text: "q1", Answer: "a1", IsReal: true},
		{ID: 2, RoomCode: "ROOM", Text: "q2", Answer: "a2", IsReal: false},
	}
}

func TestQuestionCacheServesFromCache(t *testing.T) {
	ctx := context.Background()
	loader := &countingLoader{rooms: map[string][]domain.Question{"ROOM": sampleQuestions()}}
	cache := memory.NewQuestionCache(loader, time.Minute)

	for i := 0; i < 3; i++ {
		questions, err := cache.QuestionsByRoom(ctx, "ROOM")
		if err != nil {
			t.Fatalf("load %d: %v", i, err)
		}
		if len(questions) != 2 {
			t.Fatalf("load %d: expected 2 questions, got %d", i, len(questions))
		}
	}
	if got := atomic.LoadInt32(&loader.calls); got != 1 {
		t.Fatalf("expected a single loader hit, got %d", got)
	}
}

func TestQuestionCacheSingleflight(t *testing.T) {
	ctx := context.Background()
	loader := &countingLoader{
		rooms: map[string][]domain.Question{"ROOM": sampleQuestions()},
		delay: 20 * time.Millisecond,
	}
	cache := memory.NewQuestionCache(loader, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.QuestionsByRoom(ctx, "ROOM"); err != nil {
				t.Errorf("load: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt32(&loader.calls); got != 1 {
		t.Fatalf("expected concurrent loads collapsed to one, got %d", got)
	}
}

func TestQuestionCacheDoesNotCacheErrors(t *testing.T) {
	ctx := context.Background()
	loader := &countingLoader{err: errors.New("db down")}
	cache := memory.NewQuestionCache(loader, time.Minute)

	if _, err := cache.QuestionsByRoom(ctx, "ROOM"); err == nil {
		t.Fatalf("expected loader error")
	}

	loader.err = nil
	loader.rooms = map[string][]domain.Question{"ROOM": sampleQuestions()}
	questions, err := cache.QuestionsByRoom(ctx, "ROOM")
	if err != nil {
		t.Fatalf("retry after error: %v", err)
	}
	if len(questions) != 2 {
		t.Fatalf("expected 2 questions after retry, got %d", len(questions))
	}
	if got := atomic.LoadInt32(&loader.calls); got != 2 {
		t.Fatalf("expected 2 loader hits, got %d", got)
	}
}

func TestQuestionCacheGetQuestion(t *testing.T) {
	ctx := context.Background()
	loader := &countingLoader{rooms: map[string][]domain.Question{"ROOM": sampleQuestions()}}
	cache := memory.NewQuestionCache(loader, time.Minute)

	question, err := cache.GetQuestion(ctx, "ROOM", 2)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if question.ID != 2 || question.IsReal {
		t.Fatalf("unexpected question %+v", question)
	}

	if _, err := cache.GetQuestion(ctx, "ROOM", 42); !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected question-not-found, got %v", err)
	}
	if _, err := cache.GetQuestion(ctx, "NOPE", 1); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("expected room-not-found, got %v", err)
	}
}
