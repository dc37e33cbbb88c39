package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"quizdesk/internal/app"
	"quizdesk/internal/domain"
)

func newTestStore(t *testing.T) (*SessionStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewSessionStore(client, 5*time.Minute), mr
}

func testSession(quizID, studentID string, start time.Time) app.AttemptSession {
	return app.AttemptSession{
		QuizID:    quizID,
		StudentID: studentID,
		StartedAt: start,
		Deadline:  start.Add(30 * time.Minute),
		Answers:   domain.AnswerSet{},
	}
}

func TestSessionStoreStartSetsTTL(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)
	start := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	store.clock = func() time.Time { return start }

	session, err := store.Start(ctx, testSession("quiz-1", "s1", start))
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if session.Remaining(start) != 30*60 {
		t.Fatalf("unexpected remaining %d", session.Remaining(start))
	}

	key := "attempt:session:quiz-1:s1"
	if !mr.Exists(key) {
		t.Fatalf("session key not stored")
	}
	// Duration plus the 5 minute grace.
	if got, want := mr.TTL(key), 35*time.Minute; got != want {
		t.Fatalf("expected ttl %v, got %v", want, got)
	}
}

func TestSessionStoreStartResumesExisting(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	start := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	store.clock = func() time.Time { return start }

	first, err := store.Start(ctx, testSession("quiz-1", "s1", start))
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	resumed, err := store.Start(ctx, testSession("quiz-1", "s1", start.Add(10*time.Minute)))
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	if !resumed.Deadline.Equal(first.Deadline) {
		t.Fatalf("restart must resume the original countdown, got %v want %v", resumed.Deadline, first.Deadline)
	}
}

func TestSessionStoreSaveAnswersKeepsTTL(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)
	start := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	store.clock = func() time.Time { return start }

	if _, err := store.Start(ctx, testSession("quiz-1", "s1", start)); err != nil {
		t.Fatalf("start: %v", err)
	}

	saved, err := store.SaveAnswers(ctx, "quiz-1", "s1", domain.AnswerSet{"q1": 1, "q2": 3})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if saved.Answers["q2"] != 3 {
		t.Fatalf("unexpected buffered answers %v", saved.Answers)
	}

	session, ok, err := store.Get(ctx, "quiz-1", "s1")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if session.Answers["q1"] != 1 {
		t.Fatalf("answers not persisted: %v", session.Answers)
	}
	if got, want := mr.TTL("attempt:session:quiz-1:s1"), 35*time.Minute; got != want {
		t.Fatalf("save must not reset the ttl: got %v want %v", got, want)
	}

	if _, err := store.SaveAnswers(ctx, "quiz-1", "s9", domain.AnswerSet{}); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected session not found, got %v", err)
	}
}

func TestSessionStoreCompleteOnce(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	start := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	store.clock = func() time.Time { return start }

	if _, err := store.Start(ctx, testSession("quiz-1", "s1", start)); err != nil {
		t.Fatalf("start: %v", err)
	}

	won, err := store.Complete(ctx, "quiz-1", "s1")
	if err != nil || !won {
		t.Fatalf("first complete must win: won=%v err=%v", won, err)
	}
	won, err = store.Complete(ctx, "quiz-1", "s1")
	if err != nil || won {
		t.Fatalf("second complete must lose: won=%v err=%v", won, err)
	}

	if _, ok, _ := store.Get(ctx, "quiz-1", "s1"); ok {
		t.Fatalf("completed session must be gone")
	}
}

func TestSessionStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)
	start := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	store.clock = func() time.Time { return start }

	if _, err := store.Start(ctx, testSession("quiz-1", "s1", start)); err != nil {
		t.Fatalf("start: %v", err)
	}

	mr.FastForward(36 * time.Minute)

	if _, ok, err := store.Get(ctx, "quiz-1", "s1"); err != nil || ok {
		t.Fatalf("expected expired session to be gone: ok=%v err=%v", ok, err)
	}

	// A fresh start after expiry creates a new countdown.
	later := start.Add(40 * time.Minute)
	store.clock = func() time.Time { return later }
	session, err := store.Start(ctx, testSession("quiz-1", "s1", later))
	if err != nil {
		t.Fatalf("restart after expiry: %v", err)
	}
	if !session.StartedAt.Equal(later) {
		t.Fatalf("expected fresh session, got %+v", session)
	}
}
