package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"quizdesk/internal/app"
	"quizdesk/internal/domain"
)

// SessionStore keeps in-progress attempt sessions in Redis so countdown state
// survives reconnects and is shared across instances. Each session is a JSON
// value at attempt:session:{quizID}:{studentID}; the key expires a grace
// period after the deadline so abandoned sessions clean themselves up.
//
// Only timer state lives here. Quiz definitions and submitted attempts are
// never cached; every submission re-reads authoritative state.
type SessionStore struct {
	client *redis.Client
	grace  time.Duration
	clock  func() time.Time
}

func NewSessionStore(client *redis.Client, grace time.Duration) *SessionStore {
	return &SessionStore{client: client, grace: grace, clock: time.Now}
}

func (s *SessionStore) Start(ctx context.Context, session app.AttemptSession) (app.AttemptSession, error) {
	data, err := json.Marshal(session)
	if err != nil {
		return app.AttemptSession{}, fmt.Errorf("marshal session: %w", err)
	}

	key := s.key(session.QuizID, session.StudentID)
	created, err := s.client.SetNX(ctx, key, data, s.ttl(session)).Result()
	if err != nil {
		return app.AttemptSession{}, fmt.Errorf("store session: %w", err)
	}
	if created {
		return session, nil
	}

	// Another start already won; resume the original countdown.
	existing, ok, err := s.Get(ctx, session.QuizID, session.StudentID)
	if err != nil {
		return app.AttemptSession{}, err
	}
	if !ok {
		// The existing session expired between SetNX and Get; retry once.
		return s.Start(ctx, session)
	}
	return existing, nil
}

func (s *SessionStore) Get(ctx context.Context, quizID, studentID string) (app.AttemptSession, bool, error) {
	data, err := s.client.Get(ctx, s.key(quizID, studentID)).Bytes()
	if err == redis.Nil {
		return app.AttemptSession{}, false, nil
	}
	if err != nil {
		return app.AttemptSession{}, false, fmt.Errorf("load session: %w", err)
	}
	var session app.AttemptSession
	if err := json.Unmarshal(data, &session); err != nil {
		return app.AttemptSession{}, false, fmt.Errorf("unmarshal session: %w", err)
	}
	return session, true, nil
}

func (s *SessionStore) SaveAnswers(ctx context.Context, quizID, studentID string, answers domain.AnswerSet) (app.AttemptSession, error) {
	session, ok, err := s.Get(ctx, quizID, studentID)
	if err != nil {
		return app.AttemptSession{}, err
	}
	if !ok {
		return app.AttemptSession{}, domain.ErrSessionNotFound
	}

	session.Answers = answers
	data, err := json.Marshal(session)
	if err != nil {
		return app.AttemptSession{}, fmt.Errorf("marshal session: %w", err)
	}
	if err := s.client.Set(ctx, s.key(quizID, studentID), data, redis.KeepTTL).Err(); err != nil {
		return app.AttemptSession{}, fmt.Errorf("store session: %w", err)
	}
	return session, nil
}

// Complete deletes the session key. DEL's removed-key count makes this a
// first-caller-wins guard: of two racing submissions exactly one sees true.
func (s *SessionStore) Complete(ctx context.Context, quizID, studentID string) (bool, error) {
	removed, err := s.client.Del(ctx, s.key(quizID, studentID)).Result()
	if err != nil {
		return false, fmt.Errorf("delete session: %w", err)
	}
	return removed > 0, nil
}

func (s *SessionStore) key(quizID, studentID string) string {
	return "attempt:session:" + quizID + ":" + studentID
}

func (s *SessionStore) ttl(session app.AttemptSession) time.Duration {
	ttl := session.Deadline.Sub(s.clock()) + s.grace
	if ttl < time.Second {
		ttl = time.Second
	}
	return ttl
}
