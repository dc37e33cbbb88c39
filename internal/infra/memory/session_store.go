package memory

import (
	"context"
	"sync"

	"quizdesk/internal/app"
	"quizdesk/internal/domain"
)

// SessionStore is an in-memory implementation of app.AttemptSessionStore.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[sessionKey]app.AttemptSession
}

type sessionKey struct {
	quizID    string
	studentID string
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[sessionKey]app.AttemptSession)}
}

func (s *SessionStore) Start(_ context.Context, session app.AttemptSession) (app.AttemptSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := sessionKey{quizID: session.QuizID, studentID: session.StudentID}
	if existing, ok := s.sessions[key]; ok {
		return existing, nil
	}
	s.sessions[key] = session
	return session, nil
}

func (s *SessionStore) Get(_ context.Context, quizID, studentID string) (app.AttemptSession, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionKey{quizID: quizID, studentID: studentID}]
	return session, ok, nil
}

func (s *SessionStore) SaveAnswers(_ context.Context, quizID, studentID string, answers domain.AnswerSet) (app.AttemptSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := sessionKey{quizID: quizID, studentID: studentID}
	session, ok := s.sessions[key]
	if !ok {
		return app.AttemptSession{}, domain.ErrSessionNotFound
	}
	buffered := make(domain.AnswerSet, len(answers))
	for k, v := range answers {
		buffered[k] = v
	}
	session.Answers = buffered
	s.sessions[key] = session
	return session, nil
}

func (s *SessionStore) Complete(_ context.Context, quizID, studentID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := sessionKey{quizID: quizID, studentID: studentID}
	if _, ok := s.sessions[key]; !ok {
		return false, nil
	}
	delete(s.sessions, key)
	return true, nil
}
