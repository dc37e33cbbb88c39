package memory

import (
	"context"
	"sort"
	"sync"

	"quizdesk/internal/domain"
)

// AttemptRepository is an in-memory implementation of app.AttemptRepository.
// The (quiz, student) index is maintained under the same lock as the insert,
// so the at-most-one-attempt rule is an atomic conditional insert, not a
// read-then-write check.
type AttemptRepository struct {
	mu       sync.RWMutex
	attempts map[string]domain.Attempt
	byPair   map[pairKey]string
}

type pairKey struct {
	quizID    string
	studentID string
}

func NewAttemptRepository() *AttemptRepository {
	return &AttemptRepository{
		attempts: make(map[string]domain.Attempt),
		byPair:   make(map[pairKey]string),
	}
}

func (r *AttemptRepository) Create(_ context.Context, attempt domain.Attempt) (domain.Attempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := pairKey{quizID: attempt.QuizID, studentID: attempt.StudentID}
	if _, ok := r.byPair[key]; ok {
		return domain.Attempt{}, domain.ErrDuplicateAttempt
	}
	stored := cloneAttempt(attempt)
	r.attempts[attempt.ID] = stored
	r.byPair[key] = attempt.ID
	return cloneAttempt(stored), nil
}

func (r *AttemptRepository) FindByQuizAndStudent(_ context.Context, quizID, studentID string) (domain.Attempt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byPair[pairKey{quizID: quizID, studentID: studentID}]
	if !ok {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	return cloneAttempt(r.attempts[id]), nil
}

func (r *AttemptRepository) FindByQuiz(_ context.Context, quizID string) ([]domain.Attempt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Attempt
	for _, attempt := range r.attempts {
		if attempt.QuizID == quizID {
			out = append(out, cloneAttempt(attempt))
		}
	}
	sortAttempts(out)
	return out, nil
}

func (r *AttemptRepository) FindByStudent(_ context.Context, studentID string) ([]domain.Attempt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Attempt
	for _, attempt := range r.attempts {
		if attempt.StudentID == studentID {
			out = append(out, cloneAttempt(attempt))
		}
	}
	sortAttempts(out)
	return out, nil
}

func cloneAttempt(attempt domain.Attempt) domain.Attempt {
	answers := make(domain.AnswerSet, len(attempt.Answers))
	for k, v := range attempt.Answers {
		answers[k] = v
	}
	attempt.Answers = answers
	return attempt
}

func sortAttempts(attempts []domain.Attempt) {
	sort.Slice(attempts, func(i, j int) bool {
		if !attempts[i].SubmittedAt.Equal(attempts[j].SubmittedAt) {
			return attempts[i].SubmittedAt.After(attempts[j].SubmittedAt)
		}
		return attempts[i].ID < attempts[j].ID
	})
}
