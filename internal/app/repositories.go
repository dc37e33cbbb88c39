package app

import (
	"context"

	"quizdesk/internal/domain"
)

// QuizRepository stores quiz definitions (in-memory, Postgres, etc).
type QuizRepository interface {
	Create(ctx context.Context, quiz domain.Quiz) error
	FindByID(ctx context.Context, id string) (domain.Quiz, error)
	FindAssignedTo(ctx context.Context, studentID string) ([]domain.Quiz, error)
	FindCreatedBy(ctx context.Context, teacherID string) ([]domain.Quiz, error)
	List(ctx context.Context) ([]domain.Quiz, error)
	UpdateAssignedStudents(ctx context.Context, id string, studentIDs []string) error
	// IncrementAttempts bumps the denormalized attempt counter. The increment
	// must be atomic at the store; it is best-effort relative to the attempt
	// insert, and reports derive authoritative counts from the attempts store.
	IncrementAttempts(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// AttemptRepository stores submitted attempts. Create must enforce at most one
// attempt per (quiz, student) pair with a store-level conditional insert and
// return domain.ErrDuplicateAttempt on violation.
type AttemptRepository interface {
	Create(ctx context.Context, attempt domain.Attempt) (domain.Attempt, error)
	FindByQuizAndStudent(ctx context.Context, quizID, studentID string) (domain.Attempt, error)
	FindByQuiz(ctx context.Context, quizID string) ([]domain.Attempt, error)
	FindByStudent(ctx context.Context, studentID string) ([]domain.Attempt, error)
}

// AttemptSessionStore tracks in-progress attempt sessions (the server-side
// countdown state). Sessions are transient: completing or abandoning one
// removes it, and the attempt store's uniqueness constraint remains the
// authoritative duplicate-submission guard.
type AttemptSessionStore interface {
	// Start persists a new session, or returns the existing one so a student
	// who reconnects resumes the original countdown.
	Start(ctx context.Context, session AttemptSession) (AttemptSession, error)
	Get(ctx context.Context, quizID, studentID string) (AttemptSession, bool, error)
	// SaveAnswers replaces the session's buffered answer set.
	SaveAnswers(ctx context.Context, quizID, studentID string, answers domain.AnswerSet) (AttemptSession, error)
	// Complete removes the session and reports whether this caller removed it.
	// Exactly one of a racing manual submit and timer expiry sees true.
	Complete(ctx context.Context, quizID, studentID string) (bool, error)
}
