package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"quizdesk/internal/domain"
)

// AttemptService coordinates the attempt lifecycle: fetch, authorize, score,
// persist, report. It holds no per-request state; every call re-reads
// authoritative quiz and attempt state from the repositories.
type AttemptService struct {
	quizzes  QuizRepository
	attempts AttemptRepository
	sessions AttemptSessionStore
	now      func() time.Time
	newID    func() string
}

func NewAttemptService(quizzes QuizRepository, attempts AttemptRepository, sessions AttemptSessionStore) *AttemptService {
	return &AttemptService{
		quizzes:  quizzes,
		attempts: attempts,
		sessions: sessions,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// NewAttemptServiceWithClock is test-only for deterministic timestamps and IDs.
func NewAttemptServiceWithClock(quizzes QuizRepository, attempts AttemptRepository, sessions AttemptSessionStore, now func() time.Time, newID func() string) *AttemptService {
	return &AttemptService{quizzes: quizzes, attempts: attempts, sessions: sessions, now: now, newID: newID}
}

// Start begins (or resumes) an attempt session and returns the redacted quiz
// alongside the countdown state. Students who already submitted get
// ErrDuplicateAttempt; students the quiz is not assigned to get
// ErrQuizNotFound, indistinguishable from a missing quiz.
func (s *AttemptService) Start(ctx context.Context, quizID, studentID string) (domain.RedactedQuiz, AttemptSession, error) {
	quiz, err := s.authorizedQuiz(ctx, quizID, studentID)
	if err != nil {
		return domain.RedactedQuiz{}, AttemptSession{}, err
	}

	if _, err := s.attempts.FindByQuizAndStudent(ctx, quizID, studentID); err == nil {
		return domain.RedactedQuiz{}, AttemptSession{}, domain.ErrDuplicateAttempt
	} else if err != domain.ErrAttemptNotFound {
		return domain.RedactedQuiz{}, AttemptSession{}, err
	}

	session, err := s.sessions.Start(ctx, NewAttemptSession(quiz, studentID, s.now()))
	if err != nil {
		return domain.RedactedQuiz{}, AttemptSession{}, fmt.Errorf("start session: %w", err)
	}
	return quiz.Redacted(), session, nil
}

// SaveProgress buffers the student's current answers in the session so a
// timer-triggered submission has something to grade.
func (s *AttemptService) SaveProgress(ctx context.Context, quizID, studentID string, answers domain.AnswerSet) (AttemptSession, error) {
	if err := answers.Validate(); err != nil {
		return AttemptSession{}, err
	}
	return s.sessions.SaveAnswers(ctx, quizID, studentID, answers)
}

// Session returns the in-progress session for a (quiz, student) pair.
func (s *AttemptService) Session(ctx context.Context, quizID, studentID string) (AttemptSession, error) {
	session, ok, err := s.sessions.Get(ctx, quizID, studentID)
	if err != nil {
		return AttemptSession{}, err
	}
	if !ok {
		return AttemptSession{}, domain.ErrSessionNotFound
	}
	return session, nil
}

// Submit runs the full submission sequence in fixed order: quiz existence,
// assignment check, payload validation, scoring, attempt insert, counter
// increment. The insert is the last guaranteed step; the counter increment is
// best-effort and a failure there is logged, never surfaced, since reports
// derive counts from the attempts store.
//
// Two concurrent submits for the same (quiz, student) both reach the insert;
// the store's uniqueness constraint lets exactly one through and the other
// receives ErrDuplicateAttempt.
func (s *AttemptService) Submit(ctx context.Context, quizID, studentID string, answers domain.AnswerSet, timeTaken int) (domain.AttemptResult, error) {
	quiz, err := s.authorizedQuiz(ctx, quizID, studentID)
	if err != nil {
		return domain.AttemptResult{}, err
	}

	if err := answers.Validate(); err != nil {
		return domain.AttemptResult{}, err
	}
	if timeTaken < 0 {
		return domain.AttemptResult{}, fmt.Errorf("%w: negative time taken", domain.ErrValidation)
	}

	result := Score(quiz, answers)

	attempt := domain.Attempt{
		ID:             s.newID(),
		QuizID:         quiz.ID,
		StudentID:      studentID,
		Answers:        answers,
		Score:          result.Score,
		CorrectAnswers: result.CorrectAnswers,
		TotalQuestions: result.TotalQuestions,
		TimeTaken:      timeTaken,
		QuizTitle:      quiz.Title,
		QuizSubject:    quiz.Subject,
		SubmittedAt:    s.now(),
	}
	if _, err := s.attempts.Create(ctx, attempt); err != nil {
		return domain.AttemptResult{}, err
	}

	if err := s.quizzes.IncrementAttempts(ctx, quiz.ID); err != nil {
		log.Printf("increment attempts for quiz %s: %v", quiz.ID, err)
	}
	if _, err := s.sessions.Complete(ctx, quiz.ID, studentID); err != nil {
		log.Printf("complete session for quiz %s student %s: %v", quiz.ID, studentID, err)
	}

	return result, nil
}

// SubmitExpired force-submits a session whose countdown ran out, grading the
// answers buffered so far. Complete removes the session first so only one of a
// racing manual submit and timer expiry proceeds from this path; if a manual
// submit already won at the attempt store anyway, the insert reports
// ErrDuplicateAttempt and callers treat the attempt as already submitted.
func (s *AttemptService) SubmitExpired(ctx context.Context, quizID, studentID string) (domain.AttemptResult, error) {
	session, ok, err := s.sessions.Get(ctx, quizID, studentID)
	if err != nil {
		return domain.AttemptResult{}, err
	}
	if !ok {
		return domain.AttemptResult{}, domain.ErrSessionNotFound
	}

	won, err := s.sessions.Complete(ctx, quizID, studentID)
	if err != nil {
		return domain.AttemptResult{}, err
	}
	if !won {
		return domain.AttemptResult{}, domain.ErrSessionNotFound
	}

	return s.Submit(ctx, quizID, studentID, session.Answers, session.TimeTaken(s.now()))
}

// AttemptReview is the post-hoc view a student gets of their own submission.
// Questions carry correct answers; they are only ever handed to the attempt's
// own student, after that student's submission has been scored. When the quiz
// has since been deleted the review falls back to the attempt's frozen
// snapshot and the default passing score.
type AttemptReview struct {
	Attempt      domain.Attempt    `json:"attempt"`
	Questions    []domain.Question `json:"questions,omitempty"`
	PassingScore int               `json:"passingScore"`
	Passed       bool              `json:"passed"`
}

// Review returns the student's own attempt for a quiz.
func (s *AttemptService) Review(ctx context.Context, quizID, studentID string) (AttemptReview, error) {
	attempt, err := s.attempts.FindByQuizAndStudent(ctx, quizID, studentID)
	if err != nil {
		return AttemptReview{}, err
	}

	review := AttemptReview{Attempt: attempt, PassingScore: domain.DefaultPassingScore}
	if quiz, err := s.quizzes.FindByID(ctx, quizID); err == nil {
		review.Questions = quiz.Questions
		review.PassingScore = quiz.PassingScore
	} else if err != domain.ErrQuizNotFound {
		return AttemptReview{}, err
	}
	review.Passed = attempt.Score >= float64(review.PassingScore)
	return review, nil
}

func (s *AttemptService) authorizedQuiz(ctx context.Context, quizID, studentID string) (domain.Quiz, error) {
	quiz, err := s.quizzes.FindByID(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if !quiz.IsAssignedTo(studentID) {
		// Collapsed with the missing-quiz case so assignment existence never leaks.
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return quiz, nil
}
