package app_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"quizdesk/internal/app"
	"quizdesk/internal/domain"
	"quizdesk/internal/infra/memory"
)

type fixture struct {
	quizzes  *memory.QuizRepository
	attempts *memory.AttemptRepository
	sessions *memory.SessionStore
	service  *app.AttemptService
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		quizzes:  memory.NewQuizRepository(),
		attempts: memory.NewAttemptRepository(),
		sessions: memory.NewSessionStore(),
		now:      time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	seq := 0
	f.service = app.NewAttemptServiceWithClock(f.quizzes, f.attempts, f.sessions,
		func() time.Time { return f.now },
		func() string { seq++; return fmt.Sprintf("id-%d", seq) })
	f.quizzes.Seed(testQuiz())
	return f
}

func testQuiz() domain.Quiz {
	return domain.Quiz{
		ID:           "quiz-1",
		Title:        "Fractions",
		Subject:      "Math",
		Duration:     30,
		PassingScore: 50,
		Status:       domain.QuizActive,
		CreatedBy:    "t1",
		Questions: []domain.Question{
			{ID: "q1", Text: "Q1", Options: []string{"a", "b", "c", "d"}, CorrectAnswer: 0},
			{ID: "q2", Text: "Q2", Options: []string{"a", "b", "c", "d"}, CorrectAnswer: 1},
			{ID: "q3", Text: "Q3", Options: []string{"a", "b", "c", "d"}, CorrectAnswer: 2},
			{ID: "q4", Text: "Q4", Options: []string{"a", "b", "c", "d"}, CorrectAnswer: 3},
		},
		AssignedStudents: []string{"s1"},
	}
}

func TestSubmitScoresAndPersists(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	result, err := f.service.Submit(ctx, "quiz-1", "s1", domain.AnswerSet{"q1": 0, "q2": 1, "q3": 9, "q4": 3}, 120)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Score != 75.0 || result.CorrectAnswers != 3 || result.TotalQuestions != 4 || !result.Passed {
		t.Fatalf("unexpected result %+v", result)
	}

	attempt, err := f.attempts.FindByQuizAndStudent(ctx, "quiz-1", "s1")
	if err != nil {
		t.Fatalf("find attempt: %v", err)
	}
	if attempt.Score != 75.0 || attempt.TimeTaken != 120 {
		t.Fatalf("unexpected persisted attempt %+v", attempt)
	}
	if attempt.QuizTitle != "Fractions" || attempt.QuizSubject != "Math" {
		t.Fatalf("expected frozen quiz snapshot, got %+v", attempt)
	}
	if !attempt.SubmittedAt.Equal(f.now) {
		t.Fatalf("expected submittedAt %v, got %v", f.now, attempt.SubmittedAt)
	}

	quiz, err := f.quizzes.FindByID(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("find quiz: %v", err)
	}
	if quiz.AttemptCount != 1 {
		t.Fatalf("expected attempt count 1, got %d", quiz.AttemptCount)
	}
}

func TestSubmitReplayMatchesStoredScore(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	answers := domain.AnswerSet{"q1": 0, "q4": 3}

	if _, err := f.service.Submit(ctx, "quiz-1", "s1", answers, 60); err != nil {
		t.Fatalf("submit: %v", err)
	}
	attempt, err := f.attempts.FindByQuizAndStudent(ctx, "quiz-1", "s1")
	if err != nil {
		t.Fatalf("find attempt: %v", err)
	}

	replay := app.Score(testQuiz(), attempt.Answers)
	if replay.Score != attempt.Score || replay.CorrectAnswers != attempt.CorrectAnswers {
		t.Fatalf("replay %+v does not match stored attempt %+v", replay, attempt)
	}
}

func TestSubmitUnknownQuiz(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Submit(context.Background(), "quiz-404", "s1", domain.AnswerSet{}, 0)
	if !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected quiz not found, got %v", err)
	}
}

func TestSubmitNotAssignedLooksLikeMissingQuiz(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.service.Submit(ctx, "quiz-1", "s2", domain.AnswerSet{"q1": 0}, 10)
	if !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected quiz not found for unassigned student, got %v", err)
	}
	if _, err := f.attempts.FindByQuizAndStudent(ctx, "quiz-1", "s2"); !errors.Is(err, domain.ErrAttemptNotFound) {
		t.Fatalf("no attempt may be persisted for a rejected submission")
	}
}

func TestSubmitRejectsMalformedPayload(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if _, err := f.service.Submit(ctx, "quiz-1", "s1", domain.AnswerSet{"q1": -1}, 10); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for negative option index, got %v", err)
	}
	if _, err := f.service.Submit(ctx, "quiz-1", "s1", domain.AnswerSet{"q1": 0}, -5); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for negative time taken, got %v", err)
	}

	// Fail fast: nothing persisted, counter untouched.
	if _, err := f.attempts.FindByQuizAndStudent(ctx, "quiz-1", "s1"); !errors.Is(err, domain.ErrAttemptNotFound) {
		t.Fatalf("rejected submission must not persist an attempt")
	}
	quiz, _ := f.quizzes.FindByID(ctx, "quiz-1")
	if quiz.AttemptCount != 0 {
		t.Fatalf("rejected submission must not increment the counter, got %d", quiz.AttemptCount)
	}
}

func TestSubmitDuplicate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if _, err := f.service.Submit(ctx, "quiz-1", "s1", domain.AnswerSet{"q1": 0}, 10); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	_, err := f.service.Submit(ctx, "quiz-1", "s1", domain.AnswerSet{"q1": 0, "q2": 1}, 15)
	if !errors.Is(err, domain.ErrDuplicateAttempt) {
		t.Fatalf("expected duplicate attempt, got %v", err)
	}

	attempts, err := f.attempts.FindByQuiz(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("find attempts: %v", err)
	}
	if len(attempts) != 1 {
		t.Fatalf("expected exactly one attempt, got %d", len(attempts))
	}
}

func TestSubmitConcurrentSameStudent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	const racers = 8
	var wg sync.WaitGroup
	errs := make([]error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.service.Submit(ctx, "quiz-1", "s1", domain.AnswerSet{"q1": 0}, 10)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, domain.ErrDuplicateAttempt):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("expected exactly one winning submission, got %d", succeeded)
	}
	attempts, _ := f.attempts.FindByQuiz(ctx, "quiz-1")
	if len(attempts) != 1 {
		t.Fatalf("expected exactly one persisted attempt, got %d", len(attempts))
	}
}

func TestStartReturnsRedactedQuizAndSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	quiz, session, err := f.service.Start(ctx, "quiz-1", "s1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if len(quiz.Questions) != 4 {
		t.Fatalf("expected 4 redacted questions, got %d", len(quiz.Questions))
	}
	if want := f.now.Add(30 * time.Minute); !session.Deadline.Equal(want) {
		t.Fatalf("expected deadline %v, got %v", want, session.Deadline)
	}

	// Starting again resumes the same countdown.
	f.now = f.now.Add(5 * time.Minute)
	_, resumed, err := f.service.Start(ctx, "quiz-1", "s1")
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	if !resumed.Deadline.Equal(session.Deadline) {
		t.Fatalf("expected resumed deadline %v, got %v", session.Deadline, resumed.Deadline)
	}
}

func TestStartAfterSubmitIsConflict(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if _, err := f.service.Submit(ctx, "quiz-1", "s1", domain.AnswerSet{}, 1); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, _, err := f.service.Start(ctx, "quiz-1", "s1"); !errors.Is(err, domain.ErrDuplicateAttempt) {
		t.Fatalf("expected duplicate attempt on restart after submit, got %v", err)
	}
}

func TestSubmitExpiredGradesBufferedAnswers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if _, _, err := f.service.Start(ctx, "quiz-1", "s1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := f.service.SaveProgress(ctx, "quiz-1", "s1", domain.AnswerSet{"q1": 0, "q2": 1}); err != nil {
		t.Fatalf("save progress: %v", err)
	}

	f.now = f.now.Add(45 * time.Minute) // past the deadline
	result, err := f.service.SubmitExpired(ctx, "quiz-1", "s1")
	if err != nil {
		t.Fatalf("forced submit: %v", err)
	}
	if result.CorrectAnswers != 2 || result.Score != 50.0 {
		t.Fatalf("expected buffered answers graded, got %+v", result)
	}

	attempt, err := f.attempts.FindByQuizAndStudent(ctx, "quiz-1", "s1")
	if err != nil {
		t.Fatalf("find attempt: %v", err)
	}
	// Time taken caps at the session span even though expiry fired late.
	if attempt.TimeTaken != 30*60 {
		t.Fatalf("expected time taken capped at 1800s, got %d", attempt.TimeTaken)
	}
}

func TestSubmitExpiredAfterManualSubmit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if _, _, err := f.service.Start(ctx, "quiz-1", "s1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := f.service.Submit(ctx, "quiz-1", "s1", domain.AnswerSet{"q1": 0}, 30); err != nil {
		t.Fatalf("manual submit: %v", err)
	}

	// Manual submission already completed the session; the timer path backs off.
	if _, err := f.service.SubmitExpired(ctx, "quiz-1", "s1"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected session gone after manual submit, got %v", err)
	}
	attempts, _ := f.attempts.FindByQuiz(ctx, "quiz-1")
	if len(attempts) != 1 {
		t.Fatalf("expected one attempt after submit race, got %d", len(attempts))
	}
}

func TestReviewReturnsOwnAttemptWithQuestions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if _, err := f.service.Submit(ctx, "quiz-1", "s1", domain.AnswerSet{"q1": 0, "q2": 1}, 20); err != nil {
		t.Fatalf("submit: %v", err)
	}

	review, err := f.service.Review(ctx, "quiz-1", "s1")
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if len(review.Questions) != 4 {
		t.Fatalf("expected questions in post-hoc review, got %d", len(review.Questions))
	}
	if review.PassingScore != 50 || !review.Passed {
		t.Fatalf("unexpected review verdict %+v", review)
	}

	// Another student has no attempt to review.
	if _, err := f.service.Review(ctx, "quiz-1", "s2"); !errors.Is(err, domain.ErrAttemptNotFound) {
		t.Fatalf("expected attempt not found for other student, got %v", err)
	}
}

func TestReviewSurvivesQuizDeletion(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if _, err := f.service.Submit(ctx, "quiz-1", "s1", domain.AnswerSet{"q1": 0, "q2": 1, "q3": 2}, 20); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := f.quizzes.Delete(ctx, "quiz-1"); err != nil {
		t.Fatalf("delete quiz: %v", err)
	}

	review, err := f.service.Review(ctx, "quiz-1", "s1")
	if err != nil {
		t.Fatalf("review after deletion: %v", err)
	}
	if review.Questions != nil {
		t.Fatalf("deleted quiz cannot contribute questions")
	}
	if review.Attempt.QuizTitle != "Fractions" {
		t.Fatalf("expected frozen title on attempt, got %q", review.Attempt.QuizTitle)
	}
	if review.PassingScore != domain.DefaultPassingScore || !review.Passed {
		t.Fatalf("expected default passing score fallback, got %+v", review)
	}
}
