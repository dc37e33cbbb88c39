package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"quizdesk/internal/domain"
)

func sampleQuiz(id, teacher string, created time.Time, students ...string) domain.Quiz {
	return domain.Quiz{
		ID:           id,
		Title:        "Quiz " + id,
		Subject:      "Math",
		Duration:     15,
		PassingScore: 60,
		Status:       domain.QuizActive,
		CreatedBy:    teacher,
		CreatedAt:    created,
		Questions: []domain.Question{
			{ID: "q1", Text: "Q", Options: []string{"a", "b", "c", "d"}, CorrectAnswer: 0},
		},
		AssignedStudents: students,
	}
}

func TestQuizRepositoryCRUD(t *testing.T) {
	ctx := context.Background()
	repo := NewQuizRepository()
	created := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

	if err := repo.Create(ctx, sampleQuiz("quiz-1", "t1", created, "s1")); err != nil {
		t.Fatalf("create: %v", err)
	}

	quiz, err := repo.FindByID(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if quiz.Title != "Quiz quiz-1" {
		t.Fatalf("unexpected quiz %+v", quiz)
	}

	if _, err := repo.FindByID(ctx, "missing"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	if err := repo.Delete(ctx, "quiz-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := repo.Delete(ctx, "quiz-1"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestQuizRepositoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewQuizRepository()
	repo.Seed(sampleQuiz("quiz-1", "t1", time.Now(), "s1"))

	quiz, _ := repo.FindByID(ctx, "quiz-1")
	quiz.Questions[0].Options[0] = "mutated"
	quiz.AssignedStudents[0] = "mutated"

	reread, _ := repo.FindByID(ctx, "quiz-1")
	if reread.Questions[0].Options[0] != "a" || reread.AssignedStudents[0] != "s1" {
		t.Fatalf("stored quiz mutated through a returned copy: %+v", reread)
	}
}

func TestQuizRepositoryFindAssignedTo(t *testing.T) {
	ctx := context.Background()
	repo := NewQuizRepository()
	base := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	repo.Seed(
		sampleQuiz("quiz-1", "t1", base, "s1", "s2"),
		sampleQuiz("quiz-2", "t1", base.Add(time.Hour), "s2"),
		sampleQuiz("quiz-3", "t2", base.Add(2*time.Hour), "s1"),
	)

	quizzes, err := repo.FindAssignedTo(ctx, "s1")
	if err != nil {
		t.Fatalf("find assigned: %v", err)
	}
	if len(quizzes) != 2 {
		t.Fatalf("expected 2 quizzes for s1, got %d", len(quizzes))
	}
	// Newest first.
	if quizzes[0].ID != "quiz-3" || quizzes[1].ID != "quiz-1" {
		t.Fatalf("unexpected order %v %v", quizzes[0].ID, quizzes[1].ID)
	}

	none, err := repo.FindAssignedTo(ctx, "s9")
	if err != nil || len(none) != 0 {
		t.Fatalf("expected empty result, got %v %v", none, err)
	}
}

func TestQuizRepositoryFindCreatedBy(t *testing.T) {
	ctx := context.Background()
	repo := NewQuizRepository()
	base := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	repo.Seed(
		sampleQuiz("quiz-1", "t1", base),
		sampleQuiz("quiz-2", "t2", base),
		sampleQuiz("quiz-3", "t1", base.Add(time.Minute)),
	)

	quizzes, err := repo.FindCreatedBy(ctx, "t1")
	if err != nil {
		t.Fatalf("find created by: %v", err)
	}
	if len(quizzes) != 2 || quizzes[0].ID != "quiz-3" {
		t.Fatalf("unexpected result %+v", quizzes)
	}
}

func TestQuizRepositoryUpdateAssignedStudents(t *testing.T) {
	ctx := context.Background()
	repo := NewQuizRepository()
	repo.Seed(sampleQuiz("quiz-1", "t1", time.Now(), "s1"))

	if err := repo.UpdateAssignedStudents(ctx, "quiz-1", []string{"s2", "s3"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	quiz, _ := repo.FindByID(ctx, "quiz-1")
	if len(quiz.AssignedStudents) != 2 || quiz.AssignedStudents[0] != "s2" {
		t.Fatalf("unexpected assignment %v", quiz.AssignedStudents)
	}

	if err := repo.UpdateAssignedStudents(ctx, "missing", nil); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestQuizRepositoryIncrementAttempts(t *testing.T) {
	ctx := context.Background()
	repo := NewQuizRepository()
	repo.Seed(sampleQuiz("quiz-1", "t1", time.Now()))

	for i := 0; i < 3; i++ {
		if err := repo.IncrementAttempts(ctx, "quiz-1"); err != nil {
			t.Fatalf("increment: %v", err)
		}
	}
	quiz, _ := repo.FindByID(ctx, "quiz-1")
	if quiz.AttemptCount != 3 {
		t.Fatalf("expected count 3, got %d", quiz.AttemptCount)
	}
}
