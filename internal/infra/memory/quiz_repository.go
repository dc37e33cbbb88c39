package memory

import (
	"context"
	"sort"
	"sync"

	"quizdesk/internal/domain"
)

// QuizRepository is an in-memory implementation of app.QuizRepository, used
// for tests and for running the service without Postgres.
type QuizRepository struct {
	mu      sync.RWMutex
	quizzes map[string]domain.Quiz
}

func NewQuizRepository() *QuizRepository {
	return &QuizRepository{quizzes: make(map[string]domain.Quiz)}
}

// Seed loads quizzes wholesale, for demos and tests.
func (r *QuizRepository) Seed(quizzes ...domain.Quiz) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, quiz := range quizzes {
		r.quizzes[quiz.ID] = cloneQuiz(quiz)
	}
}

func (r *QuizRepository) Create(_ context.Context, quiz domain.Quiz) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.quizzes[quiz.ID] = cloneQuiz(quiz)
	return nil
}

func (r *QuizRepository) FindByID(_ context.Context, id string) (domain.Quiz, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	quiz, ok := r.quizzes[id]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return cloneQuiz(quiz), nil
}

func (r *QuizRepository) FindAssignedTo(_ context.Context, studentID string) ([]domain.Quiz, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Quiz
	for _, quiz := range r.quizzes {
		if quiz.IsAssignedTo(studentID) {
			out = append(out, cloneQuiz(quiz))
		}
	}
	sortQuizzes(out)
	return out, nil
}

func (r *QuizRepository) FindCreatedBy(_ context.Context, teacherID string) ([]domain.Quiz, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Quiz
	for _, quiz := range r.quizzes {
		if quiz.CreatedBy == teacherID {
			out = append(out, cloneQuiz(quiz))
		}
	}
	sortQuizzes(out)
	return out, nil
}

func (r *QuizRepository) List(_ context.Context) ([]domain.Quiz, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Quiz, 0, len(r.quizzes))
	for _, quiz := range r.quizzes {
		out = append(out, cloneQuiz(quiz))
	}
	sortQuizzes(out)
	return out, nil
}

func (r *QuizRepository) UpdateAssignedStudents(_ context.Context, id string, studentIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	quiz, ok := r.quizzes[id]
	if !ok {
		return domain.ErrQuizNotFound
	}
	quiz.AssignedStudents = append([]string(nil), studentIDs...)
	r.quizzes[id] = quiz
	return nil
}

func (r *QuizRepository) IncrementAttempts(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	quiz, ok := r.quizzes[id]
	if !ok {
		return domain.ErrQuizNotFound
	}
	quiz.AttemptCount++
	r.quizzes[id] = quiz
	return nil
}

func (r *QuizRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.quizzes[id]; !ok {
		return domain.ErrQuizNotFound
	}
	delete(r.quizzes, id)
	return nil
}

// cloneQuiz keeps callers from mutating stored state through shared slices.
func cloneQuiz(quiz domain.Quiz) domain.Quiz {
	quiz.Questions = append([]domain.Question(nil), quiz.Questions...)
	for i := range quiz.Questions {
		quiz.Questions[i].Options = append([]string(nil), quiz.Questions[i].Options...)
	}
	quiz.AssignedStudents = append([]string(nil), quiz.AssignedStudents...)
	return quiz
}

func sortQuizzes(quizzes []domain.Quiz) {
	sort.Slice(quizzes, func(i, j int) bool {
		if !quizzes[i].CreatedAt.Equal(quizzes[j].CreatedAt) {
			return quizzes[i].CreatedAt.After(quizzes[j].CreatedAt)
		}
		return quizzes[i].ID < quizzes[j].ID
	})
}
