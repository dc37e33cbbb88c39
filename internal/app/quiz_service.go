package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"quizdesk/internal/domain"
)

// QuizService contains the teacher- and student-facing quiz use cases around
// the attempt lifecycle: authoring, assignment, the redacted read path, and
// per-quiz result listings.
type QuizService struct {
	quizzes  QuizRepository
	attempts AttemptRepository
	now      func() time.Time
	newID    func() string
}

func NewQuizService(quizzes QuizRepository, attempts AttemptRepository) *QuizService {
	return &QuizService{
		quizzes:  quizzes,
		attempts: attempts,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// NewQuizServiceWithClock is test-only for deterministic timestamps and IDs.
func NewQuizServiceWithClock(quizzes QuizRepository, attempts AttemptRepository, now func() time.Time, newID func() string) *QuizService {
	return &QuizService{quizzes: quizzes, attempts: attempts, now: now, newID: newID}
}

// Create validates and persists a new quiz owned by the teacher. Missing
// defaults are filled in: active status, question IDs, and deduplicated
// assigned students. PassingScore is taken as-is — zero is a legitimate
// everyone-passes threshold, so callers that want the default supply it
// themselves (the transport does this when the field is absent).
func (s *QuizService) Create(ctx context.Context, teacherID string, quiz domain.Quiz) (domain.Quiz, error) {
	quiz.ID = s.newID()
	quiz.CreatedBy = teacherID
	quiz.CreatedAt = s.now()
	quiz.AttemptCount = 0
	if quiz.Status == "" {
		quiz.Status = domain.QuizActive
	}
	for i := range quiz.Questions {
		if quiz.Questions[i].ID == "" {
			quiz.Questions[i].ID = s.newID()
		}
		if quiz.Questions[i].Difficulty == "" {
			quiz.Questions[i].Difficulty = domain.DifficultyMedium
		}
	}
	quiz.AssignedStudents = dedupe(quiz.AssignedStudents)

	if err := quiz.Validate(); err != nil {
		return domain.Quiz{}, err
	}
	if err := s.quizzes.Create(ctx, quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("create quiz: %w", err)
	}
	return quiz, nil
}

// CreatedBy lists the teacher's own quizzes, correct answers included.
func (s *QuizService) CreatedBy(ctx context.Context, teacherID string) ([]domain.Quiz, error) {
	return s.quizzes.FindCreatedBy(ctx, teacherID)
}

// Assign replaces the quiz's assigned-student set. Only the owning teacher may
// assign; ownership by a different teacher is ErrForbidden, not a 404, since
// teachers may know of each other's quizzes.
func (s *QuizService) Assign(ctx context.Context, teacherID, quizID string, studentIDs []string) (domain.Quiz, error) {
	quiz, err := s.ownedQuiz(ctx, teacherID, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}

	studentIDs = dedupe(studentIDs)
	if err := s.quizzes.UpdateAssignedStudents(ctx, quizID, studentIDs); err != nil {
		return domain.Quiz{}, fmt.Errorf("update assigned students: %w", err)
	}
	quiz.AssignedStudents = studentIDs
	return quiz, nil
}

// Delete removes the quiz. Historical attempts are left in place; they carry
// frozen title and subject snapshots taken at submission time.
func (s *QuizService) Delete(ctx context.Context, teacherID, quizID string) error {
	if _, err := s.ownedQuiz(ctx, teacherID, quizID); err != nil {
		return err
	}
	return s.quizzes.Delete(ctx, quizID)
}

// AssignedQuizStatus pairs a redacted quiz with the student's progress on it.
type AssignedQuizStatus struct {
	Quiz domain.RedactedQuiz `json:"quiz"`
	// Status is "completed" once the student has a persisted attempt,
	// "pending" otherwise.
	Status string `json:"status"`
}

// AssignedTo lists the quizzes assigned to a student, redacted, each tagged
// completed or pending based on the student's persisted attempts.
func (s *QuizService) AssignedTo(ctx context.Context, studentID string) ([]AssignedQuizStatus, error) {
	quizzes, err := s.quizzes.FindAssignedTo(ctx, studentID)
	if err != nil {
		return nil, err
	}
	attempts, err := s.attempts.FindByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	attempted := make(map[string]struct{}, len(attempts))
	for _, attempt := range attempts {
		attempted[attempt.QuizID] = struct{}{}
	}

	out := make([]AssignedQuizStatus, 0, len(quizzes))
	for _, quiz := range quizzes {
		status := "pending"
		if _, ok := attempted[quiz.ID]; ok {
			status = "completed"
		}
		out = append(out, AssignedQuizStatus{Quiz: quiz.Redacted(), Status: status})
	}
	return out, nil
}

// AssignedQuiz returns one quiz for taking, redacted. A quiz that does not
// exist and a quiz not assigned to the student are indistinguishable.
func (s *QuizService) AssignedQuiz(ctx context.Context, quizID, studentID string) (domain.RedactedQuiz, error) {
	quiz, err := s.quizzes.FindByID(ctx, quizID)
	if err != nil {
		return domain.RedactedQuiz{}, err
	}
	if !quiz.IsAssignedTo(studentID) {
		return domain.RedactedQuiz{}, domain.ErrQuizNotFound
	}
	return quiz.Redacted(), nil
}

// QuizResults is a teacher's view of every attempt on one of their quizzes.
type QuizResults struct {
	QuizID   string           `json:"quizId"`
	Title    string           `json:"title"`
	Subject  string           `json:"subject"`
	Attempts []domain.Attempt `json:"attempts"`
}

// Results lists all attempts for a quiz owned by the teacher.
func (s *QuizService) Results(ctx context.Context, teacherID, quizID string) (QuizResults, error) {
	quiz, err := s.ownedQuiz(ctx, teacherID, quizID)
	if err != nil {
		return QuizResults{}, err
	}
	attempts, err := s.attempts.FindByQuiz(ctx, quizID)
	if err != nil {
		return QuizResults{}, err
	}
	return QuizResults{
		QuizID:   quiz.ID,
		Title:    quiz.Title,
		Subject:  quiz.Subject,
		Attempts: attempts,
	}, nil
}

func (s *QuizService) ownedQuiz(ctx context.Context, teacherID, quizID string) (domain.Quiz, error) {
	quiz, err := s.quizzes.FindByID(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if quiz.CreatedBy != teacherID {
		return domain.Quiz{}, domain.ErrForbidden
	}
	return quiz, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
