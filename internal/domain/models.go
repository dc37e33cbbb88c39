package domain

import (
	"fmt"
	"strings"
	"time"
)

// Quiz status values.
const (
	QuizActive    = "active"
	QuizInactive  = "inactive"
	QuizCompleted = "completed"
)

// Question difficulty values.
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// OptionsPerQuestion is the fixed arity of every question's option list.
const OptionsPerQuestion = 4

// DefaultPassingScore is applied when a quiz is created without one.
const DefaultPassingScore = 60

// Question models an MCQ question with exactly four options and one correct index.
type Question struct {
	ID            string   `json:"id"`
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"`
	Subject       string   `json:"subject,omitempty"`
	Difficulty    string   `json:"difficulty,omitempty"`
}

// Quiz is the authoritative quiz record, correct answers included. It must
// never be serialized into a student-facing response; use Redacted for that.
type Quiz struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	Description      string     `json:"description,omitempty"`
	Subject          string     `json:"subject"`
	Duration         int        `json:"duration"` // minutes
	PassingScore     int        `json:"passingScore"`
	Status           string     `json:"status"`
	Deadline         *time.Time `json:"deadline,omitempty"`
	Questions        []Question `json:"questions"`
	AssignedStudents []string   `json:"assignedStudents"`
	CreatedBy        string     `json:"createdBy"`
	CreatedAt        time.Time  `json:"createdAt"`
	AttemptCount     int        `json:"attemptCount"`
}

// RedactedQuestion is the pre-submission view of a question. It has no
// correct-answer field at all, so redaction cannot be skipped by accident.
type RedactedQuestion struct {
	ID         string   `json:"id"`
	Text       string   `json:"text"`
	Options    []string `json:"options"`
	Subject    string   `json:"subject,omitempty"`
	Difficulty string   `json:"difficulty,omitempty"`
}

// RedactedQuiz is the quiz projection safe to hand to a student taking the quiz.
type RedactedQuiz struct {
	ID           string             `json:"id"`
	Title        string             `json:"title"`
	Description  string             `json:"description,omitempty"`
	Subject      string             `json:"subject"`
	Duration     int                `json:"duration"`
	PassingScore int                `json:"passingScore"`
	Status       string             `json:"status"`
	Deadline     *time.Time         `json:"deadline,omitempty"`
	Questions    []RedactedQuestion `json:"questions"`
}

// Redacted returns the student-safe projection of the quiz.
func (q Quiz) Redacted() RedactedQuiz {
	questions := make([]RedactedQuestion, len(q.Questions))
	for i, question := range q.Questions {
		questions[i] = RedactedQuestion{
			ID:         question.ID,
			Text:       question.Text,
			Options:    question.Options,
			Subject:    question.Subject,
			Difficulty: question.Difficulty,
		}
	}
	return RedactedQuiz{
		ID:           q.ID,
		Title:        q.Title,
		Description:  q.Description,
		Subject:      q.Subject,
		Duration:     q.Duration,
		PassingScore: q.PassingScore,
		Status:       q.Status,
		Deadline:     q.Deadline,
		Questions:    questions,
	}
}

// IsAssignedTo reports whether the student may attempt this quiz.
func (q Quiz) IsAssignedTo(studentID string) bool {
	for _, id := range q.AssignedStudents {
		if id == studentID {
			return true
		}
	}
	return false
}

// Validate checks the quiz definition before it is persisted.
func (q Quiz) Validate() error {
	if strings.TrimSpace(q.Title) == "" {
		return fmt.Errorf("%w: quiz title is required", ErrValidation)
	}
	if strings.TrimSpace(q.Subject) == "" {
		return fmt.Errorf("%w: quiz subject is required", ErrValidation)
	}
	if q.Duration < 5 {
		return fmt.Errorf("%w: duration must be at least 5 minutes", ErrValidation)
	}
	if q.PassingScore < 0 || q.PassingScore > 100 {
		return fmt.Errorf("%w: passing score must be between 0 and 100", ErrValidation)
	}
	switch q.Status {
	case QuizActive, QuizInactive, QuizCompleted:
	default:
		return fmt.Errorf("%w: unknown status %q", ErrValidation, q.Status)
	}
	for i, question := range q.Questions {
		if strings.TrimSpace(question.Text) == "" {
			return fmt.Errorf("%w: question %d has no text", ErrValidation, i+1)
		}
		if len(question.Options) != OptionsPerQuestion {
			return fmt.Errorf("%w: question %d must have exactly %d options", ErrValidation, i+1, OptionsPerQuestion)
		}
		if question.CorrectAnswer < 0 || question.CorrectAnswer >= OptionsPerQuestion {
			return fmt.Errorf("%w: question %d correct answer out of range", ErrValidation, i+1)
		}
		switch question.Difficulty {
		case "", DifficultyEasy, DifficultyMedium, DifficultyHard:
		default:
			return fmt.Errorf("%w: question %d has unknown difficulty %q", ErrValidation, i+1, question.Difficulty)
		}
	}
	return nil
}

// AnswerSet maps question IDs to the selected option index. Unanswered
// questions are absent keys; unknown question IDs are ignored by scoring.
type AnswerSet map[string]int

// Validate rejects payloads that are malformed rather than merely wrong.
// A non-negative index outside the option range is an incorrect answer,
// not a validation failure.
func (a AnswerSet) Validate() error {
	for questionID, option := range a {
		if questionID == "" {
			return fmt.Errorf("%w: answer with empty question id", ErrValidation)
		}
		if option < 0 {
			return fmt.Errorf("%w: negative option index for question %s", ErrValidation, questionID)
		}
	}
	return nil
}

// Attempt is the immutable record of one student's single submission for one
// quiz. QuizTitle and QuizSubject are frozen at submission time so the record
// stays meaningful after the quiz itself is deleted.
type Attempt struct {
	ID             string    `json:"id"`
	QuizID         string    `json:"quizId"`
	StudentID      string    `json:"studentId"`
	Answers        AnswerSet `json:"answers"`
	Score          float64   `json:"score"`
	CorrectAnswers int       `json:"correctAnswers"`
	TotalQuestions int       `json:"totalQuestions"`
	TimeTaken      int       `json:"timeTaken"` // seconds
	QuizTitle      string    `json:"quizTitle"`
	QuizSubject    string    `json:"quizSubject"`
	SubmittedAt    time.Time `json:"submittedAt"`
}

// AttemptResult is the redacted outcome returned to the submitting student.
type AttemptResult struct {
	Score          float64 `json:"score"`
	CorrectAnswers int     `json:"correctAnswers"`
	TotalQuestions int     `json:"totalQuestions"`
	Passed         bool    `json:"passed"`
}

// QuizReport aggregates all attempts for one quiz.
type QuizReport struct {
	QuizID        string  `json:"quizId"`
	Title         string  `json:"title"`
	Subject       string  `json:"subject"`
	Teacher       string  `json:"teacher"`
	TotalAttempts int     `json:"totalAttempts"`
	AverageScore  float64 `json:"averageScore"`
	HighestScore  float64 `json:"highestScore"`
	LowestScore   float64 `json:"lowestScore"`
	PassRate      float64 `json:"passRate"`
}

// SubjectReport aggregates attempts across all quizzes sharing a subject.
type SubjectReport struct {
	Subject       string  `json:"subject"`
	TotalQuizzes  int     `json:"totalQuizzes"`
	TotalAttempts int     `json:"totalAttempts"`
	AverageScore  float64 `json:"averageScore"`
	PassRate      float64 `json:"passRate"`
}

// TeacherReport aggregates attempts across all quizzes created by a teacher.
type TeacherReport struct {
	Teacher       string  `json:"teacher"`
	TotalQuizzes  int     `json:"totalQuizzes"`
	TotalAttempts int     `json:"totalAttempts"`
	AverageScore  float64 `json:"averageScore"`
	PassRate      float64 `json:"passRate"`
}
