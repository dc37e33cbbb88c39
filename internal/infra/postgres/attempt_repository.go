package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quizdesk/internal/domain"
)

// uniqueViolation is the SQLSTATE Postgres reports when an insert hits a
// unique constraint.
const uniqueViolation = "23505"

// AttemptRepository persists attempts. The attempts_quiz_student_key unique
// constraint makes Create an atomic conditional insert: of two concurrent
// submissions for the same (quiz, student) pair, exactly one row lands.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

func (r *AttemptRepository) Create(ctx context.Context, attempt domain.Attempt) (domain.Attempt, error) {
	answers, err := json.Marshal(attempt.Answers)
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("marshal answers: %w", err)
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO attempts (id, quiz_id, student_id, answers, score, correct_answers,
		                       total_questions, time_taken, quiz_title, quiz_subject, submitted_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		attempt.ID, attempt.QuizID, attempt.StudentID, answers, attempt.Score,
		attempt.CorrectAnswers, attempt.TotalQuestions, attempt.TimeTaken,
		attempt.QuizTitle, attempt.QuizSubject, attempt.SubmittedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.Attempt{}, domain.ErrDuplicateAttempt
		}
		return domain.Attempt{}, fmt.Errorf("insert attempt: %w", err)
	}
	return attempt, nil
}

func (r *AttemptRepository) FindByQuizAndStudent(ctx context.Context, quizID, studentID string) (domain.Attempt, error) {
	row := r.pool.QueryRow(ctx,
		attemptColumns+` FROM attempts WHERE quiz_id=$1 AND student_id=$2`, quizID, studentID)
	return scanAttempt(row)
}

func (r *AttemptRepository) FindByQuiz(ctx context.Context, quizID string) ([]domain.Attempt, error) {
	rows, err := r.pool.Query(ctx,
		attemptColumns+` FROM attempts WHERE quiz_id=$1 ORDER BY submitted_at DESC, id`, quizID)
	if err != nil {
		return nil, fmt.Errorf("query attempts by quiz: %w", err)
	}
	defer rows.Close()
	return scanAttempts(rows)
}

func (r *AttemptRepository) FindByStudent(ctx context.Context, studentID string) ([]domain.Attempt, error) {
	rows, err := r.pool.Query(ctx,
		attemptColumns+` FROM attempts WHERE student_id=$1 ORDER BY submitted_at DESC, id`, studentID)
	if err != nil {
		return nil, fmt.Errorf("query attempts by student: %w", err)
	}
	defer rows.Close()
	return scanAttempts(rows)
}

const attemptColumns = `SELECT id, quiz_id, student_id, answers, score, correct_answers,
	total_questions, time_taken, quiz_title, quiz_subject, submitted_at`

func scanAttempt(row rowScanner) (domain.Attempt, error) {
	var attempt domain.Attempt
	var answers []byte
	err := row.Scan(&attempt.ID, &attempt.QuizID, &attempt.StudentID, &answers,
		&attempt.Score, &attempt.CorrectAnswers, &attempt.TotalQuestions,
		&attempt.TimeTaken, &attempt.QuizTitle, &attempt.QuizSubject, &attempt.SubmittedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Attempt{}, domain.ErrAttemptNotFound
		}
		return domain.Attempt{}, fmt.Errorf("scan attempt: %w", err)
	}
	if err := json.Unmarshal(answers, &attempt.Answers); err != nil {
		return domain.Attempt{}, fmt.Errorf("unmarshal answers: %w", err)
	}
	return attempt, nil
}

func scanAttempts(rows pgx.Rows) ([]domain.Attempt, error) {
	var out []domain.Attempt
	for rows.Next() {
		attempt, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, attempt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempts: %w", err)
	}
	return out, nil
}
