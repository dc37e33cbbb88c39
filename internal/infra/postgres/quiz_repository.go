package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quizdesk/internal/domain"
)

// QuizRepository stores quizzes as JSONB documents with a few indexed scalar
// columns. The attempt counter lives in its own column so increments are a
// single atomic UPDATE instead of a read-modify-write of the document.
type QuizRepository struct {
	pool *pgxpool.Pool
}

func NewQuizRepository(pool *pgxpool.Pool) *QuizRepository {
	return &QuizRepository{pool: pool}
}

func (r *QuizRepository) Create(ctx context.Context, quiz domain.Quiz) error {
	data, err := json.Marshal(quiz)
	if err != nil {
		return fmt.Errorf("marshal quiz: %w", err)
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO quizzes (id, data, subject, status, created_by, created_at, attempt_count)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		quiz.ID, data, quiz.Subject, quiz.Status, quiz.CreatedBy, quiz.CreatedAt, quiz.AttemptCount)
	if err != nil {
		return fmt.Errorf("insert quiz: %w", err)
	}
	return nil
}

func (r *QuizRepository) FindByID(ctx context.Context, id string) (domain.Quiz, error) {
	row := r.pool.QueryRow(ctx, `SELECT data, attempt_count FROM quizzes WHERE id=$1`, id)
	return scanQuiz(row)
}

func (r *QuizRepository) FindAssignedTo(ctx context.Context, studentID string) ([]domain.Quiz, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT data, attempt_count FROM quizzes
		 WHERE data->'assignedStudents' ? $1
		 ORDER BY created_at DESC, id`, studentID)
	if err != nil {
		return nil, fmt.Errorf("query assigned quizzes: %w", err)
	}
	defer rows.Close()
	return scanQuizzes(rows)
}

func (r *QuizRepository) FindCreatedBy(ctx context.Context, teacherID string) ([]domain.Quiz, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT data, attempt_count FROM quizzes
		 WHERE created_by=$1
		 ORDER BY created_at DESC, id`, teacherID)
	if err != nil {
		return nil, fmt.Errorf("query quizzes by teacher: %w", err)
	}
	defer rows.Close()
	return scanQuizzes(rows)
}

func (r *QuizRepository) List(ctx context.Context) ([]domain.Quiz, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT data, attempt_count FROM quizzes ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("query quizzes: %w", err)
	}
	defer rows.Close()
	return scanQuizzes(rows)
}

func (r *QuizRepository) UpdateAssignedStudents(ctx context.Context, id string, studentIDs []string) error {
	if studentIDs == nil {
		studentIDs = []string{}
	}
	assigned, err := json.Marshal(studentIDs)
	if err != nil {
		return fmt.Errorf("marshal assigned students: %w", err)
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE quizzes SET data = jsonb_set(data, '{assignedStudents}', $2::jsonb) WHERE id=$1`,
		id, assigned)
	if err != nil {
		return fmt.Errorf("update assigned students: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuizNotFound
	}
	return nil
}

func (r *QuizRepository) IncrementAttempts(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE quizzes SET attempt_count = attempt_count + 1 WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("increment attempts: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuizNotFound
	}
	return nil
}

func (r *QuizRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM quizzes WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete quiz: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuizNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanQuiz(row rowScanner) (domain.Quiz, error) {
	var raw []byte
	var attemptCount int
	if err := row.Scan(&raw, &attemptCount); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Quiz{}, domain.ErrQuizNotFound
		}
		return domain.Quiz{}, fmt.Errorf("scan quiz: %w", err)
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(raw, &quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("unmarshal quiz: %w", err)
	}
	// The counter column is authoritative over whatever the document holds.
	quiz.AttemptCount = attemptCount
	return quiz, nil
}

func scanQuizzes(rows pgx.Rows) ([]domain.Quiz, error) {
	var out []domain.Quiz
	for rows.Next() {
		quiz, err := scanQuiz(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, quiz)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quizzes: %w", err)
	}
	return out, nil
}
