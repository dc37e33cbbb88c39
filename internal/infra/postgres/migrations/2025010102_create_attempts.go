package migrations

import (
	"context"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			// The unique constraint is the duplicate-submission guard: the
			// insert itself is the atomic conditional check.
			_, err := db.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS attempts (
					id              TEXT PRIMARY KEY,
					quiz_id         TEXT NOT NULL,
					student_id      TEXT NOT NULL,
					answers         JSONB NOT NULL,
					score           DOUBLE PRECISION NOT NULL,
					correct_answers INTEGER NOT NULL,
					total_questions INTEGER NOT NULL,
					time_taken      INTEGER NOT NULL,
					quiz_title      TEXT NOT NULL,
					quiz_subject    TEXT NOT NULL,
					submitted_at    TIMESTAMPTZ NOT NULL,
					CONSTRAINT attempts_quiz_student_key UNIQUE (quiz_id, student_id)
				);
				CREATE INDEX IF NOT EXISTS attempts_student_idx ON attempts (student_id);
			`)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS attempts`)
			return err
		},
	)
}
