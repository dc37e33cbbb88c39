package migrations

import (
	"context"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

// Migrations is the ordered set applied by the migrate CLI command and on
// server start.
var Migrations = migrate.NewMigrations()

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS quizzes (
					id            TEXT PRIMARY KEY,
					data          JSONB NOT NULL,
					subject       TEXT NOT NULL,
					status        TEXT NOT NULL,
					created_by    TEXT NOT NULL,
					created_at    TIMESTAMPTZ NOT NULL,
					attempt_count INTEGER NOT NULL DEFAULT 0
				);
				CREATE INDEX IF NOT EXISTS quizzes_created_by_idx ON quizzes (created_by);
				CREATE INDEX IF NOT EXISTS quizzes_assigned_idx ON quizzes USING GIN ((data->'assignedStudents'));
			`)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS quizzes`)
			return err
		},
	)
}
