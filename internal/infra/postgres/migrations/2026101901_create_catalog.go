package migrations

import (
	"context"
	_ "embed"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

//go:embed 0001_create_catalog.sql
var createCatalogSQL string

var Migrations = migrate.NewMigrations()

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, createCatalogSQL)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, `
DROP TRIGGER IF EXISTS quizzes_changed ON quizzes;
DROP FUNCTION IF EXISTS notify_quizzes_changed();
DROP TABLE IF EXISTS questions;
DROP TABLE IF EXISTS quizzes;`)
			return err
		},
	)
}
