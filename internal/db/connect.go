package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Open opens a DB and ensures schema exists.
func Open(ctx context.Context, driver Driver, dsn string) (*sql.DB, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite" // modernc driver
		if dsn == "" {
			dsn = "file:quizgen.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"
		}
	case DriverPostgres:
		drvName = "pgx" // pgx stdlib driver
		if dsn == "" {
			dsn = "postgres://localhost:5432/quizgen?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, err
	}
	if driver == DriverSQLite {
		// one writer keeps modernc from returning SQLITE_BUSY under the worker pool
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	if err := ensureSchema(ctx, db, driver); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// dialect holds the column types that differ between drivers.
type dialect struct {
	BigInt  string
	Serial  string
	Pragmas []string
}

var dialects = map[Driver]dialect{
	DriverSQLite:   {BigInt: "INTEGER", Serial: "INTEGER PRIMARY KEY AUTOINCREMENT", Pragmas: []string{"PRAGMA foreign_keys=ON"}},
	DriverPostgres: {BigInt: "BIGINT", Serial: "BIGSERIAL PRIMARY KEY"},
}

func ensureSchema(ctx context.Context, db *sql.DB, driver Driver) error {
	d, ok := dialects[driver]
	if !ok {
		return fmt.Errorf("unsupported driver: %s", driver)
	}
	stmts := append(append([]string{}, d.Pragmas...), schema(d)...)
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema: %w", err)
		}
	}
	return nil
}

func schema(d dialect) []string {
	r := strings.NewReplacer("{bigint}", d.BigInt, "{serial}", d.Serial)
	out := make([]string, len(tables))
	for i, t := range tables {
		out[i] = r.Replace(t)
	}
	return out
}

// tables are applied in order on every start; each must be idempotent.
var tables = []string{
	`CREATE TABLE IF NOT EXISTS questions (
  bank_id TEXT NOT NULL,
  question_id {bigint} NOT NULL,
  position INTEGER NOT NULL,
  question_json TEXT NOT NULL,
  updated_at {bigint} NOT NULL,
  PRIMARY KEY (bank_id, question_id)
)`,
	`CREATE INDEX IF NOT EXISTS questions_bank_position ON questions (bank_id, position)`,

	`CREATE TABLE IF NOT EXISTS exams (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  bank_id TEXT NOT NULL,
  seed TEXT NOT NULL DEFAULT '',
  options_json TEXT NOT NULL,
  items_json TEXT NOT NULL,
  created_by TEXT NOT NULL DEFAULT '',
  created_at {bigint} NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS exams_bank_created ON exams (bank_id, created_at)`,

	// typ is QuestionFailed or ExamGenerated; key is the exam id or bank/question.
	`CREATE TABLE IF NOT EXISTS event_log (
  "offset" {serial},
  site_id TEXT NOT NULL DEFAULT 'local',
  typ TEXT NOT NULL,
  key TEXT NOT NULL,
  data TEXT NOT NULL,
  created_at {bigint} NOT NULL
)`,
}
