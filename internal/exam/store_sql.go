package exam

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) PutExam(ctx context.Context, e Exam) error {
	ij, err := json.Marshal(e.Items)
	if err != nil {
		return err
	}
	oj, err := json.Marshal(struct {
		Options  any `json:"options"`
		Failures any `json:"failures,omitempty"`
	}{e.Options, e.Failures})
	if err != nil {
		return err
	}
	if e.CreatedAt == 0 {
		e.CreatedAt = time.Now().Unix()
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO exams (id,title,bank_id,seed,options_json,items_json,created_by,created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (id) DO UPDATE SET title=EXCLUDED.title, options_json=EXCLUDED.options_json, items_json=EXCLUDED.items_json`,
		e.ID, e.Title, e.BankID, e.Seed, string(oj), string(ij), e.CreatedBy, e.CreatedAt)
	return err
}

func (s *SQLStore) GetExam(ctx context.Context, id string) (Exam, error) {
	e, err := s.GetExamAdmin(ctx, id)
	if err != nil {
		return Exam{}, err
	}
	// Strip answer keys when serving to students (parity with in-memory behavior)
	return e.StudentView(), nil
}

func (s *SQLStore) GetExamAdmin(ctx context.Context, id string) (Exam, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id,title,bank_id,seed,options_json,items_json,created_by,created_at FROM exams WHERE id=$1`, id)
	var (
		e      Exam
		oj, ij string
	)
	if err := row.Scan(&e.ID, &e.Title, &e.BankID, &e.Seed, &oj, &ij, &e.CreatedBy, &e.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Exam{}, ErrNotFound
		}
		return Exam{}, err
	}
	if err := json.Unmarshal([]byte(ij), &e.Items); err != nil {
		return Exam{}, err
	}
	var meta struct {
		Options  json.RawMessage `json:"options"`
		Failures json.RawMessage `json:"failures"`
	}
	if err := json.Unmarshal([]byte(oj), &meta); err != nil {
		return Exam{}, err
	}
	if len(meta.Options) > 0 {
		if err := json.Unmarshal(meta.Options, &e.Options); err != nil {
			return Exam{}, err
		}
	}
	if len(meta.Failures) > 0 {
		if err := json.Unmarshal(meta.Failures, &e.Failures); err != nil {
			return Exam{}, err
		}
	}
	return e, nil
}

func (s *SQLStore) ListExams(ctx context.Context, opts ListOpts) ([]Summary, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id,title,bank_id,items_json,created_by,created_at FROM exams
		WHERE ($1 = '' OR bank_id = $1)
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`, opts.BankID, limit, opts.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Summary{}
	for rows.Next() {
		var (
			sm Summary
			ij string
		)
		if err := rows.Scan(&sm.ID, &sm.Title, &sm.BankID, &ij, &sm.CreatedBy, &sm.CreatedAt); err != nil {
			return nil, err
		}
		var items []json.RawMessage
		if err := json.Unmarshal([]byte(ij), &items); err == nil {
			sm.Items = len(items)
		}
		out = append(out, sm)
	}
	return out, rows.Err()
}
