package bank

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/mind-engage/mindengage-quizgen/internal/question"
)

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) PutQuestions(ctx context.Context, bankID string, qs []*question.Question) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var next int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position), -1) + 1 FROM questions WHERE bank_id=$1`, bankID).Scan(&next); err != nil {
		return err
	}
	now := time.Now().Unix()
	for _, q := range qs {
		qj, err := json.Marshal(q)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO questions (bank_id,question_id,position,question_json,updated_at)
			VALUES ($1,$2,$3,$4,$5)
			ON CONFLICT (bank_id,question_id) DO UPDATE SET question_json=EXCLUDED.question_json, updated_at=EXCLUDED.updated_at`,
			bankID, q.ID, next, string(qj), now)
		if err != nil {
			return err
		}
		next++
	}
	return tx.Commit()
}

func (s *SQLStore) ListQuestions(ctx context.Context, bankID string) ([]*question.Question, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT question_json FROM questions WHERE bank_id=$1 ORDER BY position, question_id`, bankID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*question.Question
	for rows.Next() {
		var qj string
		if err := rows.Scan(&qj); err != nil {
			return nil, err
		}
		var q question.Question
		if err := json.Unmarshal([]byte(qj), &q); err != nil {
			return nil, err
		}
		out = append(out, &q)
	}
	return out, rows.Err()
}

func (s *SQLStore) GetQuestion(ctx context.Context, bankID string, id int64) (*question.Question, error) {
	var qj string
	err := s.db.QueryRowContext(ctx,
		`SELECT question_json FROM questions WHERE bank_id=$1 AND question_id=$2`, bankID, id).Scan(&qj)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var q question.Question
	if err := json.Unmarshal([]byte(qj), &q); err != nil {
		return nil, err
	}
	return &q, nil
}

func (s *SQLStore) ListBanks(ctx context.Context) ([]Info, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT bank_id, COUNT(*) FROM questions GROUP BY bank_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Info
	for rows.Next() {
		var in Info
		if err := rows.Scan(&in.ID, &in.Questions); err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sortInfos(out)
	return out, nil
}

func sortInfos(in []Info) {
	sort.Slice(in, func(i, j int) bool { return in[i].ID < in[j].ID })
}
