package bank

import (
	"context"
	"errors"
	"sync"

	"github.com/mind-engage/mindengage-quizgen/internal/question"
)

var ErrNotFound = errors.New("question not found")

type Info struct {
	ID        string `json:"id"`
	Questions int    `json:"questions"`
}

type Store interface {
	// PutQuestions upserts by question id. New questions go after the
	// existing ones; replaced questions keep their position.
	PutQuestions(ctx context.Context, bankID string, qs []*question.Question) error
	ListQuestions(ctx context.Context, bankID string) ([]*question.Question, error)
	GetQuestion(ctx context.Context, bankID string, id int64) (*question.Question, error)
	ListBanks(ctx context.Context) ([]Info, error)
}

// MemoryStore is a Store for tests and the offline CLI.
type MemoryStore struct {
	mu    sync.RWMutex
	banks map[string][]*question.Question
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{banks: map[string][]*question.Question{}}
}

func (s *MemoryStore) PutQuestions(_ context.Context, bankID string, qs []*question.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.banks[bankID]
	for _, q := range qs {
		c := q.Clone()
		replaced := false
		for i, old := range list {
			if old.ID == c.ID {
				list[i] = c
				replaced = true
				break
			}
		}
		if !replaced {
			list = append(list, c)
		}
	}
	s.banks[bankID] = list
	return nil
}

func (s *MemoryStore) ListQuestions(_ context.Context, bankID string) ([]*question.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.banks[bankID]
	out := make([]*question.Question, len(list))
	for i, q := range list {
		out[i] = q.Clone()
	}
	return out, nil
}

func (s *MemoryStore) GetQuestion(_ context.Context, bankID string, id int64) (*question.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, q := range s.banks[bankID] {
		if q.ID == id {
			return q.Clone(), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) ListBanks(_ context.Context) ([]Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Info, 0, len(s.banks))
	for id, list := range s.banks {
		out = append(out, Info{ID: id, Questions: len(list)})
	}
	sortInfos(out)
	return out, nil
}
