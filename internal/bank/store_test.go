package bank

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-quizgen/internal/db"
	"github.com/mind-engage/mindengage-quizgen/internal/question"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	conn, err := db.Open(context.Background(), db.DriverSQLite, "file:"+t.Name()+"?mode=memory")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return map[string]Store{
		"memory": NewMemoryStore(),
		"sql":    NewSQLStore(conn),
	}
}

func TestStore_Contract(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			q1 := &question.Question{ID: 1, Statement: "um", Alternatives: []string{"a"},
				Variables: question.NewOrderedMap(question.Entry{Key: "Y", Value: "1:1:2"}, question.Entry{Key: "X", Value: "0:1:1"})}
			q2 := &question.Question{ID: 2, Statement: "dois"}
			require.NoError(t, s.PutQuestions(ctx, "fisica", []*question.Question{q2, q1}))
			require.NoError(t, s.PutQuestions(ctx, "quimica", []*question.Question{{ID: 9}}))

			list, err := s.ListQuestions(ctx, "fisica")
			require.NoError(t, err)
			require.Len(t, list, 2)
			assert.Equal(t, int64(2), list[0].ID)
			assert.Equal(t, []string{"Y", "X"}, list[1].Variables.Keys())

			// replacing keeps position
			require.NoError(t, s.PutQuestions(ctx, "fisica", []*question.Question{{ID: 2, Statement: "novo"}, {ID: 3}}))
			list, err = s.ListQuestions(ctx, "fisica")
			require.NoError(t, err)
			require.Len(t, list, 3)
			assert.Equal(t, "novo", list[0].Statement)
			assert.Equal(t, int64(3), list[2].ID)

			got, err := s.GetQuestion(ctx, "fisica", 1)
			require.NoError(t, err)
			assert.Equal(t, "um", got.Statement)

			_, err = s.GetQuestion(ctx, "fisica", 99)
			assert.ErrorIs(t, err, ErrNotFound)

			banks, err := s.ListBanks(ctx)
			require.NoError(t, err)
			assert.Equal(t, []Info{{ID: "fisica", Questions: 3}, {ID: "quimica", Questions: 1}}, banks)

			empty, err := s.ListQuestions(ctx, "none")
			require.NoError(t, err)
			assert.Empty(t, empty)
		})
	}
}

func TestMemoryStore_ClonesOnWrite(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	q := &question.Question{ID: 1, Statement: "a"}
	require.NoError(t, s.PutQuestions(ctx, "b", []*question.Question{q}))
	q.Statement = "changed"
	got, err := s.GetQuestion(ctx, "b", 1)
	require.NoError(t, err)
	assert.Equal(t, "a", got.Statement)
}
