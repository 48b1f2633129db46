package exam

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-quizgen/internal/bank"
	"github.com/mind-engage/mindengage-quizgen/internal/db"
	"github.com/mind-engage/mindengage-quizgen/internal/pipeline"
	"github.com/mind-engage/mindengage-quizgen/internal/question"
	"github.com/mind-engage/mindengage-quizgen/internal/rng"
)

func loadBank(t *testing.T, s bank.Store, id string, doc string) {
	t.Helper()
	b, err := bank.Parse(id, []byte(doc))
	require.NoError(t, err)
	require.Empty(t, b.Errors)
	require.NoError(t, s.PutQuestions(context.Background(), id, b.Questions))
}

const fisica = `[
  {"id":3,"enunciado":"Valor <TEMP>","variaveis":{"X":"1:1:1","Y":"2:1:2"},
   "resolucoes":{"TEMP":"X + Y"},"alternativas":["4","6"],"correta":"<TEMP>","obs":"TEMP = X + Y"},
  {"id":7,"enunciado":"<Z>","alternativas":["a"],"correta":"a"},
  {"id":8,"enunciado":"Capital?","alternativas":["Lima","Quito"],"correta":"Quito"}
]`

type recordedEvent struct{ typ, key string }

type memEvents struct {
	mu  sync.Mutex
	got []recordedEvent
}

func (m *memEvents) AppendJSON(_ context.Context, typ, key string, _ any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.got = append(m.got, recordedEvent{typ, key})
	return nil
}

func newGenerator(t *testing.T) (*Generator, *memEvents) {
	banks := bank.NewMemoryStore()
	loadBank(t, banks, "fisica", fisica)
	ev := &memEvents{}
	return &Generator{
		Banks:    banks,
		Exams:    NewInMemoryStore(),
		Preparer: pipeline.New(),
		Events:   ev,
		Defaults: pipeline.DefaultOptions(),
	}, ev
}

func TestGenerate(t *testing.T) {
	g, ev := newGenerator(t)
	ctx := context.Background()

	e, err := g.Generate(ctx, GenerateRequest{BankID: "fisica", Seed: json.RawMessage(`42`), CreatedBy: "ana"})
	require.NoError(t, err)
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, "42", e.Seed)
	assert.Equal(t, "Exam fisica", e.Title)
	require.Len(t, e.Items, 2)
	require.Len(t, e.Failures, 1)
	assert.Equal(t, int64(7), e.Failures[0].QuestionID)
	assert.Equal(t, "Valor 3", e.Items[0].Question.Statement)

	stored, err := g.Exams.GetExamAdmin(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, e.ID, stored.ID)
	assert.Equal(t, "ana", stored.CreatedBy)
	assert.Equal(t, []recordedEvent{{"ExamGenerated", e.ID}}, ev.got)
}

func TestGenerate_SelectedQuestionsAndOptions(t *testing.T) {
	g, _ := newGenerator(t)
	ctx := context.Background()
	off := false

	e, err := g.Generate(ctx, GenerateRequest{
		BankID:           "fisica",
		QuestionIDs:      []int64{7, 8},
		Seed:             json.RawMessage(`"abc"`),
		ResolveVariables: &off,
		OnFailure:        "passthrough",
	})
	require.NoError(t, err)
	require.Len(t, e.Items, 2)
	assert.Equal(t, "<Z>", e.Items[0].Question.Statement)
	assert.Empty(t, e.Failures)
	assert.Equal(t, "abc", e.Seed)
}

func TestGenerate_Invalid(t *testing.T) {
	g, _ := newGenerator(t)
	ctx := context.Background()
	for name, req := range map[string]GenerateRequest{
		"no bank":        {},
		"empty bank":     {BankID: "none"},
		"unknown id":     {BankID: "fisica", QuestionIDs: []int64{99}},
		"bad on_failure": {BankID: "fisica", OnFailure: "abort"},
		"negative limit": {BankID: "fisica", Limit: -1},
		"object seed":    {BankID: "fisica", Seed: json.RawMessage(`{}`)},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := g.Generate(ctx, req)
			assert.ErrorIs(t, err, ErrInvalidRequest)
		})
	}
}

func TestParseSeedJSON(t *testing.T) {
	tests := []struct {
		raw  string
		seed rng.Seed
		ok   bool
	}{
		{``, rng.NoSeed, false},
		{`null`, rng.NoSeed, false},
		{`"  "`, rng.NoSeed, false},
		{`42`, rng.IntSeed(42), true},
		{`"turma-a"`, rng.StringSeed("turma-a"), true},
	}
	for _, tt := range tests {
		seed, ok, err := ParseSeedJSON(json.RawMessage(tt.raw))
		require.NoError(t, err, tt.raw)
		assert.Equal(t, tt.seed, seed, tt.raw)
		assert.Equal(t, tt.ok, ok, tt.raw)
	}
}

func sampleExam() Exam {
	idx := 2
	return Exam{
		ID:      "e1",
		Title:   "P1",
		BankID:  "fisica",
		Seed:    "42",
		Options: pipeline.Options{Seed: rng.IntSeed(42), ResolveVariables: true, OnFailure: pipeline.Skip},
		Items: []pipeline.Item{{
			Question: &question.Question{
				ID: 3, Statement: "Valor 3", Alternatives: []string{"4", "6", "3"},
				Correct: "3", CorrectIndex: &idx, Notes: question.NoteText("TEMP = 3"),
				Resolutions: question.NewOrderedMap(question.Entry{Key: "TEMP", Value: "X + Y"}),
			},
			Env:      map[string]float64{"TEMP": 3},
			Resolved: true,
		}},
		CreatedAt: 1700000000,
	}
}

func TestStudentView_StripsAnswers(t *testing.T) {
	e := sampleExam()
	v := e.StudentView()
	q := v.Items[0].Question
	assert.Nil(t, q.CorrectIndex)
	assert.Empty(t, q.Correct)
	assert.Nil(t, q.Resolutions)
	assert.Nil(t, v.Items[0].Env)
	assert.True(t, q.Notes.IsZero())
	assert.Equal(t, []string{"4", "6", "3"}, q.Alternatives)

	// original untouched
	require.NotNil(t, e.Items[0].Question.CorrectIndex)
	assert.Equal(t, "3", e.Items[0].Question.Correct)
}

func TestStore_Contract(t *testing.T) {
	ctx := context.Background()
	conn, err := db.Open(ctx, db.DriverSQLite, "file:"+t.Name()+"?mode=memory")
	require.NoError(t, err)
	defer conn.Close()

	for name, s := range map[string]Store{"memory": NewInMemoryStore(), "sql": NewSQLStore(conn)} {
		t.Run(name, func(t *testing.T) {
			e := sampleExam()
			e.Failures = []pipeline.Failure{{Position: 1, QuestionID: 7, Err: assert.AnError}}
			e.CreatedBy = "ana"
			require.NoError(t, s.PutExam(ctx, e))
			other := sampleExam()
			other.ID, other.BankID, other.CreatedAt = "e2", "quimica", 1700000100
			require.NoError(t, s.PutExam(ctx, other))

			full, err := s.GetExamAdmin(ctx, "e1")
			require.NoError(t, err)
			require.NotNil(t, full.Items[0].Question.CorrectIndex)
			assert.Equal(t, 2, *full.Items[0].Question.CorrectIndex)
			assert.Equal(t, rng.IntSeed(42), full.Options.Seed)
			assert.Equal(t, "ana", full.CreatedBy)
			require.Len(t, full.Failures, 1)
			assert.Equal(t, assert.AnError.Error(), full.Failures[0].Err.Error())

			safe, err := s.GetExam(ctx, "e1")
			require.NoError(t, err)
			assert.Nil(t, safe.Items[0].Question.CorrectIndex)
			assert.Empty(t, safe.Failures)

			_, err = s.GetExam(ctx, "missing")
			assert.ErrorIs(t, err, ErrNotFound)

			all, err := s.ListExams(ctx, ListOpts{})
			require.NoError(t, err)
			require.Len(t, all, 2)
			assert.Equal(t, "e2", all[0].ID)
			assert.Equal(t, 1, all[0].Items)

			only, err := s.ListExams(ctx, ListOpts{BankID: "fisica"})
			require.NoError(t, err)
			require.Len(t, only, 1)
			assert.Equal(t, "e1", only[0].ID)
			assert.Equal(t, "ana", only[0].CreatedBy)

			paged, err := s.ListExams(ctx, ListOpts{Limit: 1, Offset: 1})
			require.NoError(t, err)
			require.Len(t, paged, 1)
			assert.Equal(t, "e1", paged[0].ID)
		})
	}
}
