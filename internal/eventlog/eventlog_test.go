package eventlog

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-quizgen/internal/db"
	"github.com/mind-engage/mindengage-quizgen/internal/pipeline"
)

func TestRepo_AppendAndSince(t *testing.T) {
	ctx := context.Background()
	conn, err := db.Open(ctx, db.DriverSQLite, "file:"+t.Name()+"?mode=memory")
	require.NoError(t, err)
	defer conn.Close()
	r := NewRepo(conn)

	require.NoError(t, r.AppendJSON(ctx, TypeExamGenerated, "exam-1", map[string]int{"items": 3}))
	require.NoError(t, r.QuestionFailed(ctx, pipeline.Failure{Position: 2, QuestionID: 7, Err: errors.New("unbound name Z")}))

	events, err := r.Since(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, TypeExamGenerated, events[0].Type)
	assert.Equal(t, "local", events[0].SiteID)
	assert.Equal(t, TypeQuestionFailed, events[1].Type)
	assert.Equal(t, "7", events[1].Key)

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(events[1].DataJSON), &payload))
	assert.Equal(t, "unbound name Z", payload["error"])

	rest, err := r.Since(ctx, events[0].Offset, 10)
	require.NoError(t, err)
	assert.Len(t, rest, 1)
}
