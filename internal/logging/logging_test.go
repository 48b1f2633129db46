package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mind-engage/mindengage-quizgen/internal/config"
)

func TestNew_WritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(config.LogConfig{Level: "info"}, &buf)
	require.NoError(t, err)

	log.Debug("hidden")
	log.Info("question skipped", zap.Int64("question_id", 3))
	require.NoError(t, log.Sync())

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "question skipped", line["msg"])
	assert.Equal(t, "info", line["level"])
	assert.EqualValues(t, 3, line["question_id"])
}

func TestNew_RotatingFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "quizgen.log")
	log, err := New(config.LogConfig{Level: "debug", File: file}, &bytes.Buffer{})
	require.NoError(t, err)
	log.Debug("to file")
	require.NoError(t, log.Sync())

	b, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(b), "to file")
}

func TestNew_BadLevel(t *testing.T) {
	_, err := New(config.LogConfig{Level: "loud"}, nil)
	assert.Error(t, err)
}
