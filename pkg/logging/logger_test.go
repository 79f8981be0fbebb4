package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(zerolog.New(&buf)).With("component", "engine")

	l.Info("batch validated", "assets", 3, "error", errors.New("boom"), 42, "ignored")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "batch validated", line["message"])
	assert.Equal(t, "engine", line["component"])
	assert.EqualValues(t, 3, line["assets"])
	assert.Equal(t, "boom", line["error"])
	assert.NotContains(t, line, "42")
}

func TestNoopLogger(t *testing.T) {
	l := NewNoopLogger()
	assert.NotPanics(t, func() {
		l.Debug("x")
		l.Warn("y", "k", "v")
	})
}

func TestGlobalFallsBackToNoop(t *testing.T) {
	SetGlobal(nil)
	assert.NotNil(t, Global())
}

type hexer struct{}

func (hexer) String() string { return "0xabc" }

func TestLoggerEncodesStringers(t *testing.T) {
	var buf bytes.Buffer
	l := New(zerolog.New(&buf)).With("asset", hexer{})

	l.Warn("slow", "took", 1500*time.Millisecond, "price", big.NewInt(42), "odd")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "0xabc", line["asset"])
	assert.Equal(t, "1.5s", line["took"])
	assert.Equal(t, "42", line["price"])
	assert.NotContains(t, line, "odd")
}

func TestInitWritesToFile(t *testing.T) {
	prev := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })

	path := filepath.Join(t.TempDir(), "validator.log")
	l, err := Init("debug", "json", path)
	require.NoError(t, err)

	l.Info("started", "version", "test")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"service":"price-validator"`)
	assert.Contains(t, string(data), `"message":"started"`)
}

func TestInitRejectsUnwritableOutput(t *testing.T) {
	_, err := Init("info", "json", filepath.Join(t.TempDir(), "missing", "x.log"))
	assert.Error(t, err)
}
