package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesNodeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "worker.log")

	log, err := New(Options{Mode: "prod", File: path, Node: "worker"})
	require.NoError(t, err)

	log.With("range", "A-I").Info("range set")
	log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"range set"`)
	assert.Contains(t, string(data), `"node":"worker"`)
	assert.Contains(t, string(data), `"range":"A-I"`)
}

func TestNewRejectsBadLevel(t *testing.T) {
	_, err := New(Options{Level: "loud"})
	assert.Error(t, err)
}

func TestNop(t *testing.T) {
	log := NewNop()
	log.Warn("dropped", "reason", "test")
	log.With("k", "v").Error("still dropped")
}
