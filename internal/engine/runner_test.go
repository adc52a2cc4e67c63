package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunner_CapturesStdoutStderr(t *testing.T) {
	r := NewRunner()

	res, err := r.Run(context.Background(), "echo out; echo err >&2", t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "out\n", res.Stdout)
	assert.Equal(t, "err\n", res.Stderr)
	assert.Equal(t, 0, res.ExitCode)
}

func TestRunner_ExitCode(t *testing.T) {
	r := NewRunner()

	res, err := r.Run(context.Background(), "exit 7", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, 7, res.ExitCode)
}

func TestRunner_Timeout(t *testing.T) {
	r := &Runner{Timeout: 200 * time.Millisecond}

	start := time.Now()
	res, err := r.Run(context.Background(), "sleep 10", t.TempDir())

	require.Error(t, err)
	assert.True(t, res.TimedOut)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRunner_WorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	r := NewRunner()

	res, err := r.Run(context.Background(), "pwd", dir)
	require.NoError(t, err)
	assert.Contains(t, res.Stdout, dir)
}
