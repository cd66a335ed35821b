package stager

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_Success(t *testing.T) {
	res, err := Run(context.Background(), "echo staged 3 files")
	require.NoError(t, err)
	assert.Equal(t, "staged 3 files", res.Stdout)
	assert.Empty(t, res.Stderr)
	assert.Zero(t, res.ExitCode)
}

func TestRun_StderrIsFailure(t *testing.T) {
	res, err := Run(context.Background(), "echo partial; echo 'token expired' >&2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token expired")
	assert.Equal(t, "partial", res.Stdout)
	assert.Zero(t, res.ExitCode)
}

func TestRun_ExitCode(t *testing.T) {
	res, err := Run(context.Background(), "exit 3")
	require.Error(t, err)
	assert.Equal(t, 3, res.ExitCode)
}

func TestRun_Empty(t *testing.T) {
	_, err := Run(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrNoCommand)
}

func TestRun_Timeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := Run(ctx, "sleep 5")
	assert.Error(t, err)
}
