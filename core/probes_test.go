package core

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCancelDropsPendingProbe(t *testing.T) {
	t.Parallel()

	runner := newProbeRunner(slog.Default(), 50*time.Millisecond)
	var fired atomic.Bool

	runner.Schedule("ws-aaaa", func(ctx context.Context) { fired.Store(true) })
	runner.Cancel("ws-aaaa")
	runner.wait()

	require.False(t, fired.Load())
}

func TestNewProbeSupersedesPendingOne(t *testing.T) {
	t.Parallel()

	runner := newProbeRunner(slog.Default(), 50*time.Millisecond)
	var first, second atomic.Bool

	runner.Schedule("ws-aaaa", func(ctx context.Context) { first.Store(true) })
	runner.Schedule("ws-aaaa", func(ctx context.Context) { second.Store(true) })
	runner.wait()

	require.False(t, first.Load())
	require.True(t, second.Load())
}

func TestProbesOnDifferentIdsDoNotInterfere(t *testing.T) {
	t.Parallel()

	runner := newProbeRunner(slog.Default(), 10*time.Millisecond)
	var first, second atomic.Bool

	runner.Schedule("ws-aaaa", func(ctx context.Context) { first.Store(true) })
	runner.Schedule("ws-bbbb", func(ctx context.Context) { second.Store(true) })
	runner.Cancel("ws-aaaa")
	runner.wait()

	require.False(t, first.Load())
	require.True(t, second.Load())
}
