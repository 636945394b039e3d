package dispatch

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestInlineDispatcherRunsSynchronously(t *testing.T) {
	d := Inline(zerolog.New(io.Discard))
	ran := false
	d.Enqueue("audit", func(ctx context.Context) error {
		ran = true
		return nil
	})
	require.True(t, ran)
}

func TestDispatcherSwallowsFailuresAndPanics(t *testing.T) {
	d := Inline(zerolog.New(io.Discard))
	require.NotPanics(t, func() {
		d.Enqueue("notify", func(ctx context.Context) error { return errors.New("smtp down") })
		d.Enqueue("notify", func(ctx context.Context) error { panic("boom") })
	})
}

func TestWorkerPoolDrainsOnClose(t *testing.T) {
	d := New(Config{Workers: 3, BufferSize: 64}, zerolog.New(io.Discard))
	var count int64
	for i := 0; i < 50; i++ {
		d.Enqueue("audit", func(ctx context.Context) error {
			atomic.AddInt64(&count, 1)
			return nil
		})
	}
	d.Close()
	require.Equal(t, int64(50), atomic.LoadInt64(&count))

	d.Enqueue("late", func(ctx context.Context) error {
		atomic.AddInt64(&count, 1)
		return nil
	})
	require.Equal(t, int64(51), atomic.LoadInt64(&count), "jobs after close run inline")
}
