package scheduler_test

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0x0BSoD/chatfeed/internal/scheduler"
)

func TestTrigger_RunsImmediately(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var runs atomic.Int32
	err := scheduler.New(nil).Run(ctx, "@every 1h", func(context.Context) {
		runs.Add(1)
		cancel()
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(1), runs.Load())
}

func TestTrigger_InvalidSpec(t *testing.T) {
	err := scheduler.New(nil).Run(context.Background(), "every now and then", func(context.Context) {})
	require.Error(t, err)
}
