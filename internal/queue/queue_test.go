package queue

import (
	"context"
	"testing"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moehefner/streb/internal/model"
)

func TestInMemoryQueue_PreservesOrder(t *testing.T) {
	q := NewInMemoryQueue(4)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, q.Dispatch(ctx, model.ActionJob{ID: id, Action: model.ActionPost}))
	}
	assert.Equal(t, 3, q.Len())
	q.Close()

	var got []string
	for job := range q.Jobs() {
		got = append(got, job.ID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestInMemoryQueue_FullAndClosed(t *testing.T) {
	q := NewInMemoryQueue(1)
	ctx := context.Background()

	require.NoError(t, q.Dispatch(ctx, model.ActionJob{ID: "1"}))
	assert.ErrorIs(t, q.Dispatch(ctx, model.ActionJob{ID: "2"}), ErrQueueFull)

	q.Close()
	q.Close()
	assert.ErrorIs(t, q.Dispatch(ctx, model.ActionJob{ID: "3"}), ErrQueueClosed)
}

func TestInMemoryQueue_CanceledContext(t *testing.T) {
	q := NewInMemoryQueue(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, q.Dispatch(ctx, model.ActionJob{ID: "1"}), context.Canceled)
	assert.Equal(t, 0, q.Len())
}

func TestRetryCount(t *testing.T) {
	assert.Equal(t, int32(0), RetryCount(nil))
	assert.Equal(t, int32(2), RetryCount(amqp.Table{retryHeader: int32(2)}))
	assert.Equal(t, int32(3), RetryCount(amqp.Table{retryHeader: int64(3)}))
	assert.Equal(t, int32(0), RetryCount(amqp.Table{retryHeader: "x"}))
}
