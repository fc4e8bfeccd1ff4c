package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryPublishConsume(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewInMemory(4)
	require.NoError(t, q.Publish(ctx, Message{Type: "a", Body: []byte(`{"n":1}`)}))
	require.NoError(t, q.Publish(ctx, Message{Type: "b", ID: "fixed"}))
	assert.Equal(t, 2, q.Len())

	msgs, err := q.Consume(ctx)
	require.NoError(t, err)

	var got []Message
	for i := 0; i < 2; i++ {
		select {
		case m := <-msgs:
			got = append(got, m)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for message")
		}
	}
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Type)
	assert.JSONEq(t, `{"n":1}`, string(got[0].Body))
	assert.NotEmpty(t, got[0].ID)
	assert.False(t, got[0].PublishedAt.IsZero())
	assert.Equal(t, "fixed", got[1].ID)

	cancel()
	select {
	case _, open := <-msgs:
		assert.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop")
	}
}

func TestInMemoryPublishFull(t *testing.T) {
	ctx := context.Background()
	q := NewInMemory(1)
	require.NoError(t, q.Publish(ctx, Message{Type: "x"}))
	assert.ErrorIs(t, q.Publish(ctx, Message{Type: "y"}), ErrFull)
}

func TestInMemoryPublishRespectsContext(t *testing.T) {
	q := NewInMemory(4)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, q.Publish(ctx, Message{Type: "x"}), context.Canceled)
	assert.Zero(t, q.Len())
}
