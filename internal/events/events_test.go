package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_AssignsDistinctIDs(t *testing.T) {
	a := New(OrderCreated, 1, 2)
	b := New(OrderCreated, 1, 2)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, OrderCreated, a.Type)
	assert.False(t, a.OccurredAt.IsZero())
}

func TestEmit_SwallowsFailures(t *testing.T) {
	pub := &MemoryPublisher{Err: errors.New("broker down")}
	assert.NotPanics(t, func() { Emit(context.Background(), pub, New(OrderPaid, 1, 1)) })
	assert.Empty(t, pub.Events())

	pub.Err = nil
	Emit(context.Background(), pub, New(OrderPaid, 7, 1))
	got := pub.Events()
	require.Len(t, got, 1)
	assert.Equal(t, 7, got[0].OrderID)

	Emit(context.Background(), nil, New(OrderPaid, 7, 1))
}
