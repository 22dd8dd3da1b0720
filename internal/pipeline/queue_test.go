package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_PopServesHighestPriorityFirst(t *testing.T) {
	q := NewQueue(0)
	require.NoError(t, q.Push(NewRequest("auto.md", Automatic)))
	require.NoError(t, q.Push(NewRequest("changed.md", FileChanged)))
	require.NoError(t, q.Push(NewRequest("user.md", UserTriggered)))

	first, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, "user.md", first.FilePath)

	second, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, "changed.md", second.FilePath)

	third, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, "auto.md", third.FilePath)

	_, ok = q.Pop()
	assert.False(t, ok)
}

func TestQueue_NeverServesAutomaticWhileUserTriggeredQueued(t *testing.T) {
	q := NewQueue(0)
	require.NoError(t, q.Push(NewRequest("a1.md", Automatic)))
	require.NoError(t, q.Push(NewRequest("a2.md", Automatic)))
	require.NoError(t, q.Push(NewRequest("u1.md", UserTriggered)))

	popped, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, UserTriggered, popped.Priority)
}

func TestQueue_SizeNeverNegative(t *testing.T) {
	q := NewQueue(0)
	assert.Equal(t, 0, q.Size())
	_, ok := q.Pop()
	assert.False(t, ok)
	assert.GreaterOrEqual(t, q.Size(), 0)
}

func TestQueue_PushFailsWhenFull(t *testing.T) {
	q := NewQueue(1)
	require.NoError(t, q.Push(NewRequest("a.md", Automatic)))
	err := q.Push(NewRequest("b.md", Automatic))
	assert.Error(t, err)
}

func TestQueue_PoppedRequestStatusIsProcessing(t *testing.T) {
	q := NewQueue(0)
	req := NewRequest("a.md", Automatic)
	require.NoError(t, q.Push(req))

	popped, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, StatusProcessing, popped.Status)

	status, ok := q.GetStatus(req.ID)
	require.True(t, ok)
	assert.Equal(t, StatusProcessing, status)
}

func TestQueue_ClearResetsEverything(t *testing.T) {
	q := NewQueue(0)
	require.NoError(t, q.Push(NewRequest("a.md", Automatic)))
	q.Clear()
	assert.Equal(t, 0, q.Size())
	assert.True(t, q.IsEmpty())
}
