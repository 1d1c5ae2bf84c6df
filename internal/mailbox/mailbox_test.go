package mailbox

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLatestWins(t *testing.T) {
	m := New[int]()
	assert.False(t, m.Put(1))
	assert.True(t, m.Put(2))
	assert.True(t, m.Put(3))
	require.True(t, m.HasJob())

	j, ok := m.Take(context.Background())
	require.True(t, ok)
	assert.Equal(t, 3, j)

	assert.False(t, m.HasJob())
	assert.Nil(t, m.TryTake())
}

func TestTakeWaitsForPut(t *testing.T) {
	m := New[string]()
	got := make(chan string)
	go func() {
		j, _ := m.Take(context.Background())
		got <- j
	}()

	time.Sleep(10 * time.Millisecond)
	m.Put("cron")

	select {
	case j := <-got:
		assert.Equal(t, "cron", j)
	case <-time.After(time.Second):
		t.Fatal("Take did not return after Put")
	}
}

func TestTakeHonorsCancellation(t *testing.T) {
	m := New[int]()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, ok := m.Take(ctx)
	assert.False(t, ok)
}

func TestTakeAfterStaleNotification(t *testing.T) {
	m := New[int]()
	m.Put(1)
	require.NotNil(t, m.TryTake())

	// the notification from the first Put is still buffered
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, ok := m.Take(ctx)
	assert.False(t, ok)
}
