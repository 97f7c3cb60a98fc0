package notify

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueDrainOrder(t *testing.T) {
	q := NewQueue()
	q.Error("Please enter a test suite name")
	q.Success("Test suite created successfully!")
	q.Info("This would run your test in a real implementation!")

	toasts := q.Drain()
	require.Len(t, toasts, 3)
	assert.Equal(t, LevelError, toasts[0].Level)
	assert.Equal(t, "Please enter a test suite name", toasts[0].Message)
	assert.Equal(t, LevelSuccess, toasts[1].Level)
	assert.Equal(t, LevelInfo, toasts[2].Level)
	assert.False(t, toasts[0].At.IsZero())

	assert.Equal(t, 0, q.Len())
	assert.Empty(t, q.Drain())
	assert.NotNil(t, q.Drain())
}

func TestQueueLimit(t *testing.T) {
	q := NewQueue()
	for i := 0; i < DefaultLimit+5; i++ {
		q.Info(fmt.Sprintf("toast %d", i))
	}

	toasts := q.Drain()
	require.Len(t, toasts, DefaultLimit)
	assert.Equal(t, "toast 5", toasts[0].Message)
}

func TestQueueConcurrentPush(t *testing.T) {
	q := NewQueue()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.Success("ok")
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, q.Len())
}
