package probe

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Interface compliance (compile-time assertion)
var _ Recorder = (*MemoryRecorder)(nil)

func TestMemoryRecorder_Lifecycle(t *testing.T) {
	r := NewMemoryRecorder()

	it, err := r.Create("a", 1, "probes/a")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, it.Status)
	assert.Equal(t, "probes/a", it.Object)

	require.NoError(t, r.MarkRunning("a"))
	got, err := r.Get("a")
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, got.Status)

	require.NoError(t, r.MarkComplete("a", 4))
	got, err = r.Get("a")
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, got.Status)
	assert.Equal(t, 4, got.Listed)
	assert.False(t, got.UpdatedAt.Before(got.StartedAt))

	_, err = r.Create("b", 2, "probes/b")
	require.NoError(t, err)
	require.NoError(t, r.MarkFailed("b", errors.New("boom")))
	got, err = r.Get("b")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, "boom", got.Error)
}

func TestMemoryRecorder_Errors(t *testing.T) {
	r := NewMemoryRecorder()

	_, err := r.Get("missing")
	assert.EqualError(t, err, `iteration "missing" not found`)
	assert.EqualError(t, r.MarkRunning("missing"), `iteration "missing" not found`)

	_, err = r.Create("a", 1, "a")
	require.NoError(t, err)
	_, err = r.Create("a", 2, "a")
	assert.EqualError(t, err, `iteration "a" already exists`)
}

func TestMemoryRecorder_Isolation(t *testing.T) {
	r := NewMemoryRecorder()
	_, err := r.Create("a", 1, "a")
	require.NoError(t, err)

	got, err := r.Get("a")
	require.NoError(t, err)
	got.Status = StatusFailed

	again, err := r.Get("a")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, again.Status)
}

func TestMemoryRecorder_ListOrdered(t *testing.T) {
	r := NewMemoryRecorder()
	for _, seq := range []int{3, 1, 2} {
		_, err := r.Create(fmt.Sprintf("it-%d", seq), seq, "x")
		require.NoError(t, err)
	}

	its := r.List()
	require.Len(t, its, 3)
	for i, it := range its {
		assert.Equal(t, i+1, it.Sequence)
	}
}

func TestMemoryRecorder_Concurrency(t *testing.T) {
	r := NewMemoryRecorder()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("it-%d", i)
			if _, err := r.Create(id, i, id); err != nil {
				t.Errorf("create: %v", err)
				return
			}
			_ = r.MarkComplete(id, i)
			_ = r.List()
		}(i)
	}
	wg.Wait()

	assert.Len(t, r.List(), 100)
}
