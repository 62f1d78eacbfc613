package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_RecordTiming(t *testing.T) {
	c := NewCollector()
	c.RecordTiming(OpGenerate, 10*time.Millisecond)
	c.RecordTiming(OpGenerate, 30*time.Millisecond)

	snap := c.Snapshot()
	op := snap.Ops[OpGenerate]
	require.NotNil(t, op)
	assert.Equal(t, int64(2), op.Count)
	assert.Equal(t, int64(40), op.TotalTimeMs)
	assert.Equal(t, 20.0, op.AvgTimeMs)
	assert.Equal(t, int64(10), op.MinTimeMs)
	assert.Equal(t, int64(30), op.MaxTimeMs)
	assert.Nil(t, op.TotalInputTokens)
}

func TestCollector_RecordLLMUsage(t *testing.T) {
	c := NewCollector()
	c.RecordLLMUsage(OpCompletion, time.Millisecond, 100, 10)
	c.RecordLLMUsage(OpCompletion, time.Millisecond, 300, 30)

	op := c.Snapshot().Ops[OpCompletion]
	require.NotNil(t, op)
	require.NotNil(t, op.TotalInputTokens)
	assert.Equal(t, int64(400), *op.TotalInputTokens)
	assert.Equal(t, int64(40), *op.TotalOutputTokens)
	assert.Equal(t, 200.0, *op.AvgInputTokens)
	assert.Equal(t, int64(100), *op.MinInputTokens)
	assert.Equal(t, int64(30), *op.MaxOutputTokens)
}

func TestCollector_FailuresOnly(t *testing.T) {
	c := NewCollector()
	c.RecordFailure(OpStoreSave)

	op := c.Snapshot().Ops[OpStoreSave]
	require.NotNil(t, op)
	assert.Equal(t, int64(1), op.Failures)
	assert.Zero(t, op.Count)
	assert.Zero(t, op.AvgTimeMs)
}

func TestCollector_SnapshotNames(t *testing.T) {
	c := NewCollector()
	c.RecordTiming(OpStoreSave, time.Millisecond)
	c.RecordTiming(OpEdit, time.Millisecond)

	assert.Equal(t, []string{OpEdit, OpStoreSave}, c.Snapshot().Names())
	assert.Empty(t, NewCollector().Snapshot().Ops)
}

func TestCollector_Concurrent(t *testing.T) {
	c := NewCollector()
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.RecordLLMUsage(OpCompletion, time.Millisecond, 1, 1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(50), c.Snapshot().Ops[OpCompletion].Count)
}
