package progress

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestCounter_Deciles(t *testing.T) {
	var got []int
	c := NewCounter(25, Func(func(p int) { got = append(got, p) }))
	for range 25 {
		c.Step()
	}
	assert.Equal(t, []int{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}, got)
}

func TestCounter_SmallTotal(t *testing.T) {
	var got []int
	c := NewCounter(3, Func(func(p int) { got = append(got, p) }))
	for range 3 {
		c.Step()
	}
	assert.Equal(t, []int{30, 60, 100}, got)
}

func TestCounter_Concurrent(t *testing.T) {
	var mu sync.Mutex
	var got []int
	c := NewCounter(100, Func(func(p int) {
		mu.Lock()
		got = append(got, p)
		mu.Unlock()
	}))

	var wg sync.WaitGroup
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Step()
		}()
	}
	wg.Wait()
	assert.Len(t, got, 10)
	assert.Equal(t, 100, got[len(got)-1])
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))
	NewCounter(0, nil).Step()
}

func TestLog(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	Log(zap.New(core), "prep").OnProgress(40)

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "prep", entries[0].ContextMap()["task"])
		assert.Equal(t, int64(40), entries[0].ContextMap()["percent"])
	}
}
