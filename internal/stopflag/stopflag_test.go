package stopflag

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlagStartsUnset(t *testing.T) {
	f := New()
	assert.False(t, f.IsSet())
}

func TestSetIsIdempotent(t *testing.T) {
	f := New()

	assert.True(t, f.Set(), "first Set should flip the flag")
	assert.True(t, f.IsSet())

	assert.False(t, f.Set(), "second Set should be a no-op")
	assert.True(t, f.IsSet())
}

func TestConcurrentSetFlipsExactlyOnce(t *testing.T) {
	f := New()

	var flips int64
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if f.Set() {
				mu.Lock()
				flips++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), flips)
	assert.True(t, f.IsSet())
}
