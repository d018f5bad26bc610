package lock

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	km := NewKeyedMutex()

	const iterations = 500
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				km.Lock(1)
				counter++
				km.Unlock(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 4*iterations, counter)
}

func TestKeyedMutex_IndependentKeys(t *testing.T) {
	km := NewKeyedMutex()

	km.Lock(1)
	done := make(chan struct{})
	go func() {
		// A different key must not block behind key 1.
		km.Lock(2)
		km.Unlock(2)
		close(done)
	}()
	<-done
	km.Unlock(1)
}

func TestKeyedMutex_EntriesReleased(t *testing.T) {
	km := NewKeyedMutex()

	for i := uint(0); i < 100; i++ {
		km.Lock(i)
		km.Unlock(i)
	}

	km.mu.Lock()
	defer km.mu.Unlock()
	assert.Empty(t, km.locks, "released entries should be removed")
}
