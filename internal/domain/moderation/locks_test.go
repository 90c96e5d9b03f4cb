package moderation

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedMutex_MutualExclusionPerKey(t *testing.T) {
	k := newKeyedMutex()

	const workers = 8
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.lock(42)
			defer unlock()
			counter++
		}()
	}
	wg.Wait()
	assert.Equal(t, workers, counter)
}

func TestKeyedMutex_ReleasesEntries(t *testing.T) {
	k := newKeyedMutex()

	var wg sync.WaitGroup
	for id := int64(1); id <= 100; id++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				unlock := k.lock(id)
				unlock()
			}
		}(id)
	}
	wg.Wait()

	k.mu.Lock()
	defer k.mu.Unlock()
	require.Empty(t, k.locks, "после освобождения всех замков карта пуста")
}

func TestKeyedMutex_DifferentKeysIndependent(t *testing.T) {
	k := newKeyedMutex()

	unlockA := k.lock(1)
	// второй ключ берётся сразу, незаблокированный первым
	unlockB := k.lock(2)
	unlockB()
	unlockA()

	k.mu.Lock()
	defer k.mu.Unlock()
	assert.Empty(t, k.locks)
}
