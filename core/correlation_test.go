package core

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBoundedStoreRejectsNonPositiveMaxSize(t *testing.T) {
	for _, maxSize := range []int{0, -1, -1000} {
		t.Run(fmt.Sprintf("maxSize=%d", maxSize), func(t *testing.T) {
			store, err := NewBoundedStore(maxSize)
			require.Error(t, err)
			assert.Nil(t, store)
			assert.True(t, IsConfigurationError(err))
			assert.Contains(t, err.Error(), "positive")
		})
	}
}

func TestBoundedStoreAdmitUntilFull(t *testing.T) {
	store, err := NewBoundedStore(1000)
	require.NoError(t, err)

	for i := int64(1); i <= 1000; i++ {
		require.True(t, store.Admit(i, fmt.Sprintf("collection-%d", i)), "id %d should be admitted", i)
	}
	assert.Equal(t, 1000, store.Size())

	// At capacity: further admissions are rejected without error
	assert.False(t, store.Admit(1001, "collection-1001"))
	assert.Equal(t, 1000, store.Size())

	// Taking an entry makes room for a new one
	name, ok := store.Take(1000)
	require.True(t, ok)
	assert.Equal(t, "collection-1000", name)
	assert.True(t, store.Admit(1001, "collection-1001"))
	assert.Equal(t, 1000, store.Size())

	name, ok = store.Take(1001)
	require.True(t, ok)
	assert.Equal(t, "collection-1001", name)
}

func TestBoundedStoreTakeNeverAdmitted(t *testing.T) {
	store, err := NewBoundedStore(10)
	require.NoError(t, err)

	name, ok := store.Take(42)
	assert.False(t, ok)
	assert.Empty(t, name)
	assert.Equal(t, 0, store.Size())
}

func TestBoundedStoreTakeTwice(t *testing.T) {
	store, err := NewBoundedStore(10)
	require.NoError(t, err)

	require.True(t, store.Admit(7, "orders"))

	name, ok := store.Take(7)
	require.True(t, ok)
	assert.Equal(t, "orders", name)

	// Second take of the same id finds nothing
	name, ok = store.Take(7)
	assert.False(t, ok)
	assert.Empty(t, name)
}

func TestBoundedStoreLastWriteWinsOnIdReuse(t *testing.T) {
	store, err := NewBoundedStore(10)
	require.NoError(t, err)

	require.True(t, store.Admit(1, "first"))
	require.True(t, store.Admit(1, "second"))
	assert.Equal(t, 1, store.Size())

	name, ok := store.Take(1)
	require.True(t, ok)
	assert.Equal(t, "second", name)
}

func TestBoundedStoreStats(t *testing.T) {
	store, err := NewBoundedStore(2)
	require.NoError(t, err)

	store.Admit(1, "a")
	store.Admit(2, "b")
	store.Admit(3, "c") // rejected
	store.Take(1)
	store.Take(99) // miss

	stats := store.Stats()
	assert.Equal(t, int64(1), stats["size"])
	assert.Equal(t, int64(2), stats["max_size"])
	assert.Equal(t, int64(2), stats["admitted"])
	assert.Equal(t, int64(1), stats["rejected"])
	assert.Equal(t, int64(1), stats["taken"])
	assert.Equal(t, int64(1), stats["missed"])
}

// The admission check and the insert are separate steps, so racing admitters
// can transiently push occupancy past the limit by at most one entry each.
// This pins down that the overshoot stays bounded and self-corrects.
func TestBoundedStoreConcurrentAdmitOvershootIsBounded(t *testing.T) {
	const (
		maxSize    = 50
		goroutines = 8
		perWorker  = 200
	)
	store, err := NewBoundedStore(maxSize)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(base int64) {
			defer wg.Done()
			for i := int64(0); i < perWorker; i++ {
				store.Admit(base*perWorker+i, "c")
			}
		}(int64(g))
	}
	wg.Wait()

	size := store.Size()
	assert.GreaterOrEqual(t, size, maxSize)
	assert.LessOrEqual(t, size, maxSize+goroutines)

	// Draining every possibly-admitted id brings occupancy back to zero
	for id := int64(0); id < goroutines*perWorker; id++ {
		store.Take(id)
	}
	assert.Equal(t, 0, store.Size())
}

func TestBoundedStoreConcurrentAdmitTake(t *testing.T) {
	store, err := NewBoundedStore(1000)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(base int64) {
			defer wg.Done()
			for i := int64(0); i < 250; i++ {
				id := base*250 + i
				if store.Admit(id, fmt.Sprintf("collection-%d", id)) {
					name, ok := store.Take(id)
					if !ok || name != fmt.Sprintf("collection-%d", id) {
						t.Errorf("id %d: got (%q, %v)", id, name, ok)
					}
				}
			}
		}(int64(g))
	}
	wg.Wait()

	assert.Equal(t, 0, store.Size())
}
