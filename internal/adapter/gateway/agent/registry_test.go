package agent

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YoshitsuguKoike/deerun/internal/domain/model"
)

func TestRegistry_RegisterRejectsDuplicate(t *testing.T) {
	r := newRegistry()
	id := model.NewJobID("acme/widget", 1, "fix")

	require.NoError(t, r.register(id, &process{}))
	err := r.register(id, &process{})
	assert.ErrorContains(t, err, "already has a live process")

	r.deregister(id)
	assert.NoError(t, r.register(id, &process{}))
}

func TestRegistry_LookupAfterDeregister(t *testing.T) {
	r := newRegistry()
	id := model.NewJobID("acme/widget", 2, "fix")

	_, ok := r.lookup(id)
	assert.False(t, ok)

	require.NoError(t, r.register(id, &process{}))
	_, ok = r.lookup(id)
	assert.True(t, ok)

	r.deregister(id)
	_, ok = r.lookup(id)
	assert.False(t, ok)
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := newRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := model.NewJobID("acme/widget", n, "fix")
			_ = r.register(id, &process{})
			_, _ = r.lookup(id)
			r.deregister(id)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 0, r.size())
}
