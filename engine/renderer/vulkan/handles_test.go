package vulkan

import (
	"testing"

	"github.com/spaghettifunk/vkframe/engine/renderer/present"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryHandlesAreUniqueAcrossKinds(t *testing.T) {
	var next uint64
	names := newRegistry[string](&next)
	sizes := newRegistry[int](&next)

	a := names.add("a")
	b := sizes.add(42)
	c := names.add("c")
	assert.NotEqual(t, a, b)
	assert.NotEqual(t, b, c)
	assert.NotEqual(t, present.Handle(0), a, "zero stays the null handle")

	_, ok := names.get(b)
	assert.False(t, ok)

	v, ok := names.take(a)
	require.True(t, ok)
	assert.Equal(t, "a", v)
	_, ok = names.take(a)
	assert.False(t, ok, "a handle can only be taken once")

	// released handles are never handed out again
	d := names.add("d")
	assert.NotEqual(t, a, d)
	assert.Equal(t, 2, names.len())
	assert.Equal(t, 1, sizes.len())
}

func TestResolveFailsOnUnknownHandle(t *testing.T) {
	var next uint64
	names := newRegistry[string](&next)
	a := names.add("a")
	b := names.add("b")

	got, err := resolve(names, []present.Semaphore{present.Semaphore(b), present.Semaphore(a)})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, got)

	got, err = resolve(names, []present.Semaphore{present.Semaphore(a), present.Semaphore(99)})
	assert.Error(t, err)
	assert.Nil(t, got, "a partial lookup is never returned")

	got, err = resolve(names, []present.Semaphore(nil))
	assert.NoError(t, err)
	assert.Empty(t, got)
}
