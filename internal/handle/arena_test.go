package handle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArenaInsertGet(t *testing.T) {
	var a Arena[string]
	h := a.Insert("cube")

	require.False(t, h.IsZero())
	v, ok := a.Get(h)
	assert.True(t, ok)
	assert.Equal(t, "cube", v)
	assert.Equal(t, 1, a.Len())
}

func TestArenaStaleHandle(t *testing.T) {
	var a Arena[int]
	h1 := a.Insert(1)
	_, err := a.Remove(h1)
	require.NoError(t, err)

	h2 := a.Insert(2)
	assert.Equal(t, h1.Index(), h2.Index(), "slot should be reused")

	_, ok := a.Get(h1)
	assert.False(t, ok, "stale handle must not resolve to the new value")

	_, err = a.Remove(h1)
	assert.ErrorIs(t, err, ErrInvalidHandle)

	v, ok := a.Get(h2)
	assert.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestArenaZeroHandle(t *testing.T) {
	var a Arena[int]
	_, ok := a.Get(Handle{})
	assert.False(t, ok)
}

func TestArenaEachAndClear(t *testing.T) {
	var a Arena[int]
	for i := 0; i < 4; i++ {
		a.Insert(i)
	}
	sum := 0
	a.Each(func(_ Handle, v int) { sum += v })
	assert.Equal(t, 6, sum)

	a.Clear()
	assert.Equal(t, 0, a.Len())
	h := a.Insert(9)
	v, ok := a.Get(h)
	assert.True(t, ok)
	assert.Equal(t, 9, v)
}
