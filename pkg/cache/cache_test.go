package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_InsertRetrieve(t *testing.T) {
	c := NewCache("test", 10)

	require.NoError(t, c.Insert("a", 1, 4))
	require.NoError(t, c.Insert("b", 2, 4))
	assert.Equal(t, 8, c.GetWeight())
	assert.Equal(t, 10, c.GetBudget())

	value, ok := c.Retrieve("a")
	require.True(t, ok)
	assert.Equal(t, 1, value)

	assert.Equal(t, ErrKeyExists, c.Insert("a", 3, 1))
	value, _ = c.Retrieve("a")
	assert.Equal(t, 1, value)

	_, ok = c.Retrieve("missing")
	assert.False(t, ok)
}

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewCache("test", 3)

	require.NoError(t, c.Insert("a", "a", 1))
	require.NoError(t, c.Insert("b", "b", 1))
	require.NoError(t, c.Insert("c", "c", 1))

	_, ok := c.Retrieve("a")
	require.True(t, ok)

	require.NoError(t, c.Insert("d", "d", 1))

	_, ok = c.Retrieve("b")
	assert.False(t, ok)
	for _, key := range []string{"a", "c", "d"} {
		_, ok := c.Retrieve(key)
		assert.True(t, ok, key)
	}
	assert.Equal(t, 3, c.GetWeight())

	require.NoError(t, c.Insert("heavy", "heavy", 3))
	assert.Equal(t, 3, c.GetWeight())
	for _, key := range []string{"a", "c", "d"} {
		_, ok := c.Retrieve(key)
		assert.False(t, ok, key)
	}

	// Entries heavier than the budget evict themselves
	require.NoError(t, c.Insert("huge", "huge", 4))
	assert.Equal(t, 0, c.GetWeight())
	_, ok = c.Retrieve("huge")
	assert.False(t, ok)
}

func TestCache_Clear(t *testing.T) {
	c := NewCache("test", 10)
	require.NoError(t, c.Insert("a", 1, 1))

	c.Clear()
	assert.Equal(t, 0, c.GetWeight())
	_, ok := c.Retrieve("a")
	assert.False(t, ok)
	assert.NoError(t, c.Insert("a", 1, 1))
}
