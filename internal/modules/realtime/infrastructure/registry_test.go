package infrastructure

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistryAddRemove(t *testing.T) {
	reg := NewRegistry()
	a := NewConnection(nil, nil, "", "a", 1)
	b := NewConnection(nil, nil, "", "b", 1)

	assert.True(t, reg.Add(a))
	assert.False(t, reg.Add(a))
	assert.True(t, reg.Add(b))
	assert.False(t, reg.Add(nil))
	assert.Equal(t, 2, reg.Len())

	assert.ElementsMatch(t, []*Connection{a, b}, reg.Snapshot())

	assert.True(t, reg.Remove(a))
	assert.False(t, reg.Remove(a))
	assert.Equal(t, 1, reg.Len())
	assert.Len(t, reg.Snapshot(), 1)
}

func TestRegistryEachStopsEarly(t *testing.T) {
	reg := NewRegistry()
	for i := 0; i < 5; i++ {
		reg.Add(NewConnection(nil, nil, "", "", 1))
	}
	visited := 0
	reg.Each(func(*Connection) bool {
		visited++
		return visited < 2
	})
	assert.Equal(t, 2, visited)
}
