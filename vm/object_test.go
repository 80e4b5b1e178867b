package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocStringInternsEqualBytesToOneHandle(t *testing.T) {
	machine := New()
	a := machine.allocString("hello")
	b := machine.allocString("hello")
	assert.Equal(t, a, b)
}

func TestAllocStringDistinctBytesGetDistinctHandles(t *testing.T) {
	machine := New()
	a := machine.allocString("hello")
	b := machine.allocString("world")
	assert.NotEqual(t, a, b)
}

func TestAllocStringHashIsCachedAtAllocation(t *testing.T) {
	machine := New()
	ref := machine.allocString("hello")
	obj := machine.heap.get(ref)
	require.Equal(t, objString, obj.kind)
	assert.Equal(t, fxHash([]byte("hello")), obj.str.Hash)
}
