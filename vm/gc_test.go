package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectFreesUnreachableString(t *testing.T) {
	machine := New()
	ref := machine.allocString("garbage")
	require.False(t, machine.heap.get(ref).marked)

	machine.collect()

	// The slot is back on the free list and its bytes are gone from the
	// interner, so a fresh allocation of the same content reuses neither
	// the handle's identity guarantee nor the stale entry.
	_, stillInterned := machine.interner.lookup("garbage")
	assert.False(t, stillInterned)
}

func TestCollectKeepsValueReachableFromStack(t *testing.T) {
	machine := New()
	ref := machine.allocString("kept")
	require.NoError(t, machine.stack.Push(Obj(ref)))

	machine.collect()

	obj := machine.heap.get(ref)
	assert.Equal(t, objString, obj.kind)
	assert.Equal(t, "kept", obj.str.Bytes)
}

func TestCollectKeepsValueReachableFromGlobals(t *testing.T) {
	machine := New()
	ref := machine.allocString("global-value")
	machine.globals.Set("g", Obj(ref))

	machine.collect()

	obj := machine.heap.get(ref)
	assert.Equal(t, "global-value", obj.str.Bytes)
}

func TestCollectTracesThroughTableValues(t *testing.T) {
	machine := New()
	tableRef := machine.allocTable()
	stringRef := machine.allocString("nested")
	machine.heap.get(tableRef).table.Set("field", Obj(stringRef))
	require.NoError(t, machine.stack.Push(Obj(tableRef)))

	machine.collect()

	obj := machine.heap.get(stringRef)
	assert.Equal(t, "nested", obj.str.Bytes)
}

func TestSweepClearsMarkedBitForNextCollection(t *testing.T) {
	machine := New()
	ref := machine.allocString("reused-root")
	require.NoError(t, machine.stack.Push(Obj(ref)))

	machine.collect()
	assert.False(t, machine.heap.get(ref).marked)

	machine.collect()
	obj := machine.heap.get(ref)
	assert.Equal(t, "reused-root", obj.str.Bytes)
}
