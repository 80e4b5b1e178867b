package vm

import "github.com/sirupsen/logrus"

// collect runs a full mark-and-sweep pass over the heap. Roots are every
// value currently on the operand stack plus every value bound in globals;
// tracing follows a table's values since a Table is the only heap kind
// with outgoing references (strings are leaves).
func (vm *VM) collect() {
	if vm.gcDebug {
		logrus.Debugln("-- gc begin")
	}

	var grey []ObjRef
	mark := func(v Value) {
		if v.Kind != ValueObj {
			return
		}
		obj := vm.heap.get(v.obj)
		if obj.marked {
			return
		}
		obj.marked = true
		grey = append(grey, v.obj)
	}

	for _, v := range vm.stack {
		mark(v)
	}
	for _, v := range vm.globals.values() {
		mark(v)
	}

	for len(grey) > 0 {
		ref := grey[len(grey)-1]
		grey = grey[:len(grey)-1]
		obj := vm.heap.get(ref)
		if obj.kind == objTable {
			for _, v := range obj.table.values() {
				mark(v)
			}
		}
	}

	vm.sweep()

	if vm.gcDebug {
		logrus.Debugln("-- gc end")
	}
}

// sweep walks the intrusive live list, unlinking and freeing every object
// that wasn't marked this collection, and clears the mark bit on every
// survivor so the next collection starts clean.
func (vm *VM) sweep() {
	heap := vm.heap
	var prev ObjRef = noRef
	current := heap.head
	for current != noRef {
		obj := heap.get(current)
		next := obj.next
		if obj.marked {
			obj.marked = false
			prev = current
		} else {
			if obj.kind == objString {
				vm.interner.remove(obj.str.Bytes)
			}
			if prev == noRef {
				heap.head = next
			} else {
				heap.get(prev).next = next
			}
			heap.free = append(heap.free, current)
		}
		current = next
	}
}
