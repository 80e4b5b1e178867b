package vm

// ObjRef is a compact handle into the VM's heap arena. It replaces the
// intrusive raw-pointer GcRef of the reference implementation with an
// integer index: handles are freely copyable and carry no ownership, which
// keeps GC-reachable state entirely inside the VM.
type ObjRef int32

// noRef is the sentinel "no object" handle, used for the tail of the
// intrusive free/live lists and for an un-allocated slot.
const noRef ObjRef = -1

type objKind byte

const (
	objString objKind = iota
	objTable
)

// heapObject is one arena slot. kind discriminates which of str/table is
// live. next threads every object, live or not-yet-swept, into the
// intrusive singly-linked list the GC walks.
type heapObject struct {
	kind   objKind
	marked bool
	next   ObjRef
	str    *AnkokuString
	table  *HashTable
}

// AnkokuString is an interned, immutable string value living on the heap.
// Its hash is computed once at allocation and reused for both table
// probing and equality, so two strings are equal iff their (hash, bytes)
// pair matches — never by hash alone.
type AnkokuString struct {
	Bytes string
	Hash  uint64
}

// fxHashKey mixes in the FxHash constant used throughout rustc; it has no
// special cryptographic property, only good avalanche for short ASCII
// keys, which is all identifiers and string literals ever are here.
const fxHashKey uint64 = 0x517cc1b727220a95

func fxHash(bytes []byte) uint64 {
	var hash uint64
	for _, b := range bytes {
		hash = bits64RotateLeft5(hash) ^ uint64(b)
		hash *= fxHashKey
	}
	return hash
}

func bits64RotateLeft5(x uint64) uint64 {
	return (x << 5) | (x >> (64 - 5))
}

func newAnkokuString(s string) *AnkokuString {
	return &AnkokuString{Bytes: s, Hash: fxHash([]byte(s))}
}

// Heap is the VM's intrusive arena of live objects, indexed by ObjRef. It
// owns allocation, the GC's mark bits, and the free list produced by sweep.
type Heap struct {
	objects []heapObject
	head    ObjRef // most recently allocated object; threads the live list
	free    []ObjRef
}

func newHeap() *Heap {
	return &Heap{head: noRef}
}

func (h *Heap) get(ref ObjRef) *heapObject {
	return &h.objects[ref]
}

// allocString interns s through the VM's weak dedup table before falling
// back to a fresh heap slot, per the design notes: AnkokuString equality
// must be (hash, bytes), and every compile-time literal with the same
// bytes should resolve to one handle.
func (vm *VM) allocString(s string) ObjRef {
	if ref, ok := vm.interner.lookup(s); ok {
		return ref
	}
	ref := vm.heap.alloc(heapObject{kind: objString, str: newAnkokuString(s)})
	vm.interner.insert(s, ref)
	return ref
}

func (vm *VM) allocTable() ObjRef {
	return vm.heap.alloc(heapObject{kind: objTable, table: newHashTable()})
}

// alloc threads obj onto the intrusive live list (new objects become the
// head) and returns its handle, reusing a freed slot when the sweep phase
// left one behind.
func (h *Heap) alloc(obj heapObject) ObjRef {
	obj.next = h.head
	obj.marked = false

	var ref ObjRef
	if n := len(h.free); n > 0 {
		ref = h.free[n-1]
		h.free = h.free[:n-1]
		h.objects[ref] = obj
	} else {
		ref = ObjRef(len(h.objects))
		h.objects = append(h.objects, obj)
	}
	h.head = ref
	return ref
}
