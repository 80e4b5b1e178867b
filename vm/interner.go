package vm

import "github.com/josharian/intern"

// stringInterner is the VM-level weak deduplication table the design notes
// call for: every AnkokuString allocation first checks here, and every
// collected string is removed here, so the table never outlives the
// objects it points at. intern.String additionally folds the Go-level
// string header itself, so repeated bytes share one backing array even
// before they reach the heap arena.
type stringInterner struct {
	handles map[string]ObjRef
}

func newStringInterner() *stringInterner {
	return &stringInterner{handles: make(map[string]ObjRef)}
}

func (si *stringInterner) lookup(s string) (ObjRef, bool) {
	ref, ok := si.handles[intern.String(s)]
	return ref, ok
}

func (si *stringInterner) insert(s string, ref ObjRef) {
	si.handles[intern.String(s)] = ref
}

func (si *stringInterner) remove(s string) {
	delete(si.handles, s)
}
