package vm

// tableMaxLoad is the load factor ceiling: count+1 exceeding capacity*0.75
// triggers a grow before the new entry is inserted.
const tableMaxLoad = 0.75

// tableMinCapacity is the smallest capacity a non-empty table grows into.
const tableMinCapacity = 8

// tableEntry is one open-addressed slot. An entry with hasKey == false is
// either empty (value.Kind == ValueNull) or a tombstone
// (value == Bool(true)); both sentinels mirror the reference table design.
// hash and key together give (hash, bytes) equality rather than hash alone,
// closing the collision hole the original design note calls out.
type tableEntry struct {
	hasKey bool
	hash   uint64
	key    string
	value  Value
}

// HashTable is the open-addressed, linear-probed table backing both the
// VM's globals and every object-literal instance. Entries carry
// {key: optional string, value: Value}; count includes tombstones so the
// load factor accounts for dead slots that still occupy a probe chain.
type HashTable struct {
	entries []tableEntry
	count   int
}

func newHashTable() *HashTable {
	return &HashTable{}
}

func (t *HashTable) Len() int { return t.count }

// findEntry walks the probe chain starting at hash mod capacity, returning
// the index to read or write for key. It remembers the first tombstone it
// passes so a subsequent insert reuses it instead of extending the chain.
func findEntry(entries []tableEntry, hash uint64, key string) int {
	index := int(hash % uint64(len(entries)))
	tombstone := -1
	for {
		entry := &entries[index]
		if !entry.hasKey {
			if entry.value.Kind == ValueNull {
				if tombstone != -1 {
					return tombstone
				}
				return index
			}
			if tombstone == -1 {
				tombstone = index
			}
		} else if entry.hash == hash && entry.key == key {
			return index
		}
		index = (index + 1) % len(entries)
	}
}

// Get looks up key, returning its value and whether it was present.
func (t *HashTable) Get(key string) (Value, bool) {
	if t.count == 0 {
		return Value{}, false
	}
	hash := fxHash([]byte(key))
	entry := &t.entries[findEntry(t.entries, hash, key)]
	if !entry.hasKey {
		return Value{}, false
	}
	return entry.value, true
}

// Set writes key/value, growing the table first if the load factor would
// be exceeded. Returns true if this created a new key.
func (t *HashTable) Set(key string, value Value) bool {
	if float64(t.count+1) > float64(len(t.entries))*tableMaxLoad {
		t.grow()
	}

	hash := fxHash([]byte(key))
	index := findEntry(t.entries, hash, key)
	isNewKey := !t.entries[index].hasKey
	if isNewKey {
		t.count++
	}
	t.entries[index] = tableEntry{hasKey: true, hash: hash, key: key, value: value}
	return isNewKey
}

// Delete tombstones key's slot so later probes skip over it without
// breaking the chain for any key that collided past it. Returns whether
// key was present.
func (t *HashTable) Delete(key string) bool {
	if t.count == 0 {
		return false
	}
	hash := fxHash([]byte(key))
	index := findEntry(t.entries, hash, key)
	if !t.entries[index].hasKey {
		return false
	}
	t.entries[index] = tableEntry{value: Bool(true)}
	return true
}

// grow doubles capacity (or jumps to the minimum) and re-probes every live
// entry into the fresh table, dropping tombstones in the process.
func (t *HashTable) grow() {
	capacity := tableMinCapacity
	if len(t.entries) >= tableMinCapacity {
		capacity = len(t.entries) * 2
	}

	fresh := make([]tableEntry, capacity)
	t.count = 0
	for _, entry := range t.entries {
		if !entry.hasKey {
			continue
		}
		index := findEntry(fresh, entry.hash, entry.key)
		fresh[index] = entry
		t.count++
	}
	t.entries = fresh
}

// values returns every live value in the table, used by the GC to trace a
// table's outgoing references.
func (t *HashTable) values() []Value {
	out := make([]Value, 0, t.count)
	for _, entry := range t.entries {
		if entry.hasKey {
			out = append(out, entry.value)
		}
	}
	return out
}
