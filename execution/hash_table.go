package execution

// ExecutionHashTable is a thin generic wrapper around a Go map for
// single-threaded operator state (hash joins, aggregation). Keys are the
// serialized bytes of the key columns; Go does not allow byte slices as map
// keys, so the bytes are converted to strings, which also makes the map own a
// copy of the key.
type ExecutionHashTable[T any] struct {
	table map[string]T
}

func NewExecutionHashTable[T any]() *ExecutionHashTable[T] {
	return &ExecutionHashTable[T]{table: make(map[string]T)}
}

// Insert stores the value under the key, replacing any previous value.
func (ht *ExecutionHashTable[T]) Insert(key []byte, value T) {
	ht.table[string(key)] = value
}

// Get returns the value stored under the key.
// The string conversion here does not allocate; the compiler optimizes map
// lookups with a converted byte slice key.
func (ht *ExecutionHashTable[T]) Get(key []byte) (value T, exists bool) {
	value, exists = ht.table[string(key)]
	return
}

// Len returns the number of keys in the table.
func (ht *ExecutionHashTable[T]) Len() int {
	return len(ht.table)
}

// Iterate calls the callback for every value in the table, in unspecified
// order.
func (ht *ExecutionHashTable[T]) Iterate(iter func(value T)) {
	for _, value := range ht.table {
		iter(value)
	}
}
