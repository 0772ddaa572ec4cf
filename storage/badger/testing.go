package badger

// NewMemoryIndex creates an index over a fresh in-memory database for testing.
// The returned index owns the database; Close releases it.
func NewMemoryIndex() (*Index, error) {
	backend, err := OpenBackend("", true)
	if err != nil {
		return nil, err
	}
	idx := NewIndex(backend)
	idx.owned = true
	return idx, nil
}
