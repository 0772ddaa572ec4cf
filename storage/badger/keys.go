package badger

import (
	"encoding/binary"

	"github.com/jeffallen007/what-would-she-say/core"
)

// Key prefixes for different data types
const (
	collectionPrefix = "col:"
	objectPrefix     = "obj:"
)

// makeCollectionKey generates a key for a collection record by name.
func makeCollectionKey(name string) []byte {
	return []byte(collectionPrefix + name)
}

// makeObjectPrefix generates the key prefix shared by all objects of a collection.
// Format: prefix:len(name):name
// The length keeps a collection's prefix from matching a longer name.
func makeObjectPrefix(collection string) []byte {
	buf := make([]byte, len(objectPrefix)+2+len(collection))
	offset := copy(buf, objectPrefix)
	binary.BigEndian.PutUint16(buf[offset:], uint16(len(collection)))
	offset += 2
	copy(buf[offset:], collection)
	return buf
}

// makeObjectKey generates a key for an object by collection and ID.
// Format: prefix:len(name):name:id
func makeObjectKey(collection string, id core.ID) []byte {
	prefix := makeObjectPrefix(collection)
	buf := make([]byte, len(prefix)+len(id))
	offset := copy(buf, prefix)
	copy(buf[offset:], id[:])
	return buf
}
