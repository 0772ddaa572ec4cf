package storage

import (
	"fmt"
	"time"

	"github.com/jeffallen007/what-would-she-say/core"
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

const idSize = 16

// Metadata value tags.
const (
	tagString byte = 's'
	tagBool   byte = 'b'
	tagInt    byte = 'i'
	tagFloat  byte = 'f'
)

// ObjectMUS serializes StoredObject values in MUS format.
// Integer metadata values come back as int64.
var ObjectMUS = objectMUS{}

// CollectionMUS serializes CollectionSchema values in MUS format.
var CollectionMUS = collectionMUS{}

type objectMUS struct{}

func (objectMUS) Size(o StoredObject) (size int) {
	size = idSize
	size += ord.String.Size(o.Content)
	size += metadataSize(o.Metadata)
	size += varint.Int.Size(len(o.Vector))
	for _, f := range o.Vector {
		size += raw.Float32.Size(f)
	}
	size += varint.Uint64.Size(o.Checksum)
	return size + varint.Int64.Size(o.UpdatedAt.UnixMicro())
}

func (objectMUS) Marshal(o StoredObject, bs []byte) (n int) {
	n = copy(bs, o.ID[:])
	n += ord.String.Marshal(o.Content, bs[n:])
	n += marshalMetadata(o.Metadata, bs[n:])
	n += varint.Int.Marshal(len(o.Vector), bs[n:])
	for _, f := range o.Vector {
		n += raw.Float32.Marshal(f, bs[n:])
	}
	n += varint.Uint64.Marshal(o.Checksum, bs[n:])
	return n + varint.Int64.Marshal(o.UpdatedAt.UnixMicro(), bs[n:])
}

func (objectMUS) Unmarshal(bs []byte) (o StoredObject, n int, err error) {
	if len(bs) < idSize {
		return o, 0, ErrTruncatedData
	}
	n = copy(o.ID[:], bs[:idSize])

	var n1 int
	o.Content, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	o.Metadata, n1, err = unmarshalMetadata(bs[n:])
	n += n1
	if err != nil {
		return
	}

	var length int
	length, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	if length < 0 || length > len(bs)-n {
		return o, n, ErrTruncatedData
	}
	if length > 0 {
		o.Vector = make([]float32, length)
		for i := range o.Vector {
			o.Vector[i], n1, err = raw.Float32.Unmarshal(bs[n:])
			n += n1
			if err != nil {
				return
			}
		}
	}

	o.Checksum, n1, err = varint.Uint64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	var micros int64
	micros, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	o.UpdatedAt = time.UnixMicro(micros).UTC()
	return
}

type collectionMUS struct{}

func (collectionMUS) Size(s CollectionSchema) (size int) {
	size = ord.String.Size(s.Name)
	size += ord.String.Size(s.Description)
	size += varint.Int.Size(s.VectorDimension)
	size += varint.Int.Size(len(s.Properties))
	for _, p := range s.Properties {
		size += ord.String.Size(p.Name)
		size += ord.String.Size(p.Type())
	}
	return size + varint.Int64.Size(s.CreatedAt.UnixMicro())
}

func (collectionMUS) Marshal(s CollectionSchema, bs []byte) (n int) {
	n = ord.String.Marshal(s.Name, bs)
	n += ord.String.Marshal(s.Description, bs[n:])
	n += varint.Int.Marshal(s.VectorDimension, bs[n:])
	n += varint.Int.Marshal(len(s.Properties), bs[n:])
	for _, p := range s.Properties {
		n += ord.String.Marshal(p.Name, bs[n:])
		n += ord.String.Marshal(p.Type(), bs[n:])
	}
	return n + varint.Int64.Marshal(s.CreatedAt.UnixMicro(), bs[n:])
}

func (collectionMUS) Unmarshal(bs []byte) (s CollectionSchema, n int, err error) {
	var n1 int
	s.Name, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	s.Description, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	s.VectorDimension, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}

	var length int
	length, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	if length < 0 || length > len(bs)-n {
		return s, n, ErrTruncatedData
	}
	if length > 0 {
		s.Properties = make([]Property, length)
		for i := range s.Properties {
			var name, dataType string
			name, n1, err = ord.String.Unmarshal(bs[n:])
			n += n1
			if err != nil {
				return
			}
			dataType, n1, err = ord.String.Unmarshal(bs[n:])
			n += n1
			if err != nil {
				return
			}
			s.Properties[i] = Property{Name: name, DataType: []string{dataType}}
		}
	}

	var micros int64
	micros, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	s.CreatedAt = time.UnixMicro(micros).UTC()
	return
}

// metadataSize returns the encoded size of m. Keys are written sorted so the
// encoding of a given map is stable.
func metadataSize(m core.Metadata) (size int) {
	size = varint.Int.Size(len(m))
	for _, k := range m.Keys() {
		size += ord.String.Size(k) + 1
		switch v := m[k].(type) {
		case string:
			size += ord.String.Size(v)
		case bool:
			size += ord.Bool.Size(v)
		case int:
			size += varint.Int64.Size(int64(v))
		case int64:
			size += varint.Int64.Size(v)
		case float64:
			size += raw.Float64.Size(v)
		}
	}
	return size
}

func marshalMetadata(m core.Metadata, bs []byte) (n int) {
	n = varint.Int.Marshal(len(m), bs)
	for _, k := range m.Keys() {
		n += ord.String.Marshal(k, bs[n:])
		switch v := m[k].(type) {
		case string:
			bs[n] = tagString
			n++
			n += ord.String.Marshal(v, bs[n:])
		case bool:
			bs[n] = tagBool
			n++
			n += ord.Bool.Marshal(v, bs[n:])
		case int:
			bs[n] = tagInt
			n++
			n += varint.Int64.Marshal(int64(v), bs[n:])
		case int64:
			bs[n] = tagInt
			n++
			n += varint.Int64.Marshal(v, bs[n:])
		case float64:
			bs[n] = tagFloat
			n++
			n += raw.Float64.Marshal(v, bs[n:])
		}
	}
	return n
}

func unmarshalMetadata(bs []byte) (m core.Metadata, n int, err error) {
	var length, n1 int
	length, n, err = varint.Int.Unmarshal(bs)
	if err != nil {
		return
	}
	if length < 0 || length > len(bs)-n {
		return nil, n, ErrTruncatedData
	}
	if length == 0 {
		return nil, n, nil
	}

	m = make(core.Metadata, length)
	for range length {
		var key string
		key, n1, err = ord.String.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return
		}
		if n >= len(bs) {
			return m, n, ErrTruncatedData
		}
		tag := bs[n]
		n++

		switch tag {
		case tagString:
			m[key], n1, err = ord.String.Unmarshal(bs[n:])
		case tagBool:
			m[key], n1, err = ord.Bool.Unmarshal(bs[n:])
		case tagInt:
			m[key], n1, err = varint.Int64.Unmarshal(bs[n:])
		case tagFloat:
			m[key], n1, err = raw.Float64.Unmarshal(bs[n:])
		default:
			return m, n, fmt.Errorf("%w: unknown metadata tag %q", ErrSerializationFailed, tag)
		}
		n += n1
		if err != nil {
			return
		}
	}
	return
}

// MarshalObject serializes a StoredObject to bytes.
func MarshalObject(obj *StoredObject) []byte {
	buf := make([]byte, ObjectMUS.Size(*obj))
	ObjectMUS.Marshal(*obj, buf)
	return buf
}

// UnmarshalObject deserializes a StoredObject from bytes.
func UnmarshalObject(data []byte) (*StoredObject, error) {
	obj, _, err := ObjectMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &obj, nil
}

// MarshalCollection serializes a CollectionSchema to bytes.
func MarshalCollection(schema *CollectionSchema) []byte {
	buf := make([]byte, CollectionMUS.Size(*schema))
	CollectionMUS.Marshal(*schema, buf)
	return buf
}

// UnmarshalCollection deserializes a CollectionSchema from bytes.
func UnmarshalCollection(data []byte) (*CollectionSchema, error) {
	schema, _, err := CollectionMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &schema, nil
}
