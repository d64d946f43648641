package state

import (
	"fmt"

	"github.com/ugorji/go/codec"
)

// msgpack handle shared by all entity encoding. Struct fields are written
// as maps keyed by their codec tags, so fields can be appended without
// breaking previously stored entries.
var mh codec.MsgpackHandle

// Encode serializes an entity for storage under its DataKey.
func Encode(v interface{}) ([]byte, error) {
	var out []byte
	enc := codec.NewEncoderBytes(&out, &mh)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("state: encode %T: %w", v, err)
	}
	return out, nil
}

// Decode deserializes an entity previously produced by Encode.
func Decode(data []byte, v interface{}) error {
	dec := codec.NewDecoderBytes(data, &mh)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("state: decode %T: %w", v, err)
	}
	return nil
}
