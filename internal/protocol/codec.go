package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// StateFrames holds one snapshot pre-encoded for both client encodings,
// so a broadcast marshals once regardless of member count.
type StateFrames struct {
	JSON    []byte // Envelope{T: MsgState}
	Msgpack []byte // bare GameState
}

// EncodeState marshals gs as a JSON envelope and as msgpack
func EncodeState(gs *GameState) (*StateFrames, error) {
	js, err := json.Marshal(Envelope{T: MsgState, Data: gs})
	if err != nil {
		return nil, fmt.Errorf("encode state json: %w", err)
	}
	mp, err := MarshalMsgpack(gs)
	if err != nil {
		return nil, err
	}
	return &StateFrames{JSON: js, Msgpack: mp}, nil
}

// MarshalMsgpack encodes v using the json field names
func MarshalMsgpack(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encode msgpack: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalMsgpack is the inverse of MarshalMsgpack
func UnmarshalMsgpack(data []byte, v interface{}) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode msgpack: %w", err)
	}
	return nil
}
