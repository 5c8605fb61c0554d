package json

import (
	"encoding/json"

	"github.com/ezraisw/kvmutex/codec"
)

type jsonCodec struct {
}

// NewCodec returns a Codec producing plain JSON, handy when other tools
// need to read the records from the store.
func NewCodec() codec.Codec {
	return &jsonCodec{}
}

func (c jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (c jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
