package http

import (
	"encoding/json"
	"io"
)

type ndjsonEncoder struct {
	enc *json.Encoder
}

func newNDJSONEncoder(w io.Writer) *ndjsonEncoder {
	return &ndjsonEncoder{enc: json.NewEncoder(w)}
}

func (e *ndjsonEncoder) Encode(v interface{}) error {
	return e.enc.Encode(v)
}
