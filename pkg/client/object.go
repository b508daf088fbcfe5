package client

import (
	"bytes"
	"encoding/json"
)

// DecodeObject decodes a JSON object into out. The API serializes empty
// maps as [], which DecodeObject treats as an empty object and leaves out
// untouched.
func DecodeObject(raw json.RawMessage, out any) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte("[]")) {
		return nil
	}
	return json.Unmarshal(trimmed, out)
}
