package client

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeObject(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    map[string]int
		wantErr bool
	}{
		{"object", `{"a":1}`, map[string]int{"a": 1}, false},
		{"empty array", `[]`, nil, false},
		{"padded empty array", " [] ", nil, false},
		{"null", `null`, nil, false},
		{"empty", ``, nil, false},
		{"non-empty array", `[1]`, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got map[string]int
			err := DecodeObject(json.RawMessage(tt.raw), &got)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
