package cryptoutil

import (
	"encoding/hex"
	"encoding/json"
)

func marshalHexBytes(b []byte) ([]byte, error) {
	return json.Marshal(hex.EncodeToString(b))
}

func unmarshalHexBytes(b []byte) ([]byte, error) {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, err
	}
	if s == "" {
		return nil, nil
	}
	return hex.DecodeString(s)
}
