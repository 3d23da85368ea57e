// Package storagereq defines the wire request/response envelopes exchanged
// with the storage service, plus the client-side validation rules attached
// to each response.
package storagereq

import (
	"encoding/json"

	"github.com/ramp-stack/air-go/pkg/capkey"
	"github.com/ramp-stack/air-go/pkg/ids"
)

// PrivateItem is the server row backing a private record: the discover key
// identifies the row, an optional delete key gates UpdatePrivate/
// DeletePrivate, and payload is the encrypted capkey.Record.
type PrivateItem struct {
	Discover capkey.Key  `json:"discover"`
	Delete   *capkey.Key `json:"delete,omitempty"`
	Payload  []byte      `json:"payload"`
}

type canonicalPrivateItem struct {
	Discover string `json:"discover"`
	Delete   string `json:"delete,omitempty"`
	Payload  string `json:"payload"`
}

// CanonicalBytes implements ids.Hashable.
func (p PrivateItem) CanonicalBytes() ([]byte, error) {
	c := canonicalPrivateItem{
		Discover: hexString(p.Discover.CanonicalBytes()),
		Payload:  hexString(p.Payload),
	}
	if p.Delete != nil {
		c.Delete = hexString(p.Delete.CanonicalBytes())
	}
	return json.Marshal(c)
}

// PublicItem is the server row backing a public record: the protocol id,
// the serialized header, and an opaque payload. The generated row Id,
// signer, and timestamp are carried alongside it by the ReadPublic
// response, not inside PublicItem itself.
type PublicItem struct {
	Protocol ids.Id `json:"protocol"`
	Header   []byte `json:"header"`
	Payload  []byte `json:"payload"`
}

type canonicalPublicItem struct {
	Protocol string `json:"protocol"`
	Header   string `json:"header"`
	Payload  string `json:"payload"`
}

// CanonicalBytes implements ids.Hashable.
func (p PublicItem) CanonicalBytes() ([]byte, error) {
	return json.Marshal(canonicalPublicItem{
		Protocol: p.Protocol.String(),
		Header:   hexString(p.Header),
		Payload:  hexString(p.Payload),
	})
}

func hexString(b []byte) string {
	const hextable = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, v := range b {
		out[i*2] = hextable[v>>4]
		out[i*2+1] = hextable[v&0x0f]
	}
	return string(out)
}
