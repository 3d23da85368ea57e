package capkey

import (
	"encoding/json"
	"fmt"

	"github.com/ramp-stack/air-go/pkg/ids"
)

// Header is the signed, schema-checked metadata block attached to every
// record: a KeySet, the Validation schema enforced on its children, opaque
// protocol Data, and the id of the Protocol that produced it.
type Header struct {
	Keys       KeySet     `json:"keys"`
	Validation Validation `json:"validation"`
	Data       []byte     `json:"data"`
	ProtocolID ids.Id     `json:"protocol_id"`
}

type canonicalHeader struct {
	Keys       canonicalKeySet     `json:"keys"`
	Validation canonicalValidation `json:"validation"`
	Data       string              `json:"data"`
	ProtocolID string              `json:"protocol_id"`
}

// CanonicalBytes implements ids.Hashable.
func (h Header) CanonicalBytes() ([]byte, error) {
	return json.Marshal(canonicalHeader{
		Keys:       h.Keys.canonical(),
		Validation: h.Validation.canonical(),
		Data:       fmt.Sprintf("%x", h.Data),
		ProtocolID: h.ProtocolID.String(),
	})
}

// Id is hash(header).
func (h Header) Id() (ids.Id, error) {
	return ids.Hash(h)
}

// ValidationId is hash(h.Validation).
func (h Header) ValidationId() (ids.Id, error) {
	return h.Validation.Id()
}

// Validate checks that every action present in h.Validation is realized in
// h.Keys with the right secret/public status and no forbidden extras
// appear.
func (h Header) Validate() error {
	return h.Keys.Validate(h.Validation)
}

// Set returns a copy of h with Keys down-shifted to the given Permissions.
func (h Header) Set(perms Permissions) (Header, error) {
	ks, err := h.Keys.Set(h.Validation, perms)
	if err != nil {
		return Header{}, err
	}
	return Header{Keys: ks, Validation: h.Validation, Data: h.Data, ProtocolID: h.ProtocolID}, nil
}

// MaxHeader merges two Headers believed to describe the same record: their
// KeySets are joined via MaxKeySet, and Validation/Data/ProtocolID are
// taken from a, falling back to b's Data when a carries none.
func MaxHeader(a, b Header) (Header, error) {
	ks, err := MaxKeySet(a.Keys, b.Keys)
	if err != nil {
		return Header{}, fmt.Errorf("capkey: header max: %w", err)
	}
	out := a
	if len(out.Data) == 0 {
		out.Data = b.Data
	}
	out.Keys = ks
	return out, nil
}

// IsPointer reports whether h is a Pointer record.
func (h Header) IsPointer() bool {
	return h.ProtocolID == ids.Max
}
