// Package ids implements the 32-byte content identifier used throughout the
// record/capability layer: discover-key rows, header ids, validation ids,
// and cache paths are all built from Id values.
package ids

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// Size is the fixed length of an Id in bytes.
const Size = 32

// Id is a fixed 32-byte identifier. The zero value is 32 zero bytes, not a
// meaningful identifier on its own; use Max/Min/Hash/Random to construct one.
type Id [Size]byte

// Max is reserved as the pointer-protocol sentinel: a header whose
// ProtocolID equals Max is a Pointer record.
var Max = func() Id {
	var id Id
	for i := range id {
		id[i] = 0xff
	}
	return id
}()

// Min is the all-zero Id, reserved for symmetry with Max.
var Min Id

// Hashable is any value with a canonical, deterministic byte encoding. Types
// stored as content-addressed identifiers (Header, Validation, ...)
// implement this so Hash can be applied uniformly.
type Hashable interface {
	CanonicalBytes() ([]byte, error)
}

// Hash derives an Id from the canonical serialization of v. Two calls with
// equal v (by canonical encoding) always produce the same Id — this is what
// lets two independent clients agree on a header id without communicating.
func Hash(v Hashable) (Id, error) {
	b, err := v.CanonicalBytes()
	if err != nil {
		return Id{}, fmt.Errorf("ids: canonicalize: %w", err)
	}
	return HashBytes(b), nil
}

// HashBytes derives an Id directly from an already-canonical byte slice.
func HashBytes(b []byte) Id {
	sum := chainhash.HashB(b)
	var id Id
	copy(id[:], sum)
	return id
}

// Random returns 32 cryptographically random bytes. Used for
// server-allocated public record ids.
func Random() (Id, error) {
	var id Id
	if _, err := rand.Read(id[:]); err != nil {
		return Id{}, fmt.Errorf("ids: random: %w", err)
	}
	return id, nil
}

// String renders the Id as lowercase hex.
func (id Id) String() string {
	return hex.EncodeToString(id[:])
}

// Parse decodes a lowercase-hex Id string.
func Parse(s string) (Id, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Id{}, fmt.Errorf("ids: parse %q: %w", s, err)
	}
	if len(b) != Size {
		return Id{}, fmt.Errorf("ids: parse %q: want %d bytes, got %d", s, Size, len(b))
	}
	var id Id
	copy(id[:], b)
	return id, nil
}

// MarshalJSON renders the Id as a hex string.
func (id Id) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.String())
}

// UnmarshalJSON parses a hex string Id.
func (id *Id) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// MarshalYAML renders the Id as a hex string, mirroring MarshalJSON.
func (id Id) MarshalYAML() (interface{}, error) {
	return id.String(), nil
}

// UnmarshalYAML parses a hex string Id, mirroring UnmarshalJSON.
func (id *Id) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// Bytes returns a defensive copy of the underlying 32 bytes.
func (id Id) Bytes() []byte {
	out := make([]byte, Size)
	copy(out, id[:])
	return out
}

// Ref wraps a bare Id so it can be signed directly (e.g. DeletePublic names
// its target row by signing a Ref rather than the row's full content).
type Ref struct {
	Target Id `json:"target"`
}

// CanonicalBytes implements Hashable.
func (r Ref) CanonicalBytes() ([]byte, error) {
	return json.Marshal(r)
}

// CanonicalJSON marshals v via encoding/json. encoding/json already sorts
// map keys and preserves declared struct field order, which is sufficient
// determinism for content addressing within a single version of this
// module's types.
func CanonicalJSON(v any) ([]byte, error) {
	return json.Marshal(v)
}
