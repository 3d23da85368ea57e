// Package capkey implements the capability-key layer: Key, Permissions,
// Validation, KeySet, Header, and Record, with the max/set/validate laws
// that govern how capabilities compose and down-shift.
package capkey

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/ramp-stack/air-go/pkg/cryptoutil"
	"github.com/ramp-stack/air-go/pkg/ids"
)

// Key is either a secret key or a public-only key. Equality and hashing
// (CanonicalBytes) operate on the public projection only, so a
// secret-holding Key and a public-only Key compare equal whenever they
// describe the same keypair.
type Key struct {
	secret *btcec.PrivateKey
	public *btcec.PublicKey
}

// Secret wraps a secret key. The Key IsSecret and exposes both the secret
// and its public projection.
func Secret(sk *btcec.PrivateKey) Key {
	return Key{secret: sk, public: sk.PubKey()}
}

// Public wraps a public-only key.
func Public(pk *btcec.PublicKey) Key {
	return Key{public: pk}
}

// IsSecret reports whether k carries the secret half of the keypair.
func (k Key) IsSecret() bool { return k.secret != nil }

// IsZero reports whether k carries no key material at all.
func (k Key) IsZero() bool { return k.public == nil }

// PublicKey returns the public projection, or nil if k is the zero Key.
func (k Key) PublicKey() *btcec.PublicKey { return k.public }

// SecretKey returns the secret key and true if k IsSecret.
func (k Key) SecretKey() (*btcec.PrivateKey, bool) {
	if k.secret == nil {
		return nil, false
	}
	return k.secret, true
}

// Id derives an Id from the public projection, used to address a record
// (discover) or name a cache path segment (child-discover/read ids).
func (k Key) Id() (ids.Id, error) {
	if k.public == nil {
		return ids.Id{}, errors.New("capkey: zero key has no id")
	}
	return ids.HashBytes(k.public.SerializeCompressed()), nil
}

// Equal compares the public projection of two keys.
func (k Key) Equal(other Key) bool {
	if k.public == nil || other.public == nil {
		return k.public == nil && other.public == nil
	}
	return k.public.IsEqual(other.public)
}

// Set downgrades k to public unless wantSecret is true and k already
// IsSecret; requesting a secret from a public-only Key is an error.
func (k Key) Set(wantSecret bool) (Key, error) {
	if wantSecret {
		if !k.IsSecret() {
			return Key{}, errors.New("capkey: cannot upgrade public key to secret")
		}
		return k, nil
	}
	if k.public == nil {
		return Key{}, errors.New("capkey: zero key")
	}
	return Public(k.public), nil
}

// Max merges two Keys describing the same keypair, preferring the secret
// side so merging a locally-held header with a freshly received one never
// loses authority already present.
func Max(a, b Key) (Key, error) {
	if !a.Equal(b) {
		return Key{}, fmt.Errorf("capkey: max: keys are not equal")
	}
	if a.IsSecret() {
		return a, nil
	}
	if b.IsSecret() {
		return b, nil
	}
	return a, nil
}

// Derive applies one non-hardened child derivation at index to a secret Key,
// used to turn a KeySet's child-discover/child-read key into the
// record-level discover/read key for a particular index.
func (k Key) Derive(index uint32) (Key, error) {
	sk, ok := k.SecretKey()
	if !ok {
		return Key{}, errors.New("capkey: derive requires a secret key")
	}
	child, err := cryptoutil.DeriveChild(sk, index)
	if err != nil {
		return Key{}, err
	}
	return Secret(child), nil
}

// CanonicalBytes renders the public projection as the bytes used for
// content-addressing (Header.id). It is intentionally blind
// to whether the key is secret or public: a header's id must not change
// just because a holder's Set(perms) downgraded some of its keys.
func (k Key) CanonicalBytes() []byte {
	if k.public == nil {
		return nil
	}
	return k.public.SerializeCompressed()
}

// canonicalKeyHex is the JSON-friendly mirror of a Key's public projection,
// used when building a canonicalizable struct for Id.Hash.
type canonicalKeyHex struct {
	Pub string `json:"pub,omitempty"`
}

func (k Key) canonicalHex() canonicalKeyHex {
	b := k.CanonicalBytes()
	if b == nil {
		return canonicalKeyHex{}
	}
	return canonicalKeyHex{Pub: fmt.Sprintf("%x", b)}
}

// wireKeyJSON is the wire (not content-addressed) form of a Key: it
// round-trips whichever half the sender chose to include.
type wireKeyJSON struct {
	Secret string `json:"secret,omitempty"`
	Public string `json:"public,omitempty"`
}

// MarshalJSON implements the wire encoding used by Record/Header transport
// and DM sharing.
func (k Key) MarshalJSON() ([]byte, error) {
	if k.IsZero() {
		return json.Marshal(wireKeyJSON{})
	}
	if sk, ok := k.SecretKey(); ok {
		return json.Marshal(wireKeyJSON{Secret: hex.EncodeToString(sk.Serialize())})
	}
	return json.Marshal(wireKeyJSON{Public: hex.EncodeToString(k.public.SerializeCompressed())})
}

// UnmarshalJSON implements the wire decoding counterpart to MarshalJSON.
func (k *Key) UnmarshalJSON(b []byte) error {
	var w wireKeyJSON
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	switch {
	case w.Secret != "":
		raw, err := hex.DecodeString(w.Secret)
		if err != nil {
			return fmt.Errorf("capkey: decode secret key: %w", err)
		}
		sk, pub := btcec.PrivKeyFromBytes(raw)
		_ = pub
		*k = Secret(sk)
		return nil
	case w.Public != "":
		raw, err := hex.DecodeString(w.Public)
		if err != nil {
			return fmt.Errorf("capkey: decode public key: %w", err)
		}
		pk, err := btcec.ParsePubKey(raw)
		if err != nil {
			return fmt.Errorf("capkey: parse public key: %w", err)
		}
		*k = Public(pk)
		return nil
	default:
		*k = Key{}
		return nil
	}
}
