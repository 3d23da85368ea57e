// Package orange implements OrangeName, the public-key identity used to
// address DMs and to identify signers of public records.
package orange

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
)

const prefix = "orange_name:"

// Name is a public-key identity: a party is addressed by the compressed
// secp256k1 public key it presents, displayed as "orange_name:<hex>".
type Name struct {
	pub *btcec.PublicKey
}

// New wraps a public key as an OrangeName.
func New(pub *btcec.PublicKey) Name {
	return Name{pub: pub}
}

// FromSecret derives the OrangeName for the holder of secret.
func FromSecret(secret *btcec.PrivateKey) Name {
	return Name{pub: secret.PubKey()}
}

// PublicKey returns the wrapped public key.
func (n Name) PublicKey() *btcec.PublicKey { return n.pub }

// IsZero reports whether n carries no key.
func (n Name) IsZero() bool { return n.pub == nil }

// Equal compares two names by their public key.
func (n Name) Equal(other Name) bool {
	if n.pub == nil || other.pub == nil {
		return n.pub == nil && other.pub == nil
	}
	return n.pub.IsEqual(other.pub)
}

// String renders "orange_name:<hex-compressed-pubkey>".
func (n Name) String() string {
	if n.pub == nil {
		return prefix
	}
	return prefix + fmt.Sprintf("%x", n.pub.SerializeCompressed())
}

// Parse parses the "orange_name:<hex>" form.
func Parse(s string) (Name, error) {
	rest, ok := strings.CutPrefix(s, prefix)
	if !ok {
		return Name{}, fmt.Errorf("orange: invalid name %q", s)
	}
	raw, err := hexDecode(rest)
	if err != nil {
		return Name{}, fmt.Errorf("orange: invalid name %q: %w", s, err)
	}
	pub, err := btcec.ParsePubKey(raw)
	if err != nil {
		return Name{}, fmt.Errorf("orange: invalid name %q: %w", s, err)
	}
	return Name{pub: pub}, nil
}

// MarshalJSON renders the display form.
func (n Name) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.String())
}

// UnmarshalJSON parses the display form.
func (n *Name) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*n = parsed
	return nil
}
