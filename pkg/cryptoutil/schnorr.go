package cryptoutil

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
)

// Signature is a BIP340 Schnorr signature over secp256k1.
type Signature struct {
	sig *schnorr.Signature
}

// Sign produces a Schnorr signature over a 32-byte hash.
func Sign(priv *btcec.PrivateKey, hash [32]byte) (Signature, error) {
	if priv == nil {
		return Signature{}, errors.New("cryptoutil: nil signing key")
	}
	sig, err := schnorr.Sign(priv, hash[:])
	if err != nil {
		return Signature{}, fmt.Errorf("cryptoutil: schnorr sign: %w", err)
	}
	return Signature{sig: sig}, nil
}

// Verify checks a Schnorr signature over a 32-byte hash against pub.
func Verify(pub *btcec.PublicKey, hash [32]byte, sig Signature) bool {
	if pub == nil || sig.sig == nil {
		return false
	}
	return sig.sig.Verify(hash[:], pub)
}

// Bytes returns the 64-byte serialized signature.
func (s Signature) Bytes() []byte {
	if s.sig == nil {
		return nil
	}
	return s.sig.Serialize()
}

// ParseSignature parses a 64-byte serialized Schnorr signature.
func ParseSignature(b []byte) (Signature, error) {
	sig, err := schnorr.ParseSignature(b)
	if err != nil {
		return Signature{}, fmt.Errorf("cryptoutil: parse signature: %w", err)
	}
	return Signature{sig: sig}, nil
}

// IsZero reports whether s carries no signature.
func (s Signature) IsZero() bool { return s.sig == nil }

// MarshalJSON renders the signature as a hex string.
func (s Signature) MarshalJSON() ([]byte, error) {
	return marshalHexBytes(s.Bytes())
}

// UnmarshalJSON parses a hex-string signature.
func (s *Signature) UnmarshalJSON(b []byte) error {
	raw, err := unmarshalHexBytes(b)
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		*s = Signature{}
		return nil
	}
	parsed, err := ParseSignature(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
