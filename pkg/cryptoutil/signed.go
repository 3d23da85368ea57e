package cryptoutil

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/ramp-stack/air-go/pkg/ids"
)

// KeySigned is (pub, sig, inner) where sig covers hash(inner) under pub's
// secret key.
type KeySigned[T ids.Hashable] struct {
	Pub   *btcec.PublicKey
	Sig   Signature
	Inner T
}

// SignKeySigned produces a KeySigned wrapping inner, signed by priv.
func SignKeySigned[T ids.Hashable](priv *btcec.PrivateKey, inner T) (KeySigned[T], error) {
	if priv == nil {
		return KeySigned[T]{}, fmt.Errorf("cryptoutil: nil signing key")
	}
	h, err := ids.Hash(inner)
	if err != nil {
		return KeySigned[T]{}, err
	}
	sig, err := Sign(priv, [32]byte(h))
	if err != nil {
		return KeySigned[T]{}, err
	}
	return KeySigned[T]{Pub: priv.PubKey(), Sig: sig, Inner: inner}, nil
}

// Verify reports whether Sig is a valid signature over hash(Inner) by Pub.
func (ks KeySigned[T]) Verify() bool {
	h, err := ids.Hash(ks.Inner)
	if err != nil {
		return false
	}
	return Verify(ks.Pub, [32]byte(h), ks.Sig)
}

// Signer returns the public key that produced Sig.
func (ks KeySigned[T]) Signer() *btcec.PublicKey { return ks.Pub }

// CanonicalBytes implements ids.Hashable, letting a KeySigned[T] itself be
// wrapped and signed again, as an outer signature wraps an inner one.
func (ks KeySigned[T]) CanonicalBytes() ([]byte, error) {
	return ks.MarshalJSON()
}

type wireKeySigned[T any] struct {
	Pub   string    `json:"pub"`
	Sig   Signature `json:"sig"`
	Inner T         `json:"inner"`
}

// MarshalJSON implements the wire encoding for KeySigned.
func (ks KeySigned[T]) MarshalJSON() ([]byte, error) {
	pub := ""
	if ks.Pub != nil {
		pub = hex.EncodeToString(ks.Pub.SerializeCompressed())
	}
	return json.Marshal(wireKeySigned[T]{Pub: pub, Sig: ks.Sig, Inner: ks.Inner})
}

// UnmarshalJSON implements the wire decoding counterpart to MarshalJSON.
func (ks *KeySigned[T]) UnmarshalJSON(b []byte) error {
	var w wireKeySigned[T]
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	if w.Pub != "" {
		raw, err := hex.DecodeString(w.Pub)
		if err != nil {
			return fmt.Errorf("cryptoutil: decode signer pubkey: %w", err)
		}
		pub, err := btcec.ParsePubKey(raw)
		if err != nil {
			return fmt.Errorf("cryptoutil: parse signer pubkey: %w", err)
		}
		ks.Pub = pub
	}
	ks.Sig = w.Sig
	ks.Inner = w.Inner
	return nil
}

// DidSigned is (name, sig, inner): a signature produced by the signing key
// associated with a resolvable identity name rather than a bare public key.
// Verification requires a name→key lookup through a resolver and so lives
// in storagereq.VerifyDidSigned; DidSigned itself is just the wire shape.
type DidSigned[T ids.Hashable] struct {
	Name  string    `json:"name"`
	Sig   Signature `json:"sig"`
	Inner T         `json:"inner"`
}

// Hash returns hash(Inner), the value Sig is expected to cover.
func (ds DidSigned[T]) Hash() (ids.Id, error) {
	return ids.Hash(ds.Inner)
}

// CanonicalBytes implements ids.Hashable, letting a DidSigned[T] itself be
// wrapped and signed again.
func (ds DidSigned[T]) CanonicalBytes() ([]byte, error) {
	return json.Marshal(ds)
}
