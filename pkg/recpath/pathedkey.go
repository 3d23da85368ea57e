package recpath

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/ramp-stack/air-go/pkg/cryptoutil"
	"github.com/ramp-stack/air-go/pkg/ids"
)

// indexOffset is the first index reserved for record slots (PathedKey.Index);
// indices below it are reserved for path-byte derivation.
const indexOffset = 255

// ErrNotDescendant is returned by Derive when the argument is not a
// descendant of the receiver's path.
var ErrNotDescendant = errors.New("recpath: not a descendant path")

// PathedKey pairs a RecordPath with the secret key derived for that path.
// Every non-root PathedKey is recomputed on demand from its parent via
// cryptoutil.DeriveChild; only the root secret is ever remembered or
// transmitted.
type PathedKey struct {
	Path   RecordPath
	Secret *btcec.PrivateKey
}

// NewRoot builds the root PathedKey from a 32-byte root secret. The root
// secret is the single value a user must remember; every other key in the
// tree is derived from it.
func NewRoot(secret *btcec.PrivateKey) PathedKey {
	return PathedKey{Path: RecordPath{}, Secret: secret}
}

// Derive extends the PathedKey to sub, a descendant of Path, by applying one
// non-hardened child derivation per raw byte of each Id in the suffix
// sub[len(p.Path):].
func (p PathedKey) Derive(sub RecordPath) (PathedKey, error) {
	if !sub.HasPrefix(p.Path) {
		return PathedKey{}, fmt.Errorf("recpath: derive %s from %s: %w", sub, p.Path, ErrNotDescendant)
	}
	cur := p
	for _, segment := range sub[len(p.Path):] {
		for _, b := range segment.Bytes() {
			next, err := cur.child(uint32(b))
			if err != nil {
				return PathedKey{}, err
			}
			cur = next
		}
		cur.Path = cur.Path.Join(segment)
	}
	return cur, nil
}

// Index applies one extra non-hardened derivation at index 255+i, reserving
// the sub-range below 255 for path-byte derivation and the range at or
// above 255 for record slots under the same path. Index does not extend
// Path: the result names the same path but a different key slot.
func (p PathedKey) Index(i uint32) (PathedKey, error) {
	return p.child(indexOffset + i)
}

// child performs one BIP32-style non-hardened CKDpriv step, keeping Path
// unchanged.
func (p PathedKey) child(index uint32) (PathedKey, error) {
	if p.Secret == nil {
		return PathedKey{}, errors.New("recpath: nil secret")
	}
	childKey, err := cryptoutil.DeriveChild(p.Secret, index)
	if err != nil {
		return PathedKey{}, err
	}
	return PathedKey{Path: p.Path, Secret: childKey}, nil
}

// DerivedId returns the Id formed from the public projection of Secret; used
// when a derived discover/read/child key must be joined onto a RecordPath
// (the header's own id, not a path-byte index).
func DerivedId(secret *btcec.PrivateKey) ids.Id {
	return ids.HashBytes(secret.PubKey().SerializeCompressed())
}
