package capkey

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// ChildKeys holds the child-discover and child-read keys from which a
// protocol derives per-index children's discover/read keys.
type ChildKeys struct {
	Discover Key `json:"discover"`
	Read     Key `json:"read"`
}

// KeySet is the bundle of keys a Header carries. Discover and Read must
// always be secret: the holder of a KeySet is always at least a reader.
type KeySet struct {
	Discover Key            `json:"discover"`
	Read     Key            `json:"read"`
	Children *ChildKeys     `json:"children,omitempty"`
	Delete   *Key           `json:"delete,omitempty"`
	Others   map[string]Key `json:"others,omitempty"`
}

// ErrKeySetInvariant is returned when a KeySet violates its structural
// invariants (Discover/Read must be secret).
var ErrKeySetInvariant = errors.New("capkey: keyset invariant violated")

// checkInvariants verifies Discover and Read are secret.
func (ks KeySet) checkInvariants() error {
	if !ks.Discover.IsSecret() {
		return fmt.Errorf("%w: discover must be secret", ErrKeySetInvariant)
	}
	if !ks.Read.IsSecret() {
		return fmt.Errorf("%w: read must be secret", ErrKeySetInvariant)
	}
	return nil
}

// MaxKeySet merges two KeySets describing the same header, preferring the
// secret side of every component present in either.
func MaxKeySet(a, b KeySet) (KeySet, error) {
	out := KeySet{}
	var err error
	if out.Discover, err = Max(a.Discover, b.Discover); err != nil {
		return KeySet{}, err
	}
	if out.Read, err = Max(a.Read, b.Read); err != nil {
		return KeySet{}, err
	}
	if a.Children != nil || b.Children != nil {
		out.Children = &ChildKeys{}
		ac, bc := ChildKeys{}, ChildKeys{}
		if a.Children != nil {
			ac = *a.Children
		}
		if b.Children != nil {
			bc = *b.Children
		}
		d, err := maxKey(ac.Discover, bc.Discover)
		if err != nil {
			return KeySet{}, err
		}
		r, err := maxKey(ac.Read, bc.Read)
		if err != nil {
			return KeySet{}, err
		}
		out.Children.Discover = d
		out.Children.Read = r
	}
	if a.Delete != nil || b.Delete != nil {
		var ad, bd Key
		if a.Delete != nil {
			ad = *a.Delete
		}
		if b.Delete != nil {
			bd = *b.Delete
		}
		d, err := maxKey(ad, bd)
		if err != nil {
			return KeySet{}, err
		}
		out.Delete = &d
	}
	out.Others = map[string]Key{}
	for name, k := range a.Others {
		out.Others[name] = k
	}
	for name, k := range b.Others {
		if existing, ok := out.Others[name]; ok {
			merged, err := maxKey(existing, k)
			if err != nil {
				return KeySet{}, err
			}
			out.Others[name] = merged
		} else {
			out.Others[name] = k
		}
	}
	return out, nil
}

// maxKey merges two Keys that may both be the zero Key (absent).
func maxKey(a, b Key) (Key, error) {
	if a.IsZero() {
		return b, nil
	}
	if b.IsZero() {
		return a, nil
	}
	return Max(a, b)
}

// Validate checks that every action present in Validation is realized in
// KeySet with the right secret/public status and no forbidden extras
// appear.
func (ks KeySet) Validate(v Validation) error {
	if err := ks.checkInvariants(); err != nil {
		return err
	}
	if v.Children != nil {
		if ks.Children == nil {
			return fmt.Errorf("%w: validation requires children keys", ErrKeySetInvariant)
		}
		if !v.Children.AnyoneDiscover && !ks.Children.Discover.IsSecret() {
			return fmt.Errorf("%w: child-discover must be secret", ErrKeySetInvariant)
		}
		if !v.Children.AnyoneRead && !ks.Children.Read.IsSecret() {
			return fmt.Errorf("%w: child-read must be secret", ErrKeySetInvariant)
		}
	} else if ks.Children != nil {
		return fmt.Errorf("%w: validation forbids children keys", ErrKeySetInvariant)
	}

	if v.Delete != nil {
		if ks.Delete == nil {
			return fmt.Errorf("%w: validation requires a delete key", ErrKeySetInvariant)
		}
		if *v.Delete && !ks.Delete.IsSecret() {
			return fmt.Errorf("%w: delete key must be secret", ErrKeySetInvariant)
		}
	} else if ks.Delete != nil {
		return fmt.Errorf("%w: validation forbids a delete key", ErrKeySetInvariant)
	}

	for name, wantSecret := range v.KeyStates {
		k, ok := ks.Others[name]
		if !ok || k.IsZero() {
			return fmt.Errorf("%w: missing required key %q", ErrKeySetInvariant, name)
		}
		if wantSecret && !k.IsSecret() {
			return fmt.Errorf("%w: key %q must be secret", ErrKeySetInvariant, name)
		}
	}
	if !v.AllowExtraKeys {
		for name := range ks.Others {
			if _, declared := v.KeyStates[name]; !declared {
				return fmt.Errorf("%w: key %q not declared by validation", ErrKeySetInvariant, name)
			}
		}
	}
	return nil
}

// Set applies Permissions to ks, producing a down-shifted copy. Presence of
// optional components in p must match v's shape; components requested at
// secret strength are only honoured if ks already carries the secret.
func (ks KeySet) Set(v Validation, p Permissions) (KeySet, error) {
	if !p.MatchesShape(v) {
		return KeySet{}, fmt.Errorf("%w: permissions shape does not match validation", ErrKeySetInvariant)
	}
	out := KeySet{}
	var err error
	if out.Discover, err = ks.Discover.Set(true); err != nil {
		return KeySet{}, err
	}
	if out.Read, err = ks.Read.Set(true); err != nil {
		return KeySet{}, err
	}
	if p.Children != nil && ks.Children != nil {
		out.Children = &ChildKeys{}
		if out.Children.Discover, err = ks.Children.Discover.Set(p.Children.Discover); err != nil {
			return KeySet{}, err
		}
		if out.Children.Read, err = ks.Children.Read.Set(p.Children.Read); err != nil {
			return KeySet{}, err
		}
	}
	if p.Delete != nil && ks.Delete != nil {
		dk, err := ks.Delete.Set(*p.Delete)
		if err != nil {
			return KeySet{}, err
		}
		out.Delete = &dk
	}
	if len(p.Keys) > 0 {
		out.Others = map[string]Key{}
		for name, wantSecret := range p.Keys {
			k, ok := ks.Others[name]
			if !ok {
				continue
			}
			sk, err := k.Set(wantSecret)
			if err != nil {
				return KeySet{}, err
			}
			out.Others[name] = sk
		}
	}
	if err := out.Validate(v); err != nil {
		return KeySet{}, err
	}
	return out, nil
}

type canonicalKeySet struct {
	Discover canonicalKeyHex            `json:"discover"`
	Read     canonicalKeyHex            `json:"read"`
	ChildD   *canonicalKeyHex           `json:"child_discover,omitempty"`
	ChildR   *canonicalKeyHex           `json:"child_read,omitempty"`
	Delete   *canonicalKeyHex           `json:"delete,omitempty"`
	Others   map[string]canonicalKeyHex `json:"others,omitempty"`
}

func (ks KeySet) canonical() canonicalKeySet {
	c := canonicalKeySet{
		Discover: ks.Discover.canonicalHex(),
		Read:     ks.Read.canonicalHex(),
	}
	if ks.Children != nil {
		d := ks.Children.Discover.canonicalHex()
		r := ks.Children.Read.canonicalHex()
		c.ChildD = &d
		c.ChildR = &r
	}
	if ks.Delete != nil {
		d := ks.Delete.canonicalHex()
		c.Delete = &d
	}
	if len(ks.Others) > 0 {
		c.Others = map[string]canonicalKeyHex{}
		for name, k := range ks.Others {
			c.Others[name] = k.canonicalHex()
		}
	}
	return c
}

// CanonicalBytes implements ids.Hashable, serializing only the public
// projection of every key.
func (ks KeySet) CanonicalBytes() ([]byte, error) {
	return json.Marshal(ks.canonical())
}

// sortedOtherNames returns the Others map's keys in sorted order, used by
// callers that need deterministic iteration (e.g. logging).
func (ks KeySet) sortedOtherNames() []string {
	names := make([]string, 0, len(ks.Others))
	for name := range ks.Others {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
