// Package recpath implements RecordPath, the ordered sequence of Ids that
// addresses a record in the Cache, and PathedKey, the (path, secret) pair
// from which every discover/read/child key in the tree is derived.
package recpath

import (
	"strings"

	"github.com/ramp-stack/air-go/pkg/ids"
)

// RecordPath is an ordered sequence of Ids; the empty sequence is the root.
type RecordPath []ids.Id

// Parent drops the last segment. Calling Parent on the root path returns
// the root path unchanged.
func (p RecordPath) Parent() RecordPath {
	if len(p) == 0 {
		return p
	}
	out := make(RecordPath, len(p)-1)
	copy(out, p[:len(p)-1])
	return out
}

// Join appends id to the path, returning a new path.
func (p RecordPath) Join(id ids.Id) RecordPath {
	out := make(RecordPath, len(p)+1)
	copy(out, p)
	out[len(p)] = id
	return out
}

// String renders the path as "/hex/hex/.../hex"; the root renders as "/".
func (p RecordPath) String() string {
	var b strings.Builder
	if len(p) == 0 {
		return "/"
	}
	for _, id := range p {
		b.WriteByte('/')
		b.WriteString(id.String())
	}
	return b.String()
}

// HasPrefix reports whether p starts with prefix.
func (p RecordPath) HasPrefix(prefix RecordPath) bool {
	if len(prefix) > len(p) {
		return false
	}
	for i := range prefix {
		if p[i] != prefix[i] {
			return false
		}
	}
	return true
}

// Equal reports whether two paths name the same sequence of ids.
func (p RecordPath) Equal(other RecordPath) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns an independent copy of p.
func (p RecordPath) Clone() RecordPath {
	out := make(RecordPath, len(p))
	copy(out, p)
	return out
}
