package protocol

import (
	"context"

	"github.com/ramp-stack/air-go/pkg/capkey"
	"github.com/ramp-stack/air-go/pkg/ids"
)

// Pointer is the built-in protocol for cyclic references: a Pointer header
// carries no children, no delete key, and no named keys of its own — its
// entire purpose is to hold the serialized Header it redirects to, letting
// a tree reference an ancestor (or any other already-known record) without
// the cache graph itself becoming cyclic. Pointer is parameterized by the
// target at construction time;
// the zero value is only useful for identifying the protocol (Id,
// Validation), not for building a header.
type Pointer struct {
	// Target is the serialized bytes of the header being pointed to. It is
	// set by NewPointer and copied verbatim into HeaderInfo.Data.
	Target []byte
}

// NewPointer returns a Pointer whose HeaderInfo.Data is target, the
// canonical bytes of the header it redirects to.
func NewPointer(target []byte) Pointer {
	return Pointer{Target: target}
}

// Validation is the empty, minimal schema: no children, no delete, no
// named keys, no extra keys. A Pointer record is a leaf.
func (Pointer) Validation() capkey.Validation {
	return capkey.Validation{}
}

// Id is the reserved sentinel ids.Max rather than a hash of Validation():
// every Pointer, regardless of target, shares the same protocol identity so
// Header.IsPointer can recognize one without a registry lookup.
func (Pointer) Id() (ids.Id, error) {
	return ids.Max, nil
}

// HeaderInfo returns p.Target as Data and contributes no keys.
func (p Pointer) HeaderInfo(ctx context.Context, cache CacheReader, parent capkey.Header, recordKey capkey.Key, index uint32) (HeaderInfo, error) {
	return HeaderInfo{Data: p.Target}, nil
}
