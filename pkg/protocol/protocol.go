// Package protocol defines the Protocol extension point Client.discover/
// Client.create consult to build a child Header's Data/others/delete keys,
// plus the built-in Pointer protocol and a Registry clients use to look a
// protocol id back up to an implementation.
package protocol

import (
	"context"

	"github.com/ramp-stack/air-go/pkg/capkey"
	"github.com/ramp-stack/air-go/pkg/ids"
	"github.com/ramp-stack/air-go/pkg/recpath"
)

// CacheReader is the narrow slice of Cache a Protocol implementation may
// consult while computing a child header — just enough to look up an
// already-cached Header by path, never enough to mutate the cache. Defined
// here (rather than taking *cache.Cache directly) so this package does not
// import pkg/cache, which itself must import pkg/protocol for the Protocol
// type that Cache.Header accepts.
type CacheReader interface {
	Get(path recpath.RecordPath) (capkey.Header, bool)
}

// HeaderInfo is what a Protocol contributes to a child Header under
// construction: the raw bytes that become Header.Data, any named "others"
// keys beyond discover/read/children, and an optional delete key.
type HeaderInfo struct {
	Data   []byte
	Others map[string]capkey.Key
	Delete *capkey.Key
}

// Protocol is implemented by every record type a Client can create: it
// names a Validation schema (whose Id is this Protocol's identity) and
// knows how to compute the HeaderInfo for a new child at a given index.
type Protocol interface {
	// Validation is the schema this protocol stamps onto every Header it
	// produces; it is constant for a given protocol implementation.
	Validation() capkey.Validation

	// Id is hash(Validation()) (the built-in Pointer uses the reserved
	// ids.Max instead); it is what Header.ProtocolID names and what a
	// Registry looks protocols up by.
	Id() (ids.Id, error)

	// HeaderInfo computes the protocol-specific portion of a new child
	// header. cache lets a protocol consult already-known records (e.g. a
	// protocol that embeds a sibling's current header); parent is the
	// Header the child is being created under; recordKey is the
	// record-level secret derived for this child slot; index is the slot
	// index requested.
	HeaderInfo(ctx context.Context, cache CacheReader, parent capkey.Header, recordKey capkey.Key, index uint32) (HeaderInfo, error)
}

// Registry is an ordered lookup table from protocol id to implementation,
// consulted by Client.discover to know how to interpret an unfamiliar
// child header.
type Registry struct {
	order []Protocol
	byID  map[ids.Id]Protocol
}

// NewRegistry returns a Registry holding only the built-in Pointer
// protocol, since every Cache must be able to interpret pointers
// regardless of what application protocols it also registers.
func NewRegistry() (*Registry, error) {
	r := &Registry{byID: map[ids.Id]Protocol{}}
	if err := r.Register(Pointer{}); err != nil {
		return nil, err
	}
	return r, nil
}

// Register adds p, keyed by p.Id(). Registering two protocols with the same
// Id is an error: a registry must resolve an id unambiguously.
func (r *Registry) Register(p Protocol) error {
	id, err := p.Id()
	if err != nil {
		return err
	}
	if _, exists := r.byID[id]; exists {
		return &DuplicateError{Id: id}
	}
	r.byID[id] = p
	r.order = append(r.order, p)
	return nil
}

// Lookup returns the Protocol registered under id, if any.
func (r *Registry) Lookup(id ids.Id) (Protocol, bool) {
	p, ok := r.byID[id]
	return p, ok
}

// All returns the registered protocols in registration order.
func (r *Registry) All() []Protocol {
	out := make([]Protocol, len(r.order))
	copy(out, r.order)
	return out
}

// DuplicateError is returned by Register when a protocol id collides with
// one already registered.
type DuplicateError struct {
	Id ids.Id
}

func (e *DuplicateError) Error() string {
	return "protocol: duplicate registration for id " + e.Id.String()
}
