// Package cache implements the client-side Cache: a map of known Headers
// keyed by RecordPath, the synthetic root entry every tree is derived from,
// and the header-construction walk a Protocol participates in.
package cache

import (
	"context"
	"fmt"
	"sync"

	"github.com/ramp-stack/air-go/pkg/capkey"
	"github.com/ramp-stack/air-go/pkg/cryptoutil"
	"github.com/ramp-stack/air-go/pkg/ids"
	"github.com/ramp-stack/air-go/pkg/protocol"
	"github.com/ramp-stack/air-go/pkg/recpath"
)

// entry pairs a cached Header with the path it was cached under, so Cache
// can find every path a given header id appears at (aliasing via Pointer).
type entry struct {
	path   recpath.RecordPath
	header capkey.Header
}

// Cache holds every Header a Client currently knows about, plus the root
// PathedKey all record-level keys are derived from.
type Cache struct {
	mu      sync.RWMutex
	root    recpath.PathedKey
	entries map[string]entry
}

// New synthesizes the root Cache: a permissive, world-discoverable,
// world-readable Header whose child-discover and child-read keys are
// root.Index(0) and root.Index(1), and whose own discover/read secrets are
// random and never stored remotely.
func New(root recpath.PathedKey) (*Cache, error) {
	rootDiscover, err := cryptoutil.GenerateSecretKey()
	if err != nil {
		return nil, fmt.Errorf("cache: root discover key: %w", err)
	}
	rootRead, err := cryptoutil.GenerateSecretKey()
	if err != nil {
		return nil, fmt.Errorf("cache: root read key: %w", err)
	}
	childDiscover, err := root.Index(0)
	if err != nil {
		return nil, fmt.Errorf("cache: root child-discover: %w", err)
	}
	childRead, err := root.Index(1)
	if err != nil {
		return nil, fmt.Errorf("cache: root child-read: %w", err)
	}

	rootHeader := capkey.Header{
		Keys: capkey.KeySet{
			Discover: capkey.Secret(rootDiscover),
			Read:     capkey.Secret(rootRead),
			Children: &capkey.ChildKeys{
				Discover: capkey.Secret(childDiscover.Secret),
				Read:     capkey.Secret(childRead.Secret),
			},
		},
		Validation: capkey.NewValidation().AnyoneDiscover().AnyoneRead().AllowPointers().Build(),
	}

	c := &Cache{root: root, entries: map[string]entry{}}
	c.entries[recpath.RecordPath{}.String()] = entry{path: recpath.RecordPath{}, header: rootHeader}
	return c, nil
}

// Get returns the cached Header at path, if known.
func (c *Cache) Get(path recpath.RecordPath) (capkey.Header, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[path.String()]
	if !ok {
		return capkey.Header{}, false
	}
	return e.header, true
}

// Remove deletes the cached Header at path, if any.
func (c *Cache) Remove(path recpath.RecordPath) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, path.String())
}

// Cache merges header into the cache at parent.Join(header.Id()), and at
// every other already-known path whose last segment equals header.Id(): a
// record reached through a Pointer is cached at the pointer's path too, so
// a later lookup by either path sees the merged, most-authoritative Header.
func (c *Cache) Cache(parent recpath.RecordPath, header capkey.Header) (recpath.RecordPath, error) {
	id, err := header.Id()
	if err != nil {
		return nil, fmt.Errorf("cache: header id: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	target := parent.Join(id)
	if err := c.mergeLocked(target, header); err != nil {
		return nil, err
	}
	for key, e := range c.entries {
		if key == target.String() {
			continue
		}
		if len(e.path) == 0 {
			continue
		}
		if e.path[len(e.path)-1] != id {
			continue
		}
		if err := c.mergeLocked(e.path, header); err != nil {
			return nil, err
		}
	}
	return target, nil
}

func (c *Cache) mergeLocked(path recpath.RecordPath, header capkey.Header) error {
	key := path.String()
	existing, ok := c.entries[key]
	if !ok {
		c.entries[key] = entry{path: path, header: header}
		return nil
	}
	merged, err := capkey.MaxHeader(existing.header, header)
	if err != nil {
		return fmt.Errorf("cache: merge %s: %w", path, err)
	}
	c.entries[key] = entry{path: path, header: merged}
	return nil
}

// BuildHeader deterministically constructs the Header a child of parent at
// index would have under proto, without caching it. Called twice on the
// same (parent, proto, index, recordKey) it always returns byte-identical
// Headers, which is what lets discover re-derive a claimed header and
// compare ids instead of trusting the wire bytes.
//
//  1. parent must already be cached and must permit proto.Id() as a child.
//  2. parent's child-discover/child-read keys must be secret; the
//     record-level discover/read keys are dc.derive(index)/rc.derive(index).
//  3. proto.HeaderInfo computes Data/Others/Delete from the record-level
//     secret derived at this slot.
//  4. if proto's Validation declares children, fresh child-discover/
//     child-read keys are derived from that same record-level secret.
func (c *Cache) BuildHeader(ctx context.Context, parent recpath.RecordPath, proto protocol.Protocol, index uint32) (capkey.Header, error) {
	parentHeader, ok := c.Get(parent)
	if !ok {
		return capkey.Header{}, fmt.Errorf("cache: unknown parent %s", parent)
	}
	protoID, err := proto.Id()
	if err != nil {
		return capkey.Header{}, fmt.Errorf("cache: protocol id: %w", err)
	}
	if !parentHeader.Validation.IsChild(protoID) {
		return capkey.Header{}, fmt.Errorf("cache: protocol %s is not a permitted child of %s", protoID, parent)
	}
	if parentHeader.Keys.Children == nil {
		return capkey.Header{}, fmt.Errorf("cache: parent %s has no child keys", parent)
	}
	dc, rc := parentHeader.Keys.Children.Discover, parentHeader.Keys.Children.Read
	if !dc.IsSecret() || !rc.IsSecret() {
		return capkey.Header{}, fmt.Errorf("cache: parent %s child keys are not secret", parent)
	}

	discoverKey, err := dc.Derive(index)
	if err != nil {
		return capkey.Header{}, fmt.Errorf("cache: derive discover key: %w", err)
	}
	readKey, err := rc.Derive(index)
	if err != nil {
		return capkey.Header{}, fmt.Errorf("cache: derive read key: %w", err)
	}

	recordKey, err := c.RecordKey(parent, index)
	if err != nil {
		return capkey.Header{}, err
	}

	info, err := proto.HeaderInfo(ctx, c, parentHeader, recordKey, index)
	if err != nil {
		return capkey.Header{}, fmt.Errorf("cache: header info: %w", err)
	}

	ks := capkey.KeySet{Discover: discoverKey, Read: readKey, Delete: info.Delete, Others: info.Others}
	validation := proto.Validation()
	if validation.Children != nil {
		childDiscover, err := recordKey.Derive(0)
		if err != nil {
			return capkey.Header{}, fmt.Errorf("cache: derive child-discover: %w", err)
		}
		childRead, err := recordKey.Derive(1)
		if err != nil {
			return capkey.Header{}, fmt.Errorf("cache: derive child-read: %w", err)
		}
		ks.Children = &capkey.ChildKeys{Discover: childDiscover, Read: childRead}
	}

	header := capkey.Header{Keys: ks, Validation: validation, Data: info.Data, ProtocolID: protoID}
	if err := header.Validate(); err != nil {
		return capkey.Header{}, fmt.Errorf("cache: built header fails validation: %w", err)
	}
	return header, nil
}

// RecordKey derives the record-level secret key for the child of parent at
// index: root.derive(parent).index(index), exactly the key create/discover
// use to compute a record's own discover/read/children keys.
func (c *Cache) RecordKey(parent recpath.RecordPath, index uint32) (capkey.Key, error) {
	parentPathed, err := c.root.Derive(parent)
	if err != nil {
		return capkey.Key{}, fmt.Errorf("cache: derive parent pathed key: %w", err)
	}
	recordPathed, err := parentPathed.Index(index)
	if err != nil {
		return capkey.Key{}, fmt.Errorf("cache: derive record key: %w", err)
	}
	return capkey.Secret(recordPathed.Secret), nil
}

// Header builds the Header for a new child of parent at index using proto
// and caches it, returning both the built Header and the RecordPath it was
// cached under.
func (c *Cache) Header(ctx context.Context, parent recpath.RecordPath, proto protocol.Protocol, index uint32) (capkey.Header, recpath.RecordPath, error) {
	header, err := c.BuildHeader(ctx, parent, proto, index)
	if err != nil {
		return capkey.Header{}, nil, err
	}
	path, err := c.Cache(parent, header)
	if err != nil {
		return capkey.Header{}, nil, err
	}
	cached, _ := c.Get(path)
	return cached, path, nil
}

// DiscoverKeyId returns the content id that names this Header's row in the
// server's discover-key-indexed storage: hash(header.keys.discover.public()).
func DiscoverKeyId(h capkey.Header) (ids.Id, error) {
	return h.Keys.Discover.Id()
}
