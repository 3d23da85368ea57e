package records

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ramp-stack/air-go/pkg/capkey"
	"github.com/ramp-stack/air-go/pkg/cryptoutil"
	"github.com/ramp-stack/air-go/pkg/protocol"
	"github.com/ramp-stack/air-go/pkg/recpath"
	"github.com/ramp-stack/air-go/pkg/storagereq"
)

// Conflict is what Create/CreatePointer return when the server already
// holds a row at the derived discover key: either the existing record, if
// it decrypted and validated cleanly under our read key, or the error that
// decryption/validation failed with.
type Conflict struct {
	Timestamp time.Time
	Record    *capkey.Record
	Err       error
}

// Create builds a new full-authority Header for the child of parent at
// index using proto, caches it, encrypts a Record carrying a copy of that
// Header down-shifted to perms, and submits it as CreatePrivate. A nil
// Conflict means the row was created; a non-nil one means another writer
// already holds that slot.
func (c *Client) Create(ctx context.Context, parent recpath.RecordPath, proto protocol.Protocol, index uint32, perms capkey.Permissions, payload []byte) (recpath.RecordPath, *Conflict, error) {
	header, path, err := c.Cache.Header(ctx, parent, proto, index)
	if err != nil {
		return nil, nil, fmt.Errorf("records: create: %w", err)
	}

	resp, err := c.submitPrivate(ctx, header, perms, payload, storagereq.KindCreatePrivate)
	if err != nil {
		return path, nil, err
	}

	discoverPub := capkey.Public(header.Keys.Discover.PublicKey())
	conflictItem, conflictAt, err := storagereq.ValidateCreatePrivate(resp, discoverPub)
	if err != nil {
		return path, nil, err
	}
	if conflictItem == nil {
		return path, nil, nil
	}

	conflict := &Conflict{}
	if conflictAt != nil {
		conflict.Timestamp = *conflictAt
	}
	rsk, _ := header.Keys.Read.SecretKey()
	plaintext, err := cryptoutil.ECIESDecrypt(rsk, conflictItem.Inner.Payload)
	if err != nil {
		conflict.Err = fmt.Errorf("records: create: decrypt conflicting record: %w", err)
		return path, conflict, nil
	}
	var rec capkey.Record
	if err := json.Unmarshal(plaintext, &rec); err != nil {
		conflict.Err = fmt.Errorf("records: create: parse conflicting record: %w", err)
		return path, conflict, nil
	}
	if err := rec.Header.Validate(); err != nil {
		conflict.Err = fmt.Errorf("records: create: conflicting header: %w", err)
		return path, conflict, nil
	}
	conflict.Record = &rec
	return path, conflict, nil
}

// CreatePointer creates a Pointer child of parent at index whose embedded
// target is target's currently cached Header, letting a later Discover at
// (parent, index) resolve straight to target without the cache graph
// itself becoming cyclic.
func (c *Client) CreatePointer(ctx context.Context, parent recpath.RecordPath, target recpath.RecordPath, index uint32) (recpath.RecordPath, *Conflict, error) {
	targetHeader, ok := c.Cache.Get(target)
	if !ok {
		return nil, nil, fmt.Errorf("records: create pointer: unknown target %s", target)
	}
	if _, err := c.Cache.Cache(parent, targetHeader); err != nil {
		return nil, nil, fmt.Errorf("records: create pointer: cache target under parent: %w", err)
	}
	targetBytes, err := json.Marshal(targetHeader)
	if err != nil {
		return nil, nil, fmt.Errorf("records: create pointer: marshal target header: %w", err)
	}
	return c.Create(ctx, parent, protocol.NewPointer(targetBytes), index, capkey.Permissions{}, nil)
}

// submitPrivate encrypts Record{header.Set(perms), payload} under header's
// read key and submits it as the given request kind, signed by header's
// discover secret.
func (c *Client) submitPrivate(ctx context.Context, header capkey.Header, perms capkey.Permissions, payload []byte, kind storagereq.Kind) (storagereq.Response, error) {
	downshifted, err := header.Set(perms)
	if err != nil {
		return storagereq.Response{}, fmt.Errorf("records: set permissions: %w", err)
	}
	record := capkey.Record{Header: downshifted, Payload: payload}
	recordBytes, err := json.Marshal(record)
	if err != nil {
		return storagereq.Response{}, fmt.Errorf("records: marshal record: %w", err)
	}
	ciphertext, err := cryptoutil.ECIESEncrypt(header.Keys.Read.PublicKey(), recordBytes)
	if err != nil {
		return storagereq.Response{}, fmt.Errorf("records: encrypt record: %w", err)
	}

	var deleteKey *capkey.Key
	if header.Keys.Delete != nil {
		dk := capkey.Public(header.Keys.Delete.PublicKey())
		deleteKey = &dk
	}
	item := storagereq.PrivateItem{
		Discover: capkey.Public(header.Keys.Discover.PublicKey()),
		Delete:   deleteKey,
		Payload:  ciphertext,
	}

	dsk, ok := header.Keys.Discover.SecretKey()
	if !ok {
		return storagereq.Response{}, fmt.Errorf("records: header carries no discover secret")
	}
	signed, err := cryptoutil.SignKeySigned(dsk, item)
	if err != nil {
		return storagereq.Response{}, fmt.Errorf("records: sign item: %w", err)
	}

	req := storagereq.Request{Kind: kind}
	switch kind {
	case storagereq.KindCreatePrivate:
		req.CreatePrivate = &signed
	default:
		return storagereq.Response{}, fmt.Errorf("records: submitPrivate: unsupported kind %q", kind)
	}
	return c.send(ctx, req)
}
