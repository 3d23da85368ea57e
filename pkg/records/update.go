package records

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ramp-stack/air-go/pkg/capkey"
	"github.com/ramp-stack/air-go/pkg/cryptoutil"
	"github.com/ramp-stack/air-go/pkg/recpath"
	"github.com/ramp-stack/air-go/pkg/storagereq"
)

// Update replaces the Record stored at path with Record{header.Set(perms),
// payload}, authorized by the delete secret cached at path: the server
// verifies an outer signature from the delete key wrapping an inner
// signature from the discover key. The row's identity (its discover key)
// is unchanged; only the encrypted content and the delete-key identity
// going forward move to whatever is currently cached. It returns true if
// the server applied the update and false if it legitimately rejected it
// because the cached delete key no longer matches the row's current one
// (not an error: the caller simply holds a stale delete key).
func (c *Client) Update(ctx context.Context, path recpath.RecordPath, perms capkey.Permissions, payload []byte) (bool, error) {
	header, ok := c.Cache.Get(path)
	if !ok {
		return false, fmt.Errorf("records: update: unknown path %s", path)
	}
	if header.Keys.Delete == nil {
		return false, fmt.Errorf("records: update: no delete key cached at %s", path)
	}
	delsk, ok := header.Keys.Delete.SecretKey()
	if !ok {
		return false, fmt.Errorf("records: update: no delete secret cached at %s", path)
	}

	downshifted, err := header.Set(perms)
	if err != nil {
		return false, fmt.Errorf("records: update: set permissions: %w", err)
	}
	recordBytes, err := json.Marshal(capkey.Record{Header: downshifted, Payload: payload})
	if err != nil {
		return false, fmt.Errorf("records: update: marshal record: %w", err)
	}
	ciphertext, err := cryptoutil.ECIESEncrypt(header.Keys.Read.PublicKey(), recordBytes)
	if err != nil {
		return false, fmt.Errorf("records: update: encrypt record: %w", err)
	}

	deleteKey := capkey.Public(header.Keys.Delete.PublicKey())
	item := storagereq.PrivateItem{
		Discover: capkey.Public(header.Keys.Discover.PublicKey()),
		Delete:   &deleteKey,
		Payload:  ciphertext,
	}
	dsk, ok := header.Keys.Discover.SecretKey()
	if !ok {
		return false, fmt.Errorf("records: update: no discover secret cached at %s", path)
	}
	innerSigned, err := cryptoutil.SignKeySigned(dsk, item)
	if err != nil {
		return false, fmt.Errorf("records: update: sign inner: %w", err)
	}
	outerSigned, err := cryptoutil.SignKeySigned(delsk, innerSigned)
	if err != nil {
		return false, fmt.Errorf("records: update: sign outer: %w", err)
	}

	resp, err := c.send(ctx, storagereq.Request{Kind: storagereq.KindUpdatePrivate, UpdatePrivate: &outerSigned})
	if err != nil {
		return false, err
	}
	applied, err := storagereq.ValidateUpdateOrDelete(resp, deleteKey)
	if err != nil {
		return false, err
	}
	return applied, nil
}
