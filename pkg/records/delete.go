package records

import (
	"context"
	"fmt"

	"github.com/ramp-stack/air-go/pkg/capkey"
	"github.com/ramp-stack/air-go/pkg/cryptoutil"
	"github.com/ramp-stack/air-go/pkg/recpath"
	"github.com/ramp-stack/air-go/pkg/storagereq"
)

// Delete removes the row at path, authorized by the delete secret cached
// there, and forgets path locally once the server confirms the row is gone.
// It returns true if the row was deleted and false if the server
// legitimately rejected the request because the cached delete key no
// longer matches the row's current one (not an error: the caller simply
// holds a stale delete key, and path is left cached).
func (c *Client) Delete(ctx context.Context, path recpath.RecordPath) (bool, error) {
	header, ok := c.Cache.Get(path)
	if !ok {
		return false, fmt.Errorf("records: delete: unknown path %s", path)
	}
	if header.Keys.Delete == nil {
		return false, fmt.Errorf("records: delete: no delete key cached at %s", path)
	}
	delsk, ok := header.Keys.Delete.SecretKey()
	if !ok {
		return false, fmt.Errorf("records: delete: no delete secret cached at %s", path)
	}
	dsk, ok := header.Keys.Discover.SecretKey()
	if !ok {
		return false, fmt.Errorf("records: delete: no discover secret cached at %s", path)
	}

	query := storagereq.DiscoverQuery{Discover: capkey.Public(dsk.PubKey())}
	innerSigned, err := cryptoutil.SignKeySigned(dsk, query)
	if err != nil {
		return false, fmt.Errorf("records: delete: sign inner: %w", err)
	}
	outerSigned, err := cryptoutil.SignKeySigned(delsk, innerSigned)
	if err != nil {
		return false, fmt.Errorf("records: delete: sign outer: %w", err)
	}

	resp, err := c.send(ctx, storagereq.Request{Kind: storagereq.KindDeletePrivate, DeletePrivate: &outerSigned})
	if err != nil {
		return false, err
	}
	deleteKey := capkey.Public(header.Keys.Delete.PublicKey())
	applied, err := storagereq.ValidateUpdateOrDelete(resp, deleteKey)
	if err != nil {
		return false, err
	}
	if !applied {
		return false, nil
	}
	c.Cache.Remove(path)
	return true, nil
}
