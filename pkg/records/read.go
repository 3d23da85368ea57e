package records

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ramp-stack/air-go/pkg/capkey"
	"github.com/ramp-stack/air-go/pkg/cryptoutil"
	"github.com/ramp-stack/air-go/pkg/recpath"
	"github.com/ramp-stack/air-go/pkg/rorerr"
	"github.com/ramp-stack/air-go/pkg/storagereq"
)

// Read fetches and decrypts the Record currently stored at path, using the
// discover/read secrets already cached there. It does not mutate path's
// cached Header; a Record whose embedded Header hashes to a different id
// than the one cached at path is rejected as Malicious.
func (c *Client) Read(ctx context.Context, path recpath.RecordPath) (*capkey.Record, time.Time, error) {
	header, ok := c.Cache.Get(path)
	if !ok {
		return nil, time.Time{}, fmt.Errorf("records: read: unknown path %s", path)
	}
	dsk, ok := header.Keys.Discover.SecretKey()
	if !ok {
		return nil, time.Time{}, fmt.Errorf("records: read: no discover secret cached at %s", path)
	}
	rsk, ok := header.Keys.Read.SecretKey()
	if !ok {
		return nil, time.Time{}, fmt.Errorf("records: read: no read secret cached at %s", path)
	}

	query := storagereq.DiscoverQuery{Discover: capkey.Public(dsk.PubKey())}
	signed, err := cryptoutil.SignKeySigned(dsk, query)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("records: read: sign query: %w", err)
	}
	resp, err := c.send(ctx, storagereq.Request{Kind: storagereq.KindReadPrivate, ReadPrivate: &signed})
	if err != nil {
		return nil, time.Time{}, err
	}
	item, at, err := storagereq.ValidateReadPrivate(resp, capkey.Public(dsk.PubKey()))
	if err != nil {
		return nil, time.Time{}, err
	}
	if item == nil {
		return nil, time.Time{}, rorerr.Recoverable("records.Client.Read", rorerr.KindValidation, rorerr.ErrNotFound)
	}

	plaintext, err := cryptoutil.ECIESDecrypt(rsk, item.Inner.Payload)
	if err != nil {
		return nil, time.Time{}, rorerr.Recoverable("records.Client.Read", rorerr.KindValidation, fmt.Errorf("decrypt record: %w", err))
	}
	var record capkey.Record
	unmarshalErr := json.Unmarshal(plaintext, &record)
	cryptoutil.ZeroizeBytes(plaintext)
	if unmarshalErr != nil {
		return nil, time.Time{}, rorerr.Recoverable("records.Client.Read", rorerr.KindValidation, fmt.Errorf("parse record: %w", unmarshalErr))
	}

	wantID, err := header.Id()
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("records: read: cached header id: %w", err)
	}
	gotID, err := record.Header.Id()
	if err != nil {
		return nil, time.Time{}, rorerr.Recoverable("records.Client.Read", rorerr.KindValidation, fmt.Errorf("record header id: %w", err))
	}
	if gotID != wantID {
		return nil, time.Time{}, rorerr.Malicious("records.Client.Read", "server returned a record for a different header than the one cached at %s", path)
	}

	var readAt time.Time
	if at != nil {
		readAt = *at
	}
	return &record, readAt, nil
}
