package records

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ramp-stack/air-go/pkg/capkey"
	"github.com/ramp-stack/air-go/pkg/cryptoutil"
	"github.com/ramp-stack/air-go/pkg/recpath"
	"github.com/ramp-stack/air-go/pkg/storagereq"
)

// Discover attempts to resolve the child of parent at index: it reads the
// PrivateItem at parent.children.discover.derive(index), decrypts it with
// parent.children.read.derive(index), and verifies the enclosed Header
// before trusting and caching it. Every failure along that chain — no
// discover secret, no matching row, bad decryption, bad protocol, a
// received header that does not reproduce when rebuilt locally — makes
// Discover return found=false rather than an error, since a given index
// simply being empty or occupied by something unexpected is routine. An
// unknown parent, a key-derivation or caching failure, a resolver or
// transport failure, or an internally inconsistent server reply
// (Malicious) is returned as an error.
func (c *Client) Discover(ctx context.Context, parent recpath.RecordPath, index uint32) (path recpath.RecordPath, at time.Time, found bool, err error) {
	parentHeader, ok := c.Cache.Get(parent)
	if !ok {
		return nil, time.Time{}, false, fmt.Errorf("records: discover: unknown parent %s", parent)
	}
	cc := parentHeader.Keys.Children
	if cc == nil || !cc.Discover.IsSecret() {
		return nil, time.Time{}, false, nil
	}

	discoverKey, err := cc.Discover.Derive(index)
	if err != nil {
		return nil, time.Time{}, false, fmt.Errorf("records: discover: derive discover key: %w", err)
	}
	dsk, _ := discoverKey.SecretKey()

	query := storagereq.DiscoverQuery{Discover: capkey.Public(dsk.PubKey())}
	signedQuery, err := cryptoutil.SignKeySigned(dsk, query)
	if err != nil {
		return nil, time.Time{}, false, fmt.Errorf("records: discover: sign query: %w", err)
	}

	resp, err := c.send(ctx, storagereq.Request{Kind: storagereq.KindReadPrivate, ReadPrivate: &signedQuery})
	if err != nil {
		return nil, time.Time{}, false, err
	}
	item, itemAt, err := storagereq.ValidateReadPrivate(resp, capkey.Public(dsk.PubKey()))
	if err != nil {
		return nil, time.Time{}, false, err
	}
	if item == nil || itemAt == nil {
		return nil, time.Time{}, false, nil
	}

	if !cc.Read.IsSecret() {
		return nil, time.Time{}, false, nil
	}
	readKey, err := cc.Read.Derive(index)
	if err != nil {
		return nil, time.Time{}, false, fmt.Errorf("records: discover: derive read key: %w", err)
	}
	rsk, _ := readKey.SecretKey()

	plaintext, err := cryptoutil.ECIESDecrypt(rsk, item.Inner.Payload)
	if err != nil {
		return nil, time.Time{}, false, nil
	}
	var record capkey.Record
	unmarshalErr := json.Unmarshal(plaintext, &record)
	cryptoutil.ZeroizeBytes(plaintext)
	if unmarshalErr != nil {
		return nil, time.Time{}, false, nil
	}
	if !parentHeader.Validation.IsChild(record.Header.ProtocolID) {
		return nil, time.Time{}, false, nil
	}
	if err := record.Header.Validate(); err != nil {
		return nil, time.Time{}, false, nil
	}

	if record.Header.IsPointer() {
		var target capkey.Header
		if err := json.Unmarshal(record.Header.Data, &target); err != nil {
			return nil, time.Time{}, false, nil
		}
		if target.IsPointer() {
			return nil, time.Time{}, false, nil
		}
		if !parentHeader.Validation.IsChild(target.ProtocolID) {
			return nil, time.Time{}, false, nil
		}
		if err := target.Validate(); err != nil {
			return nil, time.Time{}, false, nil
		}
		cachedPath, err := c.Cache.Cache(parent, target)
		if err != nil {
			return nil, time.Time{}, false, fmt.Errorf("records: discover: cache pointer target: %w", err)
		}
		return cachedPath, *itemAt, true, nil
	}

	proto, ok := c.Registry.Lookup(record.Header.ProtocolID)
	if !ok {
		return nil, time.Time{}, false, nil
	}
	built, err := c.Cache.BuildHeader(ctx, parent, proto, index)
	if err != nil {
		return nil, time.Time{}, false, nil
	}
	builtID, err := built.Id()
	if err != nil {
		return nil, time.Time{}, false, fmt.Errorf("records: discover: built header id: %w", err)
	}
	receivedID, err := record.Header.Id()
	if err != nil {
		return nil, time.Time{}, false, nil
	}
	if builtID != receivedID {
		return nil, time.Time{}, false, nil
	}
	cachedPath, err := c.Cache.Cache(parent, built)
	if err != nil {
		return nil, time.Time{}, false, fmt.Errorf("records: discover: cache header: %w", err)
	}
	return cachedPath, *itemAt, true, nil
}
