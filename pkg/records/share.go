package records

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ramp-stack/air-go/pkg/capkey"
	"github.com/ramp-stack/air-go/pkg/cryptoutil"
	"github.com/ramp-stack/air-go/pkg/ids"
	"github.com/ramp-stack/air-go/pkg/orange"
	"github.com/ramp-stack/air-go/pkg/recpath"
	"github.com/ramp-stack/air-go/pkg/resolver"
	"github.com/ramp-stack/air-go/pkg/storagereq"
)

// SharedHeader is the DM payload Share sends and Receive parses: a Header
// down-shifted to whatever capability the sender chose to hand over. It is
// wrapped in a DidSigned envelope (see Share/Receive) so the recipient can
// name and verify the sender, not just the header's own content.
type SharedHeader struct {
	Header capkey.Header `json:"header"`
}

// CanonicalBytes implements ids.Hashable, letting SharedHeader be the inner
// value of a DidSigned envelope.
func (sh SharedHeader) CanonicalBytes() ([]byte, error) {
	return json.Marshal(sh)
}

// Received is one entry Receive hands back: the sender that shared a
// header, and the synthetic path it was cached under.
type Received struct {
	Sender orange.Name
	Path   recpath.RecordPath
}

// Share down-shifts the Header cached at path to perms, signs it as this
// Client's identity so the recipient can name the sender, and delivers it
// to recipient as an encrypted DM, addressed to recipient's
// resolver.EasyAccessComTag key. The recipient learns of the shared Header
// only by calling Receive; Share does not address where in the recipient's
// own tree it should be filed, since that is the recipient's decision.
func (c *Client) Share(ctx context.Context, path recpath.RecordPath, perms capkey.Permissions, recipient orange.Name) error {
	header, ok := c.Cache.Get(path)
	if !ok {
		return fmt.Errorf("records: share: unknown path %s", path)
	}
	shared, err := header.Set(perms)
	if err != nil {
		return fmt.Errorf("records: share: set permissions: %w", err)
	}
	signed, err := storagereq.SignDidSigned(ctx, c.Resolver, c.Secret, c.Name(), SharedHeader{Header: shared})
	if err != nil {
		return fmt.Errorf("records: share: sign shared header: %w", err)
	}
	payload, err := json.Marshal(signed)
	if err != nil {
		return fmt.Errorf("records: share: marshal signed header: %w", err)
	}
	recipientKey, err := c.Resolver.Key(ctx, recipient, resolver.EasyAccessComTag)
	if err != nil {
		return fmt.Errorf("records: share: resolve recipient key: %w", err)
	}
	ciphertext, err := cryptoutil.ECIESEncrypt(recipientKey, payload)
	if err != nil {
		return fmt.Errorf("records: share: encrypt: %w", err)
	}

	resp, err := c.send(ctx, storagereq.Request{
		Kind:     storagereq.KindCreateDM,
		CreateDM: &storagereq.CreateDMBody{Recipient: recipient, Payload: ciphertext},
	})
	if err != nil {
		return err
	}
	if resp.Kind != storagereq.RespEmpty {
		return fmt.Errorf("records: share: unexpected response kind %q", resp.Kind)
	}
	return nil
}

// Receive fetches every DM addressed to this Client's own name since the
// given cursor, decrypts each with Secret, verifies the enclosed DidSigned
// envelope against its claimed sender, and validates the shared Header.
// Each header that survives is cached under the synthetic path
// /Max/hash(header) so a later Read can fetch it. A DM blob that fails to
// decrypt, parse, verify, or validate is skipped rather than failing the
// whole call. It returns the accepted (sender, path) pairs plus the cursor
// to pass as since on the next call.
func (c *Client) Receive(ctx context.Context, since time.Time) ([]Received, time.Time, error) {
	now := time.Now().UTC()
	query := storagereq.ReadDMQuery{Time: now, Since: since}
	signedQuery, err := storagereq.SignDidSigned(ctx, c.Resolver, c.Secret, c.Name(), query)
	if err != nil {
		return nil, since, fmt.Errorf("records: receive: sign query: %w", err)
	}
	resp, err := c.send(ctx, storagereq.Request{Kind: storagereq.KindReadDM, ReadDM: &signedQuery})
	if err != nil {
		return nil, since, err
	}
	if resp.Kind != storagereq.RespReadDM {
		return nil, since, fmt.Errorf("records: receive: unexpected response kind %q", resp.Kind)
	}

	var received []Received
	for _, blob := range resp.DMBlobs {
		plaintext, err := cryptoutil.ECIESDecrypt(c.Secret, blob)
		if err != nil {
			c.log.Debug(ctx, "records: receive: skipping undecryptable DM")
			continue
		}
		var signed cryptoutil.DidSigned[SharedHeader]
		unmarshalErr := json.Unmarshal(plaintext, &signed)
		cryptoutil.ZeroizeBytes(plaintext)
		if unmarshalErr != nil {
			c.log.Debug(ctx, "records: receive: skipping malformed DM")
			continue
		}
		if err := storagereq.VerifyDidSigned(ctx, c.Resolver, signed, nil); err != nil {
			c.log.Debug(ctx, "records: receive: skipping unverifiable DM")
			continue
		}
		sender, err := orange.Parse(signed.Name)
		if err != nil {
			c.log.Debug(ctx, "records: receive: skipping DM with unparsable sender")
			continue
		}
		header := signed.Inner.Header
		if err := header.Validate(); err != nil {
			c.log.Debug(ctx, "records: receive: skipping invalid shared header")
			continue
		}
		path, err := c.Cache.Cache(recpath.RecordPath{ids.Max}, header)
		if err != nil {
			c.log.Debug(ctx, "records: receive: skipping header that failed to cache")
			continue
		}
		received = append(received, Received{Sender: sender, Path: path})
	}
	return received, now, nil
}
