// Package did exposes a DidResolver-shaped adapter over the primary
// resolver.Resolver, resolving the "pubkey" DID method (did:pubkey:<hex>)
// to the same secp256k1 keys OrangeName addresses. OrangeName is the
// primary identity scheme throughout this module; DID support is an
// adapter over it rather than a parallel resolution path.
package did

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/ramp-stack/air-go/pkg/cryptoutil"
	"github.com/ramp-stack/air-go/pkg/orange"
	"github.com/ramp-stack/air-go/pkg/resolver"
)

// Method is the DID method this adapter resolves.
const Method = "pubkey"

// Did is a (method, method-specific-id) pair, displayed as "did:<method>:<id>".
type Did struct {
	Method string
	ID     string
}

func (d Did) String() string { return fmt.Sprintf("did:%s:%s", d.Method, d.ID) }

// Parse parses the "did:<method>:<id>" form.
func Parse(s string) (Did, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 || parts[0] != "did" {
		return Did{}, fmt.Errorf("did: invalid did %q", s)
	}
	return Did{Method: parts[1], ID: parts[2]}, nil
}

// toName converts a Did of Method into the orange.Name it addresses.
func (d Did) toName() (orange.Name, error) {
	if d.Method != Method {
		return orange.Name{}, fmt.Errorf("did: unsupported method %q", d.Method)
	}
	return orange.Parse("orange_name:" + d.ID)
}

// FromName builds the Did that addresses name.
func FromName(name orange.Name) Did {
	return Did{Method: Method, ID: strings.TrimPrefix(name.String(), "orange_name:")}
}

// Adapter exposes a DidResolver-shaped API (sign/verify/key/endpoint over
// Did values) backed by a resolver.Resolver.
type Adapter struct {
	inner resolver.Resolver
}

// NewAdapter wraps inner.
func NewAdapter(inner resolver.Resolver) *Adapter {
	return &Adapter{inner: inner}
}

// Sign signs payload with secret.
func (a *Adapter) Sign(ctx context.Context, secret *btcec.PrivateKey, payload []byte) (cryptoutil.Signature, error) {
	return a.inner.Sign(ctx, secret, payload)
}

// Verify checks sig against the key addressed by did.
func (a *Adapter) Verify(ctx context.Context, did Did, sig cryptoutil.Signature, payload []byte, when *time.Time) error {
	name, err := did.toName()
	if err != nil {
		return err
	}
	return a.inner.Verify(ctx, name, sig, payload, when)
}

// Key resolves a named auxiliary key for did.
func (a *Adapter) Key(ctx context.Context, did Did, tag string) (*btcec.PublicKey, error) {
	name, err := did.toName()
	if err != nil {
		return nil, err
	}
	return a.inner.Key(ctx, name, tag)
}

// Endpoint resolves a named endpoint for did.
func (a *Adapter) Endpoint(ctx context.Context, did Did, tag string) (resolver.Endpoint, error) {
	name, err := did.toName()
	if err != nil {
		return resolver.Endpoint{}, err
	}
	return a.inner.Endpoint(ctx, name, tag)
}
