package storagereq

import (
	"context"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/ramp-stack/air-go/pkg/cryptoutil"
	"github.com/ramp-stack/air-go/pkg/ids"
	"github.com/ramp-stack/air-go/pkg/orange"
	"github.com/ramp-stack/air-go/pkg/resolver"
)

// SignDidSigned builds a DidSigned[T] by asking res to sign inner's
// canonical bytes with secret, the secret belonging to name.
func SignDidSigned[T ids.Hashable](ctx context.Context, res resolver.Resolver, secret *btcec.PrivateKey, name orange.Name, inner T) (cryptoutil.DidSigned[T], error) {
	payload, err := inner.CanonicalBytes()
	if err != nil {
		return cryptoutil.DidSigned[T]{}, err
	}
	sig, err := res.Sign(ctx, secret, payload)
	if err != nil {
		return cryptoutil.DidSigned[T]{}, err
	}
	return cryptoutil.DidSigned[T]{Name: name.String(), Sig: sig, Inner: inner}, nil
}

// VerifyDidSigned checks ds against the key its claimed name resolves to,
// at the given point in time (nil for "now").
func VerifyDidSigned[T ids.Hashable](ctx context.Context, res resolver.Resolver, ds cryptoutil.DidSigned[T], when *time.Time) error {
	name, err := orange.Parse(ds.Name)
	if err != nil {
		return err
	}
	payload, err := ds.Inner.CanonicalBytes()
	if err != nil {
		return err
	}
	return res.Verify(ctx, name, ds.Sig, payload, when)
}
