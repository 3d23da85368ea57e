// Package resolver models the DID/name resolver collaborator: the
// externally-provided operations the core invokes — sign, verify,
// key-lookup, endpoint-lookup.
package resolver

import (
	"context"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/ramp-stack/air-go/pkg/cryptoutil"
	"github.com/ramp-stack/air-go/pkg/orange"
)

// Endpoint pairs a resolved identity with its network address.
type Endpoint struct {
	Name orange.Name
	URL  string
}

// Resolver is the collaborator this module invokes for signing,
// verification, and key/endpoint lookup. Errors it returns are either
// Critical (the caller should abort) or Resolution-kind recoverable
// errors (see pkg/rorerr).
type Resolver interface {
	// Sign signs payload with secret, returning a Schnorr signature.
	Sign(ctx context.Context, secret *btcec.PrivateKey, payload []byte) (cryptoutil.Signature, error)

	// Verify checks that sig is a valid signature over payload by name's
	// own key, optionally at a point in time (for time-scoped key
	// rotation; the default resolver ignores `when`).
	Verify(ctx context.Context, name orange.Name, sig cryptoutil.Signature, payload []byte, when *time.Time) error

	// Key looks up a named auxiliary key for name (e.g. "easy_access_com",
	// the key a DM is encrypted to).
	Key(ctx context.Context, name orange.Name, tag string) (*btcec.PublicKey, error)

	// Endpoint looks up a named network endpoint for name.
	Endpoint(ctx context.Context, name orange.Name, tag string) (Endpoint, error)
}

// EasyAccessComTag is the well-known key tag a DM is encrypted to.
const EasyAccessComTag = "easy_access_com"

// DefaultEndpointTag is the well-known endpoint tag used when none is
// specified.
const DefaultEndpointTag = "default"
