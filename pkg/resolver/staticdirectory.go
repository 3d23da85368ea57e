package resolver

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/ramp-stack/air-go/pkg/config"
	"github.com/ramp-stack/air-go/pkg/cryptoutil"
	"github.com/ramp-stack/air-go/pkg/orange"
	"github.com/ramp-stack/air-go/pkg/rorerr"
)

// StaticDirectory is an in-memory Resolver: every name's own key verifies
// its own signatures and resolves to itself for any key tag, and every
// name resolves to a single, explicitly registered endpoint or the package
// default.
type StaticDirectory struct {
	mu        sync.RWMutex
	endpoints map[string]Endpoint
}

// NewStaticDirectory builds an empty directory; names with no registered
// endpoint resolve to config.DefaultEndpoint.
func NewStaticDirectory() *StaticDirectory {
	return &StaticDirectory{endpoints: map[string]Endpoint{}}
}

// Register associates name with an endpoint under tag.
func (d *StaticDirectory) Register(name orange.Name, tag, url string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.endpoints[name.String()+"#"+tag] = Endpoint{Name: name, URL: url}
}

// Sign signs payload with secret using Schnorr over secp256k1.
func (d *StaticDirectory) Sign(_ context.Context, secret *btcec.PrivateKey, payload []byte) (cryptoutil.Signature, error) {
	if secret == nil {
		return cryptoutil.Signature{}, rorerr.Recoverable("resolver.Sign", rorerr.KindResolution, errors.New("nil secret"))
	}
	hash := cryptoutil.HashPayload(payload)
	sig, err := cryptoutil.Sign(secret, hash)
	if err != nil {
		return cryptoutil.Signature{}, rorerr.Recoverable("resolver.Sign", rorerr.KindResolution, err)
	}
	return sig, nil
}

// Verify checks sig against name's own key. `when` is accepted for
// interface parity with a time-scoped resolver but is not enforced here.
func (d *StaticDirectory) Verify(_ context.Context, name orange.Name, sig cryptoutil.Signature, payload []byte, _ *time.Time) error {
	if name.IsZero() {
		return rorerr.Recoverable("resolver.Verify", rorerr.KindResolution, errors.New("zero name"))
	}
	hash := cryptoutil.HashPayload(payload)
	if !cryptoutil.Verify(name.PublicKey(), hash, sig) {
		return rorerr.Recoverable("resolver.Verify", rorerr.KindResolution, fmt.Errorf("signature does not verify for %s", name))
	}
	return nil
}

// Key resolves a named auxiliary key. The static directory has no separate
// communication key per name, so every tag resolves to the name's own key.
func (d *StaticDirectory) Key(_ context.Context, name orange.Name, _ string) (*btcec.PublicKey, error) {
	if name.IsZero() {
		return nil, rorerr.Recoverable("resolver.Key", rorerr.KindResolution, errors.New("zero name"))
	}
	return name.PublicKey(), nil
}

// Endpoint resolves name's endpoint under tag, falling back to
// config.DefaultEndpoint when nothing was registered.
func (d *StaticDirectory) Endpoint(_ context.Context, name orange.Name, tag string) (Endpoint, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if ep, ok := d.endpoints[name.String()+"#"+tag]; ok {
		return ep, nil
	}
	return Endpoint{Name: name, URL: config.DefaultEndpoint}, nil
}
