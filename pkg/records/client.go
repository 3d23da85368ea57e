// Package records implements the Records Client state machine: discover,
// create, read, update, delete, share, receive, and create_pointer. Each
// method builds the wire request, sends it over the configured Transport,
// and validates the response. Create and CreatePointer cache the new
// header (and a pointer's target) before the request is sent; the other
// methods mutate the Cache only once the response has been accepted.
package records

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/ramp-stack/air-go/internal/telemetry"
	"github.com/ramp-stack/air-go/pkg/cache"
	"github.com/ramp-stack/air-go/pkg/config"
	"github.com/ramp-stack/air-go/pkg/orange"
	"github.com/ramp-stack/air-go/pkg/protocol"
	"github.com/ramp-stack/air-go/pkg/resolver"
	"github.com/ramp-stack/air-go/pkg/rorerr"
	"github.com/ramp-stack/air-go/pkg/rpcwire"
	"github.com/ramp-stack/air-go/pkg/storagereq"
	"github.com/ramp-stack/air-go/pkg/transport"
)

// Client is one session's view of the storage engine: a Cache, the
// identity secret used to sign DMs and public records, and the
// Transport/Resolver collaborators every operation suspends on.
type Client struct {
	Cache     *cache.Cache
	Transport transport.Transport
	Resolver  resolver.Resolver
	Registry  *protocol.Registry

	// Secret is this session's OrangeName identity secret, used to sign
	// shared DMs and public records and to decrypt DMs addressed to it.
	Secret *btcec.PrivateKey

	Config config.Config
	log    telemetry.Logger
}

// New builds a Client. log may be nil, in which case a default logger is
// used.
func New(c *cache.Cache, t transport.Transport, r resolver.Resolver, reg *protocol.Registry, secret *btcec.PrivateKey, cfg config.Config, log telemetry.Logger) *Client {
	if log == nil {
		log = telemetry.New(nil)
	}
	return &Client{Cache: c, Transport: t, Resolver: r, Registry: reg, Secret: secret, Config: cfg, log: log}
}

// Name is this Client's OrangeName identity.
func (c *Client) Name() orange.Name {
	return orange.FromSecret(c.Secret)
}

// send wraps req as a single-service RPC request and sends it over
// Transport, unwrapping the Service response.
func (c *Client) send(ctx context.Context, req storagereq.Request) (storagereq.Response, error) {
	envelope, err := rpcwire.NewService(config.DefaultStorageServiceName, req)
	if err != nil {
		return storagereq.Response{}, rorerr.Critical("records.Client.send", err)
	}
	reqBytes, err := json.Marshal(envelope)
	if err != nil {
		return storagereq.Response{}, rorerr.Critical("records.Client.send", err)
	}
	respBytes, err := c.Transport.Send(ctx, reqBytes)
	if err != nil {
		return storagereq.Response{}, rorerr.Recoverable("records.Client.send", rorerr.KindConnection, err)
	}
	var rpcResp rpcwire.Response
	if err := json.Unmarshal(respBytes, &rpcResp); err != nil {
		return storagereq.Response{}, rorerr.Recoverable("records.Client.send", rorerr.KindConnection, fmt.Errorf("decode rpc response: %w", err))
	}
	if rpcResp.Kind == rpcwire.ResponseOutOfService {
		return storagereq.Response{}, rorerr.Recoverable("records.Client.send", rorerr.KindConnection, fmt.Errorf("service %q unavailable", rpcResp.OutOfServiceName))
	}
	return rpcResp.Service()
}

// sendBatch wraps multiple storage Requests as a single Batch RPC request.
func (c *Client) sendBatch(ctx context.Context, reqs []storagereq.Request) ([]storagereq.Response, error) {
	envelope := rpcwire.NewBatch(reqs)
	reqBytes, err := json.Marshal(envelope)
	if err != nil {
		return nil, rorerr.Critical("records.Client.sendBatch", err)
	}
	respBytes, err := c.Transport.Send(ctx, reqBytes)
	if err != nil {
		return nil, rorerr.Recoverable("records.Client.sendBatch", rorerr.KindConnection, err)
	}
	var rpcResp rpcwire.Response
	if err := json.Unmarshal(respBytes, &rpcResp); err != nil {
		return nil, rorerr.Recoverable("records.Client.sendBatch", rorerr.KindConnection, fmt.Errorf("decode rpc response: %w", err))
	}
	if rpcResp.Kind != rpcwire.ResponseBatch {
		return nil, rorerr.Recoverable("records.Client.sendBatch", rorerr.KindConnection, fmt.Errorf("expected batch response, got %q", rpcResp.Kind))
	}
	return rpcResp.Batch, nil
}
