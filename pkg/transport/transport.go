// Package transport models the opaque RPC+TCP framing layer: it delivers a
// Request byte-sequence to a handler and returns a Response byte-sequence.
package transport

import "context"

// Transport sends an opaque request and waits for the opaque response. The
// wire envelope (ECIES-wrapped canonical JSON) is the concrete
// implementation's concern, not this interface's.
type Transport interface {
	Send(ctx context.Context, req []byte) ([]byte, error)
}

// Handler processes one request's bytes and returns response bytes. A
// storage-service endpoint is, from the transport's point of view, just a
// Handler.
type Handler func(ctx context.Context, req []byte) ([]byte, error)
