// Package mocknet provides an in-process Transport for tests: instead of
// opening a TCP connection, calls are delivered directly to a registered
// Handler, serialized per endpoint the way a real connection would be.
package mocknet

import (
	"context"
	"fmt"
	"sync"

	"github.com/ramp-stack/air-go/pkg/transport"
)

// Net is a registry of endpoint addresses to Handlers.
type Net struct {
	mu       sync.Mutex
	handlers map[string]transport.Handler
	locks    map[string]*sync.Mutex
}

// New returns an empty Net.
func New() *Net {
	return &Net{
		handlers: map[string]transport.Handler{},
		locks:    map[string]*sync.Mutex{},
	}
}

// Register binds addr to h. Registering the same addr twice replaces the
// previous handler.
func (n *Net) Register(addr string, h transport.Handler) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.handlers[addr] = h
	if _, ok := n.locks[addr]; !ok {
		n.locks[addr] = &sync.Mutex{}
	}
}

// Dial returns a Transport that delivers every Send to addr's registered
// Handler. Calls to the same addr are serialized, matching a real
// single-connection client.
func (n *Net) Dial(addr string) transport.Transport {
	return &client{net: n, addr: addr}
}

type client struct {
	net  *Net
	addr string
}

func (c *client) Send(ctx context.Context, req []byte) ([]byte, error) {
	c.net.mu.Lock()
	h, ok := c.net.handlers[c.addr]
	lock := c.net.locks[c.addr]
	c.net.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("mocknet: no handler registered for %q", c.addr)
	}
	lock.Lock()
	defer lock.Unlock()
	return h(ctx, req)
}
