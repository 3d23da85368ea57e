// Package config carries the tunable knobs for the storage engine: the
// default service endpoint, the DM freshness window, and batching limits.
package config

import "time"

// DefaultEndpoint is the default storage-service endpoint.
const DefaultEndpoint = "localhost:5702"

// DefaultFreshnessWindow is the maximum age of a ReadDM signed timestamp
// before the service rejects it.
const DefaultFreshnessWindow = 10_000 * time.Second

// DefaultStorageServiceName is the RPC service name the storage layer
// registers under.
const DefaultStorageServiceName = "STORAGE"

// Config is the set of knobs threaded through a Client/Service pair.
type Config struct {
	// Endpoint is the storage-service network address.
	Endpoint string

	// FreshnessWindow bounds how old a ReadDM signed timestamp may be.
	FreshnessWindow time.Duration

	// MaxBatchSize bounds how many sub-requests a single Batch request may
	// carry; zero means unbounded.
	MaxBatchSize int
}

// Option configures a Config.
type Option func(*Config)

// WithEndpoint overrides the storage-service endpoint.
func WithEndpoint(endpoint string) Option {
	return func(c *Config) { c.Endpoint = endpoint }
}

// WithFreshnessWindow overrides the DM freshness window.
func WithFreshnessWindow(d time.Duration) Option {
	return func(c *Config) { c.FreshnessWindow = d }
}

// WithMaxBatchSize overrides the maximum batch size.
func WithMaxBatchSize(n int) Option {
	return func(c *Config) { c.MaxBatchSize = n }
}

// New builds a Config with the package defaults, applying opts in order.
func New(opts ...Option) Config {
	c := Config{
		Endpoint:        DefaultEndpoint,
		FreshnessWindow: DefaultFreshnessWindow,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}
