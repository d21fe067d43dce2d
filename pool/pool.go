// Package pool provides a bounded pool of connected merklekv clients for
// callers that need concurrency. The client engine itself is strictly one
// connection per client, so concurrency is layered here: each acquired
// resource is a whole client with its own connection.
package pool

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/jackc/puddle/v2"

	merklekv "github.com/merklekv/client-go"
)

// Config holds pool settings.
type Config struct {
	// MaxSize is the maximum number of clients in the pool. Zero means
	// DefaultMaxSize.
	MaxSize int32

	// Client is applied to every client the pool creates.
	Client merklekv.Config
}

// DefaultMaxSize bounds the pool when Config.MaxSize is zero.
const DefaultMaxSize = 8

// ErrPoolClosed is returned by operations on a closed pool.
var ErrPoolClosed = errors.New("merklekv: pool closed")

// Stats is a snapshot of pool counters.
type Stats struct {
	TotalClients     int32  // Clients in the pool, idle and acquired
	IdleClients      int32  // Clients available for acquisition
	AcquiredClients  int32  // Clients currently checked out
	AcquireCount     uint64 // Total successful acquisitions
	EmptyAcquires    uint64 // Acquisitions that had to wait for a client
	CreatedClients   uint64 // Total clients dialed
	DestroyedClients uint64 // Total clients closed
}

// Pool is a bounded pool of connected clients for a single endpoint.
type Pool struct {
	pool             *puddle.Pool[*merklekv.Client]
	createdClients   atomic.Uint64
	destroyedClients atomic.Uint64
}

// New creates a pool for the given endpoint. Clients are dialed lazily on
// first acquisition.
func New(host string, port int, config Config) (*Pool, error) {
	maxSize := config.MaxSize
	if maxSize == 0 {
		maxSize = DefaultMaxSize
	}

	p := &Pool{}

	puddleConfig := &puddle.Config[*merklekv.Client]{
		Constructor: func(ctx context.Context) (*merklekv.Client, error) {
			client := merklekv.NewWithConfig(host, port, config.Client)
			if err := client.Connect(ctx); err != nil {
				return nil, err
			}
			p.createdClients.Add(1)
			return client, nil
		},
		Destructor: func(client *merklekv.Client) {
			p.destroyedClients.Add(1)
			_ = client.Close()
		},
		MaxSize: maxSize,
	}

	pool, err := puddle.NewPool(puddleConfig)
	if err != nil {
		return nil, err
	}
	p.pool = pool
	return p, nil
}

// With acquires a client, runs fn with it, and returns it to the pool. A
// client whose connection died inside fn is destroyed instead of being handed
// to the next caller.
func (p *Pool) With(ctx context.Context, fn func(client *merklekv.Client) error) error {
	resource, err := p.pool.Acquire(ctx)
	if err != nil {
		if errors.Is(err, puddle.ErrClosedPool) {
			return ErrPoolClosed
		}
		return err
	}

	err = fn(resource.Value())
	if !resource.Value().IsConnected() {
		resource.Destroy()
	} else {
		resource.Release()
	}
	return err
}

// CheckIdle sweeps idle clients, destroying any that fail a liveness probe or
// that have been idle longer than maxIdle (zero disables the idle cutoff).
func (p *Pool) CheckIdle(ctx context.Context, maxIdle time.Duration) {
	for _, resource := range p.pool.AcquireAllIdle() {
		if maxIdle > 0 && resource.IdleDuration() > maxIdle {
			resource.Destroy()
			continue
		}
		if !resource.Value().HealthCheck(ctx) {
			resource.Destroy()
			continue
		}
		resource.ReleaseUnused()
	}
}

// Close destroys every client and rejects further acquisitions.
func (p *Pool) Close() {
	p.pool.Close()
}

// Stats returns a snapshot of pool counters.
func (p *Pool) Stats() Stats {
	s := p.pool.Stat()
	return Stats{
		TotalClients:     s.TotalResources(),
		IdleClients:      s.IdleResources(),
		AcquiredClients:  s.AcquiredResources(),
		AcquireCount:     uint64(s.AcquireCount()),
		EmptyAcquires:    uint64(s.EmptyAcquireCount()),
		CreatedClients:   p.createdClients.Load(),
		DestroyedClients: p.destroyedClients.Load(),
	}
}
