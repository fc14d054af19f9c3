package client

import (
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AlexZinkM/custody-bot/internal/metrics"
)

const DefaultPoolSize = 5

// Pool hands out up to size RPC handles round-robin. Handles are created lazily,
// one per endpoint, cycling through endpoints when there are fewer than size.
// There is no health checking; callers retry once on Fallback().
type Pool struct {
	dial      func(url string) RPC
	endpoints []string
	size      int

	mu      sync.Mutex
	handles []RPC
	cursor  atomic.Uint64

	fallbackURL  string
	fallbackOnce sync.Once
	fallback     RPC
}

// NewPool creates a pool over endpoints. With no endpoints the fallback URL is used.
func NewPool(endpoints []string, size int, fallbackURL string, dial func(url string) RPC) *Pool {
	if size <= 0 {
		size = DefaultPoolSize
	}
	if fallbackURL == "" {
		fallbackURL = DefaultFallbackRPCURL
	}
	if len(endpoints) == 0 {
		endpoints = []string{fallbackURL}
	}
	if dial == nil {
		dial = DialRPC
	}
	return &Pool{
		dial:        dial,
		endpoints:   append([]string(nil), endpoints...),
		size:        size,
		handles:     make([]RPC, 0, size),
		fallbackURL: fallbackURL,
	}
}

// Get returns the next handle
func (p *Pool) Get() RPC {
	p.mu.Lock()
	if len(p.handles) < p.size {
		h := p.dial(p.endpoints[len(p.handles)%len(p.endpoints)])
		p.handles = append(p.handles, h)
		p.mu.Unlock()
		return h
	}
	handles := p.handles
	p.mu.Unlock()

	i := p.cursor.Add(1) - 1
	return handles[i%uint64(len(handles))]
}

// Fallback returns the handle bound to the fixed fallback endpoint
func (p *Pool) Fallback() RPC {
	p.fallbackOnce.Do(func() {
		p.fallback = p.dial(p.fallbackURL)
	})
	return p.fallback
}

// Len returns how many pooled handles exist
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.handles)
}

// Close closes every handle that supports it
func (p *Pool) Close() error {
	p.mu.Lock()
	handles := append([]RPC(nil), p.handles...)
	p.mu.Unlock()
	p.fallbackOnce.Do(func() {})
	if p.fallback != nil {
		handles = append(handles, p.fallback)
	}

	var firstErr error
	for _, h := range handles {
		if c, ok := h.(io.Closer); ok {
			if err := c.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// observeRPC records one JSON-RPC call; call the returned func with its error
func observeRPC(method string) func(error) {
	metrics.ProviderRequestsTotal.WithLabelValues("solana_rpc", method).Inc()
	start := time.Now()
	return func(err error) {
		metrics.ProviderLatency.WithLabelValues("solana_rpc", method).Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.ProviderErrorsTotal.WithLabelValues("solana_rpc", method).Inc()
		}
	}
}
