// Package observability provides hooks for metrics and tracing.
//
// Instrumentation is optional and adds no dependency on a metrics or
// tracing backend. The format dispatcher and the conversion server call
// the registered hooks; a binary that wants counters or traces registers
// its own implementations at startup.
//
// # Architecture
//
// The package uses a small hooks pattern:
//   - one interface per event category (I/O, cache, HTTP)
//   - a no-op default for each interface
//   - package-level registration guarded by a read-write mutex
//
// Hooks are registered by main, not by libraries, so pkg/meshio and the
// server never import an observability framework and there are no
// import cycles. Any backend (Prometheus, OpenTelemetry, plain logs) fits
// behind the interfaces.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetIOHooks(&myIOHooks{})
//	    observability.SetCacheHooks(&myCacheHooks{})
//	    // ... run application
//	}
//
// Libraries call the current hooks around each operation:
//
//	start := time.Now()
//	m, err := entry.Read(src)
//	observability.IO().OnRead(ctx, format, time.Since(start), err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// I/O Hooks
// =============================================================================

// IOHooks receives events from the read/write dispatcher. Format is the
// resolved identifier ("vtu-binary", "gmsh4-ascii", ...), never a file
// extension; err is the error returned to the caller, nil on success.
type IOHooks interface {
	// OnRead records a finished read of the given format identifier.
	OnRead(ctx context.Context, format string, duration time.Duration, err error)

	// OnWrite records a finished write of the given format identifier.
	OnWrite(ctx context.Context, format string, duration time.Duration, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from conversion cache lookups. Key is the
// content key of the conversion.
type CacheHooks interface {
	// OnCacheHit records a lookup that found a stored conversion.
	OnCacheHit(ctx context.Context, key string)

	// OnCacheMiss records a lookup that returned no usable entry.
	OnCacheMiss(ctx context.Context, key string)

	// OnCacheSet records a stored conversion of size bytes.
	OnCacheSet(ctx context.Context, key string, size int)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from the conversion server.
type HTTPHooks interface {
	// OnResponse records a served request. Route is the registered
	// pattern, not the raw path, to keep label cardinality bounded.
	OnResponse(ctx context.Context, method, route string, status int, duration time.Duration)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopIOHooks is a no-op implementation of IOHooks. It is the default
// until SetIOHooks is called.
type NoopIOHooks struct{}

func (NoopIOHooks) OnRead(context.Context, string, time.Duration, error)  {}
func (NoopIOHooks) OnWrite(context.Context, string, time.Duration, error) {}

// NoopCacheHooks is a no-op implementation of CacheHooks. It is the
// default until SetCacheHooks is called.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks. It is the default
// until SetHTTPHooks is called.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnResponse(context.Context, string, string, int, time.Duration) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

// The registered hooks. hooksMu guards all three; readers take the read
// lock so concurrent emitters never block each other.
var (
	ioHooks    IOHooks    = NoopIOHooks{}
	cacheHooks CacheHooks = NoopCacheHooks{}
	httpHooks  HTTPHooks  = NoopHTTPHooks{}
	hooksMu    sync.RWMutex
)

// SetIOHooks registers custom I/O hooks. Nil is ignored.
// Call it once at startup, before the first read or write.
func SetIOHooks(h IOHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		ioHooks = h
	}
}

// SetCacheHooks registers custom cache hooks. Nil is ignored.
// Call it once at startup, before the first cache lookup.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetHTTPHooks registers custom HTTP hooks. Nil is ignored.
// Call it once at startup, before the server accepts requests.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

// IO returns the registered I/O hooks, or the no-op default.
func IO() IOHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return ioHooks
}

// Cache returns the registered cache hooks, or the no-op default.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// HTTP returns the registered HTTP hooks, or the no-op default.
func HTTP() HTTPHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return httpHooks
}

// Reset restores the no-op defaults. Tests use it to undo registrations.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	ioHooks = NoopIOHooks{}
	cacheHooks = NoopCacheHooks{}
	httpHooks = NoopHTTPHooks{}
}
