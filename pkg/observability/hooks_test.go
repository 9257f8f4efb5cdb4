package observability

import (
	"context"
	"testing"
	"time"
)

type recordingIO struct{ reads, writes []string }

func (r *recordingIO) OnRead(_ context.Context, format string, _ time.Duration, _ error) {
	r.reads = append(r.reads, format)
}

func (r *recordingIO) OnWrite(_ context.Context, format string, _ time.Duration, _ error) {
	r.writes = append(r.writes, format)
}

type countingCache struct{ hits, misses, sets int }

func (c *countingCache) OnCacheHit(context.Context, string)      { c.hits++ }
func (c *countingCache) OnCacheMiss(context.Context, string)     { c.misses++ }
func (c *countingCache) OnCacheSet(context.Context, string, int) { c.sets++ }

type countingHTTP struct{ n int }

func (h *countingHTTP) OnResponse(context.Context, string, string, int, time.Duration) { h.n++ }

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()
	NoopIOHooks{}.OnRead(ctx, "vtk-ascii", time.Second, nil)
	NoopIOHooks{}.OnWrite(ctx, "stl-binary", time.Second, nil)
	NoopCacheHooks{}.OnCacheHit(ctx, "k")
	NoopCacheHooks{}.OnCacheMiss(ctx, "k")
	NoopCacheHooks{}.OnCacheSet(ctx, "k", 1024)
	NoopHTTPHooks{}.OnResponse(ctx, "POST", "/convert", 200, time.Second)
}

func TestGlobalHooksRegistry(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	if _, ok := IO().(NoopIOHooks); !ok {
		t.Error("IO() should return NoopIOHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}
	if _, ok := HTTP().(NoopHTTPHooks); !ok {
		t.Error("HTTP() should return NoopHTTPHooks by default")
	}

	io := &recordingIO{}
	SetIOHooks(io)
	c := &countingCache{}
	SetCacheHooks(c)
	h := &countingHTTP{}
	SetHTTPHooks(h)

	ctx := context.Background()
	IO().OnRead(ctx, "obj", 0, nil)
	IO().OnWrite(ctx, "off", 0, nil)
	Cache().OnCacheMiss(ctx, "k")
	Cache().OnCacheSet(ctx, "k", 3)
	Cache().OnCacheHit(ctx, "k")
	HTTP().OnResponse(ctx, "GET", "/healthz", 200, 0)

	if len(io.reads) != 1 || io.reads[0] != "obj" || len(io.writes) != 1 || io.writes[0] != "off" {
		t.Errorf("io hooks recorded reads=%v writes=%v", io.reads, io.writes)
	}
	if c.hits != 1 || c.misses != 1 || c.sets != 1 {
		t.Errorf("cache hooks = %+v", *c)
	}
	if h.n != 1 {
		t.Errorf("http hooks called %d times", h.n)
	}

	Reset()
	if _, ok := IO().(NoopIOHooks); !ok {
		t.Error("Reset() should restore NoopIOHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	custom := &recordingIO{}
	SetIOHooks(custom)
	SetIOHooks(nil)
	if IO() != custom {
		t.Error("SetIOHooks(nil) should keep the registered hooks")
	}
	SetCacheHooks(nil)
	SetHTTPHooks(nil)
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("SetCacheHooks(nil) should keep the defaults")
	}
}
