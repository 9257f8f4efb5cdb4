// Package server exposes mesh conversion over HTTP.
//
// Routes:
//
//	GET  /healthz   liveness probe
//	GET  /formats   read and write identifiers plus the extension table
//	POST /convert   body is the input mesh, response the converted mesh
//
// /convert takes the query parameters "from" and "to" (format
// identifiers), "name" (the upload's file name, used to infer "from") and
// any number of "opt.KEY=VALUE" writer options. Both sides are buffers, so
// multi-file formats are rejected by the dispatcher. Results are cached
// by content key.
package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/meshio/pkg/cache"
	meshioerrors "github.com/matzehuels/meshio/pkg/errors"
	"github.com/matzehuels/meshio/pkg/formats"
	"github.com/matzehuels/meshio/pkg/meshio"
	"github.com/matzehuels/meshio/pkg/observability"
)

// DefaultMaxUploadBytes bounds request bodies when Config leaves it unset.
const DefaultMaxUploadBytes = 64 << 20

// Config holds server limits.
type Config struct {
	MaxUploadBytes int64         // request bodies above this are rejected with 413
	CacheTTL       time.Duration // lifetime of cached conversions
}

// Server converts meshes on request.
type Server struct {
	dispatcher *meshio.Dispatcher
	cache      cache.Cache
	logger     *log.Logger
	cfg        Config
	router     chi.Router
}

// New builds a server. A nil cache disables caching.
func New(d *meshio.Dispatcher, c cache.Cache, logger *log.Logger, cfg Config) *Server {
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = cache.DefaultTTL
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	s := &Server{dispatcher: d, cache: c, logger: logger, cfg: cfg}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestID)
	r.Use(s.accessLog)
	r.Get("/healthz", s.handleHealth)
	r.Get("/formats", s.handleFormats)
	r.Post("/convert", s.handleConvert)
	s.router = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// =============================================================================
// Handlers
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, "ok")
}

type formatsResponse struct {
	Read       []string          `json:"read"`
	Write      []string          `json:"write"`
	Extensions map[string]string `json:"extensions"`
	MultiFile  []string          `json:"multi_file"`
}

func (s *Server) handleFormats(w http.ResponseWriter, _ *http.Request) {
	r := s.dispatcher.Registry()
	resp := formatsResponse{
		Read:       r.ReadFormats(),
		Write:      r.WriteFormats(),
		Extensions: r.Extensions(),
		MultiFile:  []string{},
	}
	for _, id := range resp.Write {
		if r.IsMultiFile(id) {
			resp.MultiFile = append(resp.MultiFile, id)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	from, to := q.Get("from"), q.Get("to")

	if to == "" {
		s.writeError(w, r, meshioerrors.New(meshioerrors.ErrCodeInvalidUsage, "query parameter \"to\" is required"))
		return
	}
	if from == "" {
		if name := q.Get("name"); name != "" {
			if err := meshioerrors.ValidatePath(name); err != nil {
				s.writeError(w, r, err)
				return
			}
			id, err := s.dispatcher.Registry().Infer(name)
			if err != nil {
				s.writeError(w, r, meshioerrors.WithOp(meshioerrors.OpRead, meshioerrors.ErrCodeUnknownExtension, err))
				return
			}
			from = id
		}
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{
				Code:      string(meshioerrors.ErrCodeInvalidInput),
				Message:   fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit),
				RequestID: requestIDFrom(ctx),
			})
			return
		}
		s.writeError(w, r, meshioerrors.Wrap(meshioerrors.ErrCodeInvalidInput, err, "read request body"))
		return
	}

	opts, keyParts := writerOptions(q)
	key := cache.ContentKey(body, append([]string{from, to}, keyParts...)...)

	if data, hit, err := s.cache.Get(ctx, key); err != nil {
		s.logger.Warn("cache get failed", "err", err, "request_id", requestIDFrom(ctx))
	} else if hit {
		observability.Cache().OnCacheHit(ctx, key)
		writeMesh(w, data, "hit")
		return
	}
	observability.Cache().OnCacheMiss(ctx, key)

	var out bytes.Buffer
	_, err = s.dispatcher.Convert(formats.FromReader(bytes.NewReader(body)), formats.ToWriter(&out), from, to, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.cache.Set(ctx, key, out.Bytes(), s.cfg.CacheTTL); err != nil {
		s.logger.Warn("cache set failed", "err", err, "request_id", requestIDFrom(ctx))
	} else {
		observability.Cache().OnCacheSet(ctx, key, out.Len())
	}
	writeMesh(w, out.Bytes(), "miss")
}

// writerOptions collects "opt.KEY" query parameters. It also returns them
// as sorted "KEY=VALUE" strings for the cache key.
func writerOptions(q map[string][]string) (formats.Options, []string) {
	var (
		opts  formats.Options
		parts []string
	)
	for k, vs := range q {
		name, ok := strings.CutPrefix(k, "opt.")
		if !ok || name == "" || len(vs) == 0 {
			continue
		}
		if opts == nil {
			opts = formats.Options{}
		}
		v := vs[len(vs)-1]
		opts[name] = v
		parts = append(parts, name+"="+v)
	}
	sort.Strings(parts)
	return opts, parts
}

func writeMesh(w http.ResponseWriter, data []byte, cacheStatus string) {
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("X-Cache", cacheStatus)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
