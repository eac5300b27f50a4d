package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/b0bbywan/go-odio-players/backend"
	"github.com/b0bbywan/go-odio-players/config"
	"github.com/b0bbywan/go-odio-players/logger"
)

const (
	shutdownTimeout   = 5 * time.Second
	readHeaderTimeout = 10 * time.Second
)

// Server exposes the players over HTTP on every configured address.
type Server struct {
	mux         *http.ServeMux
	config      *config.ApiConfig
	sse         bool
	broadcaster *backend.Broadcaster
}

// NewServer returns nil when the API is disabled. /events is only served
// when SSE is on.
func NewServer(cfg *config.ApiConfig, b *backend.Backend) *Server {
	if cfg == nil || !cfg.Enabled {
		return nil
	}

	s := &Server{
		mux:    http.NewServeMux(),
		config: cfg,
		sse:    cfg.SSE,
	}
	if b != nil && cfg.SSE {
		s.broadcaster = b.Events()
	}
	s.register(b)
	return s
}

func (s *Server) register(b *backend.Backend) {
	if b == nil {
		return
	}

	// nothing lives at the root
	s.mux.HandleFunc("/", http.NotFound)
	s.registerServerRoutes(b)

	if b.MPRIS == nil {
		return
	}
	s.registerMPRISRoutes(b.MPRIS)
	if b.Artwork != nil {
		s.registerArtRoutes(b.MPRIS, b.Artwork)
	}
}

// handler is the mux behind the configured middlewares.
func (s *Server) handler() http.Handler {
	var h http.Handler = s.mux
	if s.config != nil && s.config.CORS != nil && len(s.config.CORS.Origins) > 0 {
		h = corsMiddleware(s.config.CORS)(h)
	}
	return h
}

// Run serves until ctx is cancelled or a listener fails; either way every
// listener is shut down before it returns.
func (s *Server) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	handler := s.handler()

	servers := make([]*http.Server, 0, len(s.config.Listens))
	for _, addr := range s.config.Listens {
		srv := &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: readHeaderTimeout,
			// event streams end with the service instead of holding Shutdown
			BaseContext: func(net.Listener) context.Context { return gctx },
		}
		servers = append(servers, srv)

		g.Go(func() error {
			logger.Info("[api] http server running on %s", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server %s: %w", srv.Addr, err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		shutdown(servers)
		return nil
	})
	return g.Wait()
}

func shutdown(servers []*http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for _, srv := range servers {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Info("[api] server %s shutdown error: %v", srv.Addr, err)
		}
	}
}
