// Package server assembles the HTTP surface of the marketplace daemon
// and supervises its lifecycle: JSON-RPC, WebSocket subscriptions and a
// health endpoint behind one listener, with an optional dedicated
// WebSocket listener, all shut down together when the context ends.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/LeJamon/goMarketd/internal/config"
	"github.com/LeJamon/goMarketd/internal/rpc"
)

// Server owns the daemon's listeners. Run may be called once.
type Server struct {
	cfg *config.Config
	log *zap.Logger

	rpcSrv *rpc.Server
	wsSrv  *rpc.WebSocketServer
	pub    *rpc.Publisher

	mu     sync.Mutex
	addr   string
	wsAddr string

	ready chan struct{}
}

// New wires the HTTP surface. pub may be nil when no subscribers should
// be notified about lifecycle transitions.
func New(cfg *config.Config, log *zap.Logger, rpcSrv *rpc.Server, wsSrv *rpc.WebSocketServer, pub *rpc.Publisher) *Server {
	return &Server{
		cfg:    cfg,
		log:    log,
		rpcSrv: rpcSrv,
		wsSrv:  wsSrv,
		pub:    pub,
		ready:  make(chan struct{}),
	}
}

// Ready is closed once every listener is bound. Callers that need the
// bound addresses (for example when listening on :0) should wait on it
// before calling Addr or WSAddr.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the bound address of the main listener.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// WSAddr returns the bound address of the dedicated WebSocket listener,
// or the empty string when WebSocket traffic shares the main listener.
func (s *Server) WSAddr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wsAddr
}

// Run binds the listeners and serves until ctx is cancelled or a
// listener fails. On cancellation it drains connections within the
// configured shutdown timeout and returns nil.
func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/", s.rpcSrv)
	mux.Handle("/rpc", s.rpcSrv)
	mux.Handle("/ws", s.wsSrv)
	mux.HandleFunc("/health", s.handleHealth)

	ln, err := net.Listen("tcp", s.cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Server.Addr, err)
	}

	servers := []*http.Server{{
		Handler: mux,
		// Header-only timeout: WebSocket connections stay open for as
		// long as the subscriber wants.
		ReadHeaderTimeout: 10 * time.Second,
	}}
	listeners := []net.Listener{ln}

	s.mu.Lock()
	s.addr = ln.Addr().String()
	s.mu.Unlock()

	if s.cfg.Server.WSAddr != "" {
		wsLn, err := net.Listen("tcp", s.cfg.Server.WSAddr)
		if err != nil {
			ln.Close()
			return fmt.Errorf("listen %s: %w", s.cfg.Server.WSAddr, err)
		}
		wsMux := http.NewServeMux()
		wsMux.Handle("/", s.wsSrv)
		servers = append(servers, &http.Server{
			Handler:           wsMux,
			ReadHeaderTimeout: 10 * time.Second,
		})
		listeners = append(listeners, wsLn)

		s.mu.Lock()
		s.wsAddr = wsLn.Addr().String()
		s.mu.Unlock()
	}

	s.log.Info("server listening",
		zap.String("addr", s.Addr()),
		zap.String("ws_addr", s.WSAddr()),
	)
	close(s.ready)

	g, gCtx := errgroup.WithContext(ctx)

	for i := range servers {
		srv, lis := servers[i], listeners[i]
		g.Go(func() error {
			if err := srv.Serve(lis); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve %s: %w", lis.Addr(), err)
			}
			return nil
		})
	}

	// Shutdown watcher: fires on external cancellation or on the first
	// listener failure.
	g.Go(func() error {
		<-gCtx.Done()
		s.shutdown(servers)
		return nil
	})

	return g.Wait()
}

func (s *Server) shutdown(servers []*http.Server) {
	s.log.Info("server shutting down")
	if s.pub != nil {
		s.pub.PublishServerStatus("shutdown")
	}

	timeout := s.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var wg sync.WaitGroup
	for _, srv := range servers {
		wg.Add(1)
		go func(srv *http.Server) {
			defer wg.Done()
			if err := srv.Shutdown(ctx); err != nil {
				s.log.Warn("shutdown incomplete", zap.Error(err))
			}
		}(srv)
	}
	wg.Wait()

	// Shutdown does not wait for hijacked connections; subscriptions
	// are cut explicitly.
	s.wsSrv.CloseAll()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok","service":"marketd"}`))
}
