package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/signadot/sofa/system/sofad/storage"
	"github.com/signadot/sofa/system/sofad/storage/autoid"
	"golang.org/x/sync/errgroup"
)

// Version is reported by the welcome endpoint.
const Version = "0.1.0"

// Server represents the sofa server.
type Server struct {
	Spec Spec

	rules   rules
	metrics *metrics
	handler http.Handler

	// JSON-RPC listener
	rpcListener *RPCListener
}

// New creates a new Server instance.
func New(spec *Spec) (*Server, error) {
	if spec.Log == nil {
		spec.Log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slogLevel(),
		}))
	}
	if spec.Config == nil {
		spec.Config = DefaultConfig()
	}
	spec.Config.applyDefaults()
	if err := spec.Config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if spec.Registry == nil {
		spec.Registry = prometheus.NewRegistry()
		spec.Registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	rs, err := compileRules(spec.Config.Validators)
	if err != nil {
		return nil, err
	}
	if spec.Store == nil {
		ids, err := autoid.New(spec.Config.IDs.Algorithm)
		if err != nil {
			return nil, err
		}
		opts := []storage.Option{
			storage.WithRetryPolicy(spec.Config.RetryPolicy()),
			storage.WithIDGenerator(ids),
			storage.WithMetrics(storage.NewMetrics(spec.Registry)),
		}
		if len(rs) != 0 {
			opts = append(opts, storage.WithValidator(rs.check))
		}
		spec.Store = storage.New(opts...)
	} else if len(rs) != 0 {
		spec.Log.Warn("validators ignored for a caller supplied store", "count", len(rs))
	}

	s := &Server{
		Spec:    *spec,
		rules:   rs,
		metrics: newMetrics(spec.Registry),
	}
	s.handler = s.router()
	return s, nil
}

func slogLevel() slog.Level {
	if os.Getenv("DEBUG") != "" {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// StartRPC starts the JSON-RPC listener on the given address.
// The listener runs in a separate goroutine.
func (s *Server) StartRPC(ctx context.Context, addr string) error {
	if s.rpcListener != nil {
		return fmt.Errorf("RPC listener already running")
	}

	listener, err := NewRPCListener(addr, s)
	if err != nil {
		return err
	}

	s.rpcListener = listener

	go func() {
		if err := listener.Serve(ctx); err != nil {
			s.Spec.Log.Error("RPC listener error", "error", err)
		}
	}()

	return nil
}

// StopRPC stops the JSON-RPC listener.
func (s *Server) StopRPC() error {
	if s.rpcListener == nil {
		return nil
	}

	err := s.rpcListener.Close()
	s.rpcListener = nil
	return err
}

// RPCAddr returns the address of the running JSON-RPC listener, or "".
func (s *Server) RPCAddr() string {
	if s.rpcListener == nil {
		return ""
	}
	return s.rpcListener.Addr().String()
}

// Serve runs the configured HTTP and JSON-RPC services until ctx is done
// or one of them fails.
func (s *Server) Serve(ctx context.Context) error {
	cfg := s.Spec.Config
	if cfg.HTTP.Addr == "" && cfg.RPC.Addr == "" {
		return fmt.Errorf("no listen address configured")
	}

	var httpLn net.Listener
	if addr := cfg.HTTP.Addr; addr != "" {
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", addr, err)
		}
		httpLn = ln
	}
	if addr := cfg.RPC.Addr; addr != "" {
		if err := s.StartRPC(ctx, addr); err != nil {
			if httpLn != nil {
				httpLn.Close()
			}
			return err
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	if httpLn != nil {
		srv := &http.Server{
			Handler:           s.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
			BaseContext:       func(net.Listener) context.Context { return ctx },
		}
		g.Go(func() error {
			s.Spec.Log.Info("HTTP listener started", "addr", httpLn.Addr().String())
			if err := srv.Serve(httpLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownTimeout))
			defer cancel()
			err := srv.Shutdown(sctx)
			s.Spec.Log.Info("HTTP listener stopped")
			return err
		})
	}
	g.Go(func() error {
		<-ctx.Done()
		return s.StopRPC()
	})
	return g.Wait()
}
