package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/circleci/ex-demos/o11y"
	"github.com/circleci/ex-demos/system"
)

type HTTPServer struct {
	name     string
	listener *trackedListener
	server   *http.Server
	timeout  time.Duration
}

type Config struct {
	// Name is used in spans and as the metrics scope
	Name string
	// Addr is the address to listen on, eg. ":3000"
	Addr    string
	Handler http.Handler

	// Network defaults to tcp
	Network string
	// ShutdownTimeout bounds how long in flight requests have to finish, it defaults to 10s
	ShutdownTimeout time.Duration
}

// New creates the listener straight away, so a bad address fails before anything is served.
func New(ctx context.Context, cfg Config) (s *HTTPServer, err error) {
	_, span := o11y.StartSpan(ctx, "server: new-server "+cfg.Name)
	defer o11y.End(span, &err)

	if cfg.Network == "" {
		cfg.Network = "tcp"
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	span.AddField("server_name", cfg.Name)
	span.AddField("network", cfg.Network)

	ln, err := net.Listen(cfg.Network, cfg.Addr)
	if err != nil {
		return nil, err
	}
	span.AddField("address", ln.Addr().String())

	s = &HTTPServer{
		name:     cfg.Name,
		timeout:  cfg.ShutdownTimeout,
		listener: newTrackedListener(ln, cfg.Name),
		server: &http.Server{
			Handler:           cfg.Handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       55 * time.Second,
			WriteTimeout:      55 * time.Second,
		},
	}
	s.server.RegisterOnShutdown(func() {
		o11y.Log(ctx, "server: shutting down", o11y.Field("server_name", cfg.Name))
	})
	return s, nil
}

// Serve blocks until ctx is cancelled, then shuts the server down, giving in flight
// requests some time to complete.
func (s *HTTPServer) Serve(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-ctx.Done()
		// ctx is already done, so shutdown gets a fresh deadline
		sctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if err := s.server.Shutdown(sctx); err != nil {
			return fmt.Errorf("%s server shutdown failed: %w", s.name, err)
		}
		return nil
	})

	g.Go(func() error {
		err := s.server.Serve(s.listener)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	return g.Wait()
}

// Close releases the listener of a server that was never served. Once Serve has run,
// shutdown has already closed it and Close does nothing.
func (s *HTTPServer) Close(context.Context) error {
	err := s.listener.Close()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

func (s *HTTPServer) MetricsProducer() system.MetricProducer {
	return s.listener
}

func (s *HTTPServer) Addr() string {
	return s.listener.Addr().String()
}

// Load creates the server and adds it, and its metrics, to sys. The listener is released
// by sys cleanup if startup fails before the system runs.
func Load(ctx context.Context, cfg Config, sys *system.System) (*HTTPServer, error) {
	server, err := New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("error starting %q server: %w", cfg.Name, err)
	}

	sys.AddService(server.Serve)
	sys.AddCleanup(server.Close)
	sys.AddMetrics(server.MetricsProducer())
	return server, nil
}
