package healthcheck

import (
	"context"
	"fmt"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hellofresh/health-go/v4"

	"github.com/circleci/ex-demos/httpserver"
	"github.com/circleci/ex-demos/httpserver/ginrouter"
	"github.com/circleci/ex-demos/system"
)

const checkTimeout = 5 * time.Second

type API struct {
	router *gin.Engine
}

func New(ctx context.Context, checked []system.HealthChecker) (*API, error) {
	live, ready, err := newHealthHandlers(checked)
	if err != nil {
		return nil, fmt.Errorf("failed to create health checks: %w", err)
	}

	r := ginrouter.Default(ctx, "admin")
	r.GET("/live", gin.WrapH(live.Handler()))
	r.GET("/ready", gin.WrapH(ready.Handler()))
	r.GET("/debug/pprof/*profile", profile)

	return &API{router: r}, nil
}

func (a *API) Handler() http.Handler {
	return a.router
}

// profile serves the handlers pprof does not register under its index.
func profile(c *gin.Context) {
	switch c.Param("profile") {
	case "/cmdline":
		pprof.Cmdline(c.Writer, c.Request)
	case "/profile":
		pprof.Profile(c.Writer, c.Request)
	case "/symbol":
		pprof.Symbol(c.Writer, c.Request)
	case "/trace":
		pprof.Trace(c.Writer, c.Request)
	default:
		pprof.Index(c.Writer, c.Request)
	}
}

func newHealthHandlers(checked []system.HealthChecker) (live, ready *health.Health, err error) {
	if live, err = health.New(); err != nil {
		return nil, nil, err
	}
	if ready, err = health.New(); err != nil {
		return nil, nil, err
	}

	for _, c := range checked {
		name, readyCheck, liveCheck := c.HealthChecks()
		if err := register(ready, name, readyCheck); err != nil {
			return nil, nil, err
		}
		if err := register(live, name, liveCheck); err != nil {
			return nil, nil, err
		}
	}
	return live, ready, nil
}

func register(h *health.Health, name string, check func(ctx context.Context) error) error {
	if check == nil {
		return nil
	}
	return h.Register(health.Config{
		Name:    name,
		Timeout: checkTimeout,
		Check:   check,
	})
}

// Load serves the admin API on addr. It must be called after everything else has been
// added to sys, so every health check is included.
func Load(ctx context.Context, addr string, sys *system.System) (*httpserver.HTTPServer, error) {
	api, err := New(ctx, sys.HealthChecks())
	if err != nil {
		return nil, fmt.Errorf("error creating health check API: %w", err)
	}

	return httpserver.Load(ctx, httpserver.Config{
		Name:    "admin",
		Addr:    addr,
		Handler: api.Handler(),
	}, sys)
}
