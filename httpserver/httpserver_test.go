package httpserver

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"
	"gotest.tools/v3/assert"
	"gotest.tools/v3/assert/cmp"
	"gotest.tools/v3/poll"

	"github.com/circleci/ex-demos/system"
	"github.com/circleci/ex-demos/testing/testcontext"
)

func hello(w http.ResponseWriter, _ *http.Request) {
	_, _ = io.WriteString(w, "hello world!")
}

func TestNew(t *testing.T) {
	ctx, cancel := context.WithCancel(testcontext.Background())
	defer cancel()

	srv, err := New(ctx, Config{
		Name:    "test_server",
		Addr:    "localhost:0",
		Handler: http.HandlerFunc(hello),
	})
	assert.Assert(t, err)
	serve(ctx, t, srv)

	body, status := get(t, http.DefaultClient, srv.Addr(), "anything")
	assert.Check(t, cmp.Equal(status, http.StatusOK))
	assert.Check(t, cmp.Equal(body, "hello world!"))
}

func TestNew_BadAddress(t *testing.T) {
	_, err := New(testcontext.Background(), Config{
		Name: "bad",
		Addr: "localhost:-1",
	})
	assert.Check(t, err != nil)
}

func TestNew_Unix(t *testing.T) {
	ctx, cancel := context.WithCancel(testcontext.Background())
	defer cancel()

	socket := filepath.Join(t.TempDir(), "httpserver.sock")
	srv, err := New(ctx, Config{
		Name:    "unix_server",
		Addr:    socket,
		Handler: http.HandlerFunc(hello),
		Network: "unix",
	})
	assert.Assert(t, err)
	serve(ctx, t, srv)

	c := &http.Client{
		Transport: &http.Transport{
			DialContext: func(_ context.Context, _, _ string) (net.Conn, error) {
				return net.Dial("unix", socket)
			},
		},
	}
	body, status := get(t, c, "localhost", "test")
	assert.Check(t, cmp.Equal(status, http.StatusOK))
	assert.Check(t, cmp.Equal(body, "hello world!"))
	_, err = os.Stat(socket)
	assert.Check(t, err)
}

func TestLoad(t *testing.T) {
	ctx := testcontext.Background()
	sys := system.New()

	srv, err := Load(ctx, Config{
		Name:    "api",
		Addr:    "localhost:0",
		Handler: http.HandlerFunc(hello),
	}, sys)
	assert.Assert(t, err)
	assert.Check(t, cmp.Equal(srv.MetricsProducer().MetricName(), "api_listener"))

	_, err = Load(ctx, Config{Name: "broken", Addr: srv.Addr()}, sys)
	assert.Check(t, cmp.ErrorContains(err, `error starting "broken" server`))

	t.Run("cleanup releases a listener that was never served", func(t *testing.T) {
		sys.Cleanup(ctx)

		ln, err := net.Listen("tcp", srv.Addr())
		assert.Assert(t, err)
		assert.Check(t, ln.Close())
	})
}

func TestClose_AfterServe(t *testing.T) {
	ctx, cancel := context.WithCancel(testcontext.Background())

	srv, err := New(ctx, Config{
		Name:    "served",
		Addr:    "localhost:0",
		Handler: http.HandlerFunc(hello),
	})
	assert.Assert(t, err)

	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()
	cancel()
	assert.Check(t, <-done)

	assert.Check(t, srv.Close(ctx))
}

func TestTrackedListener(t *testing.T) {
	ctx, cancel := context.WithCancel(testcontext.Background())
	defer cancel()

	const inFlight = 5
	handling := make(chan struct{})
	release := make(chan struct{})

	srv, err := New(ctx, Config{
		Name: "tracked",
		Addr: "localhost:0",
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handling <- struct{}{}
			<-release
			w.WriteHeader(http.StatusNoContent)
		}),
	})
	assert.Assert(t, err)
	serve(ctx, t, srv)

	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.DisableKeepAlives = true
	cl := &http.Client{Transport: tr, Timeout: 10 * time.Second}

	g := errgroup.Group{}
	for i := 0; i < inFlight; i++ {
		g.Go(func() error {
			r, err := cl.Get("http://" + srv.Addr())
			if err != nil {
				return err
			}
			return r.Body.Close()
		})
	}
	for i := 0; i < inFlight; i++ {
		<-handling
	}

	gauges := srv.MetricsProducer().Gauges(ctx)
	assert.Check(t, cmp.Equal(gauges["total_connections"], float64(inFlight)))
	assert.Check(t, cmp.Equal(gauges["active_connections"], float64(inFlight)))
	assert.Check(t, cmp.Equal(gauges["number_of_remotes"], float64(1)))
	assert.Check(t, cmp.Equal(gauges["max_connections_per_remote"], float64(inFlight)))
	assert.Check(t, cmp.Equal(gauges["min_connections_per_remote"], float64(inFlight)))

	close(release)
	assert.Check(t, g.Wait())

	poll.WaitOn(t, func(t poll.LogT) poll.Result {
		gauges := srv.MetricsProducer().Gauges(ctx)
		if gauges["active_connections"] != 0 {
			return poll.Continue("still %v active connections", gauges["active_connections"])
		}
		return poll.Success()
	})
	gauges = srv.MetricsProducer().Gauges(ctx)
	assert.Check(t, cmp.Equal(gauges["total_connections"], float64(inFlight)))
	assert.Check(t, cmp.Equal(gauges["number_of_remotes"], float64(0)))
	assert.Check(t, cmp.Equal(gauges["min_connections_per_remote"], float64(0)))
}

func serve(ctx context.Context, t *testing.T, srv *HTTPServer) {
	t.Helper()
	ctx, cancel := context.WithCancel(ctx)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Serve(ctx)
	})
	t.Cleanup(func() {
		cancel()
		assert.Check(t, g.Wait())
	})
}

func get(t *testing.T, c *http.Client, host, path string) (string, int) {
	t.Helper()

	r, err := c.Get(fmt.Sprintf("http://%s/%s", host, path))
	assert.Assert(t, err)
	defer func() {
		assert.Check(t, r.Body.Close())
	}()

	b, err := io.ReadAll(r.Body)
	assert.Assert(t, err)
	return string(b), r.StatusCode
}
