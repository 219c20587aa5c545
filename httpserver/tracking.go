package httpserver

import (
	"context"
	"net"
	"sync"
)

// trackedListener counts the connections it accepts, and how many of them are still open
// per remote host, so uneven client balancing shows up in the gauges.
type trackedListener struct {
	net.Listener
	name string

	mu      sync.Mutex
	total   int
	active  int
	remotes map[string]int
}

func newTrackedListener(ln net.Listener, name string) *trackedListener {
	return &trackedListener{
		Listener: ln,
		name:     name,
		remotes:  map[string]int{},
	}
}

func (l *trackedListener) Accept() (net.Conn, error) {
	conn, err := l.Listener.Accept()
	if err != nil {
		return nil, err
	}
	host := remoteHost(conn)

	l.mu.Lock()
	l.total++
	l.active++
	l.remotes[host]++
	l.mu.Unlock()

	return &trackedConn{Conn: conn, host: host, closed: l.release}, nil
}

func (l *trackedListener) release(host string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.active--
	l.remotes[host]--
	if l.remotes[host] <= 0 {
		delete(l.remotes, host)
	}
}

func (l *trackedListener) MetricName() string {
	return l.name + "_listener"
}

func (l *trackedListener) Gauges(context.Context) map[string]float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	maxPerRemote, minPerRemote := 0, 0
	for _, n := range l.remotes {
		if n > maxPerRemote {
			maxPerRemote = n
		}
		if minPerRemote == 0 || n < minPerRemote {
			minPerRemote = n
		}
	}

	return map[string]float64{
		"total_connections":          float64(l.total),
		"active_connections":         float64(l.active),
		"number_of_remotes":          float64(len(l.remotes)),
		"max_connections_per_remote": float64(maxPerRemote),
		"min_connections_per_remote": float64(minPerRemote),
	}
}

func remoteHost(conn net.Conn) string {
	addr := conn.RemoteAddr().String()
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		// unix sockets have no port
		return addr
	}
	return host
}

type trackedConn struct {
	net.Conn
	host string

	once   sync.Once
	closed func(host string)
}

// Close may be called more than once by net/http, the connection is only released once.
func (c *trackedConn) Close() error {
	c.once.Do(func() { c.closed(c.host) })
	return c.Conn.Close()
}
