// Package fakestatsd is a UDP statsd listener recording the metrics it receives.
package fakestatsd

import (
	"errors"
	"net"
	"strings"
	"sync"
	"testing"

	"gotest.tools/v3/assert"
)

type Metric struct {
	Name  string
	Value string
	Tags  []string
}

type FakeStatsd struct {
	conn *net.UDPConn

	mu      sync.Mutex
	metrics []Metric
}

// New starts listening on a random local port until the test ends.
func New(t testing.TB) *FakeStatsd {
	t.Helper()

	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	assert.Assert(t, err)

	s := &FakeStatsd{conn: conn}
	go s.listen()
	t.Cleanup(func() {
		_ = s.conn.Close()
	})
	return s
}

func (s *FakeStatsd) Addr() string {
	return s.conn.LocalAddr().String()
}

func (s *FakeStatsd) Metrics() []Metric {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Metric(nil), s.metrics...)
}

// Named returns the metrics received with the given name, including any namespace.
func (s *FakeStatsd) Named(name string) []Metric {
	var out []Metric
	for _, m := range s.Metrics() {
		if m.Name == name {
			out = append(out, m)
		}
	}
	return out
}

func (s *FakeStatsd) listen() {
	buf := make([]byte, 65536)
	for {
		n, err := s.conn.Read(buf)
		if errors.Is(err, net.ErrClosed) {
			return
		}
		for _, line := range strings.Split(string(buf[:n]), "\n") {
			if m, ok := parse(strings.TrimSpace(line)); ok {
				s.mu.Lock()
				s.metrics = append(s.metrics, m)
				s.mu.Unlock()
			}
		}
	}
}

// parse reads the dogstatsd line format "name:value|type|#tag1,tag2".
func parse(line string) (Metric, bool) {
	name, rest, ok := strings.Cut(line, ":")
	if !ok || name == "" {
		return Metric{}, false
	}
	m := Metric{Name: name}
	for i, part := range strings.Split(rest, "|") {
		switch {
		case i == 0:
			m.Value = part
		case strings.HasPrefix(part, "#"):
			m.Tags = strings.Split(part[1:], ",")
		}
	}
	return m, true
}
