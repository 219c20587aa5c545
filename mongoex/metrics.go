package mongoex

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/event"
)

// poolMetrics counts connection pool events, reported as gauges by the system metrics loop.
type poolMetrics struct {
	name string

	mu          sync.Mutex
	counts      map[string]int64
	maxPoolSize uint64
	minPoolSize uint64
}

func newPoolMetrics(name string) *poolMetrics {
	return &poolMetrics{
		name:   name,
		counts: map[string]int64{},
	}
}

func (p *poolMetrics) MetricName() string {
	return p.name
}

var poolEventGauges = map[string]string{
	event.PoolCreated:        "pool_created",
	event.PoolCleared:        "pool_cleared",
	event.PoolClosedEvent:    "pool_closed",
	event.ConnectionCreated:  "connection_created",
	event.ConnectionClosed:   "connection_closed",
	event.GetSucceeded:       "get_succeeded",
	event.GetFailed:          "get_failed",
	event.ConnectionReturned: "connection_returned",
}

func (p *poolMetrics) Gauges(context.Context) map[string]float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	g := make(map[string]float64, len(poolEventGauges)+3)
	for _, name := range poolEventGauges {
		g[name] = float64(p.counts[name])
	}
	// connections handed out and not yet returned
	g["in_use"] = float64(p.counts["get_succeeded"] - p.counts["connection_returned"])
	g["max_pool_size"] = float64(p.maxPoolSize)
	g["min_pool_size"] = float64(p.minPoolSize)
	return g
}

// PoolMonitor returns a monitor recording events, which also forwards them to parent if set.
func (p *poolMetrics) PoolMonitor(parent *event.PoolMonitor) *event.PoolMonitor {
	return &event.PoolMonitor{
		Event: func(e *event.PoolEvent) {
			if parent != nil && parent.Event != nil {
				parent.Event(e)
			}
			p.record(e)
		},
	}
}

func (p *poolMetrics) record(e *event.PoolEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if name, ok := poolEventGauges[e.Type]; ok {
		p.counts[name]++
	}
	if e.PoolOptions != nil {
		p.maxPoolSize = e.PoolOptions.MaxPoolSize
		p.minPoolSize = e.PoolOptions.MinPoolSize
	}
}
