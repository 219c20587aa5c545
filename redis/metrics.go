package redis

import (
	"context"

	"github.com/go-redis/redis/v8"
)

type Metrics struct {
	name   string
	client *redis.Client
}

func NewMetrics(name string, client *redis.Client) *Metrics {
	return &Metrics{
		name:   name,
		client: client,
	}
}

func (r *Metrics) MetricName() string {
	return r.name
}

func (r *Metrics) Gauges(context.Context) map[string]float64 {
	stats := r.client.PoolStats()
	return map[string]float64{
		"hits":     float64(stats.Hits),
		"misses":   float64(stats.Misses),
		"timeouts": float64(stats.Timeouts),

		"total_connections": float64(stats.TotalConns),
		"idle_connections":  float64(stats.IdleConns),
		"stale_connections": float64(stats.StaleConns),
	}
}
