package mongoex

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type health struct {
	client *mongo.Client
}

// HealthChecks only reports readiness, a lost database should stop traffic, not restart the pod.
func (h *health) HealthChecks() (name string, ready, live func(ctx context.Context) error) {
	return "mongo", h.ping, nil
}

func (h *health) ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := h.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("mongo ping failed: %w", err)
	}
	return nil
}
