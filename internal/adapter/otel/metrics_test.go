package otel

import (
	"context"
	"testing"
)

func TestNewMetrics(t *testing.T) {
	m, err := NewMetrics()
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	ctx := context.Background()
	m.ThreadCreated(ctx, true)
	m.RaceRetry(ctx, true)
	m.ContextAssembled(ctx, "conversation_mode", 0.01)
	m.EnrichmentFailed(ctx, "plan")
}

func TestNilMetricsAreNoOps(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	m.ThreadCreated(ctx, false)
	m.RaceRetry(ctx, false)
	m.ContextAssembled(ctx, "default", 0)
	m.EnrichmentFailed(ctx, "project")
}
