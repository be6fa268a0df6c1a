// Package planprovider defines the port for the conversation plan service.
package planprovider

import (
	"context"

	"github.com/Strob0t/askdesk/internal/domain/plan"
)

// Provider returns the conversation plan attached to a thread.
type Provider interface {
	// PlanForThread returns an error wrapping domain.ErrNotFound when the
	// thread has no plan.
	PlanForThread(ctx context.Context, threadID string) (*plan.Plan, error)
}
