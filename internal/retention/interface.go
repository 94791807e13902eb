package retention

import (
	"context"
	"time"
)

//go:generate mockgen -destination=mocks/mock_pruner.go -package=mocks github.com/mattjoyce/hookguard/internal/retention Pruner

// Pruner deletes deliveries older than the retention window.
type Pruner interface {
	Prune(ctx context.Context, retention time.Duration) (int64, error)
}
