package dispatch

import (
	"context"

	"github.com/cpamm-labs/cpamm-server/pkg/metrics"
	"github.com/cpamm-labs/cpamm-server/pkg/solana/cpamm"
)

const (
	opValidatedEventName = "PoolOpValidated"
	opRejectedEventName  = "PoolOpRejected"
)

func recordOpValidatedEvent(ctx context.Context, operation, pool string) {
	metrics.RecordEvent(ctx, opValidatedEventName, map[string]interface{}{
		"operation": operation,
		"pool":      pool,
	})
}

func recordOpRejectedEvent(ctx context.Context, operation, pool string, code cpamm.ValidationCode) {
	metrics.RecordEvent(ctx, opRejectedEventName, map[string]interface{}{
		"operation": operation,
		"pool":      pool,
		"code":      code.String(),
	})
}
