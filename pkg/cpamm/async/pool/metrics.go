package async_pool

import (
	"context"
	"time"

	"github.com/cpamm-labs/cpamm-server/pkg/metrics"
)

const (
	poolCountPollingEventName       = "PoolCountPollingCheck"
	poolIntegrityViolationEventName = "PoolIntegrityViolation"
)

func (p *service) metricsGaugeWorker(ctx context.Context) error {
	delay := time.Second

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
			start := time.Now()

			activeCount, err := p.data.GetPoolCountByPausedState(ctx, false)
			if err != nil {
				continue
			}

			pausedCount, err := p.data.GetPoolCountByPausedState(ctx, true)
			if err != nil {
				continue
			}

			recordPoolCountEvent(ctx, activeCount, pausedCount)

			delay = time.Second - time.Since(start)
		}
	}
}

func recordPoolCountEvent(ctx context.Context, activeCount, pausedCount uint64) {
	metrics.RecordEvent(ctx, poolCountPollingEventName, map[string]interface{}{
		"active": activeCount,
		"paused": pausedCount,
	})
}

func recordIntegrityViolationEvent(ctx context.Context, address string, err error) {
	metrics.RecordEvent(ctx, poolIntegrityViolationEventName, map[string]interface{}{
		"pool":  address,
		"error": err.Error(),
	})
}
