package async_pool

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cpamm-labs/cpamm-server/pkg/cpamm/async"
	cpamm_data "github.com/cpamm-labs/cpamm-server/pkg/cpamm/data"
)

type service struct {
	log  *logrus.Entry
	conf *conf
	data cpamm_data.Provider
}

func New(data cpamm_data.Provider, configProvider ConfigProvider) async.Service {
	return &service{
		log:  logrus.StandardLogger().WithField("service", "pool"),
		conf: configProvider(),
		data: data,
	}
}

func (p *service) Start(ctx context.Context, interval time.Duration) error {
	// Setup a worker to watch for updates to pool accounts
	go func() {
		err := p.syncWorker(ctx, interval)
		if err != nil && err != context.Canceled {
			p.log.WithError(err).Warn("pool sync loop terminated unexpectedly")
		}
	}()

	// Setup a worker to watch for pools violating creation invariants
	go func() {
		err := p.integrityWorker(ctx)
		if err != nil && err != context.Canceled {
			p.log.WithError(err).Warn("pool integrity loop terminated unexpectedly")
		}
	}()

	go func() {
		err := p.metricsGaugeWorker(ctx)
		if err != nil && err != context.Canceled {
			p.log.WithError(err).Warn("pool metrics gauge loop terminated unexpectedly")
		}
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	}
}
