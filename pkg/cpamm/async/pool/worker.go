package async_pool

import (
	"context"
	"sync"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"

	"github.com/cpamm-labs/cpamm-server/pkg/cpamm/data/pool"
	"github.com/cpamm-labs/cpamm-server/pkg/database/query"
	"github.com/cpamm-labs/cpamm-server/pkg/metrics"
	"github.com/cpamm-labs/cpamm-server/pkg/retry"
	"github.com/cpamm-labs/cpamm-server/pkg/solana/cpamm"
)

func (p *service) syncWorker(serviceCtx context.Context, interval time.Duration) error {
	delay := interval
	var cursor query.Cursor

	err := retry.Loop(
		func() (err error) {
			time.Sleep(delay)

			nr := serviceCtx.Value(metrics.NewRelicContextKey).(*newrelic.Application)
			m := nr.StartTransaction("async__pool_service__sync")
			defer m.End()
			tracedCtx := newrelic.NewContext(serviceCtx, m)

			// Get a batch of pools to sync
			items, err := p.data.GetAllPools(
				tracedCtx,
				query.WithCursor(cursor),
				query.WithDirection(query.Ascending),
				query.WithLimit(p.conf.batchSize.Get(tracedCtx)),
			)
			if err != nil && err != pool.ErrPoolNotFound {
				cursor = query.EmptyCursor
				return err
			}

			// Process the batch of pools in parallel
			var wg sync.WaitGroup
			for _, item := range items {
				wg.Add(1)
				go func(record *pool.Record) {
					defer wg.Done()

					err := p.handle(tracedCtx, record)
					if err != nil {
						m.NoticeError(err)
					}
				}(item)
			}
			wg.Wait()

			// Update cursor to point to the next set of pools
			if len(items) > 0 {
				cursor = query.ToCursor(items[len(items)-1].Id)
			} else {
				cursor = query.EmptyCursor
			}

			return nil
		},
		retry.NonRetriableErrors(context.Canceled),
	)

	return err
}

func (p *service) handle(ctx context.Context, record *pool.Record) error {
	err := p.updateAccountState(ctx, record)
	if err != nil {
		return err
	}

	return p.checkIntegrity(ctx, record)
}

func (p *service) updateAccountState(ctx context.Context, record *pool.Record) error {
	data, solanaBlock, err := p.data.GetBlockchainAccountDataAfterBlock(ctx, record.Address, record.SolanaBlock)
	if err != nil {
		return errors.Wrap(err, "error querying latest account data from blockchain")
	}

	var unmarshalled cpamm.PoolAccount
	err = unmarshalled.Unmarshal(data)
	if err != nil {
		return errors.Wrap(err, "error unmarshalling account data")
	}

	err = record.UpdateFromProgramAccount(&unmarshalled, solanaBlock)
	if err == pool.ErrStalePoolState {
		return nil
	} else if err != nil {
		return err
	}

	return p.data.SavePool(ctx, record)
}

func (p *service) checkIntegrity(ctx context.Context, record *pool.Record) error {
	err := record.CheckIntegrity()
	if err != nil {
		p.log.
			WithField("pool", record.Address).
			WithError(err).
			Warn("pool violates creation invariants")

		recordIntegrityViolationEvent(ctx, record.Address, err)
	}

	// The violation is reported, but the sync loop keeps running for the
	// remaining pools.
	return nil
}

func (p *service) integrityWorker(serviceCtx context.Context) error {
	for {
		select {
		case <-serviceCtx.Done():
			return serviceCtx.Err()
		case <-time.After(p.conf.integrityCheckInterval.Get(serviceCtx)):
			var cursor query.Cursor

			for {
				items, err := p.data.GetAllPools(
					serviceCtx,
					query.WithCursor(cursor),
					query.WithDirection(query.Ascending),
					query.WithLimit(p.conf.batchSize.Get(serviceCtx)),
				)
				if err == pool.ErrPoolNotFound {
					break
				} else if err != nil {
					break
				}

				for _, item := range items {
					p.checkIntegrity(serviceCtx, item)
				}

				cursor = query.ToCursor(items[len(items)-1].Id)
			}
		}
	}
}
