package dispatch

import (
	"context"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/cpamm-labs/cpamm-server/pkg/cpamm/data/pool"
	"github.com/cpamm-labs/cpamm-server/pkg/lock"
	"github.com/cpamm-labs/cpamm-server/pkg/solana/cpamm"
	sync_util "github.com/cpamm-labs/cpamm-server/pkg/sync"
)

const (
	stripedLockParallelization = 1024
)

var (
	// ErrLockLost indicates the pool lock was lost between validation and
	// execution. The operation must not proceed.
	ErrLockLost = errors.New("pool lock lost")
)

// Dispatcher serializes validate-then-execute against individual pools.
// Validation itself is pure; the dispatcher provides the execution context
// it assumes: a per-pool lock held from state resolution until the caller's
// execution step completes.
//
// Distributed locks are re-entrant per manager, so a local striped lock
// coordinates goroutines within this process and the distributed lock
// coordinates across processes.
type Dispatcher struct {
	log       *logrus.Entry
	data      pool.Store
	locks     lock.Manager
	poolLocks *sync_util.StripedLock
}

func NewDispatcher(data pool.Store, locks lock.Manager) *Dispatcher {
	return &Dispatcher{
		log:       logrus.StandardLogger().WithField("type", "cpamm/dispatch"),
		data:      data,
		locks:     locks,
		poolLocks: sync_util.NewStripedLock(stripedLockParallelization),
	}
}

// Validate checks an operation against current pool state under the pool's
// lock. A nil return means the operation was valid at the time of the call;
// without ExecuteValidated there's no guarantee it still is afterwards.
func (d *Dispatcher) Validate(ctx context.Context, op Op) error {
	return d.ExecuteValidated(ctx, op, nil)
}

// ExecuteValidated validates an operation and, while still holding the
// pool's lock, runs the caller's execution step. Validation failures are
// returned verbatim as *cpamm.ValidationError and nothing is executed.
func (d *Dispatcher) ExecuteValidated(ctx context.Context, op Op, execute func(ctx context.Context) error) error {
	requestId := uuid.New().String()

	log := d.log.WithFields(logrus.Fields{
		"method":     "ExecuteValidated",
		"request_id": requestId,
		"operation":  op.operationName(),
		"pool":       op.poolAddress(),
	})

	poolLock := d.poolLocks.Get([]byte(op.poolAddress()))
	poolLock.Lock()
	defer poolLock.Unlock()

	distributedLock, err := d.locks.Create(ctx, "pool/"+op.poolAddress())
	if err != nil {
		log.WithError(err).Warn("failure creating pool lock")
		return errors.Wrap(err, "error creating pool lock")
	}

	lostCh, err := distributedLock.Acquire(ctx)
	if err != nil {
		log.WithError(err).Warn("failure acquiring pool lock")
		return errors.Wrap(err, "error acquiring pool lock")
	}
	defer distributedLock.Unlock(ctx)

	// State is resolved after the lock is held, so validation always
	// observes the current persisted state.
	record, err := d.data.GetByAddress(ctx, op.poolAddress())
	if err == pool.ErrPoolNotFound {
		return err
	} else if err != nil {
		log.WithError(err).Warn("failure getting pool record")
		return errors.Wrap(err, "error getting pool record")
	}

	poolAccount, err := record.ToProgramAccount()
	if err != nil {
		log.WithError(err).Warn("failure rebuilding pool account state")
		return errors.Wrap(err, "error rebuilding pool account state")
	}

	poolAddressBytes, err := base58.Decode(record.Address)
	if err != nil {
		return errors.Wrap(err, "error decoding pool address")
	}

	err = cpamm.Validate(op.buildRequest(poolAccount, poolAddressBytes))
	if err != nil {
		if validationError, ok := cpamm.IsValidationError(err); ok {
			log.WithError(err).Info("operation rejected")
			recordOpRejectedEvent(ctx, op.operationName(), record.Address, validationError.Code)
			return err
		}

		log.WithError(err).Warn("failure validating operation")
		return err
	}

	recordOpValidatedEvent(ctx, op.operationName(), record.Address)

	if execute == nil {
		return nil
	}

	select {
	case <-lostCh:
		log.Warn("pool lock lost before execution")
		return ErrLockLost
	default:
	}

	if err := execute(ctx); err != nil {
		log.WithError(err).Warn("failure executing operation")
		return errors.Wrap(err, "error executing operation")
	}

	return nil
}

// ValidateInitPool checks a pool creation request. The pool doesn't exist
// yet, so there's no state to resolve and no lock to hold.
func (d *Dispatcher) ValidateInitPool(ctx context.Context, req *cpamm.InitPoolRequest) error {
	requestId := uuid.New().String()

	log := d.log.WithFields(logrus.Fields{
		"method":     "ValidateInitPool",
		"request_id": requestId,
		"pool":       base58.Encode(req.Pool),
	})

	err := cpamm.Validate(req)
	if err != nil {
		if validationError, ok := cpamm.IsValidationError(err); ok {
			log.WithError(err).Info("pool creation rejected")
			recordOpRejectedEvent(ctx, "init_pool", base58.Encode(req.Pool), validationError.Code)
			return err
		}

		log.WithError(err).Warn("failure validating pool creation")
		return err
	}

	recordOpValidatedEvent(ctx, "init_pool", base58.Encode(req.Pool))

	return nil
}
