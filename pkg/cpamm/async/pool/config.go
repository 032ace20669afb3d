package async_pool

import (
	"time"

	"github.com/cpamm-labs/cpamm-server/pkg/config"
	"github.com/cpamm-labs/cpamm-server/pkg/config/env"
	"github.com/cpamm-labs/cpamm-server/pkg/config/memory"
	"github.com/cpamm-labs/cpamm-server/pkg/config/wrapper"
)

const (
	envConfigPrefix = "POOL_SERVICE_"

	BatchSizeConfigEnvName = envConfigPrefix + "BATCH_SIZE"
	defaultBatchSize       = 10

	IntegrityCheckIntervalConfigEnvName = envConfigPrefix + "INTEGRITY_CHECK_INTERVAL"
	defaultIntegrityCheckInterval       = 5 * time.Minute
)

type conf struct {
	batchSize              config.Uint64
	integrityCheckInterval config.Duration
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			batchSize:              env.NewUint64Config(BatchSizeConfigEnvName, defaultBatchSize),
			integrityCheckInterval: env.NewDurationConfig(IntegrityCheckIntervalConfigEnvName, defaultIntegrityCheckInterval),
		}
	}
}

type testOverrides struct {
	batchSize              uint64
	integrityCheckInterval time.Duration
}

func withManualTestOverrides(overrides *testOverrides) ConfigProvider {
	if overrides.batchSize == 0 {
		overrides.batchSize = defaultBatchSize
	}

	if overrides.integrityCheckInterval == 0 {
		overrides.integrityCheckInterval = defaultIntegrityCheckInterval
	}

	return func() *conf {
		return &conf{
			batchSize:              wrapper.NewUint64Config(memory.NewConfig(overrides.batchSize), defaultBatchSize),
			integrityCheckInterval: wrapper.NewDurationConfig(memory.NewConfig(overrides.integrityCheckInterval), defaultIntegrityCheckInterval),
		}
	}
}
