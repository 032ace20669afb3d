package postgres

import (
	"database/sql"
	"os"
	"testing"

	"github.com/ory/dockertest/v3"
	"github.com/sirupsen/logrus"

	"github.com/cpamm-labs/cpamm-server/pkg/cpamm/data/pool"
	"github.com/cpamm-labs/cpamm-server/pkg/cpamm/data/pool/tests"

	postgrestest "github.com/cpamm-labs/cpamm-server/pkg/database/postgres/test"

	_ "github.com/jackc/pgx/v4/stdlib"
)

const (
	// Used for testing ONLY, the table and migrations are external to this repository
	tableCreate = `
		CREATE TABLE cpamm__core_pool(
			id SERIAL NOT NULL PRIMARY KEY,

			address TEXT NOT NULL,
			bump INTEGER NOT NULL,

			factory TEXT NOT NULL,
			index INTEGER NOT NULL,

			token_0_mint TEXT NOT NULL,
			token_0_reserve TEXT NOT NULL,
			token_0_fees TEXT NOT NULL,

			token_1_mint TEXT NOT NULL,
			token_1_reserve TEXT NOT NULL,
			token_1_fees TEXT NOT NULL,

			pool_mint TEXT NOT NULL,

			is_paused BOOL NOT NULL,

			trade_fee_bps INTEGER NOT NULL,
			withdraw_fee_bps INTEGER NOT NULL,
			admin_trade_fee_bps INTEGER NOT NULL,
			admin_withdraw_fee_bps INTEGER NOT NULL,

			name TEXT NULL,
			symbol TEXT NULL,

			solana_block INTEGER NOT NULL,

			last_updated_at TIMESTAMP WITH TIME ZONE,

			CONSTRAINT cpamm__core_pool__uniq__address UNIQUE (address),
			CONSTRAINT cpamm__core_pool__uniq__pool_mint UNIQUE (pool_mint)
		);
	`

	// Used for testing ONLY, the table and migrations are external to this repository
	tableDestroy = `
		DROP TABLE cpamm__core_pool;
	`
)

var (
	testStore pool.Store
	teardown  func()
)

func TestMain(m *testing.M) {
	log := logrus.StandardLogger()

	testPool, err := dockertest.NewPool("")
	if err != nil {
		log.WithError(err).Error("Error creating docker pool")
		os.Exit(1)
	}

	var cleanUpFunc func()
	db, cleanUpFunc, err := postgrestest.StartPostgresDB(testPool)
	if err != nil {
		log.WithError(err).Error("Error starting postgres image")
		os.Exit(1)
	}
	defer db.Close()

	if err := createTestTables(db); err != nil {
		logrus.StandardLogger().WithError(err).Error("Error creating test tables")
		cleanUpFunc()
		os.Exit(1)
	}

	testStore = New(db)
	teardown = func() {
		if pc := recover(); pc != nil {
			cleanUpFunc()
			panic(pc)
		}

		if err := resetTestTables(db); err != nil {
			logrus.StandardLogger().WithError(err).Error("Error resetting test tables")
			cleanUpFunc()
			os.Exit(1)
		}
	}

	code := m.Run()
	cleanUpFunc()
	os.Exit(code)
}

func TestPoolPostgresStore(t *testing.T) {
	tests.RunTests(t, testStore, teardown)
}

func createTestTables(db *sql.DB) error {
	_, err := db.Exec(tableCreate)
	if err != nil {
		logrus.StandardLogger().WithError(err).Error("could not create test tables")
		return err
	}
	return nil
}

func resetTestTables(db *sql.DB) error {
	_, err := db.Exec(tableDestroy)
	if err != nil {
		logrus.StandardLogger().WithError(err).Error("could not drop test tables")
		return err
	}

	return createTestTables(db)
}
