package data

import (
	pg "github.com/cpamm-labs/cpamm-server/pkg/database/postgres"
)

const (
	maxPoolBatchReqSize = 1024
)

type Provider interface {
	BlockchainData
	DatabaseData

	GetBlockchainDataProvider() BlockchainData
	GetDatabaseDataProvider() DatabaseData
}

type provider struct {
	*BlockchainProvider
	*DatabaseProvider
}

func NewDataProvider(dbConfig *pg.Config, solanaEndpoint string) (Provider, error) {
	blockchain, err := NewBlockchainProvider(solanaEndpoint)
	if err != nil {
		return nil, err
	}

	db, err := NewDatabaseProvider(dbConfig)
	if err != nil {
		return nil, err
	}

	return &provider{
		BlockchainProvider: blockchain.(*BlockchainProvider),
		DatabaseProvider:   db.(*DatabaseProvider),
	}, nil
}

func (p *provider) GetBlockchainDataProvider() BlockchainData {
	return p.BlockchainProvider
}

func (p *provider) GetDatabaseDataProvider() DatabaseData {
	return p.DatabaseProvider
}
