package data

import (
	"bytes"
	"context"

	"github.com/mr-tron/base58"

	"github.com/cpamm-labs/cpamm-server/pkg/metrics"
	"github.com/cpamm-labs/cpamm-server/pkg/solana"
	"github.com/cpamm-labs/cpamm-server/pkg/solana/token"
)

const (
	blockchainProviderMetricsName = "data.blockchain_provider"
)

type BlockchainData interface {
	GetBlockchainAccountInfo(ctx context.Context, account string, commitment solana.Commitment) (*solana.AccountInfo, error)
	GetBlockchainAccountDataAfterBlock(ctx context.Context, account string, slot uint64) ([]byte, uint64, error)
	GetBlockchainBalance(ctx context.Context, account string) (uint64, error)
	GetBlockchainMinimumBalanceForRentExemption(ctx context.Context, size uint64) (uint64, error)
	GetBlockchainSlot(ctx context.Context, commitment solana.Commitment) (uint64, error)
	GetBlockchainTokenAccountBalance(ctx context.Context, account string) (uint64, uint64, error)
	GetBlockchainTokenAccountInfo(ctx context.Context, account string, commitment solana.Commitment) (*token.Account, error)
}

type BlockchainProvider struct {
	sc solana.Client
}

func NewBlockchainProvider(solanaEndpoint string) (BlockchainData, error) {
	return &BlockchainProvider{
		sc: solana.New(solanaEndpoint),
	}, nil
}

func (dp *BlockchainProvider) GetBlockchainAccountInfo(ctx context.Context, account string, commitment solana.Commitment) (*solana.AccountInfo, error) {
	tracer := metrics.TraceMethodCall(ctx, blockchainProviderMetricsName, "GetBlockchainAccountInfo")
	defer tracer.End()

	accountId, err := base58.Decode(account)
	if err != nil {
		return nil, err
	}
	accountInfo, err := dp.sc.GetAccountInfo(accountId, commitment)
	if err != nil {
		tracer.OnError(err)
	}

	return &accountInfo, err
}

func (dp *BlockchainProvider) GetBlockchainAccountDataAfterBlock(ctx context.Context, account string, slot uint64) ([]byte, uint64, error) {
	tracer := metrics.TraceMethodCall(ctx, blockchainProviderMetricsName, "GetBlockchainAccountDataAfterBlock")
	defer tracer.End()

	accountId, err := base58.Decode(account)
	if err != nil {
		return nil, 0, err
	}

	data, block, err := dp.sc.GetAccountDataAfterBlock(accountId, slot)
	if err != nil {
		tracer.OnError(err)
	}
	return data, block, err
}

func (dp *BlockchainProvider) GetBlockchainBalance(ctx context.Context, account string) (uint64, error) {
	tracer := metrics.TraceMethodCall(ctx, blockchainProviderMetricsName, "GetBlockchainBalance")
	defer tracer.End()

	accountId, err := base58.Decode(account)
	if err != nil {
		return 0, err
	}

	balance, err := dp.sc.GetBalance(accountId)
	if err != nil {
		tracer.OnError(err)
	}
	return balance, err
}

func (dp *BlockchainProvider) GetBlockchainMinimumBalanceForRentExemption(ctx context.Context, size uint64) (uint64, error) {
	tracer := metrics.TraceMethodCall(ctx, blockchainProviderMetricsName, "GetBlockchainMinimumBalanceForRentExemption")
	defer tracer.End()

	lamports, err := dp.sc.GetMinimumBalanceForRentExemption(size)
	if err != nil {
		tracer.OnError(err)
	}
	return lamports, err
}

func (dp *BlockchainProvider) GetBlockchainSlot(ctx context.Context, commitment solana.Commitment) (uint64, error) {
	tracer := metrics.TraceMethodCall(ctx, blockchainProviderMetricsName, "GetBlockchainSlot")
	defer tracer.End()

	slot, err := dp.sc.GetSlot(commitment)
	if err != nil {
		tracer.OnError(err)
	}
	return slot, err
}

func (dp *BlockchainProvider) GetBlockchainTokenAccountBalance(ctx context.Context, account string) (uint64, uint64, error) {
	tracer := metrics.TraceMethodCall(ctx, blockchainProviderMetricsName, "GetBlockchainTokenAccountBalance")
	defer tracer.End()

	accountId, err := base58.Decode(account)
	if err != nil {
		return 0, 0, err
	}

	amount, slot, err := dp.sc.GetTokenAccountBalance(accountId)
	if err != nil {
		tracer.OnError(err)
	}
	return amount, slot, err
}

func (dp *BlockchainProvider) GetBlockchainTokenAccountInfo(ctx context.Context, account string, commitment solana.Commitment) (*token.Account, error) {
	tracer := metrics.TraceMethodCall(ctx, blockchainProviderMetricsName, "GetBlockchainTokenAccountInfo")
	defer tracer.End()

	accountId, err := base58.Decode(account)
	if err != nil {
		return nil, err
	}

	accountInfo, err := dp.sc.GetAccountInfo(accountId, commitment)
	if err == solana.ErrNoAccountInfo {
		return nil, token.ErrAccountNotFound
	} else if err != nil {
		tracer.OnError(err)
		return nil, err
	}

	if !bytes.Equal(accountInfo.Owner, token.ProgramKey) {
		return nil, token.ErrInvalidTokenAccount
	}

	var unmarshalled token.Account
	if !unmarshalled.Unmarshal(accountInfo.Data) {
		return nil, token.ErrInvalidTokenAccount
	}
	return &unmarshalled, nil
}
