package solana

import (
	"crypto/ed25519"
	"encoding/base64"
	"strconv"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/ybbus/jsonrpc"

	"github.com/cpamm-labs/cpamm-server/pkg/retry"
	"github.com/cpamm-labs/cpamm-server/pkg/retry/backoff"
)

const (
	// Reference: https://github.com/solana-labs/solana/blob/71e9958e061493d7545bd28d4ac7a85aaed6ffbb/client/src/rpc_custom_error.rs#L11
	rpcNodeUnhealthyCode = -32005

	invalidParamCode = -32602
)

type Commitment struct {
	Commitment string `json:"commitment"`
}

const (
	confirmationStatusProcessed = "processed"
	confirmationStatusConfirmed = "confirmed"
	confirmationStatusFinalized = "finalized"
)

var (
	CommitmentProcessed = Commitment{Commitment: confirmationStatusProcessed}
	CommitmentConfirmed = Commitment{Commitment: confirmationStatusConfirmed}
	CommitmentFinalized = Commitment{Commitment: confirmationStatusFinalized}
)

var (
	ErrNoAccountInfo = errors.New("no account info")
	ErrStaleData     = errors.New("rpc data is stale")
	ErrNoBalance     = errors.New("no balance")
)

// AccountInfo contains the Solana account information (not to be confused with a TokenAccount)
type AccountInfo struct {
	Data       []byte
	Owner      ed25519.PublicKey
	Lamports   uint64
	Executable bool
}

type TokenAmount struct {
	Amount   string `json:"amount"`   // example: "49801500000",
	Decimals uint64 `json:"decimals"` // example: 5,
}

// Client provides an interaction with the Solana JSON RPC API.
//
// Reference: https://docs.solana.com/apps/jsonrpc-api
type Client interface {
	GetAccountInfo(ed25519.PublicKey, Commitment) (AccountInfo, error)
	GetAccountDataAfterBlock(ed25519.PublicKey, uint64) ([]byte, uint64, error)
	GetBalance(ed25519.PublicKey) (uint64, error)
	GetMinimumBalanceForRentExemption(size uint64) (lamports uint64, err error)
	GetSlot(Commitment) (uint64, error)
	GetTokenAccountBalance(ed25519.PublicKey) (uint64, uint64, error)
}

var (
	errRateLimited  = errors.New("rate limited")
	errServiceError = errors.New("service error")
)

type rpcResponse struct {
	Context struct {
		Slot int64 `json:"slot"`
	} `json:"context"`
	Value interface{} `json:"value"`
}

type client struct {
	log     *logrus.Entry
	client  jsonrpc.RPCClient
	retrier retry.Retrier
}

// New returns a client using the specified endpoint.
func New(endpoint string) Client {
	return NewWithRPCOptions(endpoint, nil)
}

// NewWithRPCOptions returns a client configured with the specified RPC options.
func NewWithRPCOptions(endpoint string, opts *jsonrpc.RPCClientOpts) Client {
	return &client{
		log:    logrus.StandardLogger().WithField("type", "solana/client"),
		client: jsonrpc.NewClientWithOpts(endpoint, opts),
		retrier: retry.NewRetrier(
			retry.RetriableErrors(errRateLimited, errServiceError),
			retry.Limit(3),
			retry.BackoffWithJitter(backoff.BinaryExponential(time.Second), 10*time.Second, 0.1),
		),
	}
}

func (c *client) call(out interface{}, method string, params ...interface{}) error {
	_, err := c.retrier.Retry(func() error {
		err := c.client.CallFor(out, method, params...)
		if err == nil {
			return nil
		}

		return c.handleRpcError(method, err)
	})

	return err
}

func (c *client) callBatch(method string, requests jsonrpc.RPCRequests) (map[int]jsonrpc.RPCResponse, error) {
	var returnValue map[int]jsonrpc.RPCResponse

	_, err := c.retrier.Retry(func() error {
		responses, err := c.client.CallBatch(requests)
		if err != nil {
			return c.handleRpcError(method, err)
		}

		responseByID := make(map[int]jsonrpc.RPCResponse)
		for _, response := range responses {
			if response.Error != nil {
				return c.handleRpcError(method, response.Error)
			}

			responseByID[response.ID] = *response
		}

		returnValue = responseByID
		return nil
	})

	return returnValue, err
}

func (c *client) handleRpcError(method string, err error) error {
	rpcErr, ok := err.(*jsonrpc.RPCError)
	if !ok {
		return err
	}
	if rpcErr.Code == 429 {
		c.log.WithField("method", method).Error("rate limited")
		return errRateLimited
	}
	if rpcErr.Code >= 500 || rpcErr.Code == rpcNodeUnhealthyCode {
		return errServiceError
	}

	return err
}

func (c *client) GetMinimumBalanceForRentExemption(dataSize uint64) (lamports uint64, err error) {
	if err := c.call(&lamports, "getMinimumBalanceForRentExemption", dataSize); err != nil {
		return 0, errors.Wrapf(err, "getMinimumBalanceForRentExemption() failed to send request")
	}

	return lamports, nil
}

func (c *client) GetSlot(commitment Commitment) (slot uint64, err error) {
	// note: we have to wrap the commitment in an []interface{} otherwise the
	//       solana RPC node complains. Technically this is a violation of the
	//       JSON RPC v2.0 spec.
	if err := c.call(&slot, "getSlot", []interface{}{commitment}); err != nil {
		return 0, errors.Wrapf(err, "getSlot() failed to send request")
	}

	return slot, nil
}

func (c *client) GetBalance(account ed25519.PublicKey) (uint64, error) {
	var resp rpcResponse
	if err := c.call(&resp, "getBalance", base58.Encode(account[:]), CommitmentProcessed); err != nil {
		jsonRPCErr, ok := err.(*jsonrpc.RPCError)
		if !ok {
			return 0, errors.Wrapf(err, "getBalance() failed to send request")
		}

		if jsonRPCErr.Code == invalidParamCode {
			return 0, ErrNoBalance
		}

		return 0, errors.Wrapf(err, "getBalance() failed to send request")
	}

	if balance, ok := resp.Value.(float64); ok {
		return uint64(balance), nil
	}

	return 0, errors.Errorf("invalid value in response")
}

func (c *client) GetTokenAccountBalance(account ed25519.PublicKey) (uint64, uint64, error) {
	var resp struct {
		Context struct {
			Slot int64 `json:"slot"`
		} `json:"context"`
		Value TokenAmount `json:"value"`
	}
	if err := c.call(&resp, "getTokenAccountBalance", base58.Encode(account[:]), CommitmentFinalized); err != nil {
		jsonRPCErr, ok := err.(*jsonrpc.RPCError)
		if !ok {
			return 0, 0, errors.Wrapf(err, "getTokenAccountBalance() failed to send request")
		}

		if jsonRPCErr.Code == invalidParamCode {
			return 0, 0, ErrNoBalance
		}

		return 0, 0, errors.Wrapf(err, "getTokenAccountBalance() failed to send request")
	}

	quarks, err := strconv.ParseUint(resp.Value.Amount, 10, 64)
	if err != nil {
		return 0, 0, errors.Errorf("invalid value in response")
	}

	return quarks, uint64(resp.Context.Slot), nil
}

func (c *client) GetAccountInfo(account ed25519.PublicKey, commitment Commitment) (accountInfo AccountInfo, err error) {
	type rpcResponse struct {
		Value *struct {
			Lamports   uint64   `json:"lamports"`
			Owner      string   `json:"owner"`
			Data       []string `json:"data"`
			Executable bool     `json:"executable"`
		} `json:"value"`
	}

	rpcConfig := struct {
		Commitment Commitment `json:"commitment"`
		Encoding   string     `json:"encoding"`
	}{
		Commitment: commitment,
		Encoding:   "base64",
	}

	var resp rpcResponse
	if err := c.call(&resp, "getAccountInfo", base58.Encode(account[:]), rpcConfig); err != nil {
		return accountInfo, errors.Wrap(err, "getAccountInfo() failed to send request")
	}

	if resp.Value == nil {
		return accountInfo, ErrNoAccountInfo
	}

	accountInfo.Owner, err = base58.Decode(resp.Value.Owner)
	if err != nil {
		return accountInfo, errors.Wrap(err, "invalid base58 encoded owner")
	}

	accountInfo.Data, err = base64.StdEncoding.DecodeString(resp.Value.Data[0])
	if err != nil {
		return accountInfo, errors.Wrap(err, "invalid base58 encoded data")
	}

	accountInfo.Lamports = resp.Value.Lamports
	accountInfo.Executable = resp.Value.Executable

	return accountInfo, nil
}

func (c *client) GetAccountDataAfterBlock(account ed25519.PublicKey, slot uint64) ([]byte, uint64, error) {
	batchMethodName := "getAccountDataAfterBlock"

	// Setup individual requests to send in the batch. In particular, we're fetching
	// the account info along with additional node metadata to decrease the chance of
	// getting stale/incorrect result due to the node being behind or on a micro fork.
	//
	// Note: These checks don't protect us from a malicious RPC node

	getBlockHeightRequest := jsonrpc.NewRequest("getBlockHeight", []interface{}{CommitmentFinalized})

	getBlockRpcConfig := struct {
		Encoding           string `json:"encoding"`
		TransactionDetails string `json:"transactionDetails"`
		Rewards            bool   `json:"rewards"`
	}{
		Encoding:           "base64",
		TransactionDetails: "none",
		Rewards:            false,
	}
	getBlockRequest := jsonrpc.NewRequest("getBlock", slot, getBlockRpcConfig)

	getAccountInfoRpcConfig := struct {
		Commitment Commitment `json:"commitment"`
		Encoding   string     `json:"encoding"`
	}{
		Commitment: CommitmentFinalized,
		Encoding:   "base64",
	}
	getAccountInfoRequest := jsonrpc.NewRequest("getAccountInfo", base58.Encode(account[:]), getAccountInfoRpcConfig)

	// Submit the batched RPC call

	responsesByID, err := c.callBatch(
		batchMethodName,
		jsonrpc.RPCRequests{
			getBlockHeightRequest,
			getBlockRequest,
			getAccountInfoRequest,
		},
	)
	if err != nil {
		return nil, 0, err
	}

	// Parse each individual RPC response

	if len(responsesByID) != 3 {
		return nil, 0, errors.New("received unexpected number of response objects")
	}

	getBlockHeightResp, ok := responsesByID[getBlockHeightRequest.ID]
	if !ok {
		return nil, 0, errors.New("getBlockHeight response missing")
	}

	var currentBlockHeight uint64
	if err := getBlockHeightResp.GetObject(&currentBlockHeight); err != nil {
		return nil, 0, errors.Wrap(err, "invalid getBlockHeight response")
	}

	getBlockResp, ok := responsesByID[getBlockRequest.ID]
	if !ok {
		return nil, 0, errors.New("getAccount response missing")
	}

	type getBlockResponseBody struct {
		BlockHeight uint64 `json:"blockHeight"`
	}
	var unmarshalledGetBlockResp getBlockResponseBody
	if err := getBlockResp.GetObject(&unmarshalledGetBlockResp); err != nil {
		return nil, 0, errors.New("invalid getBlock response")
	}

	getAccountInfoResp, ok := responsesByID[getAccountInfoRequest.ID]
	if !ok {
		return nil, 0, errors.New("getAccountInfo response missing")
	}

	type getAccountInfoRespBody struct {
		Context struct {
			Slot uint64 `json:"slot"`
		} `json:"context"`
		Value *struct {
			Data []string `json:"data"`
		} `json:"value"`
	}
	var unmarshalledGetAccountInfoResp getAccountInfoRespBody
	if err := getAccountInfoResp.GetObject(&unmarshalledGetAccountInfoResp); err != nil {
		return nil, 0, errors.Wrap(err, "invalid getAccountInfo response")
	}

	// Perform node state safety checks

	// We shouldn't hit this case. The node shouldn't know about the block if
	// its finalized blockheight is less than block we've queried for.
	if currentBlockHeight < unmarshalledGetBlockResp.BlockHeight {
		return nil, 0, ErrStaleData
	}

	// Enforce 32 additional finalized blocks on top of the desired block. We're
	// effectively enforcing 2x the number of finalized confirmations.
	if currentBlockHeight-unmarshalledGetBlockResp.BlockHeight <= 32 {
		return nil, 0, ErrStaleData
	}

	// This shouldn't happen given the prior checks. It indicates the RPC node
	// isn't evaluating account info at the latest finalized block. Regardless,
	// it must fail the call because we want account data after a given block.
	if unmarshalledGetAccountInfoResp.Context.Slot <= slot {
		return nil, 0, ErrStaleData
	}

	// Everything checks out, so return the account data, if available
	if unmarshalledGetAccountInfoResp.Value == nil {
		return nil, unmarshalledGetAccountInfoResp.Context.Slot, ErrNoAccountInfo
	}
	rawData, err := base64.StdEncoding.DecodeString(unmarshalledGetAccountInfoResp.Value.Data[0])
	if err != nil {
		return nil, 0, errors.Wrap(err, "invalid base64 encoded account data")
	}
	return rawData, unmarshalledGetAccountInfoResp.Context.Slot, nil
}
