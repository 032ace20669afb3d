package cpamm

import (
	"crypto/ed25519"
	"encoding/binary"

	"github.com/cpamm-labs/cpamm-server/pkg/solana"
	"github.com/cpamm-labs/cpamm-server/pkg/solana/token"
)

var (
	factoryPrefix      = []byte("cpamm_factory")
	poolPrefix         = []byte("cpamm_pool")
	poolMetadataPrefix = []byte("cpamm_pool_meta")
)

func GetFactoryAddress() (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(
		PROGRAM_ID,
		factoryPrefix,
	)
}

type GetPoolAddressArgs struct {
	Factory ed25519.PublicKey
	Index   uint64
}

func GetPoolAddress(args *GetPoolAddressArgs) (ed25519.PublicKey, uint8, error) {
	indexBytes := make([]byte, 8)
	binary.LittleEndian.PutUint64(indexBytes, args.Index)

	return solana.FindProgramAddressAndBump(
		PROGRAM_ID,
		poolPrefix,
		args.Factory,
		indexBytes,
	)
}

type GetPoolMetadataAddressArgs struct {
	Pool ed25519.PublicKey
}

func GetPoolMetadataAddress(args *GetPoolMetadataAddressArgs) (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(
		PROGRAM_ID,
		poolMetadataPrefix,
		args.Pool,
	)
}

type GetReserveAddressArgs struct {
	Pool ed25519.PublicKey
	Mint ed25519.PublicKey
}

// GetReserveAddress returns the canonical reserve for a (pool, mint) pair,
// which is the pool's associated token account for the mint.
func GetReserveAddress(args *GetReserveAddressArgs) (ed25519.PublicKey, error) {
	return token.GetAssociatedAccount(args.Pool, args.Mint)
}
