package cpamm

import (
	"crypto/ed25519"
)

var initPoolInstructionDiscriminator = []byte{
	0x74, 0xe9, 0xc7, 0xcc, 0x73, 0x9f, 0xab, 0x24,
}

const (
	InitPoolInstructionArgsSize = (8 + // index
		PoolFeesSize) // fees
)

type InitPoolInstructionArgs struct {
	Index uint64
	Fees  PoolFees
}

type InitPoolInstructionAccounts struct {
	Factory       ed25519.PublicKey
	Pool          ed25519.PublicKey
	PoolMint      ed25519.PublicKey
	Token0Mint    ed25519.PublicKey
	Token0Fees    ed25519.PublicKey
	Token0Reserve ed25519.PublicKey
	Token1Mint    ed25519.PublicKey
	Token1Fees    ed25519.PublicKey
	Token1Reserve ed25519.PublicKey
	OutputLp      ed25519.PublicKey
	Payer         ed25519.PublicKey
}

func NewInitPoolInstruction(
	accounts *InitPoolInstructionAccounts,
	args *InitPoolInstructionArgs,
) Instruction {
	var offset int

	// Serialize instruction arguments
	data := make([]byte,
		len(initPoolInstructionDiscriminator)+
			InitPoolInstructionArgsSize)

	putDiscriminator(data, initPoolInstructionDiscriminator, &offset)
	putUint64(data, args.Index, &offset)
	putPoolFees(data, &args.Fees, &offset)

	return Instruction{
		Program: PROGRAM_ADDRESS,

		// Instruction args
		Data: data,

		// Instruction accounts
		Accounts: []AccountMeta{
			{
				PublicKey:  accounts.Factory,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.Pool,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.PoolMint,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.Token0Mint,
				IsWritable: false,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.Token0Fees,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.Token0Reserve,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.Token1Mint,
				IsWritable: false,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.Token1Fees,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.Token1Reserve,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.OutputLp,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.Payer,
				IsWritable: true,
				IsSigner:   true,
			},
			{
				PublicKey:  SPL_TOKEN_PROGRAM_ID,
				IsWritable: false,
				IsSigner:   false,
			},
			{
				PublicKey:  SPL_ASSOCIATED_TOKEN_ACCOUNT_PROGRAM_ID,
				IsWritable: false,
				IsSigner:   false,
			},
			{
				PublicKey:  SYSTEM_PROGRAM_ID,
				IsWritable: false,
				IsSigner:   false,
			},
			{
				PublicKey:  SYSVAR_RENT_PUBKEY,
				IsWritable: false,
				IsSigner:   false,
			},
		},
	}
}
