package cpamm

import (
	"crypto/ed25519"
)

var depositInstructionDiscriminator = []byte{
	0xf2, 0x23, 0xc6, 0x89, 0x52, 0xe1, 0xf2, 0xb6,
}

const (
	DepositInstructionArgsSize = (8 + // amount_0
		8 + // amount_1
		8) // minimum_lp_out
)

type DepositInstructionArgs struct {
	Amount0      uint64
	Amount1      uint64
	MinimumLpOut uint64
}

type DepositInstructionAccounts struct {
	Pool          ed25519.PublicKey
	UserAuthority ed25519.PublicKey
	Input0User    ed25519.PublicKey
	Input0Reserve ed25519.PublicKey
	Input0Fees    ed25519.PublicKey
	Input1User    ed25519.PublicKey
	Input1Reserve ed25519.PublicKey
	Input1Fees    ed25519.PublicKey
	PoolMint      ed25519.PublicKey
	OutputLp      ed25519.PublicKey
}

func NewDepositInstruction(
	accounts *DepositInstructionAccounts,
	args *DepositInstructionArgs,
) Instruction {
	var offset int

	// Serialize instruction arguments
	data := make([]byte,
		len(depositInstructionDiscriminator)+
			DepositInstructionArgsSize)

	putDiscriminator(data, depositInstructionDiscriminator, &offset)
	putUint64(data, args.Amount0, &offset)
	putUint64(data, args.Amount1, &offset)
	putUint64(data, args.MinimumLpOut, &offset)

	return Instruction{
		Program: PROGRAM_ADDRESS,

		// Instruction args
		Data: data,

		// Instruction accounts
		Accounts: []AccountMeta{
			{
				PublicKey:  accounts.Pool,
				IsWritable: false,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.UserAuthority,
				IsWritable: false,
				IsSigner:   true,
			},
			{
				PublicKey:  accounts.Input0User,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.Input0Reserve,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.Input0Fees,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.Input1User,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.Input1Reserve,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.Input1Fees,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.PoolMint,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.OutputLp,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  SPL_TOKEN_PROGRAM_ID,
				IsWritable: false,
				IsSigner:   false,
			},
		},
	}
}
