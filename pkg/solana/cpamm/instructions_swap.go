package cpamm

import (
	"crypto/ed25519"
)

var swapInstructionDiscriminator = []byte{
	0xf8, 0xc6, 0x9e, 0x91, 0xe1, 0x75, 0x87, 0xc8,
}

const (
	SwapInstructionArgsSize = (8 + // amount_in
		8) // minimum_amount_out
)

type SwapInstructionArgs struct {
	AmountIn         uint64
	MinimumAmountOut uint64
}

type SwapInstructionAccounts struct {
	Pool          ed25519.PublicKey
	UserAuthority ed25519.PublicKey
	InputUser     ed25519.PublicKey
	InputReserve  ed25519.PublicKey
	OutputUser    ed25519.PublicKey
	OutputReserve ed25519.PublicKey
}

func NewSwapInstruction(
	accounts *SwapInstructionAccounts,
	args *SwapInstructionArgs,
) Instruction {
	var offset int

	// Serialize instruction arguments
	data := make([]byte,
		len(swapInstructionDiscriminator)+
			SwapInstructionArgsSize)

	putDiscriminator(data, swapInstructionDiscriminator, &offset)
	putUint64(data, args.AmountIn, &offset)
	putUint64(data, args.MinimumAmountOut, &offset)

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
				PublicKey:  accounts.InputUser,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.InputReserve,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.OutputUser,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.OutputReserve,
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
