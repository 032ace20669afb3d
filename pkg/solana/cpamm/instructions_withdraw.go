package cpamm

import (
	"crypto/ed25519"
)

var withdrawInstructionDiscriminator = []byte{
	0xb7, 0x12, 0x46, 0x9c, 0x94, 0x6d, 0xa1, 0x22,
}

const (
	WithdrawInstructionArgsSize = (8 + // lp_amount
		8 + // minimum_amount_0
		8) // minimum_amount_1
)

type WithdrawInstructionArgs struct {
	LpAmount       uint64
	MinimumAmount0 uint64
	MinimumAmount1 uint64
}

type WithdrawInstructionAccounts struct {
	Pool           ed25519.PublicKey
	UserAuthority  ed25519.PublicKey
	InputLp        ed25519.PublicKey
	PoolMint       ed25519.PublicKey
	Output0User    ed25519.PublicKey
	Output0Reserve ed25519.PublicKey
	Output0Fees    ed25519.PublicKey
	Output1User    ed25519.PublicKey
	Output1Reserve ed25519.PublicKey
	Output1Fees    ed25519.PublicKey
}

func NewWithdrawInstruction(
	accounts *WithdrawInstructionAccounts,
	args *WithdrawInstructionArgs,
) Instruction {
	var offset int

	// Serialize instruction arguments
	data := make([]byte,
		len(withdrawInstructionDiscriminator)+
			WithdrawInstructionArgsSize)

	putDiscriminator(data, withdrawInstructionDiscriminator, &offset)
	putUint64(data, args.LpAmount, &offset)
	putUint64(data, args.MinimumAmount0, &offset)
	putUint64(data, args.MinimumAmount1, &offset)

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
				PublicKey:  accounts.InputLp,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.PoolMint,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.Output0User,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.Output0Reserve,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.Output0Fees,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.Output1User,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.Output1Reserve,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.Output1Fees,
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
