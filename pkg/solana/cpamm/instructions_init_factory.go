package cpamm

import (
	"crypto/ed25519"
)

var initFactoryInstructionDiscriminator = []byte{
	0x41, 0x88, 0xdb, 0xb1, 0xea, 0xc5, 0x18, 0x27,
}

const (
	InitFactoryInstructionArgsSize = 0
)

type InitFactoryInstructionArgs struct {
}

type InitFactoryInstructionAccounts struct {
	Factory ed25519.PublicKey
	Admin   ed25519.PublicKey
	Payer   ed25519.PublicKey
}

func NewInitFactoryInstruction(
	accounts *InitFactoryInstructionAccounts,
	args *InitFactoryInstructionArgs,
) Instruction {
	var offset int

	// Serialize instruction arguments
	data := make([]byte,
		len(initFactoryInstructionDiscriminator)+
			InitFactoryInstructionArgsSize)

	putDiscriminator(data, initFactoryInstructionDiscriminator, &offset)

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
				PublicKey:  accounts.Admin,
				IsWritable: false,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.Payer,
				IsWritable: true,
				IsSigner:   true,
			},
			{
				PublicKey:  SYSTEM_PROGRAM_ID,
				IsWritable: false,
				IsSigner:   false,
			},
		},
	}
}
