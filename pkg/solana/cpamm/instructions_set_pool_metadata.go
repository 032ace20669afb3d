package cpamm

import (
	"crypto/ed25519"
)

var setPoolMetadataInstructionDiscriminator = []byte{
	0x34, 0xc4, 0x2c, 0x3c, 0xc9, 0xa2, 0x37, 0x08,
}

const (
	SetPoolMetadataInstructionArgsSize = (MaxPoolNameSize + // name
		MaxPoolSymbolSize + // symbol
		MaxPoolUriSize) // uri
)

type SetPoolMetadataInstructionArgs struct {
	Name   string
	Symbol string
	Uri    string
}

type SetPoolMetadataInstructionAccounts struct {
	Pool     ed25519.PublicKey
	Metadata ed25519.PublicKey
	Admin    ed25519.PublicKey
	Payer    ed25519.PublicKey
}

func NewSetPoolMetadataInstruction(
	accounts *SetPoolMetadataInstructionAccounts,
	args *SetPoolMetadataInstructionArgs,
) Instruction {
	var offset int

	// Serialize instruction arguments
	data := make([]byte,
		len(setPoolMetadataInstructionDiscriminator)+
			SetPoolMetadataInstructionArgsSize)

	putDiscriminator(data, setPoolMetadataInstructionDiscriminator, &offset)
	putFixedString(data, args.Name, MaxPoolNameSize, &offset)
	putFixedString(data, args.Symbol, MaxPoolSymbolSize, &offset)
	putFixedString(data, args.Uri, MaxPoolUriSize, &offset)

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
				PublicKey:  accounts.Metadata,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.Admin,
				IsWritable: false,
				IsSigner:   true,
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
