package cpamm

import (
	"bytes"
	"crypto/ed25519"
	"fmt"

	"github.com/mr-tron/base58"
)

const FactoryAccountSize = (8 + // discriminator
	32 + // admin
	1 + // bump
	8) // num_pools

var FactoryAccountDiscriminator = []byte{0x9f, 0x44, 0xc0, 0x3d, 0x30, 0xf9, 0xd8, 0xca}

// FactoryAccount is the root account all pools are created under.
type FactoryAccount struct {
	Admin    ed25519.PublicKey
	Bump     uint8
	NumPools uint64
}

func (obj *FactoryAccount) Marshal() []byte {
	data := make([]byte, FactoryAccountSize)

	var offset int

	putDiscriminator(data, FactoryAccountDiscriminator, &offset)
	putKey(data, obj.Admin, &offset)
	putUint8(data, obj.Bump, &offset)
	putUint64(data, obj.NumPools, &offset)

	return data
}

func (obj *FactoryAccount) Unmarshal(data []byte) error {
	if len(data) < FactoryAccountSize {
		return ErrInvalidAccountData
	}

	var offset int

	var discriminator []byte
	getDiscriminator(data, &discriminator, &offset)
	if !bytes.Equal(discriminator, FactoryAccountDiscriminator) {
		return ErrInvalidAccountData
	}

	getKey(data, &obj.Admin, &offset)
	getUint8(data, &obj.Bump, &offset)
	getUint64(data, &obj.NumPools, &offset)

	return nil
}

func (obj *FactoryAccount) String() string {
	return fmt.Sprintf(
		"FactoryAccount{admin=%s,bump=%d,num_pools=%d}",
		base58.Encode(obj.Admin),
		obj.Bump,
		obj.NumPools,
	)
}
