package cpamm

import (
	"bytes"
	"crypto/ed25519"
	"fmt"

	"github.com/mr-tron/base58"
)

const (
	MaxPoolNameSize   = 32
	MaxPoolSymbolSize = 16
	MaxPoolUriSize    = 128
)

const PoolMetadataAccountSize = (8 + // discriminator
	32 + // pool
	1 + // bump
	MaxPoolNameSize + // name
	MaxPoolSymbolSize + // symbol
	MaxPoolUriSize) // uri

var PoolMetadataAccountDiscriminator = []byte{0x4b, 0x32, 0xe3, 0x30, 0xc0, 0xd4, 0x8d, 0xe2}

// PoolMetadataAccount annotates a pool with display information. It is
// purely informational and never consulted by validation.
type PoolMetadataAccount struct {
	Pool ed25519.PublicKey
	Bump uint8

	Name   string
	Symbol string
	Uri    string
}

func (obj *PoolMetadataAccount) Marshal() []byte {
	data := make([]byte, PoolMetadataAccountSize)

	var offset int

	putDiscriminator(data, PoolMetadataAccountDiscriminator, &offset)
	putKey(data, obj.Pool, &offset)
	putUint8(data, obj.Bump, &offset)
	putFixedString(data, obj.Name, MaxPoolNameSize, &offset)
	putFixedString(data, obj.Symbol, MaxPoolSymbolSize, &offset)
	putFixedString(data, obj.Uri, MaxPoolUriSize, &offset)

	return data
}

func (obj *PoolMetadataAccount) Unmarshal(data []byte) error {
	if len(data) < PoolMetadataAccountSize {
		return ErrInvalidAccountData
	}

	var offset int

	var discriminator []byte
	getDiscriminator(data, &discriminator, &offset)
	if !bytes.Equal(discriminator, PoolMetadataAccountDiscriminator) {
		return ErrInvalidAccountData
	}

	getKey(data, &obj.Pool, &offset)
	getUint8(data, &obj.Bump, &offset)
	getFixedString(data, &obj.Name, MaxPoolNameSize, &offset)
	getFixedString(data, &obj.Symbol, MaxPoolSymbolSize, &offset)
	getFixedString(data, &obj.Uri, MaxPoolUriSize, &offset)

	return nil
}

func (obj *PoolMetadataAccount) String() string {
	return fmt.Sprintf(
		"PoolMetadataAccount{pool=%s,bump=%d,name=%s,symbol=%s,uri=%s}",
		base58.Encode(obj.Pool),
		obj.Bump,
		obj.Name,
		obj.Symbol,
		obj.Uri,
	)
}
