package token

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMintRoundTrip(t *testing.T) {
	mintAuthority := make(ed25519.PublicKey, ed25519.PublicKeySize)
	for i := 0; i < len(mintAuthority); i++ {
		mintAuthority[i] = 1
	}
	freezeAuthority := make(ed25519.PublicKey, ed25519.PublicKeySize)
	for i := 0; i < len(freezeAuthority); i++ {
		freezeAuthority[i] = 2
	}

	expected := Mint{
		MintAuthority:   mintAuthority,
		Supply:          1000000,
		Decimals:        9,
		IsInitialized:   true,
		FreezeAuthority: freezeAuthority,
	}

	var actual Mint
	require.True(t, actual.Unmarshal(expected.Marshal()))
	assert.Equal(t, expected, actual)
}

func TestMintRoundTrip_NoAuthorities(t *testing.T) {
	expected := Mint{
		Supply:        500,
		Decimals:      6,
		IsInitialized: true,
	}

	var actual Mint
	require.True(t, actual.Unmarshal(expected.Marshal()))
	assert.Empty(t, actual.MintAuthority)
	assert.Empty(t, actual.FreezeAuthority)
	assert.Equal(t, expected.Supply, actual.Supply)
	assert.Equal(t, expected.Decimals, actual.Decimals)

	assert.False(t, actual.Unmarshal(make([]byte, MintSize-1)))
}
