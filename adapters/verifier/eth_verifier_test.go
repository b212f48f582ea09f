package verifier

import (
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyPersonalSignature(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	address := crypto.PubkeyToAddress(key.PublicKey).Hex()
	message := address + ":1538092394:starRegistry"

	sig, err := Sign(message, key)
	require.NoError(t, err)

	ok, err := NewEthVerifier().Verify(message, address, sig)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyAcceptsRawRecoveryID(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	address := crypto.PubkeyToAddress(key.PublicKey).Hex()

	sig, err := Sign("hello", key)
	require.NoError(t, err)
	raw, err := hexutil.Decode(sig)
	require.NoError(t, err)
	raw[crypto.RecoveryIDOffset] -= 27

	ok, err := NewEthVerifier().Verify("hello", address, hexutil.Encode(raw))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyRejectsOtherSigner(t *testing.T) {
	signer, err := crypto.GenerateKey()
	require.NoError(t, err)
	other, err := crypto.GenerateKey()
	require.NoError(t, err)

	sig, err := Sign("hello", signer)
	require.NoError(t, err)

	ok, err := NewEthVerifier().Verify("hello", crypto.PubkeyToAddress(other.PublicKey).Hex(), sig)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyRejectsTamperedMessage(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	address := crypto.PubkeyToAddress(key.PublicKey).Hex()

	sig, err := Sign("A:1:starRegistry", key)
	require.NoError(t, err)

	ok, _ := NewEthVerifier().Verify("A:2:starRegistry", address, sig)
	assert.False(t, ok)
}

func TestVerifyMalformedInput(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	address := crypto.PubkeyToAddress(key.PublicKey).Hex()

	v := NewEthVerifier()
	cases := map[string]struct{ address, signature string }{
		"not hex":       {address, "zz"},
		"short":         {address, "0x1234"},
		"bad recovery":  {address, hexutil.Encode(append(make([]byte, 64), 9))},
		"bitcoin style": {"1HZwkjkeaoZfTSaJxDw6aKkxp45agDiEzN", "0x" + "00"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			ok, err := v.Verify("hello", tc.address, tc.signature)
			assert.Error(t, err)
			assert.False(t, ok)
		})
	}
}

func TestVerifyRejectsOtherSpellingsOfSigner(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	address := crypto.PubkeyToAddress(key.PublicKey).Hex()

	lower := strings.ToLower(address)
	for name, spelling := range map[string]string{
		"lowercase": lower,
		"no prefix": address[2:],
		"uppercase": "0x" + strings.ToUpper(lower[2:]),
	} {
		t.Run(name, func(t *testing.T) {
			sig, err := Sign(spelling+":1538092394:starRegistry", key)
			require.NoError(t, err)

			ok, err := NewEthVerifier().Verify(spelling+":1538092394:starRegistry", spelling, sig)
			assert.Error(t, err)
			assert.False(t, ok)
		})
	}
}
