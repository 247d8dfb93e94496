package webserver

import (
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signNonce(t *testing.T, nonce string) (addr, sigHex string) {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	sig, err := crypto.Sign(accounts.TextHash([]byte(nonce)), key)
	require.NoError(t, err)
	// Wallets report V as 27/28.
	sig[crypto.RecoveryIDOffset] += 27

	return crypto.PubkeyToAddress(key.PublicKey).Hex(), hexutil.Encode(sig)
}

func TestVerifySignature(t *testing.T) {
	nonce := "d2c2dbb1-9b84-4f8f-a8d7-000000000001"
	addr, sigHex := signNonce(t, nonce)

	assert.NoError(t, verifySignature(addr, sigHex, nonce))

	// Signature over a different nonce recovers a different address.
	assert.Error(t, verifySignature(addr, sigHex, "another-nonce"))

	// Signature from a different key.
	otherAddr, _ := signNonce(t, nonce)
	assert.Error(t, verifySignature(otherAddr, sigHex, nonce))

	assert.Error(t, verifySignature(addr, "not-hex", nonce))
	assert.Error(t, verifySignature(addr, "0x0102", nonce))
}

func TestVerifySignatureAddressCaseInsensitive(t *testing.T) {
	nonce := "d2c2dbb1-9b84-4f8f-a8d7-000000000002"
	addr, sigHex := signNonce(t, nonce)

	// Lowercased address must still verify.
	assert.NoError(t, verifySignature(strings.ToLower(addr), sigHex, nonce))
}
