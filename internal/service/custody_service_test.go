package service

import (
	"testing"

	"campus-credit-ledger/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Valid 32-byte master key in hex (64 chars)
const testMasterKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func TestKeyCustodyService_NewInvalidKey(t *testing.T) {
	_, err := NewKeyCustodyService("shortkey")
	assert.Error(t, err)

	_, err = NewKeyCustodyService("abcd") // valid hex, wrong length
	assert.Error(t, err)
}

func TestKeyCustodyService_SealOpenRoundTrip(t *testing.T) {
	svc, err := NewKeyCustodyService(testMasterKey)
	require.NoError(t, err)

	privateKey := []byte("ed25519-private-key-material-here")
	material, err := svc.EncryptKey(privateKey)
	require.NoError(t, err)

	assert.Equal(t, "aes-256-gcm/argon2id", material.Algorithm)
	assert.NotEmpty(t, material.SaltHex)
	assert.NotContains(t, material.CiphertextHex, string(privateKey))

	opened, err := svc.DecryptKey(material)
	require.NoError(t, err)
	assert.Equal(t, privateKey, opened)
}

func TestKeyCustodyService_FreshSaltAndNonce(t *testing.T) {
	svc, err := NewKeyCustodyService(testMasterKey)
	require.NoError(t, err)

	key := []byte("same-key")
	m1, err := svc.EncryptKey(key)
	require.NoError(t, err)
	m2, err := svc.EncryptKey(key)
	require.NoError(t, err)

	assert.NotEqual(t, m1.SaltHex, m2.SaltHex)
	assert.NotEqual(t, m1.CiphertextHex, m2.CiphertextHex)
}

func TestKeyCustodyService_TamperedCiphertext(t *testing.T) {
	svc, err := NewKeyCustodyService(testMasterKey)
	require.NoError(t, err)

	material, err := svc.EncryptKey([]byte("secret"))
	require.NoError(t, err)

	material.CiphertextHex = material.CiphertextHex[:len(material.CiphertextHex)-2] + "ff"
	_, err = svc.DecryptKey(material)
	assert.Error(t, err)
}

func TestKeyCustodyService_WrongMasterKey(t *testing.T) {
	svc1, _ := NewKeyCustodyService(testMasterKey)
	svc2, _ := NewKeyCustodyService("abcdef0123456789abcdef0123456789abcdef0123456789abcdef0123456789")

	material, err := svc1.EncryptKey([]byte("wallet-private-key"))
	require.NoError(t, err)

	_, err = svc2.DecryptKey(material)
	assert.Error(t, err)
}

func TestKeyCustodyService_UnknownAlgorithmRejected(t *testing.T) {
	svc, _ := NewKeyCustodyService(testMasterKey)

	_, err := svc.DecryptKey(domain.KeyMaterial{
		CiphertextHex: "abcd",
		SaltHex:       "abcd",
		Algorithm:     "rot13",
	})
	assert.Error(t, err)
}
