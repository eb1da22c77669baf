package service

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"

	"campus-credit-ledger/internal/core/domain"

	"golang.org/x/crypto/argon2"
)

// custodyAlgorithm identifies the scheme recorded in wallet key material.
const custodyAlgorithm = "aes-256-gcm/argon2id"

// Argon2id parameters for deriving per-wallet encryption keys.
const (
	custodyArgonTime    = 1
	custodyArgonMemory  = 64 * 1024 // 64MB
	custodyArgonThreads = 4
	custodyArgonKeyLen  = 32
	custodySaltLen      = 16
)

// KeyCustodyService implements ports.CustodyService. Each wallet's private
// key is sealed under AES-256-GCM with a key derived from the process-wide
// master key and a per-wallet random salt, so a leaked ciphertext plus salt
// is useless without the master key. The master key itself comes from config
// and is never persisted alongside wallet data.
type KeyCustodyService struct {
	masterKey []byte
}

// NewKeyCustodyService creates a custody service from a hex-encoded 32-byte
// master key.
func NewKeyCustodyService(hexKey string) (*KeyCustodyService, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("decoding master key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("master key must be 32 bytes, got %d", len(key))
	}
	return &KeyCustodyService{masterKey: key}, nil
}

// EncryptKey seals a wallet private key. The returned material carries the
// ciphertext (nonce-prefixed), the KDF salt and the algorithm id.
func (s *KeyCustodyService) EncryptKey(plaintext []byte) (domain.KeyMaterial, error) {
	salt := make([]byte, custodySaltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return domain.KeyMaterial{}, fmt.Errorf("generating salt: %w", err)
	}

	aesGCM, err := s.gcm(salt)
	if err != nil {
		return domain.KeyMaterial{}, err
	}

	nonce := make([]byte, aesGCM.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return domain.KeyMaterial{}, fmt.Errorf("generating nonce: %w", err)
	}

	ciphertext := aesGCM.Seal(nonce, nonce, plaintext, nil)
	return domain.KeyMaterial{
		CiphertextHex: hex.EncodeToString(ciphertext),
		SaltHex:       hex.EncodeToString(salt),
		Algorithm:     custodyAlgorithm,
	}, nil
}

// DecryptKey opens sealed key material. Error messages never include any
// part of the plaintext or key bytes.
func (s *KeyCustodyService) DecryptKey(material domain.KeyMaterial) ([]byte, error) {
	if material.Algorithm != custodyAlgorithm {
		return nil, fmt.Errorf("unsupported custody algorithm: %s", material.Algorithm)
	}

	salt, err := hex.DecodeString(material.SaltHex)
	if err != nil {
		return nil, fmt.Errorf("decoding salt: %w", err)
	}
	ciphertext, err := hex.DecodeString(material.CiphertextHex)
	if err != nil {
		return nil, fmt.Errorf("decoding ciphertext: %w", err)
	}

	aesGCM, err := s.gcm(salt)
	if err != nil {
		return nil, err
	}

	nonceSize := aesGCM.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, fmt.Errorf("ciphertext too short")
	}

	nonce, sealed := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := aesGCM.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("opening sealed key: %w", err)
	}
	return plaintext, nil
}

// gcm builds the AEAD for the wallet key derived from masterKey and salt.
func (s *KeyCustodyService) gcm(salt []byte) (cipher.AEAD, error) {
	derived := argon2.IDKey(s.masterKey, salt, custodyArgonTime, custodyArgonMemory, custodyArgonThreads, custodyArgonKeyLen)

	block, err := aes.NewCipher(derived)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating GCM: %w", err)
	}
	return aesGCM, nil
}
