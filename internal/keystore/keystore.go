// Package keystore encrypts small secrets before they are persisted.
package keystore

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	apperrors "github.com/kuberan/ledgersync/internal/errors"
)

// Keystore is an opaque encrypt/decrypt service. Failures are CryptoErrors.
type Keystore interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
}

const hkdfInfo = "ledgersync keystore v1"

// AEAD seals values with XChaCha20-Poly1305 under a key derived from a secret.
// Ciphertexts are nonce || sealed.
type AEAD struct {
	key []byte
}

// NewAEAD derives the encryption key from secret and salt.
func NewAEAD(secret, salt []byte) (*AEAD, error) {
	if len(secret) == 0 {
		return nil, apperrors.WithMessage(apperrors.ErrCrypto, "keystore secret is empty")
	}
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, salt, []byte(hkdfInfo)), key); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCrypto, fmt.Errorf("deriving key: %w", err))
	}
	return &AEAD{key: key}, nil
}

// Encrypt seals plaintext with a random nonce.
func (a *AEAD) Encrypt(plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(a.key)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCrypto, err)
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCrypto, fmt.Errorf("reading nonce: %w", err))
	}
	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt opens a value produced by Encrypt.
func (a *AEAD) Decrypt(ciphertext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(a.key)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCrypto, err)
	}
	if len(ciphertext) < aead.NonceSize()+aead.Overhead() {
		return nil, apperrors.WithMessage(apperrors.ErrCrypto, "ciphertext too short")
	}
	nonce, sealed := ciphertext[:aead.NonceSize()], ciphertext[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCrypto, err)
	}
	return plaintext, nil
}
