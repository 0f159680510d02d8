package strata

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
)

// Sealer is the capability an encrypted file transport must satisfy. The
// materializer and file source treat ciphertext as opaque: plaintext is
// produced first, sealed before the write, and opened right after the read.
type Sealer interface {
	// Seal encrypts plaintext.
	Seal(plaintext []byte) ([]byte, error)

	// Open decrypts ciphertext, failing with EncryptionError on key or
	// authentication failure.
	Open(ciphertext []byte) ([]byte, error)
}

// gcmSealer is an AES-256-GCM Sealer with the nonce prepended to the
// ciphertext.
type gcmSealer struct {
	aead cipher.AEAD
}

// NewAESSealer derives a 256-bit key from the passphrase with SHA-256 and
// returns an AES-GCM Sealer.
func NewAESSealer(passphrase string) (Sealer, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("encryption passphrase cannot be empty")
	}
	key := sha256.Sum256([]byte(passphrase))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, &EncryptionError{Op: "keygen", Err: err}
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, &EncryptionError{Op: "keygen", Err: err}
	}
	return &gcmSealer{aead: aead}, nil
}

func (s *gcmSealer) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, &EncryptionError{Op: "seal", Err: err}
	}
	return s.aead.Seal(nonce, nonce, plaintext, nil), nil
}

func (s *gcmSealer) Open(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < s.aead.NonceSize() {
		return nil, &EncryptionError{Op: "open", Err: fmt.Errorf("ciphertext shorter than nonce")}
	}
	nonce, sealed := ciphertext[:s.aead.NonceSize()], ciphertext[s.aead.NonceSize():]
	plaintext, err := s.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, &EncryptionError{Op: "open", Err: err}
	}
	return plaintext, nil
}
