// Package sealer encrypts short secrets (service codes) at rest with AES-GCM.
package sealer

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

var ErrMalformed = errors.New("sealed value is malformed")

type Sealer struct {
	aead cipher.AEAD
}

// New takes a base64 encoded 32 byte key.
func New(encodedKey string) (*Sealer, error) {
	key, err := base64.StdEncoding.DecodeString(encodedKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("key must be 32 bytes, got %d", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	return &Sealer{aead: aead}, nil
}

// Seal binds plaintext to associated data (e.g. the owning session id), so a
// sealed value copied onto another record will not open.
func (s *Sealer) Seal(plaintext, associated string) (string, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ct := s.aead.Seal(nonce, nonce, []byte(plaintext), []byte(associated))
	return base64.RawURLEncoding.EncodeToString(ct), nil
}

func (s *Sealer) Open(sealed, associated string) (string, error) {
	data, err := base64.RawURLEncoding.DecodeString(sealed)
	if err != nil {
		return "", ErrMalformed
	}

	nonceSize := s.aead.NonceSize()
	if len(data) < nonceSize {
		return "", ErrMalformed
	}

	pt, err := s.aead.Open(nil, data[:nonceSize], data[nonceSize:], []byte(associated))
	if err != nil {
		return "", fmt.Errorf("failed to open sealed value: %w", err)
	}

	return string(pt), nil
}
