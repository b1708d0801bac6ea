package office

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/brightsmile/reception/internal/pms"
)

// Sealer encrypts PMS credentials at rest with AES-256-GCM. The key comes from
// the environment; sealed blobs are nonce||ciphertext.
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer creates a sealer from a 64-char hex key.
func NewSealer(hexKey string) (*Sealer, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("decode credential key: %w", err)
	}
	if len(key) != 32 {
		return nil, errors.New("credential key must be 32 bytes")
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

// Seal encrypts credentials for storage.
func (s *Sealer) Seal(creds pms.Credentials) ([]byte, error) {
	plain, err := json.Marshal(creds)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return s.aead.Seal(nonce, nonce, plain, nil), nil
}

// Open decrypts a sealed credential blob.
func (s *Sealer) Open(sealed []byte) (pms.Credentials, error) {
	if len(sealed) < s.aead.NonceSize() {
		return pms.Credentials{}, errors.New("sealed credentials too short")
	}
	nonce, ciphertext := sealed[:s.aead.NonceSize()], sealed[s.aead.NonceSize():]

	plain, err := s.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return pms.Credentials{}, fmt.Errorf("unseal credentials: %w", err)
	}

	var creds pms.Credentials
	if err := json.Unmarshal(plain, &creds); err != nil {
		return pms.Credentials{}, err
	}
	return creds, nil
}
