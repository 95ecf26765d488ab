package security

import (
	"EventRelay/internal/core/ports"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
)

var ErrSealedTooShort = errors.New("sealed payload is too short")

// aesCipher implements ports.PayloadCipher with AES-GCM. Sealed values are
// base64(nonce || ciphertext).
type aesCipher struct {
	gcm cipher.AEAD
	log zerolog.Logger
}

var _ ports.PayloadCipher = (*aesCipher)(nil)

// NewPayloadCipher creates a cipher from a 16- or 32-byte key.
func NewPayloadCipher(key []byte, baseLogger *zerolog.Logger) (ports.PayloadCipher, error) {
	if len(key) != 16 && len(key) != 32 {
		return nil, errors.New("key must be 16 or 32 bytes")
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("could not create AES cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("could not create GCM: %w", err)
	}

	log := baseLogger.With().Str("component", "payload_cipher").Logger()
	log.Info().Int("key_bits", len(key)*8).Msg("Payload cipher initialized")

	return &aesCipher{gcm: gcm, log: log}, nil
}

// NewPayloadCipherFromHex decodes a hex key, as found in ENCRYPTION_KEY.
func NewPayloadCipherFromHex(hexKey string, baseLogger *zerolog.Logger) (ports.PayloadCipher, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("key is not valid hex: %w", err)
	}
	return NewPayloadCipher(key, baseLogger)
}

func (c *aesCipher) Seal(plaintext string) (string, error) {
	nonce := make([]byte, c.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		c.log.Error().Err(err).Msg("Failed to generate nonce")
		return "", fmt.Errorf("could not generate nonce: %w", err)
	}

	sealed := c.gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (c *aesCipher) Open(sealed string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("could not decode sealed payload: %w", err)
	}

	nonceSize := c.gcm.NonceSize()
	if len(raw) < nonceSize {
		return "", ErrSealedTooShort
	}

	nonce, ciphertext := raw[:nonceSize], raw[nonceSize:]
	plaintext, err := c.gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		// Tampered or sealed under another key
		c.log.Warn().Err(err).Msg("Failed to open sealed payload")
		return "", fmt.Errorf("could not decrypt: %w", err)
	}
	return string(plaintext), nil
}
