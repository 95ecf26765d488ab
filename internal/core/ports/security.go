package ports

// PayloadCipher seals event payloads before they leave the process.
type PayloadCipher interface {
	// Seal encrypts plaintext and returns a printable, self-contained token.
	Seal(plaintext string) (string, error)

	// Open reverses Seal.
	Open(sealed string) (string, error)
}
