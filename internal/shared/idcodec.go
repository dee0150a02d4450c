package shared

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// IDCodec seals numeric record identifiers into opaque URL safe tokens. Records
// are addressed by these tokens everywhere outside the service layer so that
// database keys are never guessable from the API surface.
type IDCodec struct {
	key []byte
}

// NewIDCodec derives the sealing key from the configured secret.
func NewIDCodec(secret string) *IDCodec {
	key := sha256.Sum256([]byte(secret))
	return &IDCodec{key: key[:]}
}

// Encode seals an id into an opaque token.
func (c *IDCodec) Encode(id int64) string {
	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		// key length is fixed by construction
		panic(err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		panic(err)
	}
	plaintext := make([]byte, 8)
	binary.BigEndian.PutUint64(plaintext, uint64(id))
	sealed := aead.Seal(nonce, nonce, plaintext, nil)
	return base64.RawURLEncoding.EncodeToString(sealed)
}

// Decode opens an opaque token back into the id it seals.
func (c *IDCodec) Decode(token string) (int64, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidRecordID, err)
	}
	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		panic(err)
	}
	if len(raw) < aead.NonceSize()+aead.Overhead() {
		return 0, ErrInvalidRecordID
	}
	nonce, ciphertext := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return 0, ErrInvalidRecordID
	}
	if len(plaintext) != 8 {
		return 0, ErrInvalidRecordID
	}
	return int64(binary.BigEndian.Uint64(plaintext)), nil
}
