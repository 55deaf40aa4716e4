package relay

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"io"

	"edgewallet.io/wallet-broker/pkg/errors"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// Envelopes on a topic are sealed with the topic's 32-byte symmetric key.

func generateSymKey() ([]byte, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, errors.Wrap(err, "generate sym key")
	}
	return key, nil
}

// topicFor derives the relay topic for a symmetric key: sha256(key) hex.
func topicFor(symKey []byte) string {
	sum := sha256.Sum256(symKey)
	return hex.EncodeToString(sum[:])
}

// deriveSessionKey expands a fresh session key from the pairing key and the
// proposal id, so the settled session moves off the pairing topic.
func deriveSessionKey(pairingKey []byte, proposalID int64) ([]byte, error) {
	salt := make([]byte, 8)
	for i := 0; i < 8; i++ {
		salt[i] = byte(proposalID >> uint(8*i))
	}
	r := hkdf.New(sha256.New, pairingKey, salt, []byte("wc_session"))
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, errors.Wrap(err, "derive session key")
	}
	return key, nil
}

// seal encrypts a plaintext envelope. Output layout is nonce || ciphertext.
func seal(symKey, plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(symKey)
	if err != nil {
		return nil, errors.Wrap(err, "init aead")
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, errors.Wrap(err, "generate nonce")
	}
	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

// open decrypts an inbound envelope sealed by seal.
func open(symKey, sealed []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(symKey)
	if err != nil {
		return nil, errors.Wrap(err, "init aead")
	}
	if len(sealed) < aead.NonceSize() {
		return nil, errors.New("sealed envelope too short")
	}
	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, errors.Wrap(err, "open envelope")
	}
	return plaintext, nil
}
