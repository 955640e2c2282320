package session

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

const nonceSize = 24

// ErrUnseal is returned when a sealed value was tampered with or sealed
// under a different secret.
var ErrUnseal = errors.New("session: cannot open sealed value")

// Box encrypts backend tokens before they are written to the session store.
type Box struct {
	key [32]byte
}

// NewBox derives the encryption key from secret.
func NewBox(secret string) *Box {
	return &Box{key: sha256.Sum256([]byte("foodgram-web/session-token:" + secret))}
}

// Seal encrypts plain. An empty value seals to nil.
func (b *Box) Seal(plain string) ([]byte, error) {
	if plain == "" {
		return nil, nil
	}
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("session: generating nonce: %w", err)
	}
	return secretbox.Seal(nonce[:], []byte(plain), &nonce, &b.key), nil
}

// Open decrypts a value produced by Seal.
func (b *Box) Open(sealed []byte) (string, error) {
	if len(sealed) == 0 {
		return "", nil
	}
	if len(sealed) < nonceSize+secretbox.Overhead {
		return "", ErrUnseal
	}
	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])
	plain, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, &b.key)
	if !ok {
		return "", ErrUnseal
	}
	return string(plain), nil
}
