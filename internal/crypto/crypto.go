package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// KeySize is the derived key length in bytes.
	KeySize = 32
	// SaltSize is the length of generated salts.
	SaltSize = 16
	// Iterations is the PBKDF2 work factor.
	Iterations = 100000
)

// ErrEmptyPassphrase is returned when there is nothing to derive from.
var ErrEmptyPassphrase = errors.New("passphrase is empty")

// DeriveKey stretches passphrase into a KeySize key with PBKDF2-SHA256.
// A nil salt is replaced by a fresh random one; the salt used is returned.
func DeriveKey(passphrase string, salt []byte) (key, usedSalt []byte, err error) {
	if passphrase == "" {
		return nil, nil, ErrEmptyPassphrase
	}
	if salt == nil {
		if salt, err = GenerateRandomBytes(SaltSize); err != nil {
			return nil, nil, err
		}
	}
	return pbkdf2.Key([]byte(passphrase), salt, Iterations, KeySize, sha256.New), salt, nil
}

// GenerateRandomBytes returns n bytes from crypto/rand.
func GenerateRandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, err
	}
	return b, nil
}
