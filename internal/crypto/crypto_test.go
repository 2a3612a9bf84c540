package crypto

import (
	"bytes"
	"errors"
	"testing"
)

func TestDeriveKeyDeterministicForSalt(t *testing.T) {
	salt := []byte("fixed-salt-value")
	a, usedA, err := DeriveKey("passphrase", salt)
	if err != nil {
		t.Fatalf("DeriveKey failed: %v", err)
	}
	b, _, err := DeriveKey("passphrase", salt)
	if err != nil {
		t.Fatalf("DeriveKey failed: %v", err)
	}
	if !bytes.Equal(a, b) || len(a) != KeySize {
		t.Fatalf("expected identical %d-byte keys", KeySize)
	}
	if !bytes.Equal(usedA, salt) {
		t.Fatalf("expected salt to be returned unchanged")
	}

	c, _, _ := DeriveKey("other", salt)
	if bytes.Equal(a, c) {
		t.Fatalf("different passphrases produced the same key")
	}
}

func TestDeriveKeyGeneratesSalt(t *testing.T) {
	_, salt, err := DeriveKey("passphrase", nil)
	if err != nil {
		t.Fatalf("DeriveKey failed: %v", err)
	}
	if len(salt) != SaltSize {
		t.Fatalf("expected %d-byte salt, got %d", SaltSize, len(salt))
	}
}

func TestDeriveKeyRejectsEmptyPassphrase(t *testing.T) {
	if _, _, err := DeriveKey("", nil); !errors.Is(err, ErrEmptyPassphrase) {
		t.Fatalf("expected ErrEmptyPassphrase, got %v", err)
	}
}
