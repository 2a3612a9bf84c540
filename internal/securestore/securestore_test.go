package securestore

import (
	"bytes"
	"crypto/rand"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestFileStore(t *testing.T) {
	fs := NewFileStore(filepath.Join(t.TempDir(), "sub", "keystore.json"))

	_, err := fs.Get("svc", "user")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, fs.Set("svc", "user", "value"))
	v, err := fs.Get("svc", "user")
	require.NoError(t, err)
	assert.Equal(t, "value", v)

	require.NoError(t, fs.Delete("svc", "user"))
	assert.ErrorIs(t, fs.Delete("svc", "user"), ErrNotFound)
}

func TestStoreSecretUsesKeyring(t *testing.T) {
	keyring.MockInit()
	s := New(t.TempDir(), zerolog.Nop())

	first, err := s.GetOrCreateStoreSecret(rand.Reader)
	require.NoError(t, err)
	assert.NotEmpty(t, first)

	second, err := s.GetOrCreateStoreSecret(rand.Reader)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	_, err = s.fallback.Get(serviceName, storeSecretUser)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.ClearStoreSecret())
	_, err = keyring.Get(serviceName, storeSecretUser)
	assert.ErrorIs(t, err, keyring.ErrNotFound)
}

func TestStoreSecretFallsBackToFile(t *testing.T) {
	keyring.MockInitWithError(errors.New("no keyring daemon"))
	dir := t.TempDir()
	s := New(dir, zerolog.Nop())

	first, err := s.GetOrCreateStoreSecret(bytes.NewReader(bytes.Repeat([]byte{7}, secretSize)))
	require.NoError(t, err)

	second, err := New(dir, zerolog.Nop()).GetOrCreateStoreSecret(rand.Reader)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestStoreSecretShortRandom(t *testing.T) {
	keyring.MockInit()
	_, err := New(t.TempDir(), zerolog.Nop()).GetOrCreateStoreSecret(bytes.NewReader([]byte{1, 2}))
	assert.Error(t, err)
}
