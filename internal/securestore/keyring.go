package securestore

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/zalando/go-keyring"
)

const (
	serviceName     = "mremote-sync"
	storeSecretUser = "store-secret-v1"
	secretSize      = 32
)

// ErrNotFound is returned when no secret has been stored yet.
var ErrNotFound = errors.New("secret not found")

// Backend stores small secrets by service and user.
type Backend interface {
	Get(service, user string) (string, error)
	Set(service, user, value string) error
	Delete(service, user string) error
}

// keyringBackend is the OS credential store.
type keyringBackend struct{}

func (keyringBackend) Get(service, user string) (string, error) {
	v, err := keyring.Get(service, user)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNotFound
	}
	return v, err
}

func (keyringBackend) Set(service, user, value string) error {
	return keyring.Set(service, user, value)
}

func (keyringBackend) Delete(service, user string) error {
	err := keyring.Delete(service, user)
	if errors.Is(err, keyring.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

// Store keeps the database secret in the OS keyring, falling back to a
// 0600 file in the data directory when no keyring is available.
type Store struct {
	primary  Backend
	fallback Backend
	log      zerolog.Logger
}

// New returns a Store whose fallback file lives in dataDir.
func New(dataDir string, log zerolog.Logger) *Store {
	return &Store{
		primary:  keyringBackend{},
		fallback: NewFileStore(filepath.Join(dataDir, "keystore.json")),
		log:      log.With().Str("component", "securestore").Logger(),
	}
}

// GetOrCreateStoreSecret returns the passphrase for the local database,
// creating and persisting a random one on first use.
func (s *Store) GetOrCreateStoreSecret(randReader io.Reader) (string, error) {
	v, err := s.primary.Get(serviceName, storeSecretUser)
	switch {
	case err == nil:
		return v, nil
	case errors.Is(err, ErrNotFound):
		// A file secret from a run without keyring still wins.
		if v, ferr := s.fallback.Get(serviceName, storeSecretUser); ferr == nil {
			return v, nil
		}
		secret, err := newSecret(randReader)
		if err != nil {
			return "", err
		}
		if err := s.primary.Set(serviceName, storeSecretUser, secret); err != nil {
			s.log.Warn().Err(err).Msg("keyring unavailable, storing secret in file")
			return secret, s.fallback.Set(serviceName, storeSecretUser, secret)
		}
		return secret, nil
	default:
		s.log.Warn().Err(err).Msg("keyring unavailable, using file secret")
		v, ferr := s.fallback.Get(serviceName, storeSecretUser)
		if ferr == nil {
			return v, nil
		}
		if !errors.Is(ferr, ErrNotFound) {
			return "", fmt.Errorf("failed to read secret file: %w", ferr)
		}
		secret, err := newSecret(randReader)
		if err != nil {
			return "", err
		}
		return secret, s.fallback.Set(serviceName, storeSecretUser, secret)
	}
}

// ClearStoreSecret forgets the secret in both backends.
func (s *Store) ClearStoreSecret() error {
	var errs []error
	for _, b := range []Backend{s.primary, s.fallback} {
		if err := b.Delete(serviceName, storeSecretUser); err != nil && !errors.Is(err, ErrNotFound) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func newSecret(randReader io.Reader) (string, error) {
	b := make([]byte, secretSize)
	if _, err := io.ReadFull(randReader, b); err != nil {
		return "", fmt.Errorf("failed to generate secret: %w", err)
	}
	return base64.RawStdEncoding.EncodeToString(b), nil
}
