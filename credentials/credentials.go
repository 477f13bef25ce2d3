// Package credentials resolves the passwords the outreach service needs for
// its backing stores. Secrets never live in the config file.
//
// Lookup order:
// 1. OUTREACH_<NAME>_PASSWORD environment variable
// 2. System keyring under the "outreach" service
//
// Writes always go to the keyring.
package credentials

import (
	"errors"
	"fmt"

	"github.com/otherjamesbrown/penf-outreach/config"
)

// Secret names.
const (
	SecretPostgres = "postgres"
	SecretRedis    = "redis"
)

// ErrNotFound is returned when no provider holds the secret.
var ErrNotFound = errors.New("secret not found")

// ErrUnknownSecret is returned for names outside the known set.
var ErrUnknownSecret = errors.New("unknown secret")

// Names returns the secrets the service understands.
func Names() []string {
	return []string{SecretPostgres, SecretRedis}
}

// ValidateName checks name against Names.
func ValidateName(name string) error {
	for _, n := range Names() {
		if n == name {
			return nil
		}
	}
	return fmt.Errorf("%w %q (expected one of %v)", ErrUnknownSecret, name, Names())
}

// Store resolves secrets from an ordered list of readers and writes to a
// single writable provider.
type Store struct {
	readers []SecretProvider
	writer  SecretProvider
}

// NewStore creates the default store: environment then system keyring.
func NewStore() *Store {
	kr := NewKeyringProvider()
	return NewStoreWithProviders(kr, NewEnvProvider(config.EnvPrefix), kr)
}

// NewStoreWithProviders creates a store reading readers in order and writing
// to writer. This is primarily used for testing.
func NewStoreWithProviders(writer SecretProvider, readers ...SecretProvider) *Store {
	return &Store{readers: readers, writer: writer}
}

// Get returns the first value found for name. A missing secret yields
// ErrNotFound; an unavailable keyring is reported only if nothing else
// holds the secret.
func (s *Store) Get(name string) (string, error) {
	var lastErr error
	for _, r := range s.readers {
		v, err := r.Get(name)
		if err == nil {
			return v, nil
		}
		if !errors.Is(err, ErrNotFound) {
			lastErr = err
		}
	}
	if lastErr != nil {
		return "", lastErr
	}
	return "", fmt.Errorf("%s: %w", name, ErrNotFound)
}

// Set stores a secret.
func (s *Store) Set(name, value string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if value == "" {
		return errors.New("secret value must not be empty")
	}
	return s.writer.Set(name, value)
}

// Delete removes a stored secret.
func (s *Store) Delete(name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	return s.writer.Delete(name)
}

// Description lists where secrets are looked up.
func (s *Store) Description() string {
	desc := ""
	for i, r := range s.readers {
		if i > 0 {
			desc += ", then "
		}
		desc += r.Description()
	}
	return desc
}

// Apply fills the password fields of cfg. Secrets that are not stored, or a
// keyring that cannot be reached, leave the password empty.
func (s *Store) Apply(cfg *config.Config) error {
	targets := map[string]*string{
		SecretPostgres: &cfg.Postgres.Password,
		SecretRedis:    &cfg.Redis.Password,
	}
	for _, name := range Names() {
		v, err := s.Get(name)
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrKeyringUnavailable) {
			continue
		}
		if err != nil {
			return fmt.Errorf("resolving %s password: %w", name, err)
		}
		*targets[name] = v
	}
	return nil
}
