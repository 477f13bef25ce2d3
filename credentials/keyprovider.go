package credentials

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/zalando/go-keyring"
)

const (
	// keyringService is the service name used in the system keyring.
	keyringService = "outreach"
)

// ErrKeyringUnavailable indicates the system keyring is not available.
var ErrKeyringUnavailable = errors.New("system keyring unavailable")

// ErrReadOnly is returned by providers that cannot store secrets.
var ErrReadOnly = errors.New("secret provider is read-only")

// SecretProvider is a source of named secrets.
type SecretProvider interface {
	// Get returns the secret for name, or ErrNotFound.
	Get(name string) (string, error)

	// Set stores the secret for name.
	Set(name, value string) error

	// Delete removes the secret for name. Deleting a missing secret is not an error.
	Delete(name string) error

	// Description returns a human-readable description of the storage mechanism.
	Description() string
}

// KeyringProvider stores secrets in the system keyring
// (macOS Keychain, Windows Credential Manager, Linux Secret Service).
type KeyringProvider struct {
	mu      sync.Mutex
	service string
}

// NewKeyringProvider creates a provider under the outreach keyring service.
func NewKeyringProvider() *KeyringProvider {
	return &KeyringProvider{service: keyringService}
}

// Get retrieves a secret from the system keyring.
func (p *KeyringProvider) Get(name string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	value, err := keyring.Get(p.service, name)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}
	return value, nil
}

// Set stores a secret in the system keyring.
func (p *KeyringProvider) Set(name, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := keyring.Set(p.service, name, value); err != nil {
		return fmt.Errorf("%w: storing %s: %v", ErrKeyringUnavailable, name, err)
	}
	return nil
}

// Delete removes a secret from the system keyring.
func (p *KeyringProvider) Delete(name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := keyring.Delete(p.service, name)
	if err == nil || errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return fmt.Errorf("%w: deleting %s: %v", ErrKeyringUnavailable, name, err)
}

// Description returns a description of this provider.
func (p *KeyringProvider) Description() string {
	switch runtime.GOOS {
	case "darwin":
		return "macOS Keychain"
	case "windows":
		return "Windows Credential Manager"
	default:
		return "System Keyring (Secret Service)"
	}
}

// EnvProvider reads secrets from OUTREACH_<NAME>_PASSWORD variables.
// This is primarily for containers and CI environments.
type EnvProvider struct {
	prefix string
}

// NewEnvProvider creates a provider reading variables named
// <prefix><NAME>_PASSWORD.
func NewEnvProvider(prefix string) *EnvProvider {
	return &EnvProvider{prefix: prefix}
}

// VarName returns the environment variable consulted for name.
func (p *EnvProvider) VarName(name string) string {
	return p.prefix + strings.ToUpper(name) + "_PASSWORD"
}

// Get returns the secret from the environment.
func (p *EnvProvider) Get(name string) (string, error) {
	if v := os.Getenv(p.VarName(name)); v != "" {
		return v, nil
	}
	return "", fmt.Errorf("%s: %w", name, ErrNotFound)
}

// Set is not supported for environment-based secrets.
func (p *EnvProvider) Set(string, string) error {
	return ErrReadOnly
}

// Delete is not supported for environment-based secrets.
func (p *EnvProvider) Delete(string) error {
	return ErrReadOnly
}

// Description returns a description of this provider.
func (p *EnvProvider) Description() string {
	return fmt.Sprintf("Environment variables (%s<NAME>_PASSWORD)", p.prefix)
}
