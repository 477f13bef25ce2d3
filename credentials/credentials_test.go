package credentials

import (
	"errors"
	"strings"
	"testing"

	"github.com/zalando/go-keyring"

	"github.com/otherjamesbrown/penf-outreach/config"
)

// mapProvider is an in-memory SecretProvider.
type mapProvider struct {
	values map[string]string
	err    error
}

func (m *mapProvider) Get(name string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	if v, ok := m.values[name]; ok {
		return v, nil
	}
	return "", ErrNotFound
}

func (m *mapProvider) Set(name, value string) error {
	if m.values == nil {
		m.values = map[string]string{}
	}
	m.values[name] = value
	return nil
}

func (m *mapProvider) Delete(name string) error {
	delete(m.values, name)
	return nil
}

func (m *mapProvider) Description() string { return "map" }

func TestValidateName(t *testing.T) {
	for _, name := range Names() {
		if err := ValidateName(name); err != nil {
			t.Errorf("ValidateName(%q) = %v", name, err)
		}
	}
	if err := ValidateName("mysql"); !errors.Is(err, ErrUnknownSecret) {
		t.Errorf("ValidateName(mysql) = %v, want ErrUnknownSecret", err)
	}
}

func TestStore_Precedence(t *testing.T) {
	env := &mapProvider{values: map[string]string{SecretPostgres: "env"}}
	kr := &mapProvider{values: map[string]string{SecretPostgres: "keyring", SecretRedis: "keyring"}}
	s := NewStoreWithProviders(kr, env, kr)

	if got, _ := s.Get(SecretPostgres); got != "env" {
		t.Errorf("Get(postgres) = %q, want env to win", got)
	}
	if got, _ := s.Get(SecretRedis); got != "keyring" {
		t.Errorf("Get(redis) = %q, want keyring fallback", got)
	}
	if _, err := s.Get("other"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(other) = %v, want ErrNotFound", err)
	}
	if got := s.Description(); got != "map, then map" {
		t.Errorf("Description() = %q", got)
	}
}

func TestStore_ReportsUnavailableReader(t *testing.T) {
	broken := &mapProvider{err: ErrKeyringUnavailable}
	s := NewStoreWithProviders(broken, &mapProvider{}, broken)

	if _, err := s.Get(SecretPostgres); !errors.Is(err, ErrKeyringUnavailable) {
		t.Errorf("Get() = %v, want ErrKeyringUnavailable", err)
	}

	cfg := config.DefaultConfig()
	if err := s.Apply(cfg); err != nil {
		t.Errorf("Apply() = %v, want unavailable keyring tolerated", err)
	}
}

func TestStore_SetDelete(t *testing.T) {
	w := &mapProvider{}
	s := NewStoreWithProviders(w, w)

	if err := s.Set("mysql", "x"); !errors.Is(err, ErrUnknownSecret) {
		t.Errorf("Set(mysql) = %v, want ErrUnknownSecret", err)
	}
	if err := s.Set(SecretRedis, ""); err == nil {
		t.Error("Set() with empty value should fail")
	}
	if err := s.Set(SecretRedis, "r3dis"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if got, _ := s.Get(SecretRedis); got != "r3dis" {
		t.Errorf("Get() = %q, want r3dis", got)
	}
	if err := s.Delete(SecretRedis); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := s.Get(SecretRedis); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after Delete = %v, want ErrNotFound", err)
	}
	if err := s.Delete("mysql"); !errors.Is(err, ErrUnknownSecret) {
		t.Errorf("Delete(mysql) = %v, want ErrUnknownSecret", err)
	}
}

func TestStore_Apply(t *testing.T) {
	s := NewStoreWithProviders(&mapProvider{}, &mapProvider{values: map[string]string{SecretPostgres: "pgpass"}})
	cfg := config.DefaultConfig()

	if err := s.Apply(cfg); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if cfg.Postgres.Password != "pgpass" {
		t.Errorf("Postgres.Password = %q, want pgpass", cfg.Postgres.Password)
	}
	if cfg.Redis.Password != "" {
		t.Errorf("Redis.Password = %q, want empty", cfg.Redis.Password)
	}
	if !strings.Contains(cfg.Postgres.ConnectionString(), "pgpass") {
		t.Error("password should reach the connection string")
	}
}

func TestNewStore_EnvThenKeyring(t *testing.T) {
	keyring.MockInit()
	t.Setenv(config.EnvPrefix+"POSTGRES_PASSWORD", "")
	t.Setenv(config.EnvPrefix+"REDIS_PASSWORD", "from-env")

	s := NewStore()
	if err := s.Set(SecretPostgres, "from-keyring"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := s.Set(SecretRedis, "shadowed"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	cfg := config.DefaultConfig()
	if err := s.Apply(cfg); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if cfg.Postgres.Password != "from-keyring" {
		t.Errorf("Postgres.Password = %q, want from-keyring", cfg.Postgres.Password)
	}
	if cfg.Redis.Password != "from-env" {
		t.Errorf("Redis.Password = %q, want from-env", cfg.Redis.Password)
	}
}
