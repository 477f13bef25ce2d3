package cmd

import (
	"context"
	"errors"
	"io"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/otherjamesbrown/penf-outreach/config"
	"github.com/otherjamesbrown/penf-outreach/pkg/db"
)

var errNoDatabase = errors.New("no database in tests")

// fakeSecrets records calls made through SecretStore.
type fakeSecrets struct {
	values   map[string]string
	applied  int
	setErr   error
	applyErr error
}

func (f *fakeSecrets) Set(name, value string) error {
	if f.setErr != nil {
		return f.setErr
	}
	if f.values == nil {
		f.values = map[string]string{}
	}
	f.values[name] = value
	return nil
}

func (f *fakeSecrets) Delete(name string) error {
	delete(f.values, name)
	return nil
}

func (f *fakeSecrets) Apply(cfg *config.Config) error {
	f.applied++
	if f.applyErr != nil {
		return f.applyErr
	}
	cfg.Postgres.Password = f.values["postgres"]
	return nil
}

func (f *fakeSecrets) Description() string { return "fake" }

// testDeps returns dependencies that never touch the environment. The
// mutate func adjusts the default configuration.
func testDeps(mutate func(*config.Config)) (*Deps, *fakeSecrets) {
	secrets := &fakeSecrets{}
	return &Deps{
		LoadConfig: func() (*config.Config, error) {
			cfg := config.DefaultConfig()
			if mutate != nil {
				mutate(cfg)
			}
			return cfg, nil
		},
		Secrets: secrets,
		ConnectDB: func(ctx context.Context, cfg *db.Config) (*pgxpool.Pool, error) {
			return nil, errNoDatabase
		},
		ReadSecret: func(in io.Reader, out io.Writer, prompt string) (string, error) {
			return readSecret(in, out, prompt)
		},
	}, secrets
}
