// Package cmd provides the outreach CLI commands.
package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/term"

	"github.com/otherjamesbrown/penf-outreach/config"
	"github.com/otherjamesbrown/penf-outreach/credentials"
	"github.com/otherjamesbrown/penf-outreach/pkg/db"
	"github.com/otherjamesbrown/penf-outreach/pkg/engine"
)

// SecretStore is the subset of credentials.Store the commands use.
type SecretStore interface {
	Set(name, value string) error
	Delete(name string) error
	Apply(cfg *config.Config) error
	Description() string
}

// Deps holds the dependencies shared by the commands. Tests replace the
// functions to avoid touching real config files, keyrings or databases.
type Deps struct {
	LoadConfig func() (*config.Config, error)
	Secrets    SecretStore
	ConnectDB  func(ctx context.Context, cfg *db.Config) (*pgxpool.Pool, error)
	ReadSecret func(in io.Reader, out io.Writer, prompt string) (string, error)
}

// DefaultDeps returns the production dependencies around loadConfig.
func DefaultDeps(loadConfig func() (*config.Config, error)) *Deps {
	return &Deps{
		LoadConfig: loadConfig,
		Secrets:    credentials.NewStore(),
		ConnectDB:  connectWithRetry,
		ReadSecret: readSecret,
	}
}

// loadConfigWithSecrets loads configuration and fills in passwords.
func (d *Deps) loadConfigWithSecrets() (*config.Config, error) {
	cfg, err := d.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	if d.Secrets != nil {
		if err := d.Secrets.Apply(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// connectWithRetry rides out a database that is still starting.
func connectWithRetry(ctx context.Context, cfg *db.Config) (*pgxpool.Pool, error) {
	return db.ConnectWithRetry(ctx, cfg, 5, 2*time.Second)
}

// connect opens the decision store database.
func (d *Deps) connect(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	pool, err := d.ConnectDB(ctx, &cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	return pool, nil
}

// loadEngine builds an engine from the rules file, or the built-in tables
// when path is empty.
func loadEngine(path string) (*engine.Engine, error) {
	if path == "" {
		return engine.NewDefault(), nil
	}
	tables, err := engine.LoadTablesFile(config.ExpandPath(path))
	if err != nil {
		return nil, err
	}
	return engine.New(tables)
}

// readSecret reads a secret without echo when in is a terminal, otherwise
// it reads one line.
func readSecret(in io.Reader, out io.Writer, prompt string) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(out, prompt)
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("reading secret: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("reading secret: %w", err)
	}
	return strings.TrimSpace(line), nil
}
