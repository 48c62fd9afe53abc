package root

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/nhle/task-focus/internal/app"
	"github.com/nhle/task-focus/internal/auth"
	"github.com/nhle/task-focus/internal/credential"
	"github.com/nhle/task-focus/internal/model"
	"github.com/nhle/task-focus/internal/remote"
	"github.com/nhle/task-focus/internal/store"
)

// localUserID owns tasks when no token is stored and no backend is set.
const localUserID = "local"

// env is everything a command needs: configuration, the local database,
// credentials and a host bound to the signed-in identity.
type env struct {
	cfg     *model.AppConfig
	store   *store.SQLiteStore
	vault   *credential.Vault
	client  *remote.Client
	watcher *auth.Watcher
	host    *app.Host
	logger  *log.Logger
}

func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return model.DefaultConfigPath()
}

func loadConfig() (*model.AppConfig, error) {
	return model.LoadConfig(resolveConfigPath())
}

func newLogger() *log.Logger {
	if verbose {
		return log.New(os.Stderr, "taskfocus: ", log.LstdFlags)
	}
	return log.New(io.Discard, "", 0)
}

// openStore opens the local database, creating its directory.
func openStore(cfg *model.AppConfig) (*store.SQLiteStore, error) {
	path := cfg.Database.Path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	s, err := store.NewSQLiteStore(path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return s, nil
}

// openEnv wires a host for the current identity. The returned cleanup
// closes the database.
func openEnv(ctx context.Context, logger *log.Logger) (*env, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	s, err := openStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() { _ = s.Close() }

	vault, err := credential.Open()
	if err != nil {
		logger.Printf("keyring unavailable, continuing without stored credentials: %v", err)
	}

	e := &env{
		cfg:     cfg,
		store:   s,
		vault:   vault,
		watcher: auth.NewWatcher(),
		logger:  logger,
	}

	if cfg.Backend.BaseURL != "" {
		timeout := time.Duration(cfg.Backend.TimeoutSec) * time.Second
		e.client = remote.NewClient(cfg.Backend.BaseURL, func() string {
			return e.watcher.Current().Token
		}, timeout)
		e.client.OnUnauthorized(e.expireSession)
	}

	e.host = app.NewHost(cfg.Engine, e.backends, app.WithLogger(logger))
	e.host.Attach(e.watcher)

	if id := e.identity(); id.SignedIn() {
		e.watcher.SignIn(id)
	}
	if _, err := e.host.Restore(ctx); err != nil {
		logger.Printf("restoring focus session: %v", err)
	}
	return e, cleanup, nil
}

// backends routes tasks and sessions to the remote server when one is
// configured. Focus checkpoints and notices always stay in the local
// database.
func (e *env) backends(id auth.Identity) app.Backends {
	local := store.ForUser(e.store, id.UserID)
	if e.client == nil {
		return app.Backends{Tasks: local, Sessions: local, Checkpoints: local, Notices: local}
	}
	return app.Backends{Tasks: e.client, Sessions: e.client, Checkpoints: local, Notices: local}
}

// identity resolves the stored token. Without a usable token the local
// user is assumed in local mode and nobody is signed in in remote mode.
func (e *env) identity() auth.Identity {
	token := e.storedToken()
	if token != "" {
		id, err := auth.IdentityFromToken(token, time.Now())
		if err == nil {
			return id
		}
		e.logger.Printf("ignoring stored token: %v", err)
		e.clearToken()
	}
	if e.client != nil {
		return auth.Identity{}
	}
	return auth.Identity{UserID: localUserID}
}

func (e *env) storedToken() string {
	if e.vault == nil {
		return ""
	}
	token, err := e.vault.Token()
	if err != nil {
		if !errors.Is(err, credential.ErrNotFound) {
			e.logger.Printf("reading token: %v", err)
		}
		return ""
	}
	return token
}

func (e *env) clearToken() {
	if e.vault == nil {
		return
	}
	if err := e.vault.ClearToken(); err != nil {
		e.logger.Printf("clearing token: %v", err)
	}
}

// expireSession runs when the server rejects the token.
func (e *env) expireSession() {
	e.clearToken()
	e.watcher.SignOut()
}
