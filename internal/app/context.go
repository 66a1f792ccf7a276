package app

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"evsched/internal/api"
	"evsched/internal/config"
	"evsched/internal/db"
	"evsched/internal/journal"
	"evsched/internal/migrate"
	"evsched/internal/repo"
	"evsched/internal/retry"
	"evsched/internal/session"
	"evsched/internal/transport"
)

// Env is the client stack wired for one workspace.
type Env struct {
	Workspace string
	Config    *config.Config
	DB        *sql.DB
	Repo      repo.Repo
	Session   *session.Session
	Transport *transport.Client
	API       *api.Client
	Shell     *Shell
}

// Open opens the workspace database, restores the persisted session and
// wires the transport, REST client and shell from cfg. A nil cfg loads
// evsched.yml from the workspace, falling back to defaults.
func Open(ctx context.Context, workspace string, cfg *config.Config, logger *log.Logger) (*Env, error) {
	if cfg == nil {
		loaded, err := config.LoadOptional(workspace)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return nil, fmt.Errorf("open workspace db: %w", err)
	}
	if err := migrate.MigrateContext(ctx, conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate workspace db: %w", err)
	}
	r := repo.Repo{DB: conn}

	sess := session.New(r)
	sess.Logger = logger
	if err := sess.Load(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("restore session: %w", err)
	}
	if sess.Expired() {
		sess.Invalidate(ctx)
	}

	tr := transport.New(cfg.API.BaseURL, sess)
	tr.Policy = retry.Policy{MaxRetries: cfg.Retry.MaxRetries, BaseDelay: cfg.Retry.BaseDelay}
	if cfg.API.Timeout > 0 {
		tr.Timeout = cfg.API.Timeout
	}
	tr.Logger = logger
	client := api.New(tr)

	shell := NewShell(client, sess, r)
	shell.Journal = journal.Writer{DB: conn}
	shell.SetLogger(logger)

	return &Env{
		Workspace: workspace,
		Config:    cfg,
		DB:        conn,
		Repo:      r,
		Session:   sess,
		Transport: tr,
		API:       client,
		Shell:     shell,
	}, nil
}

func (e *Env) Close() error {
	if e == nil || e.DB == nil {
		return nil
	}
	return e.DB.Close()
}
