package db_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"evsched/internal/db"
	"evsched/internal/migrate"
)

func TestEnsureWorkspaceCreatesStateDir(t *testing.T) {
	ws := t.TempDir()
	dir, err := db.EnsureWorkspace(ws)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if dir != filepath.Join(ws, ".evsched") {
		t.Fatalf("unexpected dir %s", dir)
	}
	fi, err := os.Stat(dir)
	if err != nil || !fi.IsDir() {
		t.Fatalf("state dir missing: %v", err)
	}
	if fi.Mode().Perm() != 0o700 {
		t.Fatalf("state dir mode = %v", fi.Mode().Perm())
	}
}

func TestOpenFreshDatabase(t *testing.T) {
	ws := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: ws})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer conn.Close()
	ctx := context.Background()
	if v, err := migrate.Version(ctx, conn); err != nil || v != 0 {
		t.Fatalf("fresh version = %d, %v", v, err)
	}
	if err := migrate.MigrateContext(ctx, conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	for _, table := range []string{"kv", "pending_tasks", "journal"} {
		var name string
		if err := conn.QueryRowContext(ctx, `SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name); err != nil {
			t.Fatalf("table %s missing: %v", table, err)
		}
	}
	if _, err := os.Stat(db.Path(ws)); err != nil {
		t.Fatalf("db file missing: %v", err)
	}
}
