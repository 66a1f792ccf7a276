package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"evsched/internal/domain"
)

// Repo is the local workspace store. It backs the session credential, the
// queue of task changes not yet accepted by the server and the journal.
type Repo struct {
	DB  *sql.DB
	Now func() time.Time
}

var ErrNotFound = errors.New("not found")

func (r Repo) now() string {
	if r.Now == nil {
		return time.Now().UTC().Format(time.RFC3339)
	}
	return r.Now().UTC().Format(time.RFC3339)
}

// GetValue implements session.Store.
func (r Repo) GetValue(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := r.DB.QueryRowContext(ctx, `SELECT value FROM kv WHERE key=?`, key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (r Repo) SetValue(ctx context.Context, key, value string) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO kv(key,value,updated_at) VALUES (?,?,?)
ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`, key, value, r.now())
	return err
}

func (r Repo) DeleteValue(ctx context.Context, key string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM kv WHERE key=?`, key)
	return err
}

type PendingOp string

const (
	OpCreate PendingOp = "create"
	OpUpdate PendingOp = "update"
)

// PendingTask is a task change that failed to reach the server.
type PendingTask struct {
	LocalID   string      `json:"local_id"`
	Seq       int64       `json:"seq"`
	Op        PendingOp   `json:"op"`
	TaskID    int64       `json:"task_id,omitempty"`
	Task      domain.Task `json:"task"`
	LastError string      `json:"last_error,omitempty"`
	CreatedAt string      `json:"created_at"`
}

// QueueTask appends a change to the pending queue. A second update for the
// same server task replaces the earlier payload but keeps its position.
func (r Repo) QueueTask(ctx context.Context, p PendingTask) (PendingTask, error) {
	payload, err := json.Marshal(p.Task)
	if err != nil {
		return p, fmt.Errorf("marshal pending task: %w", err)
	}
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return p, err
	}
	defer tx.Rollback()

	if p.Op == OpUpdate && p.TaskID != 0 {
		var localID string
		var seq int64
		var createdAt string
		err := tx.QueryRowContext(ctx, `SELECT local_id,seq,created_at FROM pending_tasks WHERE op='update' AND task_id=?`, p.TaskID).Scan(&localID, &seq, &createdAt)
		switch {
		case err == nil:
			if _, err := tx.ExecContext(ctx, `UPDATE pending_tasks SET payload_json=?, last_error=? WHERE local_id=?`,
				string(payload), nullable(p.LastError), localID); err != nil {
				return p, err
			}
			p.LocalID, p.Seq, p.CreatedAt = localID, seq, createdAt
			return p, tx.Commit()
		case err != sql.ErrNoRows:
			return p, err
		}
	}

	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq),0)+1 FROM pending_tasks`).Scan(&p.Seq); err != nil {
		return p, err
	}
	if p.CreatedAt == "" {
		p.CreatedAt = r.now()
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO pending_tasks(local_id,seq,op,task_id,payload_json,last_error,created_at) VALUES (?,?,?,?,?,?,?)`,
		p.LocalID, p.Seq, string(p.Op), nullableInt64(p.TaskID), string(payload), nullable(p.LastError), p.CreatedAt); err != nil {
		return p, fmt.Errorf("insert pending task: %w", err)
	}
	return p, tx.Commit()
}

// PendingTasks lists queued changes oldest first.
func (r Repo) PendingTasks(ctx context.Context) ([]PendingTask, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT local_id,seq,op,COALESCE(task_id,0),payload_json,COALESCE(last_error,''),created_at FROM pending_tasks ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []PendingTask
	for rows.Next() {
		var p PendingTask
		var op, payload string
		if err := rows.Scan(&p.LocalID, &p.Seq, &op, &p.TaskID, &payload, &p.LastError, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.Op = PendingOp(op)
		if err := json.Unmarshal([]byte(payload), &p.Task); err != nil {
			return nil, fmt.Errorf("decode pending task %s: %w", p.LocalID, err)
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

func (r Repo) MarkPendingFailed(ctx context.Context, localID, msg string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE pending_tasks SET last_error=? WHERE local_id=?`, nullable(msg), localID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeletePending(ctx context.Context, localID string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM pending_tasks WHERE local_id=?`, localID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearPending drops every queued change.
func (r Repo) ClearPending(ctx context.Context) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM pending_tasks`)
	return err
}

// JournalEntry is one recorded outcome.
type JournalEntry struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts"`
	Type       string         `json:"type"`
	EntityKind string         `json:"entity_kind"`
	EntityID   string         `json:"entity_id,omitempty"`
	Actor      string         `json:"actor,omitempty"`
	Payload    map[string]any `json:"payload"`
}

// LatestJournal returns up to limit entries, newest first.
func (r Repo) LatestJournal(ctx context.Context, limit int, entryType string) ([]JournalEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	q := `SELECT id,ts,type,entity_kind,COALESCE(entity_id,''),COALESCE(actor,''),payload_json FROM journal`
	var args []any
	if entryType != "" {
		q += ` WHERE type=?`
		args = append(args, entryType)
	}
	q += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []JournalEntry
	for rows.Next() {
		var e JournalEntry
		var payload string
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.EntityKind, &e.EntityID, &e.Actor, &payload); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(payload), &e.Payload); err != nil {
			return nil, fmt.Errorf("decode journal entry %d: %w", e.ID, err)
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableInt64(v int64) any {
	if v == 0 {
		return nil
	}
	return v
}
