package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Writer appends save outcomes to the local journal shown by `evs log tail`.
type Writer struct {
	DB  *sql.DB
	Now func() time.Time
}

type Payload map[string]any

func (w Writer) Append(ctx context.Context, entryType, entityKind, entityID, actor string, payload Payload) error {
	if w.DB == nil {
		return nil
	}
	if w.Now == nil {
		w.Now = time.Now
	}
	ts := w.Now().UTC().Format(time.RFC3339)
	if payload == nil {
		payload = Payload{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal journal payload: %w", err)
	}
	_, err = w.DB.ExecContext(ctx, `INSERT INTO journal(ts,type,entity_kind,entity_id,actor,payload_json) VALUES (?,?,?,?,?,?)`,
		ts, entryType, entityKind, nullable(entityID), nullable(actor), string(data))
	return err
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
