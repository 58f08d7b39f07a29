package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"sprintdesk/internal/domain"
)

// Writer appends mutation events and reads them back as activity.
type Writer struct {
	DB  *sql.DB
	Now func() time.Time
}

type EventPayload map[string]any

// DefaultLimit applies when Recent is called with a non-positive limit.
const DefaultLimit = 50

func (w Writer) Append(ctx context.Context, tx *sql.Tx, evtType, projectID, entityKind, entityID, actorID string, payload EventPayload) error {
	if w.Now == nil {
		w.Now = time.Now
	}
	ts := w.Now().UTC().Format(time.RFC3339Nano)
	if payload == nil {
		payload = EventPayload{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO events(ts,type,project_id,entity_kind,entity_id,actor_id,payload_json) VALUES (?,?,?,?,?,?,?)`,
		ts, evtType, nullable(projectID), entityKind, nullable(entityID), actorID, string(data))
	return err
}

// Purge drops a project's events.
func (w Writer) Purge(ctx context.Context, tx *sql.Tx, projectID string) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM events WHERE project_id=?`, projectID)
	return err
}

// Recent returns the newest events of a project, newest first. An empty
// projectID selects company-wide events (roles, invitations).
func (w Writer) Recent(ctx context.Context, projectID string, limit int) ([]domain.Activity, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	rows, err := w.DB.QueryContext(ctx, `SELECT id,ts,type,COALESCE(project_id,''),entity_kind,COALESCE(entity_id,''),actor_id,payload_json
FROM events WHERE COALESCE(project_id,'')=? ORDER BY id DESC LIMIT ?`, projectID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Activity{}
	for rows.Next() {
		var a domain.Activity
		var ts string
		if err := rows.Scan(&a.ID, &ts, &a.Type, &a.ProjectID, &a.EntityKind, &a.TargetID, &a.ActorID, &a.Payload); err != nil {
			return nil, err
		}
		a.TS, _ = time.Parse(time.RFC3339Nano, ts)
		res = append(res, a)
	}
	return res, rows.Err()
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
