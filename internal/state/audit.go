package state

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/adpulse-labs/adpulse/pkg/core"
)

// AppendAudit writes one append-only audit row. Old and new values are
// stored as JSON; nil maps become NULL.
func (s *SQLStore) AppendAudit(ctx context.Context, entry *core.AuditLogEntry) error {
	oldValues, err := marshalAuditValues(entry.OldValues)
	if err != nil {
		return fmt.Errorf("failed to encode audit old values: %w", err)
	}
	newValues, err := marshalAuditValues(entry.NewValues)
	if err != nil {
		return fmt.Errorf("failed to encode audit new values: %w", err)
	}

	id := entry.ID
	if id == "" {
		id = uuid.NewString()
	}
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO audit_log (
			id, table_name, record_id, action, client_id, user_id,
			old_values, new_values, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		id, entry.TableName, entry.RecordID, string(entry.Action),
		entry.ClientID, entry.UserID, oldValues, newValues, fmtTime(createdAt))
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

func marshalAuditValues(values map[string]any) (any, error) {
	if values == nil {
		return nil, nil
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}
