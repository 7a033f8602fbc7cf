package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/adpulse-labs/adpulse/pkg/core"
)

// FindRagDocument returns the stored (id, contentHash) for a source row,
// or nil when no retrieval document exists for it.
func (s *SQLStore) FindRagDocument(ctx context.Context, sourceType, sourceID string) (*core.RagDocumentRef, error) {
	var ref core.RagDocumentRef
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT id, content_hash FROM rag_documents
		WHERE source_type = ? AND source_id = ?`), sourceType, sourceID).
		Scan(&ref.ID, &ref.ContentHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up retrieval document for %s/%s: %w", sourceType, sourceID, err)
	}
	return &ref, nil
}

// InsertRagDocument writes a new retrieval-corpus row. The embedding
// column starts NULL; the downstream embedding worker fills it.
func (s *SQLStore) InsertRagDocument(ctx context.Context, doc *core.RagDocument) error {
	tags, err := json.Marshal(doc.Tags)
	if err != nil {
		return fmt.Errorf("failed to encode retrieval document tags: %w", err)
	}

	_, err = s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO rag_documents (
			id, source_type, source_id, client_id, title, content, content_hash,
			document_date, period_start, period_end, tags, embedding, is_active, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL, ?, ?)`),
		doc.ID, doc.SourceType, doc.SourceID, doc.ClientID, doc.Title, doc.Content, doc.ContentHash,
		fmtDate(doc.DocumentDate), fmtDate(doc.PeriodStart), fmtDate(doc.PeriodEnd),
		string(tags), doc.IsActive, fmtTime(time.Now()))
	if err != nil {
		return fmt.Errorf("failed to insert retrieval document for %s: %w", doc.SourceID, err)
	}
	return nil
}

// UpdateRagDocument replaces a document's content and hash and nulls the
// embedding so it gets regenerated.
func (s *SQLStore) UpdateRagDocument(ctx context.Context, id, content, contentHash string) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`
		UPDATE rag_documents
		SET content = ?, content_hash = ?, embedding = NULL, updated_at = ?
		WHERE id = ?`), content, contentHash, fmtTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("failed to update retrieval document %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("retrieval document %s does not exist", id)
	}
	return nil
}
