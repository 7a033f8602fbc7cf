package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"

	"github.com/adpulse-labs/adpulse/pkg/core"
)

// ContentHash returns the hex SHA-256 of a document body. The hash is
// stored beside the document and compared on regeneration so unchanged
// content never touches the embedding column.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// BuildRagTitle names the retrieval document for one client week.
func BuildRagTitle(clientName string, week core.WeekBounds) string {
	return fmt.Sprintf("Weekly performance report %s - %s", week.Label(), clientName)
}

// BuildRagTags returns the fixed tag set for a weekly snapshot document.
func BuildRagTags(year, weekNumber int) []string {
	return []string{"weekly", "performance", fmt.Sprintf("%d", year), fmt.Sprintf("W%d", weekNumber)}
}

// PropagateToRag upserts the retrieval-corpus document for a persisted
// snapshot, keyed by (sourceType, snapshotID). When the stored content
// hash matches the new one the write is skipped entirely; when it
// differs the document is rewritten and its embedding nulled for the
// downstream embedding worker to regenerate.
func PropagateToRag(ctx context.Context, store core.RagStore, in core.RagDocumentInput) core.RagResult {
	week := core.WeekBounds{
		Start:      in.WeekStart,
		End:        in.WeekEnd,
		Year:       in.Year,
		WeekNumber: in.WeekNumber,
	}
	hash := ContentHash(in.SummaryText)

	existing, err := store.FindRagDocument(ctx, core.RagSourceTypeWeeklySnapshot, in.SnapshotID)
	if err != nil {
		return core.RagResult{Err: fmt.Errorf("failed to look up retrieval document: %w", err)}
	}

	if existing != nil {
		if existing.ContentHash == hash {
			return core.RagResult{Success: true, RagDocumentID: existing.ID, Action: core.ActionSkip}
		}
		if err := store.UpdateRagDocument(ctx, existing.ID, in.SummaryText, hash); err != nil {
			return core.RagResult{Err: fmt.Errorf("failed to update retrieval document: %w", err)}
		}
		return core.RagResult{Success: true, RagDocumentID: existing.ID, Action: core.ActionUpdate}
	}

	doc := &core.RagDocument{
		ID:           uuid.NewString(),
		SourceType:   core.RagSourceTypeWeeklySnapshot,
		SourceID:     in.SnapshotID,
		ClientID:     in.ClientID,
		Title:        BuildRagTitle(in.ClientName, week),
		Content:      in.SummaryText,
		ContentHash:  hash,
		DocumentDate: in.WeekEnd,
		PeriodStart:  in.WeekStart,
		PeriodEnd:    in.WeekEnd,
		Tags:         BuildRagTags(in.Year, in.WeekNumber),
		IsActive:     true,
	}
	if err := store.InsertRagDocument(ctx, doc); err != nil {
		return core.RagResult{Err: fmt.Errorf("failed to insert retrieval document: %w", err)}
	}
	return core.RagResult{Success: true, RagDocumentID: doc.ID, Action: core.ActionInsert}
}
