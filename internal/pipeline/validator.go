// Package pipeline implements the stages of the weekly snapshot engine:
// parameter validation and client discovery, metric extraction,
// aggregation, week-over-week comparison, KPI evaluation, anomaly
// detection, content generation, snapshot persistence, and retrieval
// corpus propagation.
//
// Computation stages are pure functions over core types; I/O stages take
// a context and the narrow store port they need. Orchestration and
// logging live in internal/engine.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/adpulse-labs/adpulse/pkg/core"
)

// Validation error codes.
const (
	CodeInvalidWeekStart = "INVALID_WEEK_START"
	CodeFutureWeekStart  = "FUTURE_WEEK_START"
	CodeInvalidClientID  = "INVALID_CLIENT_ID"
	CodeClientNotFound   = "CLIENT_NOT_FOUND"
)

// ValidateParams checks the batch parameters before any client is
// touched. Week start must be a Monday not after today; an explicit
// client filter must be a well-formed UUID.
func ValidateParams(p core.BatchParams) error {
	return validateParamsAt(p, time.Now().UTC())
}

func validateParamsAt(p core.BatchParams, now time.Time) error {
	if p.WeekStart.IsZero() {
		return core.NewValidationError(CodeInvalidWeekStart, "week-start is required")
	}
	if p.WeekStart.Weekday() != time.Monday {
		return core.NewValidationError(CodeInvalidWeekStart,
			"week-start must be a Monday, got %s (%s)",
			p.WeekStart.Format("2006-01-02"), p.WeekStart.Weekday())
	}

	// A week may still be in progress; only a week that starts after
	// today is rejected.
	endOfToday := now.Truncate(24*time.Hour).AddDate(0, 0, 1)
	if !p.WeekStart.Before(endOfToday) {
		return core.NewValidationError(CodeFutureWeekStart, "week-start cannot be in the future")
	}

	if p.ClientID != "" {
		if _, err := uuid.Parse(p.ClientID); err != nil {
			return core.NewValidationError(CodeInvalidClientID, "invalid client-id format: %s", p.ClientID)
		}
	}

	return nil
}

// DiscoverClients resolves the set of clients to process and classifies
// each one as INSERT, UPDATE, or SKIP by checking for an existing
// snapshot at (clientID, weekStart). Read-only; the classification is
// fixed for the lifetime of the run.
func DiscoverClients(ctx context.Context, src core.MetricsSource, snaps core.SnapshotStore, p core.BatchParams) ([]core.ClientToProcess, error) {
	var candidates []*core.Client

	if p.ClientID != "" {
		client, err := src.GetClient(ctx, p.ClientID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve client %s: %w", p.ClientID, err)
		}
		if client == nil {
			return nil, core.NewValidationError(CodeClientNotFound, "client not found: %s", p.ClientID)
		}
		candidates = []*core.Client{client}
	} else {
		all, err := src.ListActiveClients(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list active clients: %w", err)
		}
		candidates = all
	}

	clients := make([]core.ClientToProcess, 0, len(candidates))
	for _, c := range candidates {
		existingID, err := snaps.FindSnapshotID(ctx, c.ID, p.WeekStart)
		if err != nil {
			return nil, fmt.Errorf("failed to check existing snapshot for %s: %w", c.ID, err)
		}

		ctp := core.ClientToProcess{Client: *c, Action: core.ActionInsert}
		switch {
		case existingID != "" && !p.Force:
			ctp.Action = core.ActionSkip
			ctp.ExistingSnapshotID = existingID
		case existingID != "":
			ctp.Action = core.ActionUpdate
			ctp.ExistingSnapshotID = existingID
		}
		clients = append(clients, ctp)
	}

	return clients, nil
}
