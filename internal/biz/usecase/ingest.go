package usecase

import (
	"context"
	"fmt"
	"log"

	"github.com/torrichelli/subledger/internal/biz/domain"
	"github.com/torrichelli/subledger/internal/biz/repo"
)

// IngestUsecase turns raw membership notifications into journal rows:
// validate, classify, attribute the invite token, upsert the subject,
// append. Safe under at-least-once delivery because the append is
// idempotent on the delivery id.
type IngestUsecase struct {
	ledger repo.LedgerRepo
	policy domain.AttributionPolicy
}

// NewIngestUsecase creates a new ingest usecase
func NewIngestUsecase(ledger repo.LedgerRepo, policy domain.AttributionPolicy) *IngestUsecase {
	if !policy.Valid() {
		policy = domain.PolicyDropAttribution
	}
	return &IngestUsecase{ledger: ledger, policy: policy}
}

// IngestResult reports what one notification became.
type IngestResult struct {
	EventID   int64
	Type      domain.EventType
	InviterID int64
	// Created is false when the delivery id had already been journaled and
	// the existing row was returned instead.
	Created bool
}

// HandleMemberUpdate processes one notification. Untracked transitions
// return (nil, nil) without touching the store.
func (uc *IngestUsecase) HandleMemberUpdate(ctx context.Context, upd domain.MemberUpdate) (*IngestResult, error) {
	if err := upd.Validate(); err != nil {
		return nil, err
	}

	eventType, ok := domain.Classify(upd.ChatKind, upd.SubjectKind, upd.OldStatus, upd.NewStatus)
	if !ok {
		return nil, nil
	}

	var inviterID int64
	if upd.InviteToken != "" {
		id, err := uc.ledger.FindInviterByToken(ctx, upd.InviteToken)
		if err != nil {
			return nil, fmt.Errorf("resolve invite token: %w", err)
		}
		if id == 0 {
			if uc.policy == domain.PolicyRejectUnresolved {
				return nil, &domain.AttributionError{InviteToken: upd.InviteToken}
			}
			log.Printf("[Ingest] No inviter for token %q, recording without attribution", upd.InviteToken)
		}
		inviterID = id
	}

	if _, err := uc.ledger.UpsertSubject(ctx, upd.SubjectExternalID, upd.SubjectHandle, upd.SubjectDisplayName); err != nil {
		return nil, fmt.Errorf("upsert subject: %w", err)
	}

	id, created, err := uc.ledger.AppendEvent(ctx, &domain.JournalEvent{
		OccurredAt:        upd.OccurredAt,
		Type:              eventType,
		SubjectExternalID: upd.SubjectExternalID,
		SubjectHandle:     upd.SubjectHandle,
		SubjectName:       upd.SubjectDisplayName,
		InviterID:         inviterID,
		Status:            upd.NewStatus,
		DeliveryID:        upd.DeliveryID,
	})
	if err != nil {
		return nil, fmt.Errorf("append event: %w", err)
	}

	return &IngestResult{
		EventID:   id,
		Type:      eventType,
		InviterID: inviterID,
		Created:   created,
	}, nil
}
