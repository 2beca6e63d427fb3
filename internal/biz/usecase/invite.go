package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/torrichelli/subledger/internal/biz/domain"
	"github.com/torrichelli/subledger/internal/biz/repo"
)

// InviteUsecase manages the inviter registry: registering identities,
// minting invite tokens and recording operator-entered subjects.
type InviteUsecase struct {
	ledger repo.LedgerRepo
	stats  repo.StatsRepo
}

// NewInviteUsecase creates a new invite usecase
func NewInviteUsecase(ledger repo.LedgerRepo, stats repo.StatsRepo) *InviteUsecase {
	return &InviteUsecase{ledger: ledger, stats: stats}
}

// RegisterInviter upserts an inviter keyed by handle-or-name and mints a
// fresh invite token for it. The returned token is what the transport
// collaborator embeds in the actual invite link.
func (uc *InviteUsecase) RegisterInviter(ctx context.Context, name, handle, sourceChannel string) (*domain.Inviter, error) {
	if name == "" {
		return nil, &domain.ValidationError{Field: "name", Message: "required"}
	}

	inviter := &domain.Inviter{
		Name:          name,
		Handle:        domain.NormalizeHandle(handle),
		InviteToken:   uuid.NewString(),
		SourceChannel: sourceChannel,
	}
	id, err := uc.ledger.UpsertInviter(ctx, inviter)
	if err != nil {
		return nil, fmt.Errorf("upsert inviter: %w", err)
	}
	inviter.ID = id
	return inviter, nil
}

// ListInviters returns all registered inviters.
func (uc *InviteUsecase) ListInviters(ctx context.Context) ([]*domain.Inviter, error) {
	return uc.ledger.ListInviters(ctx)
}

// InviteStats summarizes one inviter's recruiting record.
func (uc *InviteUsecase) InviteStats(ctx context.Context, inviterID int64) (*domain.InviteStats, error) {
	if inviterID == 0 {
		return nil, &domain.ValidationError{Field: "inviter_id", Message: "required"}
	}
	return uc.stats.InviterInviteStats(ctx, inviterID)
}

// RecordManualAdd journals a subject entered by an operator rather than
// observed through a membership transition.
func (uc *InviteUsecase) RecordManualAdd(ctx context.Context, externalID int64, handle, name string, inviterID int64) (int64, error) {
	if externalID == 0 {
		return 0, &domain.ValidationError{Field: "external_id", Message: "required"}
	}

	if _, err := uc.ledger.UpsertSubject(ctx, externalID, handle, name); err != nil {
		return 0, fmt.Errorf("upsert subject: %w", err)
	}

	id, _, err := uc.ledger.AppendEvent(ctx, &domain.JournalEvent{
		OccurredAt:        time.Now().UTC(),
		Type:              domain.EventManualAdd,
		SubjectExternalID: externalID,
		SubjectHandle:     handle,
		SubjectName:       name,
		InviterID:         inviterID,
		Status:            domain.StatusMember,
		Note:              "manual",
	})
	if err != nil {
		return 0, fmt.Errorf("append manual add: %w", err)
	}
	return id, nil
}
