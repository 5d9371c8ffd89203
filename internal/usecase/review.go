package usecase

import (
	"context"
	"fmt"

	"github.com/shelfpix/backend/internal/domain"
	"github.com/shelfpix/backend/internal/infrastructure/storage"
)

// ReviewService applies human review decisions to items the validator
// held back, and feeds those decisions into source trust.
type ReviewService struct {
	repo  domain.ItemRepository
	store *storage.Store
	trust domain.TrustTable
}

// NewReviewService creates the manual review service
func NewReviewService(repo domain.ItemRepository, store *storage.Store, trust domain.TrustTable) *ReviewService {
	return &ReviewService{repo: repo, store: store, trust: trust}
}

// ListPending returns items waiting for a human decision
func (s *ReviewService) ListPending(ctx context.Context, limit int) ([]domain.Item, error) {
	return s.repo.ListByStatus(ctx, domain.StatusPending, limit)
}

// Approve accepts a pending item's image. The image moves to the
// approved partition and the source earns trust.
func (s *ReviewService) Approve(ctx context.Context, itemID string) error {
	return s.decide(ctx, itemID, storage.PartitionApproved, domain.StatusApproved, true)
}

// Decline rejects a pending item's image. The image moves to the
// declined partition and the source loses trust.
func (s *ReviewService) Decline(ctx context.Context, itemID string) error {
	return s.decide(ctx, itemID, storage.PartitionDeclined, domain.StatusDeclined, false)
}

func (s *ReviewService) decide(
	ctx context.Context,
	itemID string,
	partition storage.Partition,
	status domain.ItemStatus,
	approved bool,
) error {
	item, err := s.repo.GetByID(ctx, itemID)
	if err != nil {
		return err
	}
	if item.Status != domain.StatusPending || item.ImagePath == "" {
		return domain.ErrNotEligible
	}

	newPath, err := s.store.Move(item.ImagePath, partition)
	if err != nil {
		return fmt.Errorf("move image: %w", err)
	}

	err = s.repo.UpdateOutcome(ctx, domain.ItemOutcome{
		ItemID:       item.ID,
		Status:       status,
		ImagePath:    newPath,
		Confidence:   item.Confidence,
		Action:       item.Action,
		DetectedText: item.DetectedText,
		BrandMatch:   item.BrandMatch,
		SourceDomain: item.SourceDomain,
		SourceURL:    item.SourceURL,
	})
	if err != nil {
		return err
	}

	s.trust.RecordOutcome(item.SourceDomain, approved)
	return nil
}

// Reprocess queues a previously decided item for another batch pass.
// The stored artifact and its recorded outcome are discarded; the next
// run supersedes them with fresh ones.
func (s *ReviewService) Reprocess(ctx context.Context, itemID string) error {
	item, err := s.repo.GetByID(ctx, itemID)
	if err != nil {
		return err
	}
	if item.Status == domain.StatusNotProcessed {
		return domain.ErrNotEligible
	}

	if item.ImagePath != "" {
		if err := s.store.Remove(item.ImagePath); err != nil {
			return fmt.Errorf("discard stored image: %w", err)
		}
	}

	return s.repo.UpdateOutcome(ctx, domain.ItemOutcome{
		ItemID: itemID,
		Status: domain.StatusPending,
	})
}
