package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/shelfpix/backend/internal/domain"
	"github.com/shelfpix/backend/internal/infrastructure/cache"
	"github.com/shelfpix/backend/internal/infrastructure/imaging"
	"github.com/shelfpix/backend/internal/infrastructure/storage"
)

// ProcessResult reports which pipeline stages an item reached so the
// batch orchestrator can keep aggregate counters.
type ProcessResult struct {
	Searched   bool
	Found      bool
	Downloaded bool
	Status     domain.ItemStatus
}

// ItemProcessor runs the acquisition pipeline for one item
type ItemProcessor interface {
	ProcessItem(ctx context.Context, itemID string) (ProcessResult, error)
}

// EnrichmentService drives one item through search, candidate
// evaluation, download, validation and the final atomic commit.
type EnrichmentService struct {
	repo      domain.ItemRepository
	search    domain.SearchClient
	cache     *cache.SearchCache
	evaluator *Evaluator
	validator *Validator
	trust     domain.TrustTable
	download  domain.Downloader
	optimizer *imaging.Optimizer
	dedup     *imaging.DedupIndex
	store     *storage.Store
	debug     bool
}

var _ ItemProcessor = (*EnrichmentService)(nil)

// NewEnrichmentService wires the full per-item pipeline
func NewEnrichmentService(
	repo domain.ItemRepository,
	search domain.SearchClient,
	searchCache *cache.SearchCache,
	evaluator *Evaluator,
	validator *Validator,
	trust domain.TrustTable,
	download domain.Downloader,
	optimizer *imaging.Optimizer,
	store *storage.Store,
) *EnrichmentService {
	return &EnrichmentService{
		repo:      repo,
		search:    search,
		cache:     searchCache,
		evaluator: evaluator,
		validator: validator,
		trust:     trust,
		download:  download,
		optimizer: optimizer,
		dedup:     imaging.NewDedupIndex(),
		store:     store,
	}
}

// SetDebug toggles pipeline trace logs
func (s *EnrichmentService) SetDebug(enabled bool) {
	s.debug = enabled
}

// ProcessItem runs the whole pipeline for one item. The item's state is
// committed exactly once, at the end, through a single repository write.
func (s *EnrichmentService) ProcessItem(ctx context.Context, itemID string) (ProcessResult, error) {
	var result ProcessResult

	item, err := s.repo.GetByID(ctx, itemID)
	if err != nil {
		return result, fmt.Errorf("load item: %w", err)
	}

	query, err := BuildQuery(*item)
	if err != nil {
		// Untitled items can never be searched for; park them
		result.Status = domain.StatusNotFound
		return result, s.commitNotFound(ctx, item.ID)
	}

	result.Searched = true
	candidates, cached, err := s.cache.Fetch(ctx, query, func(ctx context.Context) ([]domain.Candidate, error) {
		return s.search.SearchImages(ctx, query)
	})
	if err != nil {
		result.Status = domain.StatusNotFound
		if commitErr := s.commitNotFound(ctx, item.ID); commitErr != nil {
			return result, commitErr
		}
		return result, fmt.Errorf("search %q: %w", query, err)
	}
	if s.debug {
		log.Printf("[ENRICH] %s: %d candidates for %q (cached=%v)", item.ID, len(candidates), query, cached)
	}

	ranked, err := s.evaluator.Evaluate(ctx, *item, candidates)
	if err != nil {
		result.Status = domain.StatusNotFound
		return result, s.commitNotFound(ctx, item.ID)
	}
	result.Found = true

	chosen, optimized := s.downloadBest(ctx, ranked)
	if chosen == nil {
		result.Status = domain.StatusNotFound
		return result, s.commitNotFound(ctx, item.ID)
	}
	result.Downloaded = true

	issues := s.inspectImage(*item, optimized)

	validation, err := s.validator.Validate(ctx, *item, optimized)
	if errors.Is(err, domain.ErrModelUnavailable) {
		// No verdict without the model; hold the image for a human
		status, commitErr := s.commitUnvalidated(ctx, *item, *chosen, query, optimized)
		result.Status = status
		return result, commitErr
	}
	if err != nil {
		result.Status = domain.StatusNotFound
		if commitErr := s.commitNotFound(ctx, item.ID); commitErr != nil {
			return result, commitErr
		}
		return result, fmt.Errorf("validate item %s: %w", item.ID, err)
	}
	validation.Issues = append(validation.Issues, issues...)

	status, err := s.commitValidated(ctx, *item, *chosen, query, optimized, validation)
	result.Status = status
	return result, err
}

// downloadBest walks the ranked candidates until one downloads and
// optimizes cleanly. Blocked or broken sources fall through to the next.
func (s *EnrichmentService) downloadBest(ctx context.Context, ranked []domain.Candidate) (*domain.Candidate, []byte) {
	for i := range ranked {
		c := ranked[i]
		asset, err := s.download.Fetch(ctx, c.URL)
		if err != nil {
			if s.debug {
				log.Printf("[ENRICH] skip %s: %v", c.URL, err)
			}
			continue
		}

		optimized, err := s.optimizer.Optimize(asset.Data)
		if err != nil {
			if s.debug {
				log.Printf("[ENRICH] skip %s: %v", c.URL, err)
			}
			continue
		}

		return &c, optimized
	}
	return nil, nil
}

// inspectImage collects informational issues that do not change the
// disposition but surface in review.
func (s *EnrichmentService) inspectImage(item domain.Item, optimized []byte) []string {
	var issues []string

	if imaging.HasStockMetadata(optimized) {
		issues = append(issues, domain.IssueStockMetadata)
	}

	if img, err := imaging.Decode(optimized); err == nil {
		family := item.Brand
		if family == "" {
			family = item.Title
		}
		if s.dedup.IsNearDuplicate(family, img) {
			issues = append(issues, domain.IssueNearDuplicate)
		}
	}

	return issues
}

func (s *EnrichmentService) commitNotFound(ctx context.Context, itemID string) error {
	return s.repo.UpdateOutcome(ctx, domain.ItemOutcome{
		ItemID: itemID,
		Status: domain.StatusNotFound,
	})
}

// commitUnvalidated stores the image in the pending partition with no
// confidence recorded, for when the model could not be consulted.
func (s *EnrichmentService) commitUnvalidated(
	ctx context.Context,
	item domain.Item,
	chosen domain.Candidate,
	query string,
	optimized []byte,
) (domain.ItemStatus, error) {
	imagePath, err := s.store.Save(storage.PartitionPending, storage.Sidecar{
		ItemID:       item.ID,
		Title:        item.Title,
		Brand:        item.Brand,
		Query:        query,
		SourceDomain: chosen.SourceDomain,
		SourceURL:    chosen.URL,
	}, optimized)
	if err != nil {
		return "", fmt.Errorf("store image: %w", err)
	}

	return domain.StatusPending, s.repo.UpdateOutcome(ctx, domain.ItemOutcome{
		ItemID:       item.ID,
		Status:       domain.StatusPending,
		ImagePath:    imagePath,
		SourceDomain: chosen.SourceDomain,
		SourceURL:    chosen.URL,
	})
}

// commitValidated files the image by disposition and records trust
// feedback for the automatic bands. Manual reviews feed trust only once
// a human decides.
func (s *EnrichmentService) commitValidated(
	ctx context.Context,
	item domain.Item,
	chosen domain.Candidate,
	query string,
	optimized []byte,
	validation *domain.ValidationResult,
) (domain.ItemStatus, error) {
	var partition storage.Partition
	var status domain.ItemStatus

	switch validation.Action {
	case domain.ActionAutoApprove:
		partition, status = storage.PartitionApproved, domain.StatusApproved
	case domain.ActionAutoReject:
		partition, status = storage.PartitionDeclined, domain.StatusDeclined
	default:
		partition, status = storage.PartitionPending, domain.StatusPending
	}

	confidence := validation.Confidence
	imagePath, err := s.store.Save(partition, storage.Sidecar{
		ItemID:       item.ID,
		Title:        item.Title,
		Brand:        item.Brand,
		Query:        query,
		SourceDomain: chosen.SourceDomain,
		SourceURL:    chosen.URL,
		Confidence:   &confidence,
	}, optimized)
	if err != nil {
		return "", fmt.Errorf("store image: %w", err)
	}

	err = s.repo.UpdateOutcome(ctx, domain.ItemOutcome{
		ItemID:       item.ID,
		Status:       status,
		ImagePath:    imagePath,
		Confidence:   &confidence,
		Action:       validation.Action,
		DetectedText: validation.DetectedText,
		BrandMatch:   validation.BrandMatch,
		SourceDomain: chosen.SourceDomain,
		SourceURL:    chosen.URL,
	})
	if err != nil {
		return "", err
	}

	switch validation.Action {
	case domain.ActionAutoApprove:
		s.trust.RecordOutcome(chosen.SourceDomain, true)
	case domain.ActionAutoReject:
		s.trust.RecordOutcome(chosen.SourceDomain, false)
	}

	return status, nil
}
