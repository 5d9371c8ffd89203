package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/shelfpix/backend/internal/domain"
	"github.com/shelfpix/backend/internal/infrastructure/trust"
)

// BatchRunner is the orchestrator surface the API exposes
type BatchRunner interface {
	StartBatch(ctx context.Context) (string, error)
	Stop()
	Progress() domain.BatchProgress
}

// Reviewer is the manual review surface the API exposes
type Reviewer interface {
	ListPending(ctx context.Context, limit int) ([]domain.Item, error)
	Approve(ctx context.Context, itemID string) error
	Decline(ctx context.Context, itemID string) error
	Reprocess(ctx context.Context, itemID string) error
}

// TrustReader exposes the trust table for the stats endpoint
type TrustReader interface {
	Snapshot() map[string]trust.Stats
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	batch    BatchRunner
	reviewer Reviewer
	repo     domain.ItemRepository
	trust    TrustReader
}

// NewHandler creates a new HTTP handler
func NewHandler(batch BatchRunner, reviewer Reviewer, repo domain.ItemRepository, trust TrustReader) *Handler {
	return &Handler{
		batch:    batch,
		reviewer: reviewer,
		repo:     repo,
		trust:    trust,
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "shelfpix-backend",
		"version": "1.0.0",
	})
}

// StartBatch kicks off a batch run over all eligible items
func (h *Handler) StartBatch(c *gin.Context) {
	runID, err := h.batch.StartBatch(c.Request.Context())
	if errors.Is(err, domain.ErrBatchRunning) {
		c.JSON(http.StatusConflict, gin.H{"error": "a batch run is already active"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"runId": runID})
}

// StopBatch requests a cooperative stop of the active run
func (h *Handler) StopBatch(c *gin.Context) {
	h.batch.Stop()
	c.JSON(http.StatusAccepted, gin.H{"stopping": true})
}

// BatchProgress reports the active (or last finished) run's counters
func (h *Handler) BatchProgress(c *gin.Context) {
	c.JSON(http.StatusOK, h.batch.Progress())
}

// ListReview returns items waiting for a human decision
func (h *Handler) ListReview(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	items, err := h.reviewer.ListPending(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if items == nil {
		items = []domain.Item{}
	}

	c.JSON(http.StatusOK, gin.H{"items": items, "count": len(items)})
}

// ApproveItem accepts a pending item's image
func (h *Handler) ApproveItem(c *gin.Context) {
	h.decide(c, h.reviewer.Approve)
}

// DeclineItem rejects a pending item's image
func (h *Handler) DeclineItem(c *gin.Context) {
	h.decide(c, h.reviewer.Decline)
}

// ReprocessItem queues an already decided item for the next batch
func (h *Handler) ReprocessItem(c *gin.Context) {
	h.decide(c, h.reviewer.Reprocess)
}

func (h *Handler) decide(c *gin.Context, op func(context.Context, string) error) {
	err := op(c.Request.Context(), c.Param("id"))
	switch {
	case errors.Is(err, domain.ErrItemNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "item not found"})
	case errors.Is(err, domain.ErrNotEligible):
		c.JSON(http.StatusConflict, gin.H{"error": "item is not eligible for this action"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.Status(http.StatusNoContent)
	}
}

// Stats reports item counts per status and the source trust table
func (h *Handler) Stats(c *gin.Context) {
	counts, err := h.repo.CountByStatus(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items":   counts,
		"sources": h.trust.Snapshot(),
	})
}
