package usecase

import (
	"context"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/shelfpix/backend/internal/domain"
)

// Orchestrator runs batch passes over the catalog. A single run may be
// active at a time; its item list is snapshotted at start so items
// added mid-run wait for the next one.
type Orchestrator struct {
	repo        domain.ItemRepository
	processor   ItemProcessor
	concurrency int

	mutex    sync.Mutex
	running  bool
	cancel   context.CancelFunc
	progress domain.BatchProgress
}

// NewOrchestrator creates a batch orchestrator with the given worker count
func NewOrchestrator(repo domain.ItemRepository, processor ItemProcessor, concurrency int) *Orchestrator {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Orchestrator{
		repo:        repo,
		processor:   processor,
		concurrency: concurrency,
	}
}

// StartBatch snapshots the eligible items and processes them in the
// background. Returns ErrBatchRunning while a run is active.
func (o *Orchestrator) StartBatch(ctx context.Context) (string, error) {
	o.mutex.Lock()
	if o.running {
		o.mutex.Unlock()
		return "", domain.ErrBatchRunning
	}
	o.running = true
	o.mutex.Unlock()

	ids, err := o.repo.ListIDsByStatus(ctx, domain.StatusNotProcessed, domain.StatusPending)
	if err != nil {
		o.mutex.Lock()
		o.running = false
		o.mutex.Unlock()
		return "", err
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	runID := uuid.NewString()

	o.mutex.Lock()
	o.cancel = cancel
	o.progress = domain.BatchProgress{RunID: runID, Total: len(ids), Running: true}
	o.mutex.Unlock()

	go o.run(runCtx, runID, ids)

	return runID, nil
}

// Stop requests a cooperative stop. Items already being processed
// finish; nothing new starts. Safe to call when no run is active.
func (o *Orchestrator) Stop() {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	if o.cancel != nil {
		o.cancel()
	}
}

// Progress returns the current run's state, or the final state of the
// last finished run.
func (o *Orchestrator) Progress() domain.BatchProgress {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	return o.progress
}

func (o *Orchestrator) run(ctx context.Context, runID string, ids []string) {
	defer func() {
		o.mutex.Lock()
		o.running = false
		o.progress.Running = false
		if o.cancel != nil {
			o.cancel()
			o.cancel = nil
		}
		o.mutex.Unlock()
		log.Printf("[BATCH] run %s finished", runID)
	}()

	log.Printf("[BATCH] run %s started: %d items, %d workers", runID, len(ids), o.concurrency)

	semaphore := make(chan struct{}, o.concurrency)
	var wg sync.WaitGroup

	// Stop only prevents new items from starting. Work already in
	// flight runs to completion on an uncancellable context so a
	// stopped run never records a spurious per-item failure.
	itemCtx := context.WithoutCancel(ctx)

	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		semaphore <- struct{}{}
		if ctx.Err() != nil {
			<-semaphore
			break
		}
		wg.Add(1)

		go func(itemID string) {
			defer wg.Done()
			defer func() { <-semaphore }()

			result, err := o.processor.ProcessItem(itemCtx, itemID)
			o.account(result, err)
			if err != nil {
				log.Printf("[BATCH] item %s: %v", itemID, err)
			}
		}(id)
	}

	wg.Wait()
}

// account folds one item's result into the run counters. Every item is
// counted as attempted exactly once, whatever its outcome.
func (o *Orchestrator) account(result ProcessResult, err error) {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	p := &o.progress
	p.Attempted++
	if result.Searched {
		p.Searched++
	}
	if result.Found {
		p.Found++
	}
	if result.Downloaded {
		p.Downloaded++
	}
	if result.Status == domain.StatusNotFound {
		p.Skipped++
	}
	if err != nil {
		p.Errors++
	}

	if p.Total > 0 {
		p.Progress = float64(p.Attempted) / float64(p.Total)
		if p.Progress > 1 {
			p.Progress = 1
		}
	}
}
