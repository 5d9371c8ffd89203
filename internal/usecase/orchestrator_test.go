package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shelfpix/backend/internal/domain"
)

type stubRepo struct {
	ids []string
}

func (r *stubRepo) GetByID(ctx context.Context, id string) (*domain.Item, error) {
	return nil, domain.ErrItemNotFound
}

func (r *stubRepo) ListIDsByStatus(ctx context.Context, statuses ...domain.ItemStatus) ([]string, error) {
	return r.ids, nil
}

func (r *stubRepo) ListByStatus(ctx context.Context, status domain.ItemStatus, limit int) ([]domain.Item, error) {
	return nil, nil
}

func (r *stubRepo) UpdateOutcome(ctx context.Context, outcome domain.ItemOutcome) error {
	return nil
}

func (r *stubRepo) CountByStatus(ctx context.Context) (map[domain.ItemStatus]int, error) {
	return nil, nil
}

type stubProcessor struct {
	mutex   sync.Mutex
	calls   []string
	ctxErrs []error
	started chan struct{}
	release chan struct{}
	result  ProcessResult
	err     error
}

func (p *stubProcessor) ProcessItem(ctx context.Context, itemID string) (ProcessResult, error) {
	p.mutex.Lock()
	p.calls = append(p.calls, itemID)
	p.mutex.Unlock()

	if p.started != nil {
		p.started <- struct{}{}
	}
	if p.release != nil {
		<-p.release
	}

	p.mutex.Lock()
	p.ctxErrs = append(p.ctxErrs, ctx.Err())
	p.mutex.Unlock()
	return p.result, p.err
}

func (p *stubProcessor) callCount() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return len(p.calls)
}

func waitForFinish(t *testing.T, o *Orchestrator) domain.BatchProgress {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if p := o.Progress(); !p.Running {
			return p
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("batch did not finish in time")
	return domain.BatchProgress{}
}

func TestStartBatchProcessesSnapshot(t *testing.T) {
	repo := &stubRepo{ids: []string{"a", "b", "c"}}
	processor := &stubProcessor{result: ProcessResult{Searched: true, Found: true, Downloaded: true, Status: domain.StatusApproved}}
	o := NewOrchestrator(repo, processor, 2)

	runID, err := o.StartBatch(context.Background())
	if err != nil {
		t.Fatalf("StartBatch returned error: %v", err)
	}
	if runID == "" {
		t.Fatal("expected a run id")
	}

	progress := waitForFinish(t, o)
	if progress.RunID != runID {
		t.Errorf("progress run id = %s, want %s", progress.RunID, runID)
	}
	if progress.Attempted != 3 || progress.Total != 3 {
		t.Errorf("attempted/total = %d/%d, want 3/3", progress.Attempted, progress.Total)
	}
	if progress.Progress != 1.0 {
		t.Errorf("progress = %v, want 1.0", progress.Progress)
	}
	if progress.Searched != 3 || progress.Found != 3 || progress.Downloaded != 3 {
		t.Errorf("stage counters = %d/%d/%d, want 3/3/3", progress.Searched, progress.Found, progress.Downloaded)
	}
	if processor.callCount() != 3 {
		t.Errorf("processor called %d times, want 3", processor.callCount())
	}
}

func TestStartBatchRejectsConcurrentRun(t *testing.T) {
	repo := &stubRepo{ids: []string{"a", "b"}}
	processor := &stubProcessor{release: make(chan struct{})}
	o := NewOrchestrator(repo, processor, 1)

	if _, err := o.StartBatch(context.Background()); err != nil {
		t.Fatalf("StartBatch returned error: %v", err)
	}

	_, err := o.StartBatch(context.Background())
	if !errors.Is(err, domain.ErrBatchRunning) {
		t.Errorf("second StartBatch error = %v, want ErrBatchRunning", err)
	}

	close(processor.release)
	waitForFinish(t, o)

	// A fresh run is allowed once the first finished
	if _, err := o.StartBatch(context.Background()); err != nil {
		t.Errorf("StartBatch after finish returned error: %v", err)
	}
	waitForFinish(t, o)
}

func TestStopHaltsBetweenItems(t *testing.T) {
	repo := &stubRepo{ids: []string{"a", "b", "c", "d", "e"}}
	processor := &stubProcessor{
		started: make(chan struct{}, 8),
		release: make(chan struct{}),
	}
	o := NewOrchestrator(repo, processor, 1)

	if _, err := o.StartBatch(context.Background()); err != nil {
		t.Fatalf("StartBatch returned error: %v", err)
	}

	// Let two items through, stop while the third is in flight
	for i := 0; i < 2; i++ {
		<-processor.started
		processor.release <- struct{}{}
	}
	<-processor.started
	o.Stop()
	processor.release <- struct{}{}

	progress := waitForFinish(t, o)
	if progress.Attempted != 3 {
		t.Errorf("attempted = %d, want 3 (in-flight item finishes, rest never start)", progress.Attempted)
	}
	if processor.callCount() != 3 {
		t.Errorf("processor called %d times, want 3", processor.callCount())
	}
}

func TestStopDoesNotCancelInFlightWork(t *testing.T) {
	repo := &stubRepo{ids: []string{"a", "b", "c"}}
	processor := &stubProcessor{
		started: make(chan struct{}, 4),
		release: make(chan struct{}),
	}
	o := NewOrchestrator(repo, processor, 1)

	if _, err := o.StartBatch(context.Background()); err != nil {
		t.Fatalf("StartBatch returned error: %v", err)
	}

	// Stop while the first item is in flight, then let it finish
	<-processor.started
	o.Stop()
	close(processor.release)

	waitForFinish(t, o)

	processor.mutex.Lock()
	defer processor.mutex.Unlock()
	if len(processor.ctxErrs) == 0 {
		t.Fatal("no item completed")
	}
	for _, err := range processor.ctxErrs {
		if err != nil {
			t.Errorf("item context was cancelled mid-flight: %v", err)
		}
	}
}

func TestErrorsAreCounted(t *testing.T) {
	repo := &stubRepo{ids: []string{"a", "b"}}
	processor := &stubProcessor{
		result: ProcessResult{Searched: true, Status: domain.StatusNotFound},
		err:    errors.New("boom"),
	}
	o := NewOrchestrator(repo, processor, 2)

	if _, err := o.StartBatch(context.Background()); err != nil {
		t.Fatalf("StartBatch returned error: %v", err)
	}

	progress := waitForFinish(t, o)
	if progress.Errors != 2 {
		t.Errorf("errors = %d, want 2", progress.Errors)
	}
	if progress.Skipped != 2 {
		t.Errorf("skipped = %d, want 2", progress.Skipped)
	}
	if progress.Attempted != 2 {
		t.Errorf("attempted = %d, want 2", progress.Attempted)
	}
}
