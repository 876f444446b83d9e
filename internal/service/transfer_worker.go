package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oakhill-robotics/attendance/internal/models"
	"github.com/oakhill-robotics/attendance/pkg/config"
	"github.com/oakhill-robotics/attendance/pkg/jobs"
)

const (
	jobTypeExport = "snapshot_export"
	jobTypeImport = "snapshot_import"
	jobTypeMerge  = "snapshot_merge"
)

type transferPayload struct {
	Path string
}

type transferOutcome struct {
	result TransferResult
	err    error
}

// TransferWorker runs bulk transfers on a background queue so the scan
// loop stays responsive while a season's worth of rows moves around.
// Transfer jobs are never retried automatically: a failed import leaves
// the store non-empty and a blind re-run would report every row as a
// duplicate. The outcome is delivered once through Await instead.
type TransferWorker struct {
	svc    *TransferService
	queue  *jobs.Queue
	logger *zap.Logger

	mu       sync.Mutex
	outcomes map[string]chan transferOutcome
}

// NewTransferWorker constructs a worker over its own queue. Call Start
// before enqueueing and Stop on shutdown.
func NewTransferWorker(svc *TransferService, cfg config.JobsConfig, logger *zap.Logger) *TransferWorker {
	w := &TransferWorker{
		svc:      svc,
		logger:   logger,
		outcomes: make(map[string]chan transferOutcome),
	}
	w.queue = jobs.NewQueue("transfers", w.handle, cfg, logger)
	return w
}

// Start launches the queue workers.
func (w *TransferWorker) Start(ctx context.Context) {
	w.queue.Start(ctx)
}

// Stop drains the queue workers.
func (w *TransferWorker) Stop() {
	w.queue.Stop()
}

// EnqueueExport schedules a snapshot export to the given file and
// returns the job ID.
func (w *TransferWorker) EnqueueExport(path string) (string, error) {
	return w.enqueue(jobTypeExport, path)
}

// EnqueueImport schedules loading a snapshot file into the store.
func (w *TransferWorker) EnqueueImport(path string) (string, error) {
	return w.enqueue(jobTypeImport, path)
}

// EnqueueMerge schedules merging a snapshot file into the store.
func (w *TransferWorker) EnqueueMerge(path string) (string, error) {
	return w.enqueue(jobTypeMerge, path)
}

// Await blocks until the job with the given ID finishes and returns its
// result. For exports the counts report rows written to the snapshot.
// Each job's outcome is delivered exactly once.
func (w *TransferWorker) Await(ctx context.Context, id string) (TransferResult, error) {
	w.mu.Lock()
	ch, ok := w.outcomes[id]
	w.mu.Unlock()
	if !ok {
		return TransferResult{}, fmt.Errorf("unknown transfer job %s", id)
	}

	select {
	case <-ctx.Done():
		return TransferResult{}, ctx.Err()
	case outcome := <-ch:
		w.mu.Lock()
		delete(w.outcomes, id)
		w.mu.Unlock()
		return outcome.result, outcome.err
	}
}

func (w *TransferWorker) enqueue(jobType, path string) (string, error) {
	id := uuid.New().String()

	w.mu.Lock()
	w.outcomes[id] = make(chan transferOutcome, 1)
	w.mu.Unlock()

	err := w.queue.Enqueue(jobs.Job{
		ID:      id,
		Type:    jobType,
		Payload: transferPayload{Path: path},
	})
	if err != nil {
		w.mu.Lock()
		delete(w.outcomes, id)
		w.mu.Unlock()
		return "", err
	}
	return id, nil
}

func (w *TransferWorker) handle(ctx context.Context, job jobs.Job) error {
	result, err := w.run(ctx, job)
	if err != nil {
		w.logger.Sugar().Errorw("transfer job failed",
			"job_id", job.ID, "type", job.Type, "error", err)
	} else {
		w.logResult(job, result)
	}

	w.mu.Lock()
	ch, ok := w.outcomes[job.ID]
	w.mu.Unlock()
	if ok {
		ch <- transferOutcome{result: result, err: err}
	}
	return nil
}

func (w *TransferWorker) run(ctx context.Context, job jobs.Job) (TransferResult, error) {
	payload, ok := job.Payload.(transferPayload)
	if !ok {
		return TransferResult{}, fmt.Errorf("job %s has unexpected payload %T", job.ID, job.Payload)
	}

	switch job.Type {
	case jobTypeExport:
		snap, err := w.svc.ExportToFile(ctx, payload.Path)
		if err != nil {
			return TransferResult{}, err
		}
		return TransferResult{Applied: models.Counts{
			Students: len(snap.Students),
			Events:   len(snap.Events),
			Checkins: len(snap.Checkins),
		}}, nil
	case jobTypeImport:
		snap, err := ReadSnapshotFile(payload.Path)
		if err != nil {
			return TransferResult{}, err
		}
		return w.svc.Import(ctx, snap)
	case jobTypeMerge:
		snap, err := ReadSnapshotFile(payload.Path)
		if err != nil {
			return TransferResult{}, err
		}
		return w.svc.Merge(ctx, snap)
	default:
		return TransferResult{}, fmt.Errorf("unknown job type %s", job.Type)
	}
}

func (w *TransferWorker) logResult(job jobs.Job, result TransferResult) {
	w.logger.Sugar().Infow("transfer job finished",
		"job_id", job.ID,
		"type", job.Type,
		"students", result.Applied.Students,
		"events", result.Applied.Events,
		"checkins", result.Applied.Checkins,
		"skipped_checkins", result.Skipped.Checkins,
		"failures", len(result.Failures))
	for _, f := range result.Failures {
		w.logger.Sugar().Warnw("transfer row failed", "job_id", job.ID, "detail", f)
	}
}
