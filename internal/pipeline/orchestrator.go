package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/doctran/internal/config"
)

// Orchestrator runs queued translation jobs on a fixed pool of workers.
type Orchestrator struct {
	jobs     *JobStore
	queue    chan *Job
	registry *Registry
	log      *slog.Logger
	cfg      config.Config

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrchestrator creates the job queue. Call Start to launch workers.
func NewOrchestrator(cfg config.Config, registry *Registry, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		jobs:     NewJobStore(cfg.JobTTL),
		queue:    make(chan *Job, cfg.MaxQueueSize),
		registry: registry,
		log:      log,
		cfg:      cfg,
	}
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for range o.cfg.WorkerCount {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-o.queue:
					if !ok {
						return
					}
					o.process(workerCtx, job)
				}
			}
		}()
	}

	// Start job store cleanup.
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.jobs.Cleanup()
			}
		}
	}()
}

// Stop gracefully shuts down the pipeline.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	close(o.queue)
	o.wg.Wait()
}

// Submit queues a new job for processing.
func (o *Orchestrator) Submit(job *Job) error {
	o.jobs.Put(job)
	select {
	case o.queue <- job:
		return nil
	default:
		job.SetStatus(StatusFailed, "queue_full")
		return fmt.Errorf("job queue is full (%d)", o.cfg.MaxQueueSize)
	}
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

// Registry returns the variant registry jobs are resolved against.
func (o *Orchestrator) Registry() *Registry {
	return o.registry
}

// process runs one job to completion.
func (o *Orchestrator) process(ctx context.Context, job *Job) {
	log := o.log.With("job_id", job.ID, "filename", job.Filename)
	job.SetStatus(StatusTranslating, "resolving")

	stages, err := o.registry.Resolve(job.Pipeline)
	if err != nil {
		log.Error("resolve pipeline", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "resolving")
		return
	}

	job.SetStatus(StatusTranslating, "translating")
	driver := NewDriver(stages, DriverOptions{
		Policy:      FailurePolicy(o.cfg.FailurePolicy),
		MaxInFlight: o.cfg.MaxInFlight,
	}, log)

	var out bytes.Buffer
	report, err := driver.Run(ctx, bytes.NewReader(job.FileData()), &out)
	job.SetReport(report)
	for _, msg := range report.Errors() {
		job.AddError(msg)
	}
	if err != nil {
		if !errors.Is(err, ErrNoInput) {
			log.Error("translation failed", "error", err)
		}
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "translating")
		return
	}

	job.SetResult(out.Bytes())
	if report.Failed > 0 {
		job.SetStatus(StatusPartial, "done")
		return
	}
	job.SetStatus(StatusCompleted, "done")
}
