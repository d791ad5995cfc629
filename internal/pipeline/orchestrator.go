package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/docindex/internal/config"
	"github.com/dgallion1/docindex/internal/index"
)

var (
	// ErrClosed is returned by Submit once the pipeline is draining or stopped.
	ErrClosed = errors.New("pipeline is closed")
	// ErrNotStarted is returned by SubmitWait before Start is called.
	ErrNotStarted = errors.New("pipeline is not started")
)

// Orchestrator manages the document ingestion pipeline.
type Orchestrator struct {
	jobs  *JobStore
	queue chan *Job
	sink  index.Sink
	stats *index.UploadStats
	log   *slog.Logger
	cfg   config.Config

	// newWorker is swapped in tests.
	newWorker func() *Worker

	mu     sync.Mutex
	closed bool

	ctx     context.Context
	cancel  context.CancelFunc
	workers sync.WaitGroup
	wg      sync.WaitGroup
}

// NewOrchestrator creates the pipeline. Call Start to launch workers.
func NewOrchestrator(cfg config.Config, sink index.Sink, stats *index.UploadStats, log *slog.Logger) *Orchestrator {
	o := &Orchestrator{
		jobs:  NewJobStore(cfg.JobTTL),
		queue: make(chan *Job, cfg.MaxQueueSize),
		sink:  sink,
		stats: stats,
		log:   log,
		cfg:   cfg,
	}
	o.newWorker = func() *Worker {
		return NewWorker(o.sink, o.stats, o.log, WorkerOptions{
			Chunker:     cfg.Chunker(),
			BatchSize:   cfg.IndexBatchSize,
			Category:    cfg.IndexCategory,
			PDFFallback: cfg.PDFFallbackPdftotext,
		})
	}
	return o
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.mu.Lock()
	o.ctx, o.cancel = workerCtx, cancel
	o.mu.Unlock()

	for range max(o.cfg.WorkerCount, 1) {
		o.workers.Add(1)
		go func() {
			defer o.workers.Done()
			w := o.newWorker()
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-o.queue:
					if !ok {
						return
					}
					w.Process(workerCtx, job)
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

func (o *Orchestrator) closeQueue() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.closed {
		o.closed = true
		close(o.queue)
	}
}

// Drain stops accepting jobs and waits for queued work to finish, or for
// ctx to end, whichever comes first.
func (o *Orchestrator) Drain(ctx context.Context) error {
	o.closeQueue()

	done := make(chan struct{})
	go func() {
		o.workers.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	o.Stop()
	return err
}

// Stop cancels in-flight work and shuts down the pipeline.
func (o *Orchestrator) Stop() {
	// Cancel first so a blocked SubmitWait releases the lock.
	if o.cancel != nil {
		o.cancel()
	}
	o.closeQueue()
	o.workers.Wait()
	o.wg.Wait()
}

// Submit queues a new job for processing.
func (o *Orchestrator) Submit(job *Job) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return ErrClosed
	}

	o.jobs.Put(job)
	select {
	case o.queue <- job:
		return nil
	default:
		job.SetStatus(StatusFailed, "queue_full")
		return fmt.Errorf("job queue is full (%d)", cap(o.queue))
	}
}

// SubmitWait queues a job, blocking while the queue is full.
func (o *Orchestrator) SubmitWait(ctx context.Context, job *Job) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return ErrClosed
	}
	if o.ctx == nil {
		return ErrNotStarted
	}

	o.jobs.Put(job)
	select {
	case o.queue <- job:
		return nil
	case <-ctx.Done():
		job.SetStatus(StatusFailed, "queued")
		return ctx.Err()
	case <-o.ctx.Done():
		job.SetStatus(StatusFailed, "queued")
		return ErrClosed
	}
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// Jobs returns snapshots of all known jobs.
func (o *Orchestrator) Jobs() []JobSnapshot {
	return o.jobs.All()
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}
