package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/dgallion1/docindex/internal/config"
	"github.com/dgallion1/docindex/internal/index"
)

func testOrchestrator(sink index.Sink, workers, queue int) *Orchestrator {
	cfg := config.Config{
		WorkerCount:    workers,
		MaxQueueSize:   queue,
		JobTTL:         time.Hour,
		IndexBatchSize: 1000,

		MaxSectionLength:    1000,
		SentenceSearchLimit: 100,
		SectionOverlap:      100,
	}
	return NewOrchestrator(cfg, sink, index.NewUploadStats(time.Hour), testLogger())
}

func TestOrchestrator_DrainFinishesQueuedJobs(t *testing.T) {
	sink := &fakeSink{}
	o := testOrchestrator(sink, 2, 10)
	o.Start(context.Background())

	var ids []string
	for i := range 5 {
		job := NewJob(fmt.Sprintf("doc%d.txt", i), []byte(foxText))
		if err := o.Submit(job); err != nil {
			t.Fatalf("submit: %v", err)
		}
		ids = append(ids, job.ID)
	}

	if err := o.Drain(context.Background()); err != nil {
		t.Fatalf("drain: %v", err)
	}

	for _, id := range ids {
		if s := o.GetJob(id).Snapshot().Status; s != StatusCompleted {
			t.Errorf("job %s: expected completed, got %s", id, s)
		}
	}
	if len(sink.sections) != 75 {
		t.Errorf("expected 75 sections uploaded, got %d", len(sink.sections))
	}
	if len(o.Jobs()) != 5 {
		t.Errorf("expected 5 job snapshots, got %d", len(o.Jobs()))
	}

	if err := o.Submit(NewJob("late.txt", nil)); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed after drain, got %v", err)
	}
}

func TestOrchestrator_SubmitQueueFull(t *testing.T) {
	o := testOrchestrator(&fakeSink{}, 1, 1)
	// Not started, so nothing consumes the queue.
	if err := o.Submit(NewJob("a.txt", nil)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	job := NewJob("b.txt", nil)
	if err := o.Submit(job); err == nil {
		t.Fatal("expected queue full error")
	}
	if job.Snapshot().Status != StatusFailed {
		t.Errorf("expected rejected job to be failed, got %s", job.Snapshot().Status)
	}
	if o.QueueDepth() != 1 {
		t.Errorf("expected queue depth 1, got %d", o.QueueDepth())
	}
	o.Stop()
}

func TestOrchestrator_SubmitWaitBlocksUntilSpace(t *testing.T) {
	sink := &fakeSink{}
	o := testOrchestrator(sink, 1, 1)
	o.Start(context.Background())

	for i := range 4 {
		if err := o.SubmitWait(context.Background(), NewJob(fmt.Sprintf("d%d.txt", i), []byte("Some text."))); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}
	if err := o.Drain(context.Background()); err != nil {
		t.Fatalf("drain: %v", err)
	}
	for _, snap := range o.Jobs() {
		if snap.Status != StatusCompleted {
			t.Errorf("%s: expected completed, got %s", snap.Filename, snap.Status)
		}
	}
}

func TestOrchestrator_StopIsIdempotent(t *testing.T) {
	o := testOrchestrator(&fakeSink{}, 2, 4)
	o.Start(context.Background())
	o.Stop()
	o.Stop()
	if err := o.SubmitWait(context.Background(), NewJob("x.txt", nil)); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed after stop, got %v", err)
	}
}

func TestOrchestrator_SubmitWaitBeforeStart(t *testing.T) {
	o := testOrchestrator(&fakeSink{}, 1, 1)
	job := NewJob("early.txt", nil)
	if err := o.SubmitWait(context.Background(), job); !errors.Is(err, ErrNotStarted) {
		t.Errorf("expected ErrNotStarted, got %v", err)
	}
	if o.QueueDepth() != 0 || o.GetJob(job.ID) != nil {
		t.Error("expected job not to be queued or tracked")
	}
	o.Stop()
}
