package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/docindex/internal/chunker"
	"github.com/dgallion1/docindex/internal/index"
	"github.com/dgallion1/docindex/internal/parser"
)

// maxSectionErrors caps how many per-section failures are kept on a job.
const maxSectionErrors = 20

// WorkerOptions configures how documents are chunked and uploaded.
type WorkerOptions struct {
	Chunker     chunker.Config
	BatchSize   int
	Category    string
	PDFFallback bool
}

// Worker processes a single document job.
type Worker struct {
	sink    index.Sink
	stats   *index.UploadStats
	log     *slog.Logger
	opts    WorkerOptions
	backoff func(int) time.Duration
}

func NewWorker(sink index.Sink, stats *index.UploadStats, log *slog.Logger, opts WorkerOptions) *Worker {
	return &Worker{
		sink:    sink,
		stats:   stats,
		log:     log,
		opts:    opts,
		backoff: Backoff,
	}
}

// Process parses, chunks, and indexes one document. Chunks are produced
// lazily and uploaded in batches as they fill.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "filename", job.Filename)

	// Phase 1: Parse
	job.SetStatus(StatusParsing, "parsing")
	p, err := parser.ForFile(job.Filename)
	if err != nil {
		w.fail(job, log, "parsing", "unsupported format", err)
		return
	}
	if pp, ok := p.(*parser.PDFParser); ok {
		pp.FallbackPdftotext = w.opts.PDFFallback
	}

	doc, err := p.Parse(bytes.NewReader(job.FileData()), job.Filename)
	job.releaseData()
	if err != nil {
		w.fail(job, log, "parsing", "parse failed", err)
		return
	}
	text := doc.Text()
	job.SetParsed(len(doc.Pages), ContentHashHex([]byte(text)))
	log.Info("parsed document", "pages", len(doc.Pages), "chars", doc.Len())

	if doc.Len() == 0 {
		w.fail(job, log, "parsing", "no extractable content", fmt.Errorf("document has no text"))
		return
	}

	// Phase 2: Chunk
	job.SetStatus(StatusChunking, "chunking")
	chunks, err := chunker.Split(doc, w.opts.Chunker)
	if err != nil {
		w.fail(job, log, "chunking", "chunking failed", err)
		return
	}

	// Phase 3: Index. Chunking continues lazily as batches are consumed.
	job.SetStatus(StatusIndexing, "indexing")
	sections := index.Sections(job.Filename, w.opts.Category, chunks)
	hadErrors := false
	sectionErrors := 0

	for batch := range index.Batches(sections, w.opts.BatchSize) {
		start := time.Now()
		results, err := uploadWithRetry(ctx, w.sink, batch, w.backoff, log)
		if err != nil {
			log.Error("batch upload failed", "sections", len(batch), "error", err)
			job.AddBatch(len(batch), 0)
			job.AddError(fmt.Sprintf("batch %s..%s: %s", batch[0].ID, batch[len(batch)-1].ID, err))
			hadErrors = true
			if ctx.Err() != nil {
				break
			}
			continue
		}

		succeeded := index.CountSucceeded(results)
		if w.stats != nil {
			w.stats.Record(time.Since(start), len(batch), succeeded)
		}
		job.AddBatch(len(batch), succeeded)
		log.Info("indexed sections", "sections", len(results), "succeeded", succeeded)

		for _, r := range results {
			if r.Succeeded {
				continue
			}
			hadErrors = true
			if sectionErrors < maxSectionErrors {
				job.AddError(fmt.Sprintf("section %s: %s", r.Key, r.Error))
			}
			sectionErrors++
		}
		if len(results) < len(batch) {
			// Sections the sink never reported on are counted as failed.
			hadErrors = true
		}
	}

	snap := job.Snapshot()
	log.Info("indexing complete", "sections", snap.Progress.Sections, "indexed", snap.Progress.Indexed, "failed", snap.Progress.Failed)

	switch {
	case !hadErrors && snap.Progress.Sections > 0:
		job.SetStatus(StatusCompleted, "done")
	case snap.Progress.Indexed > 0:
		job.SetStatus(StatusPartial, "done")
	default:
		job.SetStatus(StatusFailed, "indexing")
	}
}

func (w *Worker) fail(job *Job, log *slog.Logger, phase, msg string, err error) {
	log.Error(msg, "error", err)
	job.AddError(fmt.Sprintf("%s: %s", phase, err))
	job.SetStatus(StatusFailed, phase)
}
