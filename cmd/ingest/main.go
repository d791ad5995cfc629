package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dgallion1/docindex/internal/config"
	"github.com/dgallion1/docindex/internal/index"
	"github.com/dgallion1/docindex/internal/parser"
	"github.com/dgallion1/docindex/internal/pipeline"
	"github.com/dgallion1/docindex/internal/searchstore"
	"github.com/dgallion1/docindex/internal/vectorstore"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	os.Exit(run(log))
}

func run(log *slog.Logger) int {
	cfg, err := config.Load()
	if err != nil {
		log.Error("load configuration", "error", err)
		return 1
	}
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sink, closeSink, err := openSink(cfg, log)
	if err != nil {
		log.Error("open index", "backend", cfg.IndexBackend, "error", err)
		return 1
	}

	files, err := collectFiles(cfg.DataDir, cfg.MaxFileBytes, log)
	if err != nil {
		log.Error("scan data dir", "dir", cfg.DataDir, "error", err)
		return 1
	}
	log.Info("processing files", "dir", cfg.DataDir, "files", len(files), "backend", cfg.IndexBackend)

	stats := index.NewUploadStats(24 * time.Hour)
	orch := pipeline.NewOrchestrator(cfg, sink, stats, log)
	orch.Start(ctx)

	var submitted []*pipeline.Job
	for _, f := range files {
		data, err := os.ReadFile(filepath.Join(cfg.DataDir, filepath.FromSlash(f)))
		if err != nil {
			log.Error("read file", "filename", f, "error", err)
			continue
		}
		job := pipeline.NewJob(f, data)
		if err := orch.SubmitWait(ctx, job); err != nil {
			log.Error("submit job", "filename", f, "error", err)
			break
		}
		submitted = append(submitted, job)
	}

	if err := orch.Drain(ctx); err != nil {
		log.Warn("interrupted before all jobs finished", "error", err)
	}

	// The job store evicts finished jobs after JOB_TTL, so the summary works
	// from the jobs this run submitted.
	failed := summarize(submitted, log)
	log.Info("upload stats", "stats", stats.Snapshot())

	if err := closeSink(); err != nil {
		log.Error("close index", "error", err)
		return 1
	}
	if failed > 0 || len(submitted) < len(files) {
		return 1
	}
	return 0
}

// summarize logs the outcome of each job and returns how many did not
// finish as completed or partial.
func summarize(jobs []*pipeline.Job, log *slog.Logger) int {
	failed := 0
	for _, job := range jobs {
		j := job.Snapshot()
		attrs := []any{
			"filename", j.Filename,
			"status", j.Status,
			"pages", j.Progress.Pages,
			"sections", j.Progress.Sections,
			"indexed", j.Progress.Indexed,
			"failed", j.Progress.Failed,
		}
		switch j.Status {
		case pipeline.StatusCompleted:
			log.Info("job finished", attrs...)
		case pipeline.StatusPartial:
			log.Warn("job finished", append(attrs, "errors", j.Progress.Errors)...)
		default:
			failed++
			log.Error("job finished", append(attrs, "errors", j.Progress.Errors)...)
		}
	}
	return failed
}

// openSink builds the configured index sink and the function that flushes
// and releases it.
func openSink(cfg config.Config, log *slog.Logger) (index.Sink, func() error, error) {
	switch cfg.IndexBackend {
	case config.BackendSearch:
		client := searchstore.NewClient(cfg.SearchEndpoint, cfg.SearchIndex, cfg.SearchAPIKey, cfg.SearchAPIVersion)
		return client, func() error {
			client.Close()
			return nil
		}, nil
	case config.BackendChromem:
		embed, err := vectorstore.NewEmbeddingFunc(vectorstore.EmbedOptions{
			Provider:    cfg.EmbeddingProvider,
			OllamaURL:   cfg.OllamaURL,
			OllamaModel: cfg.OllamaEmbedModel,
			OpenAIKey:   cfg.OpenAIAPIKey,
			OpenAIModel: cfg.OpenAIEmbedModel,
		})
		if err != nil {
			return nil, nil, err
		}
		store, err := vectorstore.Open(cfg.ChromemPath, cfg.ChromemCollection, embed)
		if err != nil {
			return nil, nil, err
		}
		log.Info("opened vector store", "path", cfg.ChromemPath, "collection", cfg.ChromemCollection, "sections", store.Count())
		return store, func() error {
			log.Info("saving vector store", "path", cfg.ChromemPath, "sections", store.Count())
			return store.Save()
		}, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend %q", cfg.IndexBackend)
	}
}

// collectFiles returns supported files under dir as slash-separated paths
// relative to dir, in lexical order. Files larger than maxBytes are skipped.
func collectFiles(dir string, maxBytes int64, log *slog.Logger) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && d.Name()[0] == '.' {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !parser.IsSupportedExtension(path) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if info.Size() > maxBytes {
			log.Warn("skipping oversized file", "filename", rel, "bytes", info.Size(), "limit", maxBytes)
			return nil
		}
		files = append(files, rel)
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("data dir %s does not exist", dir)
	}
	return files, err
}
