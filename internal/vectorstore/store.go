package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/dgallion1/docindex/internal/index"
	"github.com/philippgille/chromem-go"
)

const (
	metaCategory   = "category"
	metaSourcePage = "sourcepage"
	metaSourceFile = "sourcefile"
)

// Store is a local vector index backed by chromem-go. Sections are embedded
// on upload and can be persisted to a single file.
type Store struct {
	db          *chromem.DB
	coll        *chromem.Collection
	path        string
	name        string
	concurrency int
}

// Hit is a query match.
type Hit struct {
	Section    index.Section
	Similarity float32
}

// Open loads the collection from path if the file exists, otherwise starts
// empty. An empty path keeps the store in memory only.
func Open(path, collection string, embed chromem.EmbeddingFunc) (*Store, error) {
	db := chromem.NewDB()
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := db.ImportFromFile(path, "", collection); err != nil {
				return nil, fmt.Errorf("import %s: %w", path, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}
	}

	coll, err := db.GetOrCreateCollection(collection, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("open collection %s: %w", collection, err)
	}
	return &Store{
		db:          db,
		coll:        coll,
		path:        path,
		name:        collection,
		concurrency: 4,
	}, nil
}

// Upload embeds and stores each section, replacing any document with the
// same ID. If no section could be stored the batch is reported as retryable.
func (s *Store) Upload(ctx context.Context, sections []index.Section) ([]index.UploadResult, error) {
	results := make([]index.UploadResult, len(sections))
	sem := make(chan struct{}, s.concurrency)
	var wg sync.WaitGroup

	for i, sec := range sections {
		results[i].Key = sec.ID
		if err := sec.Validate(); err != nil {
			results[i].Error = err.Error()
			continue
		}

		sem <- struct{}{}
		wg.Add(1)
		go func(i int, sec index.Section) {
			defer wg.Done()
			defer func() { <-sem }()
			err := s.coll.AddDocument(ctx, chromem.Document{
				ID:      sec.ID,
				Content: sec.Content,
				Metadata: map[string]string{
					metaCategory:   sec.Category,
					metaSourcePage: sec.SourcePage,
					metaSourceFile: sec.SourceFile,
				},
			})
			if err != nil {
				results[i].Error = err.Error()
				return
			}
			results[i].Succeeded = true
		}(i, sec)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return results, err
	}
	if len(sections) > 0 && index.CountSucceeded(results) == 0 {
		return results, &index.RetryableError{Message: results[0].Error}
	}
	return results, nil
}

// Count returns the number of stored sections.
func (s *Store) Count() int {
	return s.coll.Count()
}

// Query returns up to n sections most similar to text.
func (s *Store) Query(ctx context.Context, text string, n int) ([]Hit, error) {
	n = min(n, s.coll.Count())
	if n <= 0 {
		return nil, nil
	}
	res, err := s.coll.Query(ctx, text, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.name, err)
	}

	hits := make([]Hit, 0, len(res))
	for _, r := range res {
		hits = append(hits, Hit{
			Section: index.Section{
				ID:         r.ID,
				Content:    r.Content,
				Category:   r.Metadata[metaCategory],
				SourcePage: r.Metadata[metaSourcePage],
				SourceFile: r.Metadata[metaSourceFile],
			},
			Similarity: r.Similarity,
		})
	}
	return hits, nil
}

// Save writes the collection to the store's path. It is a no-op for
// in-memory stores.
func (s *Store) Save() error {
	if s.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	if err := s.db.ExportToFile(s.path, false, "", s.name); err != nil {
		return fmt.Errorf("export %s: %w", s.path, err)
	}
	return nil
}
