package vectorstore

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/dgallion1/docindex/internal/index"
)

// letterEmbed embeds text as its normalized letter histogram.
func letterEmbed(_ context.Context, text string) ([]float32, error) {
	v := make([]float32, 26)
	for _, r := range text {
		switch {
		case r >= 'a' && r <= 'z':
			v[r-'a']++
		case r >= 'A' && r <= 'Z':
			v[r-'A']++
		}
	}
	var sum float64
	for _, x := range v {
		sum += float64(x * x)
	}
	if sum == 0 {
		v[0] = 1
		return v, nil
	}
	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
	return v, nil
}

func testSections() []index.Section {
	return []index.Section{
		{ID: "fruit_txt-0", Content: "apple apple apple", Category: "food", SourcePage: "fruit.txt", SourceFile: "fruit.txt"},
		{ID: "zoo_pdf-0", Content: "zebra zoo buzz", SourcePage: "zoo-0.pdf", SourceFile: "zoo.pdf"},
		{ID: "zoo_pdf-1", Content: "quick quiz", SourcePage: "zoo-1.pdf", SourceFile: "zoo.pdf"},
	}
}

func TestStore_UploadAndQuery(t *testing.T) {
	s, err := Open("", "sections", letterEmbed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	results, err := s.Upload(context.Background(), testSections())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := index.CountSucceeded(results); n != 3 {
		t.Fatalf("expected 3 succeeded, got %d", n)
	}
	if s.Count() != 3 {
		t.Fatalf("expected count 3, got %d", s.Count())
	}

	hits, err := s.Query(context.Background(), "apple pie", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 3 {
		t.Fatalf("expected query clamped to 3 hits, got %d", len(hits))
	}
	top := hits[0].Section
	if top.ID != "fruit_txt-0" {
		t.Errorf("expected fruit section first, got %q", top.ID)
	}
	if top.Category != "food" || top.SourcePage != "fruit.txt" || top.SourceFile != "fruit.txt" {
		t.Errorf("expected metadata to round-trip, got %+v", top)
	}
}

func TestStore_UploadReplacesByID(t *testing.T) {
	s, err := Open("", "sections", letterEmbed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx := context.Background()
	if _, err := s.Upload(ctx, testSections()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	updated := index.Section{ID: "zoo_pdf-1", Content: "apple", SourcePage: "zoo-1.pdf", SourceFile: "zoo.pdf"}
	if _, err := s.Upload(ctx, []index.Section{updated}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Count() != 3 {
		t.Errorf("expected count to stay 3, got %d", s.Count())
	}
}

func TestStore_InvalidSectionReported(t *testing.T) {
	s, err := Open("", "sections", letterEmbed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	batch := append(testSections(), index.Section{ID: "bad id", Content: "x"})

	results, err := s.Upload(context.Background(), batch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	last := results[3]
	if last.Succeeded || last.Error == "" || last.Key != "bad id" {
		t.Errorf("expected invalid section to fail with a message, got %+v", last)
	}
}

func TestStore_EmbeddingFailureIsRetryable(t *testing.T) {
	failing := func(context.Context, string) ([]float32, error) {
		return nil, errors.New("connection refused")
	}
	s, err := Open("", "sections", failing)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = s.Upload(context.Background(), testSections())
	var re *index.RetryableError
	if !errors.As(err, &re) {
		t.Fatalf("expected RetryableError, got %v", err)
	}
}

func TestStore_SaveAndReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "index.gob")

	s, err := Open(path, "sections", letterEmbed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.Upload(context.Background(), testSections()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}

	reopened, err := Open(path, "sections", letterEmbed)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if reopened.Count() != 3 {
		t.Errorf("expected 3 sections after reopen, got %d", reopened.Count())
	}
}

func TestStore_QueryEmpty(t *testing.T) {
	s, err := Open("", "sections", letterEmbed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	hits, err := s.Query(context.Background(), "anything", 5)
	if err != nil || len(hits) != 0 {
		t.Errorf("expected no hits and no error, got %d hits, err=%v", len(hits), err)
	}
	if err := s.Save(); err != nil {
		t.Errorf("expected in-memory save to be a no-op, got %v", err)
	}
}

func TestNewEmbeddingFunc(t *testing.T) {
	if _, err := NewEmbeddingFunc(EmbedOptions{Provider: "ollama", OllamaURL: "http://localhost:11434", OllamaModel: "nomic-embed-text"}); err != nil {
		t.Errorf("expected ollama provider, got %v", err)
	}
	if _, err := NewEmbeddingFunc(EmbedOptions{Provider: "openai"}); err == nil {
		t.Error("expected error for openai without api key")
	}
	if _, err := NewEmbeddingFunc(EmbedOptions{Provider: "cohere"}); err == nil {
		t.Error("expected error for unknown provider")
	}
}
