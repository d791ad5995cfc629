package vectorstore

import (
	"fmt"
	"strings"

	"github.com/philippgille/chromem-go"
)

// EmbedOptions selects and configures the embedding provider.
type EmbedOptions struct {
	Provider    string // "ollama" or "openai"
	OllamaURL   string
	OllamaModel string
	OpenAIKey   string
	OpenAIModel string
}

// NewEmbeddingFunc returns the chromem embedding function for opts.
func NewEmbeddingFunc(opts EmbedOptions) (chromem.EmbeddingFunc, error) {
	switch strings.ToLower(opts.Provider) {
	case "", "ollama":
		// chromem expects the API base, not the server root.
		base := strings.TrimSuffix(opts.OllamaURL, "/")
		if !strings.HasSuffix(base, "/api") {
			base += "/api"
		}
		return chromem.NewEmbeddingFuncOllama(opts.OllamaModel, base), nil
	case "openai":
		if opts.OpenAIKey == "" {
			return nil, fmt.Errorf("openai embeddings require an api key")
		}
		return chromem.NewEmbeddingFuncOpenAI(opts.OpenAIKey, chromem.EmbeddingModelOpenAI(opts.OpenAIModel)), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", opts.Provider)
	}
}
