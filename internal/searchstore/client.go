package searchstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dgallion1/docindex/internal/index"
)

// DefaultAPIVersion is the search REST API version used when none is set.
const DefaultAPIVersion = "2023-11-01"

// Client uploads sections to a hosted search index over its REST API.
type Client struct {
	endpoint   string
	indexName  string
	apiKey     string
	apiVersion string
	httpClient *http.Client
}

func NewClient(endpoint, indexName, apiKey, apiVersion string) *Client {
	if apiVersion == "" {
		apiVersion = DefaultAPIVersion
	}
	return &Client{
		endpoint:   strings.TrimSuffix(endpoint, "/"),
		indexName:  indexName,
		apiKey:     apiKey,
		apiVersion: apiVersion,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// indexAction is one entry of a docs/index request.
type indexAction struct {
	Action string `json:"@search.action"`
	index.Section
}

type indexRequest struct {
	Value []indexAction `json:"value"`
}

// indexResult is the per-document status in a docs/index response.
type indexResult struct {
	Key          string `json:"key"`
	Status       bool   `json:"status"`
	ErrorMessage string `json:"errorMessage"`
	StatusCode   int    `json:"statusCode"`
}

type indexResponse struct {
	Value []indexResult `json:"value"`
}

func (c *Client) docsURL(suffix string) string {
	return fmt.Sprintf("%s/indexes/%s/docs%s?api-version=%s",
		c.endpoint, url.PathEscape(c.indexName), suffix, url.QueryEscape(c.apiVersion))
}

// Upload merges or uploads a batch of sections. A 207 response is not an
// error; failed documents are reported in their results.
func (c *Client) Upload(ctx context.Context, sections []index.Section) ([]index.UploadResult, error) {
	req := indexRequest{Value: make([]indexAction, len(sections))}
	for i, s := range sections {
		req.Value[i] = indexAction{Action: "mergeOrUpload", Section: s}
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal sections: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.docsURL("/index"), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("api-key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("upload documents: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &index.RetryableError{
			StatusCode: resp.StatusCode,
			Message:    string(respBody),
		}
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusMultiStatus {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("upload documents to %s: status %d: %s", c.indexName, resp.StatusCode, string(respBody))
	}

	var out indexResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode index response: %w", err)
	}

	results := make([]index.UploadResult, 0, len(out.Value))
	for _, r := range out.Value {
		results = append(results, index.UploadResult{
			Key:        r.Key,
			Succeeded:  r.Status,
			StatusCode: r.StatusCode,
			Error:      r.ErrorMessage,
		})
	}
	return results, nil
}

// Count returns the number of documents in the index.
func (c *Client) Count(ctx context.Context) (int, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.docsURL("/$count"), nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("api-key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("count documents in %s: status %d: %s", c.indexName, resp.StatusCode, string(respBody))
	}

	// The body is a bare number, possibly preceded by a byte order mark.
	n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(string(respBody), "\ufeff")))
	if err != nil {
		return 0, fmt.Errorf("parse count: %w", err)
	}
	return n, nil
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
