package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github/itish2003/retrieval/models"
)

const (
	// DefaultBackendURL is the fixed endpoint of the retrieval backend.
	DefaultBackendURL = "http://localhost:7860"

	// ModelFamily is the constant model family the backend loads variants of.
	ModelFamily = "dinov2"
)

// SearchQuery is a query image in backend-addressable form: raw bytes for
// uploads, pastes and resolved references, or a URL the backend can fetch
// itself. Exactly one of the two is set.
type SearchQuery struct {
	Data []byte
	URL  string
}

// RetrievalBackend is the contract the session controller depends on: the
// three remote operations plus the health probe used during connection
// establishment. The search/embedding machinery behind them is the backend's
// business.
type RetrievalBackend interface {
	LoadResources(ctx context.Context, cfg models.Configuration) (*models.BackendLoadResponse, error)
	SampleExamples(ctx context.Context) ([]models.RetrievalImage, error)
	QueryImage(ctx context.Context, query SearchQuery, k int) (*models.BackendSearchResponse, error)
	Ping(ctx context.Context) error
}

// BackendClient talks JSON over HTTP to the retrieval backend.
type BackendClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewBackendClient creates a client for the backend at baseURL. The base URL
// is a parameter so tests can point the client at a local server; production
// wiring always passes DefaultBackendURL (or the .env override).
func NewBackendClient(baseURL string, httpClient *http.Client) *BackendClient {
	return &BackendClient{
		baseURL:    baseURL,
		httpClient: httpClient,
	}
}

// Ping checks that the backend is reachable. Used once per connection
// establishment, never as a keepalive.
func (b *BackendClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/api/health", nil)
	if err != nil {
		return &ConnectionError{Cause: err}
	}
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return &ConnectionError{Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &ConnectionError{Cause: fmt.Errorf("backend health check returned status %d", resp.StatusCode)}
	}
	return nil
}

// LoadResources asks the backend to materialize the index and model for the
// given configuration. Its two textual outputs are returned unmodified.
func (b *BackendClient) LoadResources(ctx context.Context, cfg models.Configuration) (*models.BackendLoadResponse, error) {
	reqBody := models.BackendLoadRequest{
		Dataset:   cfg.Dataset,
		Size:      cfg.Size,
		Finetuned: cfg.Finetuned,
		Family:    ModelFamily,
	}

	var loadResp models.BackendLoadResponse
	if err := b.postJSON(ctx, "/api/resources/load", reqBody, &loadResp); err != nil {
		return nil, &ResourceLoadError{Cause: err}
	}
	return &loadResp, nil
}

// SampleExamples asks the backend for a fresh random sample of queryable
// images. An absent list decodes to an empty one.
func (b *BackendClient) SampleExamples(ctx context.Context) ([]models.RetrievalImage, error) {
	var sampleResp models.BackendSampleResponse
	if err := b.postJSON(ctx, "/api/examples/sample", struct{}{}, &sampleResp); err != nil {
		return nil, err
	}

	examples := make([]models.RetrievalImage, 0, len(sampleResp.Images))
	for _, img := range sampleResp.Images {
		examples = append(examples, models.RetrievalImage{URL: img.URL})
	}
	return examples, nil
}

// QueryImage submits a query image and asks for the top-k matches.
func (b *BackendClient) QueryImage(ctx context.Context, query SearchQuery, k int) (*models.BackendSearchResponse, error) {
	reqBody := models.BackendSearchRequest{K: k}
	if len(query.Data) > 0 {
		reqBody.ImageBase64 = base64.StdEncoding.EncodeToString(query.Data)
	} else {
		reqBody.ImageURL = query.URL
	}

	var searchResp models.BackendSearchResponse
	if err := b.postJSON(ctx, "/api/search", reqBody, &searchResp); err != nil {
		return nil, &SearchError{Cause: err}
	}
	return &searchResp, nil
}

// postJSON sends one JSON request and decodes the JSON response. A non-200
// status becomes an error carrying the response body. No retries: the user
// re-triggers the action instead.
func (b *BackendClient) postJSON(ctx context.Context, path string, body interface{}, result interface{}) error {
	reqBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal backend request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+path, bytes.NewBuffer(reqBytes))
	if err != nil {
		return fmt.Errorf("failed to create backend request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := b.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to call retrieval backend: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("backend returned non-200 status: %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode backend response: %w", err)
	}
	return nil
}
