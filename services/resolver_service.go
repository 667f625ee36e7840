package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// maxQueryImageBytes caps how much of a referenced image we pull into memory.
const maxQueryImageBytes = 32 << 20

// Preview is a locally served copy of a submitted query image, so the UI can
// show what was searched for without re-reading the original source.
type Preview struct {
	Data     []byte
	MimeType string
}

// ResolverService turns query references into backend-addressable raw bytes
// and registers submitted images as servable previews. Fetched reference bytes
// are kept in a short-lived cache so rapid re-clicks of the same example do
// not re-download it.
type ResolverService struct {
	httpClient *http.Client
	fetched    *cache.Cache
	previews   *cache.Cache
	logger     *zap.SugaredLogger
}

func NewResolverService(httpClient *http.Client, logger *zap.SugaredLogger) *ResolverService {
	return &ResolverService{
		httpClient: httpClient,
		// Reference bytes expire quickly; previews live for the practical
		// length of a browsing session.
		fetched:  cache.New(10*time.Minute, 5*time.Minute),
		previews: cache.New(30*time.Minute, 10*time.Minute),
		logger:   logger,
	}
}

// ResolveReference fetches the image behind a reference URL so it can be
// submitted to the backend as raw bytes.
func (r *ResolverService) ResolveReference(ctx context.Context, url string) ([]byte, error) {
	if cached, found := r.fetched.Get(url); found {
		return cached.([]byte), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create fetch request for %s: %w", url, err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch query image %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("query image fetch returned status %d for %s", resp.StatusCode, url)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxQueryImageBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read query image %s: %w", url, err)
	}

	r.fetched.Set(url, data, cache.DefaultExpiration)
	r.logger.Infof("RESOLVER: Fetched query image %s (%d bytes)", url, len(data))
	return data, nil
}

// RegisterPreview stores submitted image bytes and returns the local URL path
// they will be served from.
func (r *ResolverService) RegisterPreview(data []byte, mimeType string) string {
	id := uuid.New().String()
	r.previews.Set(id, Preview{Data: data, MimeType: mimeType}, cache.DefaultExpiration)
	return "/api/v1/previews/" + id
}

// Preview looks up a registered preview by its ID.
func (r *ResolverService) Preview(id string) (Preview, bool) {
	if cached, found := r.previews.Get(id); found {
		return cached.(Preview), true
	}
	return Preview{}, false
}

// IsImageMIME reports whether a pasted payload's MIME type is an image type.
// Paste events are filtered to images only; everything else is rejected.
func IsImageMIME(mimeType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(mimeType)), "image/")
}
