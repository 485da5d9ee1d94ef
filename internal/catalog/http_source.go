package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"jardin/internal/model"
)

const maxCatalogBytes = 8 << 20

// HTTPSource fetches the catalog fresh on every call.
type HTTPSource struct {
	url          string
	photoBaseURL string
	timeout      time.Duration
	httpClient   *http.Client
}

func NewHTTPSource(url string, photoBaseURL string, timeout time.Duration) *HTTPSource {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPSource{
		url:          strings.TrimSpace(url),
		photoBaseURL: photoBaseURL,
		timeout:      timeout,
		httpClient:   &http.Client{},
	}
}

func (s *HTTPSource) WithHTTPClient(hc *http.Client) *HTTPSource {
	if hc != nil {
		s.httpClient = hc
	}
	return s
}

func (s *HTTPSource) Fetch(ctx context.Context) (model.Catalog, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCatalogBytes))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("catalog request failed, status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	cat, err := Parse(body, s.photoBaseURL)
	if err != nil {
		return nil, err
	}
	if len(cat) == 0 {
		return nil, ErrEmptyCatalog
	}
	return cat, nil
}
