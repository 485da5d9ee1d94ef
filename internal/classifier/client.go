// Package classifier talks to the photo-classification endpoint.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"jardin/internal/model"
)

const (
	defaultBaseURL = "http://127.0.0.1:8080"
	analyzePath    = "/api/analizar_foto"
	maxBodyBytes   = 1 << 20
)

var (
	ErrImageRequired    = errors.New("image is required")
	ErrExpectedRequired = errors.New("expected plant is required")
	ErrInvalidResponse  = errors.New("invalid classifier response")
)

// StatusError is a non-2xx answer from the endpoint.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("classifier request failed, status=%d", e.StatusCode)
	}
	return fmt.Sprintf("classifier request failed, status=%d: %s", e.StatusCode, e.Message)
}

type Config struct {
	BaseURL string
	APIKey  string
	// Timeout bounds a single classification; zero leaves only the caller's context.
	Timeout time.Duration
}

type Client struct {
	baseURL    string
	apiKey     string
	timeout    time.Duration
	httpClient *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		return nil, fmt.Errorf("classifier base url must be http(s): %q", baseURL)
	}
	if cfg.Timeout < 0 {
		cfg.Timeout = 0
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     strings.TrimSpace(cfg.APIKey),
		timeout:    cfg.Timeout,
		httpClient: &http.Client{},
	}, nil
}

// WithHTTPClient swaps the transport, mainly for tests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	if hc != nil {
		c.httpClient = hc
	}
	return c
}

type analyzeResponse struct {
	Predicted  string `json:"planta_predicha"`
	Confidence any    `json:"confianza"`
	Match      any    `json:"coincide"`
	Error      string `json:"error"`
}

// Classify submits image with the plant it is expected to show.
func (c *Client) Classify(ctx context.Context, image []byte, fileName string, expected string) (model.Classification, error) {
	if len(image) == 0 {
		return model.Classification{}, ErrImageRequired
	}
	expected = strings.TrimSpace(expected)
	if expected == "" {
		return model.Classification{}, ErrExpectedRequired
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	body, contentType, err := buildAnalyzeForm(image, fileName, expected)
	if err != nil {
		return model.Classification{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+analyzePath, body)
	if err != nil {
		return model.Classification{}, err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.Classification{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return model.Classification{}, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return model.Classification{}, &StatusError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(raw),
		}
	}
	return parseAnalyzeResponse(raw)
}

// Ping reports whether the endpoint answers at all; any HTTP status counts.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL+"/", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}

func buildAnalyzeForm(image []byte, fileName string, expected string) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fileName = strings.TrimSpace(fileName)
	if fileName == "" {
		fileName = "capture.jpg"
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="imagen"; filename=%q`, fileName))
	header.Set("Content-Type", http.DetectContentType(image))
	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(image); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("planta_esperada", expected); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

func parseAnalyzeResponse(raw []byte) (model.Classification, error) {
	var payload analyzeResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return model.Classification{}, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if strings.TrimSpace(payload.Error) != "" {
		return model.Classification{}, fmt.Errorf("%w: %s", ErrInvalidResponse, payload.Error)
	}
	confidence, ok := toFloat(payload.Confidence)
	if !ok {
		return model.Classification{}, fmt.Errorf("%w: confianza missing", ErrInvalidResponse)
	}
	match, ok := toBool(payload.Match)
	if !ok {
		return model.Classification{}, fmt.Errorf("%w: coincide missing", ErrInvalidResponse)
	}
	return model.Classification{
		PredictedLabel: strings.TrimSpace(payload.Predicted),
		Confidence:     confidence,
		Match:          match,
	}, nil
}

func errorMessage(raw []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return truncateText(strings.TrimSpace(string(raw)), 200)
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(t), "%"), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func toBool(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "1", "yes", "si", "sí":
			return true, true
		case "false", "0", "no":
			return false, true
		}
	case float64:
		return t != 0, true
	}
	return false, false
}

func truncateText(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// NormalizeName folds a plant name the way the endpoint compares them.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(strings.ReplaceAll(name, "%20", " ")))
}
