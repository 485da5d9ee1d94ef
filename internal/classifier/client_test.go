package classifier

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := NewClient(Config{BaseURL: server.URL, APIKey: "k"})
	require.NoError(t, err)
	return client.WithHTTPClient(server.Client())
}

func TestClassifySendsMultipartForm(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, analyzePath, r.URL.Path)
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "quercus robur", r.FormValue("planta_esperada"))

		file, header, err := r.FormFile("imagen")
		if assert.NoError(t, err) {
			defer file.Close()
			data, _ := io.ReadAll(file)
			assert.Equal(t, []byte("jpegbytes"), data)
			assert.Equal(t, "leaf.jpg", header.Filename)
		}

		_, _ = w.Write([]byte(`{"planta_predicha":"Quercus robur","confianza":91.5,"coincide":true}`))
	})

	got, err := client.Classify(context.Background(), []byte("jpegbytes"), "leaf.jpg", " quercus robur ")
	require.NoError(t, err)
	assert.Equal(t, "Quercus robur", got.PredictedLabel)
	assert.InDelta(t, 91.5, got.Confidence, 0.001)
	assert.True(t, got.Match)
	assert.True(t, got.Accepted())
}

func TestClassifyAcceptanceBoundary(t *testing.T) {
	cases := []struct {
		body     string
		accepted bool
	}{
		{`{"planta_predicha":"a","confianza":80,"coincide":true}`, true},
		{`{"planta_predicha":"a","confianza":79,"coincide":true}`, false},
		{`{"planta_predicha":"a","confianza":95,"coincide":false}`, false},
		{`{"planta_predicha":"a","confianza":"88.2","coincide":"true"}`, true},
	}
	for _, tc := range cases {
		got, err := parseAnalyzeResponse([]byte(tc.body))
		require.NoError(t, err, tc.body)
		assert.Equal(t, tc.accepted, got.Accepted(), tc.body)
	}
}

func TestClassifyStatusError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"Faltan datos"}`))
	})

	_, err := client.Classify(context.Background(), []byte("x"), "", "rosa")
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
	assert.Equal(t, "Faltan datos", statusErr.Message)
}

func TestClassifyMalformedBody(t *testing.T) {
	for _, body := range []string{`not json`, `{"error":"model exploded"}`, `{"planta_predicha":"a","coincide":true}`} {
		_, err := parseAnalyzeResponse([]byte(body))
		assert.ErrorIs(t, err, ErrInvalidResponse, body)
	}
}

func TestClassifyValidatesInput(t *testing.T) {
	client, err := NewClient(Config{})
	require.NoError(t, err)
	_, err = client.Classify(context.Background(), nil, "", "rosa")
	assert.ErrorIs(t, err, ErrImageRequired)
	_, err = client.Classify(context.Background(), []byte("x"), "", " ")
	assert.ErrorIs(t, err, ErrExpectedRequired)
}

func TestClassifyTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client, err := NewClient(Config{BaseURL: server.URL, Timeout: 50 * time.Millisecond})
	require.NoError(t, err)
	_, err = client.Classify(context.Background(), []byte("x"), "", "rosa")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPing(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		w.WriteHeader(http.StatusNotFound)
	})
	assert.NoError(t, client.Ping(context.Background()))

	down, err := NewClient(Config{BaseURL: "http://127.0.0.1:1"})
	require.NoError(t, err)
	assert.Error(t, down.Ping(context.Background()))
}

func TestNewClientRejectsBadURL(t *testing.T) {
	_, err := NewClient(Config{BaseURL: "ftp://x"})
	assert.Error(t, err)
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "quercus robur", NormalizeName(" Quercus%20Robur "))
}
