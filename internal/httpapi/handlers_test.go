package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"jardin/internal/catalog"
	"jardin/internal/connectivity"
	"jardin/internal/model"
	"jardin/internal/progress"
	"jardin/internal/queue"
	"jardin/internal/service"
	"jardin/internal/store"
)

type stubClassifier struct {
	result model.Classification
	err    error
}

func (s stubClassifier) Classify(context.Context, []byte, string, string) (model.Classification, error) {
	return s.result, s.err
}

func newTestServer(t *testing.T, cls service.Classifier, online bool) (http.Handler, *queue.Queue) {
	t.Helper()
	st, err := store.NewJSONStore(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatalf("NewJSONStore() error = %v", err)
	}
	cat, err := catalog.Default("")
	if err != nil {
		t.Fatalf("catalog.Default() error = %v", err)
	}
	q := queue.New(st, queue.DefaultSlot)
	svc := service.New(service.Deps{
		Progress:   progress.NewAdapter(st, nil),
		Queue:      q,
		Classifier: cls,
		Catalog:    cat,
	})
	agent := service.NewAgent(svc, connectivity.NewMonitor(online, nil), nil)
	return NewRouter(NewHandler(agent, nil)), q
}

func do(t *testing.T, h http.Handler, method string, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var payload []byte
	if body != nil {
		payload, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func captureRequest(t *testing.T, itemID string, image []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("item_id", itemID); err != nil {
		t.Fatalf("WriteField() error = %v", err)
	}
	if image != nil {
		part, err := w.CreateFormFile("image", "hoja.jpg")
		if err != nil {
			t.Fatalf("CreateFormFile() error = %v", err)
		}
		_, _ = part.Write(image)
	}
	_ = w.Close()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/capture", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response error = %v, body=%s", err, rec.Body.String())
	}
	return out
}

func TestSignInReturnsProgress(t *testing.T) {
	h, _ := newTestServer(t, stubClassifier{}, true)

	rec := do(t, h, http.MethodPost, "/api/v1/session", map[string]string{"user_id": "u1", "email": "ana@example.com"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d, body=%s", http.StatusOK, rec.Code, rec.Body.String())
	}
	resp := decode[signInResponse](t, rec)
	if resp.Progress.Level != 1 || resp.Progress.UserID != "u1" {
		t.Fatalf("unexpected progress %+v", resp.Progress)
	}
	if resp.Progress.Visible == 0 || len(resp.Progress.Cards) != resp.Progress.Visible {
		t.Fatalf("expected level-1 cards, got %d/%d", len(resp.Progress.Cards), resp.Progress.Visible)
	}
	if rec.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected request id header")
	}
}

func TestSignInRequiresUser(t *testing.T) {
	h, _ := newTestServer(t, stubClassifier{}, true)
	rec := do(t, h, http.MethodPost, "/api/v1/session", map[string]string{"email": "x@example.com"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestCaptureConfirmedOnline(t *testing.T) {
	h, _ := newTestServer(t, stubClassifier{result: model.Classification{PredictedLabel: "Bellis perennis", Confidence: 80, Match: true}}, true)
	do(t, h, http.MethodPost, "/api/v1/session", map[string]string{"user_id": "u1"})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, captureRequest(t, "Bellis perennis", []byte("jpeg")))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d, body=%s", http.StatusOK, rec.Code, rec.Body.String())
	}
	out := decode[service.CaptureOutcome](t, rec)
	if out.State != model.CaptureConfirmed {
		t.Fatalf("expected confirmed, got %+v", out)
	}

	view := decode[model.ProgressView](t, do(t, h, http.MethodGet, "/api/v1/progress", nil))
	if view.Confirmed != 1 || view.TotalSeen != 1 {
		t.Fatalf("expected one confirmed plant, got %+v", view)
	}
}

func TestCaptureEndpointFailureReturns502(t *testing.T) {
	h, _ := newTestServer(t, stubClassifier{err: errors.New("boom")}, true)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, captureRequest(t, "Bellis perennis", []byte("jpeg")))
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected status %d, got %d", http.StatusBadGateway, rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"state":"error"`) {
		t.Fatalf("expected error state in body, got %s", rec.Body.String())
	}
}

func TestCaptureOfflineQueuesThenDiscard(t *testing.T) {
	h, q := newTestServer(t, stubClassifier{}, false)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, captureRequest(t, "Rosa canina", []byte("jpeg")))
	out := decode[service.CaptureOutcome](t, rec)
	if out.State != model.CaptureOfflineQueued {
		t.Fatalf("expected offline_queued, got %+v", out)
	}

	pending := decode[map[string]any](t, do(t, h, http.MethodGet, "/api/v1/pending", nil))
	if pending["count"] != float64(1) {
		t.Fatalf("expected one pending capture, got %v", pending)
	}

	rec = do(t, h, http.MethodDelete, "/api/v1/pending/Rosa%20canina", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d, body=%s", http.StatusOK, rec.Code, rec.Body.String())
	}
	if n, _ := q.Len(context.Background()); n != 0 {
		t.Fatalf("expected empty queue, got %d", n)
	}
	rec = do(t, h, http.MethodDelete, "/api/v1/pending/Rosa%20canina", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestCaptureWithoutFormIsBadRequest(t *testing.T) {
	h, _ := newTestServer(t, stubClassifier{}, true)
	rec := do(t, h, http.MethodPost, "/api/v1/capture", map[string]string{"item_id": "x"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestConnectivityValidatesBody(t *testing.T) {
	h, _ := newTestServer(t, stubClassifier{}, false)
	if rec := do(t, h, http.MethodPut, "/api/v1/connectivity", map[string]string{}); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
	resp := decode[map[string]bool](t, do(t, h, http.MethodPut, "/api/v1/connectivity", map[string]bool{"online": true}))
	if !resp["online"] || !resp["changed"] {
		t.Fatalf("expected online change, got %v", resp)
	}
}

func TestOpenAPISpecListsRoutes(t *testing.T) {
	h, _ := newTestServer(t, stubClassifier{}, true)
	spec := decode[map[string]any](t, do(t, h, http.MethodGet, "/docs/openapi.json", nil))
	paths, _ := spec["paths"].(map[string]any)
	for _, p := range []string{"/api/v1/session", "/api/v1/capture", "/api/v1/sync", "/api/v1/pending/{itemID}"} {
		if _, ok := paths[p]; !ok {
			t.Fatalf("expected path %s in openapi spec", p)
		}
	}
}
