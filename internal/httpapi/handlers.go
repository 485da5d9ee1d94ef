package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"jardin/internal/auth"
	"jardin/internal/model"
	"jardin/internal/service"
)

const maxCaptureBytes = 12 << 20

type Handler struct {
	agent  *service.Agent
	logger *zap.Logger
}

func NewHandler(agent *service.Agent, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{agent: agent, logger: logger}
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "online": h.agent.Online()})
}

type signInRequest struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

type signInResponse struct {
	Progress  model.ProgressView      `json:"progress"`
	Reconcile service.ReconcileReport `json:"reconcile"`
}

func (h *Handler) signIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debug("sign-in decode error", zap.Error(err))
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	user := auth.User{ID: strings.TrimSpace(req.UserID), Email: strings.TrimSpace(req.Email)}
	if !user.SignedIn() {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	view, report, err := h.agent.SignIn(r.Context(), user)
	if err != nil {
		h.writeServiceError(w, "sign-in", err)
		return
	}
	writeJSON(w, http.StatusOK, signInResponse{Progress: view, Reconcile: report})
}

func (h *Handler) signOut(w http.ResponseWriter, _ *http.Request) {
	h.agent.SignOut()
	writeJSON(w, http.StatusOK, map[string]string{"status": "signed_out"})
}

func (h *Handler) progress(w http.ResponseWriter, r *http.Request) {
	view, err := h.agent.View(r.Context())
	if err != nil {
		h.writeServiceError(w, "progress", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) catalog(w http.ResponseWriter, r *http.Request) {
	view, err := h.agent.View(r.Context())
	if err != nil {
		h.writeServiceError(w, "catalog", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"level":  view.Level,
		"plants": view.Cards,
	})
}

func (h *Handler) capture(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxCaptureBytes)
	if err := r.ParseMultipartForm(maxCaptureBytes); err != nil {
		h.logger.Debug("capture form error", zap.Error(err))
		writeError(w, http.StatusBadRequest, "expected multipart form with item_id and image")
		return
	}

	req := service.CaptureRequest{ItemID: r.FormValue("item_id")}
	file, header, err := r.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile):
	case err != nil:
		writeError(w, http.StatusBadRequest, "image could not be read")
		return
	default:
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			writeError(w, http.StatusBadRequest, "image could not be read")
			return
		}
		req.Photo = data
		req.FileName = header.Filename
		req.MIME = header.Header.Get("Content-Type")
	}

	out, err := h.agent.Capture(r.Context(), req)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, service.ErrItemRequired):
			status = http.StatusBadRequest
		case errors.Is(err, service.ErrClassification):
			status = http.StatusBadGateway
		}
		h.logger.Warn("capture failed", zap.String("item_id", req.ItemID), zap.Error(err))
		writeJSON(w, status, map[string]any{
			"error":   err.Error(),
			"outcome": out,
		})
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) sync(w http.ResponseWriter, r *http.Request) {
	report, err := h.agent.Sync(r.Context())
	if err != nil {
		h.writeServiceError(w, "sync", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type pendingEntry struct {
	ItemID string `json:"item_id"`
	Bytes  int    `json:"photo_bytes"`
}

func (h *Handler) pending(w http.ResponseWriter, r *http.Request) {
	items, err := h.agent.Pending(r.Context())
	if err != nil {
		h.writeServiceError(w, "pending", err)
		return
	}
	entries := make([]pendingEntry, 0, len(items))
	for _, item := range items {
		entries = append(entries, pendingEntry{ItemID: item.ItemID, Bytes: len(item.Photo)})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count": len(entries),
		"items": entries,
	})
}

func (h *Handler) discard(w http.ResponseWriter, r *http.Request) {
	itemID := strings.TrimSpace(r.PathValue("itemID"))
	n, err := h.agent.Discard(r.Context(), itemID)
	if err != nil {
		if errors.Is(err, service.ErrItemRequired) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.writeServiceError(w, "discard", err)
		return
	}
	if n == 0 {
		writeError(w, http.StatusNotFound, "no pending capture for "+itemID)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"removed": n})
}

type connectivityRequest struct {
	Online *bool `json:"online"`
}

func (h *Handler) connectivity(w http.ResponseWriter, r *http.Request) {
	var req connectivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Online == nil {
		writeError(w, http.StatusBadRequest, "online must be a boolean")
		return
	}
	changed := h.agent.SetOnline(*req.Online)
	writeJSON(w, http.StatusOK, map[string]bool{
		"online":  *req.Online,
		"changed": changed,
	})
}

func (h *Handler) writeServiceError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, service.ErrCatalogUnavailable) {
		h.logger.Warn(op+" unavailable", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, service.ErrCatalogUnavailable.Error())
		return
	}
	h.logger.Error(op+" internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, err.Error())
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
