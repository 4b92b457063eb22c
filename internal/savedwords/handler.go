package savedwords

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/wordbox/backend/internal/apperr"
	"github.com/wordbox/backend/internal/auth"
	"github.com/wordbox/backend/internal/httpx"
	"github.com/wordbox/backend/internal/leitner"
	"github.com/wordbox/backend/internal/models"
	"go.uber.org/zap"
)

type Handler struct {
	service *Service
	log     *zap.Logger
}

func NewHandler(service *Service, log *zap.Logger) *Handler {
	return &Handler{service: service, log: log}
}

// getUserID extracts the authenticated learner from the request context.
func getUserID(r *http.Request) (uuid.UUID, error) {
	id, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		return uuid.Nil, apperr.New(apperr.CodeUnauthorized, "Unauthorized")
	}
	return id, nil
}

func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	userID, err := getUserID(r)
	if err != nil {
		httpx.WriteError(w, h.log, r, err)
		return
	}

	var req models.AddSavedWordRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, h.log, r, err)
		return
	}

	sw, err := h.service.Add(r.Context(), userID, req)
	if err != nil {
		httpx.WriteError(w, h.log, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, sw)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := getUserID(r)
	if err != nil {
		httpx.WriteError(w, h.log, r, err)
		return
	}

	query := r.URL.Query()
	filter := models.SavedWordFilter{Search: query.Get("search")}
	if b := query.Get("box"); b != "" {
		box, err := leitner.ParseBox(b)
		if err != nil {
			httpx.WriteError(w, h.log, r, apperr.Wrap(apperr.CodeInvalidRequest, "Invalid box", err))
			return
		}
		filter.Box = &box
	}

	words, err := h.service.List(r.Context(), userID, filter)
	if err != nil {
		httpx.WriteError(w, h.log, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, words)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := getUserID(r)
	if err != nil {
		httpx.WriteError(w, h.log, r, err)
		return
	}
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(w, h.log, r, err)
		return
	}

	sw, err := h.service.Get(r.Context(), userID, id)
	if err != nil {
		httpx.WriteError(w, h.log, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, sw)
}

func (h *Handler) Edit(w http.ResponseWriter, r *http.Request) {
	userID, err := getUserID(r)
	if err != nil {
		httpx.WriteError(w, h.log, r, err)
		return
	}
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(w, h.log, r, err)
		return
	}

	var req models.EditSavedWordRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, h.log, r, err)
		return
	}

	sw, err := h.service.Edit(r.Context(), userID, id, req)
	if err != nil {
		httpx.WriteError(w, h.log, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, sw)
}

func (h *Handler) Review(w http.ResponseWriter, r *http.Request) {
	userID, err := getUserID(r)
	if err != nil {
		httpx.WriteError(w, h.log, r, err)
		return
	}
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(w, h.log, r, err)
		return
	}

	var req models.ReviewRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, h.log, r, err)
		return
	}

	sw, err := h.service.Review(r.Context(), userID, id, req)
	if err != nil {
		httpx.WriteError(w, h.log, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, sw)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := getUserID(r)
	if err != nil {
		httpx.WriteError(w, h.log, r, err)
		return
	}
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(w, h.log, r, err)
		return
	}

	if err := h.service.Delete(r.Context(), userID, id); err != nil {
		httpx.WriteError(w, h.log, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
