package hints

import (
	"net/http"

	"github.com/wordbox/backend/internal/apperr"
	"github.com/wordbox/backend/internal/auth"
	"github.com/wordbox/backend/internal/httpx"
	"go.uber.org/zap"
)

type Handler struct {
	service *Service
	log     *zap.Logger
}

func NewHandler(service *Service, log *zap.Logger) *Handler {
	return &Handler{service: service, log: log}
}

func (h *Handler) GetExample(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, h.log, r, apperr.New(apperr.CodeUnauthorized, "Unauthorized"))
		return
	}
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(w, h.log, r, err)
		return
	}

	resp, err := h.service.Example(r.Context(), userID, id)
	if err != nil {
		httpx.WriteError(w, h.log, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}
