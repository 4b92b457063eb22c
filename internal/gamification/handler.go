package gamification

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

// ── Leaderboard ─────────────────────────────────────────

func (h *Handler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.Leaderboard(r.Context())
	if err != nil {
		httpx.WriteError(w, h.log, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) GetMyRank(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, h.log, r, apperr.New(apperr.CodeUnauthorized, "Unauthorized"))
		return
	}

	entry, err := h.service.MyRank(r.Context(), userID)
	if err != nil {
		httpx.WriteError(w, h.log, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, entry)
}

// ── Dashboard ───────────────────────────────────────────

func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, h.log, r, apperr.New(apperr.CodeUnauthorized, "Unauthorized"))
		return
	}

	stats, err := h.service.Dashboard(r.Context(), userID)
	if err != nil {
		httpx.WriteError(w, h.log, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, stats)
}
