package vocab

import (
	"net/http"
	"strconv"

	"github.com/wordbox/backend/internal/httpx"
	"github.com/wordbox/backend/internal/models"
	"go.uber.org/zap"
)

type Handler struct {
	store *Store
	log   *zap.Logger
}

func NewHandler(store *Store, log *zap.Logger) *Handler {
	return &Handler{store: store, log: log}
}

func (h *Handler) ListWords(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	exact, _ := strconv.ParseBool(query.Get("exact"))

	filter := models.WordFilter{
		Search: query.Get("search"),
		Exact:  exact,
		Limit:  httpx.IntQuery(query, "limit", 50),
		Offset: httpx.IntQuery(query, "offset", 0),
	}

	words, err := h.store.ListWords(r.Context(), filter)
	if err != nil {
		httpx.WriteError(w, h.log, r, err)
		return
	}
	if words == nil {
		words = []models.Word{}
	}

	httpx.WriteJSON(w, http.StatusOK, models.WordListResponse{Words: words, Limit: filter.Limit, Offset: filter.Offset})
}

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.store.ListCategories(r.Context())
	if err != nil {
		httpx.WriteError(w, h.log, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, categories)
}
