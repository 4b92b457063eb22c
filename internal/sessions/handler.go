package sessions

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/wordbox/backend/internal/apperr"
	"github.com/wordbox/backend/internal/auth"
	"github.com/wordbox/backend/internal/httpx"
	"github.com/wordbox/backend/internal/models"
	"go.uber.org/zap"
)

type Handler struct {
	engine *Engine
	log    *zap.Logger
}

func NewHandler(engine *Engine, log *zap.Logger) *Handler {
	return &Handler{engine: engine, log: log}
}

// target resolves the learner and the {id} path variable shared by every
// per-session route.
func (h *Handler) target(w http.ResponseWriter, r *http.Request) (uuid.UUID, int64, bool) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, h.log, r, apperr.New(apperr.CodeUnauthorized, "Unauthorized"))
		return uuid.Nil, 0, false
	}
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(w, h.log, r, err)
		return uuid.Nil, 0, false
	}
	return userID, id, true
}

func (h *Handler) user(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, h.log, r, apperr.New(apperr.CodeUnauthorized, "Unauthorized"))
	}
	return userID, ok
}

func rangeQuery(r *http.Request) (models.DateRange, error) {
	query := r.URL.Query()
	start, err := httpx.DateQuery(query, "start_date")
	if err != nil {
		return models.DateRange{}, err
	}
	end, err := httpx.DateQuery(query, "end_date")
	if err != nil {
		return models.DateRange{}, err
	}
	return models.DateRange{Start: start, End: end}, nil
}

// ── Quizzes ─────────────────────────────────────────────

func (h *Handler) StartQuiz(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	var req models.StartQuizRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, h.log, r, err)
		return
	}

	quiz, err := h.engine.StartQuiz(r.Context(), userID, req.Cadence)
	if err != nil {
		httpx.WriteError(w, h.log, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, quiz)
}

func (h *Handler) ListQuizzes(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	rng, err := rangeQuery(r)
	if err != nil {
		httpx.WriteError(w, h.log, r, err)
		return
	}

	quizzes, err := h.engine.ListQuizzes(r.Context(), userID, rng)
	if err != nil {
		httpx.WriteError(w, h.log, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, quizzes)
}

func (h *Handler) GetQuiz(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := h.target(w, r)
	if !ok {
		return
	}
	quiz, err := h.engine.GetQuiz(r.Context(), userID, id)
	if err != nil {
		httpx.WriteError(w, h.log, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, quiz)
}

func (h *Handler) DeleteQuiz(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := h.target(w, r)
	if !ok {
		return
	}
	if err := h.engine.DeleteQuiz(r.Context(), userID, id); err != nil {
		httpx.WriteError(w, h.log, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) QuizQuestion(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := h.target(w, r)
	if !ok {
		return
	}
	resp, err := h.engine.NextQuizQuestion(r.Context(), userID, id)
	if err != nil {
		httpx.WriteError(w, h.log, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) AnswerQuiz(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := h.target(w, r)
	if !ok {
		return
	}
	var req models.AnswerRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, h.log, r, err)
		return
	}

	resp, err := h.engine.AnswerQuiz(r.Context(), userID, id, req.SelectedWordID)
	if err != nil {
		httpx.WriteError(w, h.log, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) PrepareBatch(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := h.target(w, r)
	if !ok {
		return
	}
	resp, err := h.engine.PrepareBatch(r.Context(), userID, id)
	if err != nil {
		httpx.WriteError(w, h.log, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) GradeBatch(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := h.target(w, r)
	if !ok {
		return
	}
	var req models.BatchAnswersRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, h.log, r, err)
		return
	}

	resp, err := h.engine.GradeBatch(r.Context(), userID, id, req.Answers)
	if err != nil {
		httpx.WriteError(w, h.log, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// ── Games ───────────────────────────────────────────────

func (h *Handler) StartGame(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	var req models.StartGameRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, h.log, r, err)
		return
	}

	game, err := h.engine.StartGame(r.Context(), userID, req)
	if err != nil {
		httpx.WriteError(w, h.log, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, game)
}

func (h *Handler) ListGames(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	rng, err := rangeQuery(r)
	if err != nil {
		httpx.WriteError(w, h.log, r, err)
		return
	}

	games, err := h.engine.ListGames(r.Context(), userID, rng)
	if err != nil {
		httpx.WriteError(w, h.log, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, games)
}

func (h *Handler) GetGame(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := h.target(w, r)
	if !ok {
		return
	}
	game, err := h.engine.GetGame(r.Context(), userID, id)
	if err != nil {
		httpx.WriteError(w, h.log, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, game)
}

func (h *Handler) DeleteGame(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := h.target(w, r)
	if !ok {
		return
	}
	if err := h.engine.DeleteGame(r.Context(), userID, id); err != nil {
		httpx.WriteError(w, h.log, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GameQuestion(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := h.target(w, r)
	if !ok {
		return
	}
	resp, err := h.engine.NextGameQuestion(r.Context(), userID, id)
	if err != nil {
		httpx.WriteError(w, h.log, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) AnswerGame(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := h.target(w, r)
	if !ok {
		return
	}
	var req models.AnswerRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, h.log, r, err)
		return
	}

	resp, err := h.engine.AnswerGame(r.Context(), userID, id, req.SelectedWordID)
	if err != nil {
		httpx.WriteError(w, h.log, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}
