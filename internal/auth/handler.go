package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/wordbox/backend/internal/apperr"
	"github.com/wordbox/backend/internal/httpx"
	"github.com/wordbox/backend/internal/models"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type Handler struct {
	store  *Store
	tokens *Tokens
	log    *zap.Logger
}

func NewHandler(store *Store, tokens *Tokens, log *zap.Logger) *Handler {
	return &Handler{store: store, tokens: tokens, log: log}
}

var errBadCredentials = apperr.New(apperr.CodeUnauthorized, "Invalid email or password")

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, h.log, r, err)
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		httpx.WriteError(w, h.log, r, apperr.New(apperr.CodeInvalidRequest, "Name is required"))
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		httpx.WriteError(w, h.log, r, err)
		return
	}

	user, err := h.store.CreateUser(r.Context(), req.Email, req.Name, string(hashedPassword))
	if err != nil {
		httpx.WriteError(w, h.log, r, err)
		return
	}

	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		httpx.WriteError(w, h.log, r, err)
		return
	}

	h.log.Info("learner registered", zap.String("user_id", user.ID.String()))
	httpx.WriteJSON(w, http.StatusCreated, models.AuthResponse{Token: token, User: *user})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, h.log, r, err)
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	user, err := h.store.GetByEmail(r.Context(), req.Email)
	if errors.Is(err, apperr.ErrNotFound) {
		httpx.WriteError(w, h.log, r, errBadCredentials)
		return
	}
	if err != nil {
		httpx.WriteError(w, h.log, r, err)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		httpx.WriteError(w, h.log, r, errBadCredentials)
		return
	}

	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		httpx.WriteError(w, h.log, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, models.AuthResponse{Token: token, User: *user})
}

func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, h.log, r, apperr.New(apperr.CodeUnauthorized, "Unauthorized"))
		return
	}

	user, err := h.store.GetByID(r.Context(), userID)
	if err != nil {
		httpx.WriteError(w, h.log, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, user)
}
