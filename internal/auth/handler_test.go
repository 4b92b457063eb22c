package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wordbox/backend/internal/config"
	"github.com/wordbox/backend/internal/database"
	"github.com/wordbox/backend/internal/models"
	"go.uber.org/zap"
)

const testSecret = "test-secret-0123456789"

func newTestRouter(t *testing.T) (*mux.Router, *Tokens) {
	t.Helper()
	db, err := database.Connect(config.DBConfig{Driver: "sqlite3", SQLitePath: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))

	tokens := NewTokens(testSecret, time.Hour)
	h := NewHandler(NewStore(db), tokens, zap.NewNop())

	r := mux.NewRouter()
	r.HandleFunc("/auth/register", h.Register).Methods("POST")
	r.HandleFunc("/auth/login", h.Login).Methods("POST")
	protected := r.PathPrefix("").Subrouter()
	protected.Use(tokens.Middleware)
	protected.HandleFunc("/auth/me", h.GetCurrentUser).Methods("GET")
	return r, tokens
}

func do(t *testing.T, r http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRegisterLoginMe(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := do(t, r, "POST", "/auth/register", "", models.RegisterRequest{
		Email: "  Sara@Example.com ", Name: "Sara Tehrani", Password: "correct-horse",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var reg models.AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reg))
	assert.NotEmpty(t, reg.Token)
	assert.Equal(t, "sara@example.com", reg.User.Email)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = do(t, r, "POST", "/auth/register", "", models.RegisterRequest{
		Email: "sara@example.com", Name: "Other", Password: "another-pass",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, r, "POST", "/auth/login", "", models.LoginRequest{Email: "sara@example.com", Password: "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, r, "POST", "/auth/login", "", models.LoginRequest{Email: "nobody@example.com", Password: "whatever"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, r, "POST", "/auth/login", "", models.LoginRequest{Email: "SARA@example.com", Password: "correct-horse"})
	require.Equal(t, http.StatusOK, rec.Code)
	var login models.AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))

	rec = do(t, r, "GET", "/auth/me", login.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me models.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, reg.User.ID, me.ID)
}

func TestRegisterValidation(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := do(t, r, "POST", "/auth/register", "", models.RegisterRequest{Email: "not-an-email", Name: "A", Password: "long-enough"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, r, "POST", "/auth/register", "", models.RegisterRequest{Email: "a@b.co", Name: "A", Password: "short"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body models.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "invalid_request", body.Code)
}

func TestMiddlewareRejects(t *testing.T) {
	r, tokens := newTestRouter(t)

	rec := do(t, r, "GET", "/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, r, "GET", "/auth/me", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	other := NewTokens("a-different-secret-value", time.Hour)
	forged, err := other.Issue(uuid.New())
	require.NoError(t, err)
	rec = do(t, r, "GET", "/auth/me", forged, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	tokens.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := tokens.Issue(uuid.New())
	require.NoError(t, err)
	tokens.now = time.Now
	rec = do(t, r, "GET", "/auth/me", expired, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTokensRoundTrip(t *testing.T) {
	tokens := NewTokens(testSecret, time.Hour)
	id := uuid.New()

	raw, err := tokens.Issue(id)
	require.NoError(t, err)

	got, err := tokens.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}
