package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/wordbox/backend/internal/apperr"
	"github.com/wordbox/backend/internal/config"
	"github.com/wordbox/backend/internal/models"
	"go.uber.org/zap"
)

func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// WriteError maps err to its status and error body. Server-side failures
// are logged with the underlying cause, which never reaches the client.
func WriteError(w http.ResponseWriter, log *zap.Logger, r *http.Request, err error) {
	code := apperr.CodeOf(err)
	status := apperr.HTTPStatus(code)
	if status >= http.StatusInternalServerError && log != nil {
		log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err),
		)
	}
	WriteJSON(w, status, models.ErrorResponse{Error: apperr.MessageOf(err), Code: string(code)})
}

// Decode reads a JSON body into v and runs its validate tags. An empty
// body decodes as {} so optional-only requests may omit it.
func Decode(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return apperr.New(apperr.CodeInvalidRequest, "Invalid request body")
	}
	if err := config.Validate(v); err != nil {
		return apperr.Wrap(apperr.CodeInvalidRequest, err.Error(), err)
	}
	return nil
}

func PathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.New(apperr.CodeInvalidRequest, "Invalid "+name)
	}
	return id, nil
}

func IntQuery(query url.Values, key string, defaultVal int) int {
	s := query.Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	return v
}

// DateQuery parses an optional YYYY-MM-DD query parameter.
func DateQuery(query url.Values, key string) (*time.Time, error) {
	s := query.Get(key)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, apperr.New(apperr.CodeInvalidRequest, key+" must be YYYY-MM-DD")
	}
	return &t, nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// RequestLogger logs one line per request.
func RequestLogger(log *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			log.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.status),
				zap.Duration("took", time.Since(start)),
			)
		})
	}
}
