package apitest

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

type Error struct {
	Error string `json:"error"`
}

type handler struct {
	logger     *zap.Logger
	handleFunc handlerFunc
}

type handlerFunc func(w http.ResponseWriter, r *http.Request) error

// statusError lets a handler choose the status code of its error response.
type statusError struct {
	code int
	msg  string
}

func (e *statusError) Error() string {
	return e.msg
}

func newHandler(logger *zap.Logger, fn handlerFunc) http.Handler {
	return handler{
		logger:     logger,
		handleFunc: fn,
	}
}

func (h handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	err := h.handleFunc(w, r)
	if err == nil {
		return
	}

	code := http.StatusInternalServerError
	if se, ok := err.(*statusError); ok {
		code = se.code
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(&Error{Error: err.Error()}); err != nil {
		h.logger.Error("error to response", zap.Error(err))
	}
}
