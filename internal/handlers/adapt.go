package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/handsomefox/title-catalog/internal/catalog"
	"github.com/handsomefox/title-catalog/internal/logger"
)

type HandlerWithErr func(w http.ResponseWriter, r *http.Request) error

type Error struct {
	Status  int
	Message string
}

func (e Error) Error() string {
	return e.Message + " code=" + strconv.FormatInt(int64(e.Status), 10)
}

type errorResponse struct {
	Error string `json:"error"`
}

func Adapt(h HandlerWithErr) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := h(w, r)
		if err == nil {
			return
		}

		var statusErr *Error
		if !errors.As(err, &statusErr) {
			statusErr = classify(err)
		}
		if statusErr.Status >= http.StatusInternalServerError {
			slog.Warn("request failed",
				slog.String("path", r.URL.Path),
				slog.Int("status", statusErr.Status),
				logger.Error(err),
			)
		}
		writeJSON(w, statusErr.Status, &errorResponse{Error: statusErr.Message})
	})
}

// classify maps domain errors onto HTTP statuses.
func classify(err error) *Error {
	switch {
	case errors.Is(err, catalog.ErrUnsupportedType), errors.Is(err, catalog.ErrUnsupportedOrder):
		return &Error{Status: http.StatusBadRequest, Message: err.Error()}
	case errors.Is(err, catalog.ErrDomainNotAllowed):
		return &Error{Status: http.StatusForbidden, Message: err.Error()}
	case errors.Is(err, catalog.ErrUpstreamFetch):
		return &Error{Status: http.StatusBadGateway, Message: err.Error()}
	}
	return &Error{Status: http.StatusInternalServerError, Message: err.Error()}
}
