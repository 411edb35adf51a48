package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"
	"github.com/prior-it/socialauth/core"
	"github.com/prior-it/socialauth/oauth"
)

var ErrInvalidQuery = errors.New("invalid query parameters")

type errorResponse struct {
	Error string `json:"error"`
}

// ErrorStatus returns the response status and public message for err.
func ErrorStatus(err error) (int, string) {
	var apiErr *oauth.APIError
	switch {
	case errors.Is(err, core.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, core.ErrUnknownProvider):
		return http.StatusNotFound, "unknown provider"
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, core.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, core.ErrInvalidState):
		return http.StatusBadRequest, "invalid authorization state"
	case errors.Is(err, ErrInvalidQuery):
		return http.StatusBadRequest, "invalid query parameters"
	case errors.Is(err, core.ErrUnexpectedAPIResponse),
		errors.Is(err, core.ErrMalformedResponse),
		errors.As(err, &apiErr):
		return http.StatusBadGateway, "provider error"
	}
	return http.StatusInternalServerError, "internal server error"
}

func DefaultErrorHandler(call *Call, err error) {
	code, msg := ErrorStatus(err)
	if code >= http.StatusInternalServerError {
		call.Error("Server error", "error", err)
	} else {
		call.Debug("Request failed", "error", err, "status", code)
	}
	render.Status(call.Request, code)
	render.JSON(call.Writer, call.Request, errorResponse{msg})
}
