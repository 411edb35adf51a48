package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	"github.com/gorilla/schema"
	"github.com/gorilla/sessions"
	"github.com/prior-it/socialauth/config"
	"github.com/prior-it/socialauth/core"
)

var queryDecoder = func() *schema.Decoder {
	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)
	return decoder
}()

// Call wraps a single HTTP request and its response.
type Call struct {
	Writer  http.ResponseWriter
	Request *http.Request
	Cfg     *config.Config
	logger  *slog.Logger
	store   sessions.Store
	storage StorageFactory
}

// Log the specified error message. args is a list of structured fields to add to the error message.
// The arguments should alternate between a field's name (string) and its value (any).
// This behaves the same as [log/slog.Error]
func (call *Call) Error(msg string, args ...any) {
	call.logger.Error(msg, args...)
}

// Log the specified debug message. args is a list of structured fields to add to the message.
// This behaves the same as [log/slog.Debug]
func (call *Call) Debug(msg string, args ...any) {
	call.logger.Debug(msg, args...)
}

// LogString will add the specified field and its value to the current request's span
func (call *Call) LogString(field string, value string) {
	call.LogField(field, slog.StringValue(value))
}

// LogField will add the specified field and its value to the current request's span
//
// # Example
//
//	call.LogField("provider", slog.StringValue(provider))
func (call *Call) LogField(field string, value slog.Value) {
	httplog.LogEntrySetField(call.Context(), field, value)
}

// Context returns the request's context.
func (call *Call) Context() context.Context {
	return call.Request.Context()
}

// Path returns the full path of the request.
func (call *Call) Path() string {
	return call.Request.URL.Path
}

// GetPath returns the value for the named path wildcard in the router pattern
// that matched the request.
//
// E.g.: A route defined as `/auth/{provider}` can call `GetPath("provider")` to return the
// value for "provider" in the current path.
func (call *Call) GetPath(key string) string {
	return chi.URLParam(call.Request, key)
}

// GetQuery returns the first value associated with the given query parameter in the request url.
// If there are no values set for the query param, this returns the empty string.
func (call *Call) GetQuery(param string) string {
	return call.Request.URL.Query().Get(param)
}

// DecodeQuery decodes the query string of the request into v using `schema` struct tags.
// Unknown parameters are ignored.
func (call *Call) DecodeQuery(v any) error {
	if err := queryDecoder.Decode(v, call.Request.URL.Query()); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidQuery, err)
	}
	return nil
}

// Session returns the session of the current browser.
// A session that cannot be decoded is replaced by a new, empty one.
func (call *Call) Session() *sessions.Session {
	session, err := call.store.Get(call.Request, cookieSession)
	if err != nil {
		slog.Warn("Could not decode the session cookie, starting a new session", "error", err)
	}
	return session
}

// Storage returns the provider storage that belongs to the current browser session.
func (call *Call) Storage() (core.Storage, error) {
	return call.storage(call)
}

// Redirect will return a response that redirects the user to the specified url.
func (call *Call) Redirect(url string) {
	http.Redirect(call.Writer, call.Request, url, http.StatusFound)
}

// JSON renders v as the JSON response body.
func (call *Call) JSON(v any) {
	render.JSON(call.Writer, call.Request, v)
}

// NoContent responds with 204 and an empty body.
func (call *Call) NoContent() {
	render.NoContent(call.Writer, call.Request)
}
