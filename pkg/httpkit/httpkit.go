// Package httpkit holds the response plumbing shared by the API handlers
// and the middleware that logs and measures them.
package httpkit

import (
	"context"
	"encoding/json"
	"net/http"
)

// HTTPError is an error that knows its status code and hides its cause from clients
type HTTPError interface {
	HTTPCode() int
	Cause() error
	error
}

// jsonHeaders are set on every JSON body unless a wrapper already chose a value
var jsonHeaders = http.Header{
	"Content-Type":           {"application/json; charset=utf-8"},
	"X-Content-Type-Options": {"nosniff"},
}

func setDefaults(w http.ResponseWriter, defaults http.Header) {
	header := w.Header()
	for key, value := range defaults {
		if len(header[key]) == 0 {
			header[key] = value
		}
	}
}

// The failed request's error rides in the context so middleware can log its cause
type ctxKeyError struct{}

type errorHolder struct {
	err error
}

// WithErrorTracking makes room for a handler error in ctx, reusing one already there
func WithErrorTracking(ctx context.Context) context.Context {
	if _, ok := ctx.Value(ctxKeyError{}).(*errorHolder); ok {
		return ctx
	}
	return context.WithValue(ctx, ctxKeyError{}, &errorHolder{})
}

// Error returns the error recorded by JsonError for this request, if any
func Error(ctx context.Context) error {
	if holder, ok := ctx.Value(ctxKeyError{}).(*errorHolder); ok {
		return holder.err
	}
	return nil
}

func recordError(ctx context.Context, err error) {
	if holder, ok := ctx.Value(ctxKeyError{}).(*errorHolder); ok {
		holder.err = err
	}
}

// HandlerFunc is a handler that decides which response to write and returns it
type HandlerFunc func(http.ResponseWriter, *http.Request) http.HandlerFunc

func (h HandlerFunc) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r = r.WithContext(WithErrorTracking(r.Context()))

	if respond := h(w, r); respond != nil {
		respond(w, r)
	}
}

// JSON responds 200 with data encoded as JSON
func JSON(data any) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, data)
	}
}

// JsonError records err for middleware and responds with its status and public body
func JsonError(err HTTPError) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		recordError(r.Context(), err)
		writeJSON(w, err.HTTPCode(), err)
	}
}

// NoStore keeps intermediaries from caching the response.
// Ledger reads change with every block.
func NoStore(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		setDefaults(w, http.Header{"Cache-Control": {"no-store"}})
		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, code int, data any) {
	setDefaults(w, jsonHeaders)
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(data)
}
