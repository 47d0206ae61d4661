package httpkit

import "net/http"

// StatusRecorder wraps a ResponseWriter to capture the status code and response size
type StatusRecorder struct {
	http.ResponseWriter
	Status   int
	BytesOut int
}

// NewStatusRecorder defaults the status to 200 for handlers that never call WriteHeader
func NewStatusRecorder(w http.ResponseWriter) *StatusRecorder {
	return &StatusRecorder{ResponseWriter: w, Status: http.StatusOK}
}

func (rw *StatusRecorder) WriteHeader(code int) {
	rw.Status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *StatusRecorder) Write(b []byte) (int, error) {
	size, err := rw.ResponseWriter.Write(b)
	rw.BytesOut += size
	return size, err
}

// Unwrap lets http.ResponseController reach the underlying writer
func (rw *StatusRecorder) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Route is the mux pattern that served r, or "unmatched". Using the pattern keeps
// per-address path values out of logs keys and metric labels.
func Route(r *http.Request) string {
	if r.Pattern == "" {
		return "unmatched"
	}
	return r.Pattern
}
