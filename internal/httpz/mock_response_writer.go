package httpz

import (
	"io"
	"net/http"
)

// NewMockResponseWriter returns a response writer that collects the response
// into the given writer instead of a network connection. The proxy adapter
// uses it to run the control handler against flows intercepted on the wire.
func NewMockResponseWriter(wr io.Writer) *MockResponseWriter {
	return &MockResponseWriter{
		inner:   wr,
		headers: http.Header{},
	}
}

// MockResponseWriter collects status, headers and body in memory.
type MockResponseWriter struct {
	inner         io.Writer
	headers       http.Header
	statusCode    int
	contentLength int
}

// Write writes the data to the response.
func (rw *MockResponseWriter) Write(b []byte) (int, error) {
	bytesWritten, err := rw.inner.Write(b)
	rw.contentLength += bytesWritten
	return bytesWritten, err
}

// Header accesses the response header collection.
func (rw *MockResponseWriter) Header() http.Header {
	return rw.headers
}

// WriteHeader records the status code.
func (rw *MockResponseWriter) WriteHeader(code int) {
	rw.statusCode = code
}

// StatusCode returns the status code, defaulting to 200 when the handler
// never set one explicitly.
func (rw *MockResponseWriter) StatusCode() int {
	if rw.statusCode == 0 {
		return http.StatusOK
	}
	return rw.statusCode
}

// ContentLength returns the content length.
func (rw *MockResponseWriter) ContentLength() int {
	return rw.contentLength
}
