package crucible

import (
	"net"
	"net/url"
	"slices"
	"strings"
)

// Header is a single message header pair. Messages keep headers as an ordered
// list, never a map, so duplicates and wire order survive a round trip.
type Header struct {
	Name  string
	Value string
}

// Request is the canonical, storage-ready form of an intercepted HTTP
// request. String fields hold raw bytes; nothing here is assumed to be valid
// UTF-8 until it is escaped by the codec.
type Request struct {
	Method    string
	Scheme    string
	Authority string
	// Path is the request target including the raw query, e.g. "/ping?x=1".
	Path    string
	Proto   string
	Headers []Header
	Body    []byte
}

// URL returns the full request url, e.g. "http://example.com/ping?x=1".
func (r *Request) URL() string {
	return r.Scheme + "://" + r.Authority + r.Path
}

// Host returns the authority with any port stripped.
func (r *Request) Host() string {
	if host, _, err := net.SplitHostPort(r.Authority); err == nil {
		return host
	}
	return r.Authority
}

// HeaderValue returns the first value of the named header, matched
// case-insensitively.
func (r *Request) HeaderValue(name string) (string, bool) {
	for _, h := range r.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value, true
		}
	}
	return "", false
}

// HasHeader returns whether the named header is present.
func (r *Request) HasHeader(name string) bool {
	_, ok := r.HeaderValue(name)
	return ok
}

// Query parses the query portion of the request target.
func (r *Request) Query() url.Values {
	_, rawQuery, ok := strings.Cut(r.Path, "?")
	if !ok {
		return url.Values{}
	}
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return url.Values{}
	}
	return values
}

// Clone returns a deep copy of the request.
func (r *Request) Clone() *Request {
	clone := *r
	clone.Headers = slices.Clone(r.Headers)
	clone.Body = slices.Clone(r.Body)
	return &clone
}

// Response is the canonical, storage-ready form of an HTTP response.
type Response struct {
	Proto      string
	StatusCode int
	Reason     string
	Headers    []Header
	Body       []byte
}

// HeaderValue returns the first value of the named header, matched
// case-insensitively.
func (r *Response) HeaderValue(name string) (string, bool) {
	for _, h := range r.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value, true
		}
	}
	return "", false
}

// Clone returns a deep copy of the response.
func (r *Response) Clone() *Response {
	clone := *r
	clone.Headers = slices.Clone(r.Headers)
	clone.Body = slices.Clone(r.Body)
	return &clone
}
