package crucible

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
)

// RequestFromHTTP converts a live [http.Request] into its canonical form. The
// request body is consumed and replaced so the request remains forwardable.
// The Host authority is surfaced as a leading Host header, matching how it
// appears on the wire; the remaining headers are emitted in sorted key order
// with per-key value order preserved.
func RequestFromHTTP(req *http.Request) (*Request, error) {
	var body []byte
	if req.Body != nil {
		var err error
		body, err = io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		_ = req.Body.Close()
		req.Body = io.NopCloser(bytes.NewReader(body))
	}
	scheme := req.URL.Scheme
	if scheme == "" {
		scheme = "http"
	}
	authority := req.Host
	if authority == "" {
		authority = req.URL.Host
	}
	headers := []Header{{Name: HeaderHost, Value: authority}}
	headers = append(headers, sortedHeaders(req.Header)...)
	return &Request{
		Method:    req.Method,
		Scheme:    scheme,
		Authority: authority,
		Path:      req.URL.RequestURI(),
		Proto:     req.Proto,
		Headers:   headers,
		Body:      body,
	}, nil
}

// HTTPRequest reconstructs a live [http.Request] from the canonical form.
func (r *Request) HTTPRequest() (*http.Request, error) {
	req, err := http.NewRequest(r.Method, r.URL(), bytes.NewReader(r.Body))
	if err != nil {
		return nil, err
	}
	for _, h := range r.Headers {
		if strings.EqualFold(h.Name, HeaderHost) {
			req.Host = h.Value
			continue
		}
		req.Header.Add(h.Name, h.Value)
	}
	return req, nil
}

// ResponseFromHTTP converts a live [http.Response] into its canonical form,
// consuming and replacing the body.
func ResponseFromHTTP(resp *http.Response) (*Response, error) {
	var body []byte
	if resp.Body != nil {
		var err error
		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		_ = resp.Body.Close()
		resp.Body = io.NopCloser(bytes.NewReader(body))
	}
	reason := strings.TrimPrefix(resp.Status, fmt.Sprintf("%d ", resp.StatusCode))
	return &Response{
		Proto:      resp.Proto,
		StatusCode: resp.StatusCode,
		Reason:     reason,
		Headers:    sortedHeaders(resp.Header),
		Body:       body,
	}, nil
}

// HTTPResponse reconstructs a servable [http.Response] from the canonical
// form, attached to the given in-flight request.
func (r *Response) HTTPResponse(req *http.Request) *http.Response {
	major, minor, ok := http.ParseHTTPVersion(r.Proto)
	if !ok {
		major, minor = 1, 1
	}
	header := make(http.Header)
	for _, h := range r.Headers {
		header.Add(h.Name, h.Value)
	}
	header.Del("Content-Length")
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", r.StatusCode, r.Reason),
		StatusCode:    r.StatusCode,
		Proto:         r.Proto,
		ProtoMajor:    major,
		ProtoMinor:    minor,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(r.Body)),
		ContentLength: int64(len(r.Body)),
		Request:       req,
	}
}

func sortedHeaders(header http.Header) []Header {
	keys := make([]string, 0, len(header))
	for key := range header {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	var headers []Header
	for _, key := range keys {
		for _, value := range header[key] {
			headers = append(headers, Header{Name: key, Value: value})
		}
	}
	return headers
}
