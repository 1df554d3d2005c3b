package httpz

const (
	// HeaderContentType is the response header that indicates the content-type of the response.
	HeaderContentType = "Content-Type"
	// HeaderContentLength is the header that indicates the length of the response.
	HeaderContentLength = "Content-Length"
	// HeaderXForwardedFor is added by proxies to requests to indicate the original remote_addr of the request.
	HeaderXForwardedFor = "X-Forwarded-For"
	// HeaderXRealIP is another name for [HeaderXForwardedFor].
	HeaderXRealIP = "X-Real-IP"
)

const (
	// ContentTypeApplicationJSON is a content type for JSON responses.
	// We specify charset=utf-8 so that clients know to use the UTF-8 string encoding.
	ContentTypeApplicationJSON = "application/json; charset=utf-8"

	// ContentTypeTextPlain is a content type for plaintext responses.
	ContentTypeTextPlain = "text/plain; charset=utf-8"
)
