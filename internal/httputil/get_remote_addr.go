package httputil

import (
	"net"
	"net/http"

	"github.com/ymwjbxxq/crucible/internal/httpz"
)

// GetRemoteAddr gets the origin/client ip for a request.
//
// The following headers are considered:
// - X-FORWARDED-FOR: If multiple IPs are included the first one is returned.
// - X-REAL-IP: If multiple IPs are included the last one is returned
//
// Finally the [http.Request.RemoteAddr] field is returned if no other headers are present.
func GetRemoteAddr(r *http.Request) string {
	if r == nil {
		return ""
	}
	for _, header := range []string{httpz.HeaderXForwardedFor, httpz.HeaderXRealIP} {
		if headerVal, ok := HeaderLastValue(r.Header, header); ok {
			return headerVal
		}
	}
	ip, _, _ := net.SplitHostPort(r.RemoteAddr)
	return ip
}
