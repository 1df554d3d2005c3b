package crucible

import (
	"encoding/base64"
	"encoding/json"
	"strings"
)

// The durable form of a message is indented json. Fields that can carry
// arbitrary bytes are percent-escaped so non-UTF8 header names and values
// survive the trip through a json string; bodies are base64. Headers are an
// explicit ordered list of pairs, never a map, so duplicates and order are
// preserved exactly.

type requestWire struct {
	Method      *string     `json:"method"`
	Scheme      *string     `json:"scheme"`
	Authority   *string     `json:"authority"`
	Path        *string     `json:"path"`
	HTTPVersion *string     `json:"http_version"`
	Headers     [][2]string `json:"headers"`
	Content     *string     `json:"content"`
}

type responseWire struct {
	HTTPVersion *string     `json:"http_version"`
	StatusCode  *int        `json:"status_code"`
	Reason      *string     `json:"reason"`
	Headers     [][2]string `json:"headers"`
	Content     *string     `json:"content"`
}

// EncodeRequest renders a request into its durable text form.
func EncodeRequest(r *Request) ([]byte, error) {
	wire := requestWire{
		Method:      escaped(r.Method),
		Scheme:      escaped(r.Scheme),
		Authority:   escaped(r.Authority),
		Path:        escaped(r.Path),
		HTTPVersion: escaped(r.Proto),
		Headers:     escapeHeaders(r.Headers),
		Content:     encodedBody(r.Body),
	}
	return json.MarshalIndent(wire, "", "  ")
}

// DecodeRequest parses durable text back into a request. Malformed text or a
// missing field fails with a FormatError; no partial request is returned.
func DecodeRequest(data []byte) (*Request, error) {
	var wire requestWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, ErrorFormat().WithMessagef("request is not well-formed json: %v", err)
	}
	if wire.Method == nil || wire.Scheme == nil || wire.Authority == nil ||
		wire.Path == nil || wire.HTTPVersion == nil || wire.Headers == nil || wire.Content == nil {
		return nil, ErrorFormat().WithMessage("request is missing a required field")
	}
	var r Request
	var err error
	if r.Method, err = unescape(*wire.Method); err != nil {
		return nil, err
	}
	if r.Scheme, err = unescape(*wire.Scheme); err != nil {
		return nil, err
	}
	if r.Authority, err = unescape(*wire.Authority); err != nil {
		return nil, err
	}
	if r.Path, err = unescape(*wire.Path); err != nil {
		return nil, err
	}
	if r.Proto, err = unescape(*wire.HTTPVersion); err != nil {
		return nil, err
	}
	if r.Headers, err = unescapeHeaders(wire.Headers); err != nil {
		return nil, err
	}
	if r.Body, err = decodedBody(*wire.Content); err != nil {
		return nil, err
	}
	return &r, nil
}

// EncodeResponse renders a response into its durable text form.
func EncodeResponse(r *Response) ([]byte, error) {
	statusCode := r.StatusCode
	wire := responseWire{
		HTTPVersion: escaped(r.Proto),
		StatusCode:  &statusCode,
		Reason:      escaped(r.Reason),
		Headers:     escapeHeaders(r.Headers),
		Content:     encodedBody(r.Body),
	}
	return json.MarshalIndent(wire, "", "  ")
}

// DecodeResponse parses durable text back into a response.
func DecodeResponse(data []byte) (*Response, error) {
	var wire responseWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, ErrorFormat().WithMessagef("response is not well-formed json: %v", err)
	}
	if wire.HTTPVersion == nil || wire.StatusCode == nil || wire.Reason == nil ||
		wire.Headers == nil || wire.Content == nil {
		return nil, ErrorFormat().WithMessage("response is missing a required field")
	}
	var r Response
	var err error
	if r.Proto, err = unescape(*wire.HTTPVersion); err != nil {
		return nil, err
	}
	r.StatusCode = *wire.StatusCode
	if r.Reason, err = unescape(*wire.Reason); err != nil {
		return nil, err
	}
	if r.Headers, err = unescapeHeaders(wire.Headers); err != nil {
		return nil, err
	}
	if r.Body, err = decodedBody(*wire.Content); err != nil {
		return nil, err
	}
	return &r, nil
}

// EncodeExpectation renders an expectation as indented json.
func EncodeExpectation(e *Expectation) ([]byte, error) {
	return json.MarshalIndent(e, "", "  ")
}

// DecodeExpectation parses a stored expectation; malformed json is a
// FormatError.
func DecodeExpectation(data []byte) (*Expectation, error) {
	var e Expectation
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, ErrorFormat().WithMessagef("protocol test is not well-formed json: %v", err)
	}
	return &e, nil
}

func escaped(value string) *string {
	e := escape(value)
	return &e
}

func encodedBody(body []byte) *string {
	e := base64.StdEncoding.EncodeToString(body)
	return &e
}

func decodedBody(content string) ([]byte, error) {
	body, err := base64.StdEncoding.DecodeString(content)
	if err != nil {
		return nil, ErrorFormat().WithMessagef("content is not valid base64: %v", err)
	}
	return body, nil
}

func escapeHeaders(headers []Header) [][2]string {
	wire := make([][2]string, len(headers))
	for index, h := range headers {
		wire[index] = [2]string{escape(h.Name), escape(h.Value)}
	}
	return wire
}

func unescapeHeaders(wire [][2]string) ([]Header, error) {
	headers := make([]Header, len(wire))
	for index, pair := range wire {
		name, err := unescape(pair[0])
		if err != nil {
			return nil, err
		}
		value, err := unescape(pair[1])
		if err != nil {
			return nil, err
		}
		headers[index] = Header{Name: name, Value: value}
	}
	return headers, nil
}

const hexDigits = "0123456789ABCDEF"

// escape renders arbitrary bytes as printable ascii; '%' and every byte
// outside 0x20..0x7E become %XX. The inverse is [unescape]; together they are
// a bijection over byte strings.
func escape(value string) string {
	var sb strings.Builder
	for i := 0; i < len(value); i++ {
		b := value[i]
		if b == '%' || b < 0x20 || b > 0x7e {
			sb.WriteByte('%')
			sb.WriteByte(hexDigits[b>>4])
			sb.WriteByte(hexDigits[b&0x0f])
			continue
		}
		sb.WriteByte(b)
	}
	return sb.String()
}

func unescape(value string) (string, error) {
	var sb strings.Builder
	for i := 0; i < len(value); i++ {
		b := value[i]
		if b != '%' {
			sb.WriteByte(b)
			continue
		}
		if i+2 > len(value)-1 {
			return "", ErrorFormat().WithMessagef("truncated escape sequence in %q", value)
		}
		hi, okHi := hexValue(value[i+1])
		lo, okLo := hexValue(value[i+2])
		if !okHi || !okLo {
			return "", ErrorFormat().WithMessagef("invalid escape sequence in %q", value)
		}
		sb.WriteByte(hi<<4 | lo)
		i += 2
	}
	return sb.String(), nil
}

func hexValue(b byte) (byte, bool) {
	switch {
	case b >= '0' && b <= '9':
		return b - '0', true
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10, true
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10, true
	}
	return 0, false
}
