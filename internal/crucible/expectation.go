package crucible

import (
	"fmt"
	"slices"
	"sort"

	"github.com/google/uuid"
)

// Expectation is the declarative shape of what a compliant request must look
// like. Headers and query parameters each carry three clauses: pairs that
// must match by value, names that must merely exist, and names that are
// forbidden. The must-match and must-exist sets are disjoint from the
// forbidden set.
//
// Body and AuthScheme are declared but not yet enforced by Compare; they are
// recorded so expectation authors can tighten them by hand.
type Expectation struct {
	ID string `json:"id"`

	Body *string `json:"body"`

	Method     string  `json:"method"`
	URI        string  `json:"uri"`
	AuthScheme *string `json:"authScheme"`

	QueryParams        map[string]string `json:"queryParams"`
	ForbidQueryParams  []string          `json:"forbidQueryParams"`
	RequireQueryParams []string          `json:"requireQueryParams"`

	Headers        map[string]string `json:"headers"`
	ForbidHeaders  []string          `json:"forbidHeaders"`
	RequireHeaders []string          `json:"requireHeaders"`

	Params       map[string]VendorValue `json:"params"`
	VendorParams map[string]VendorValue `json:"vendorParams"`

	Documentation string `json:"documentation"`
}

// DeriveExpectation builds the minimal expectation for an observed request:
// uri and method verbatim, must-match headers from the fixed allow-list
// intersected with what was actually sent, and the presence allow-list
// required whether or not it was observed.
func DeriveExpectation(req *Request) *Expectation {
	headers := make(map[string]string)
	for _, name := range MustMatchHeaders {
		if value, ok := req.HeaderValue(name); ok {
			headers[name] = value
		}
	}
	body := string(req.Body)
	return &Expectation{
		ID:     uuid.NewString(),
		Body:   &body,
		Method: req.Method,
		URI:    req.URL(),

		QueryParams:        map[string]string{},
		ForbidQueryParams:  []string{},
		RequireQueryParams: []string{},

		Headers:        headers,
		ForbidHeaders:  []string{},
		RequireHeaders: slices.Clone(MustExistHeaders),

		Params:       map[string]VendorValue{},
		VendorParams: map[string]VendorValue{},

		Documentation: "TODO: describe the protocol requirements of this exchange",
	}
}

// Validate checks the clause disjointness invariant: a header or query
// parameter cannot be both required (by value or presence) and forbidden.
func (e *Expectation) Validate() *Error {
	for _, name := range e.ForbidHeaders {
		if _, ok := e.Headers[name]; ok || slices.Contains(e.RequireHeaders, name) {
			return ErrorCorruptTestCase().WithMessagef("header %q is both required and forbidden", name)
		}
	}
	for _, name := range e.ForbidQueryParams {
		if _, ok := e.QueryParams[name]; ok || slices.Contains(e.RequireQueryParams, name) {
			return ErrorCorruptTestCase().WithMessagef("query parameter %q is both required and forbidden", name)
		}
	}
	return nil
}

// Compare diffs a live request against the expectation and returns every
// violation found. The check order is fixed (uri, must-match headers,
// must-exist headers, forbidden headers, then the same three clauses for
// query parameters) so violation output is reproducible.
func (e *Expectation) Compare(req *Request) []Violation {
	var violations []Violation
	if req.URL() != e.URI {
		violations = append(violations, Violation{
			Kind:     ViolationURI,
			Actual:   req.URL(),
			Expected: e.URI,
		})
	}
	for _, name := range sortedKeys(e.Headers) {
		actual, ok := req.HeaderValue(name)
		if !ok {
			violations = append(violations, Violation{Kind: ViolationHeaderMissing, Subject: name})
			continue
		}
		if actual != e.Headers[name] {
			violations = append(violations, Violation{
				Kind:     ViolationHeaderValue,
				Subject:  name,
				Actual:   actual,
				Expected: e.Headers[name],
			})
		}
	}
	for _, name := range e.RequireHeaders {
		if !req.HasHeader(name) {
			violations = append(violations, Violation{Kind: ViolationHeaderMissing, Subject: name})
		}
	}
	for _, name := range e.ForbidHeaders {
		if req.HasHeader(name) {
			violations = append(violations, Violation{Kind: ViolationHeaderForbidden, Subject: name})
		}
	}
	query := req.Query()
	for _, name := range sortedKeys(e.QueryParams) {
		if !query.Has(name) {
			violations = append(violations, Violation{Kind: ViolationQueryMissing, Subject: name})
			continue
		}
		if actual := query.Get(name); actual != e.QueryParams[name] {
			violations = append(violations, Violation{
				Kind:     ViolationQueryValue,
				Subject:  name,
				Actual:   actual,
				Expected: e.QueryParams[name],
			})
		}
	}
	for _, name := range e.RequireQueryParams {
		if !query.Has(name) {
			violations = append(violations, Violation{Kind: ViolationQueryMissing, Subject: name})
		}
	}
	for _, name := range e.ForbidQueryParams {
		if query.Has(name) {
			violations = append(violations, Violation{Kind: ViolationQueryForbidden, Subject: name})
		}
	}
	return violations
}

// ViolationKind names the rule a request broke.
type ViolationKind string

const (
	ViolationURI             ViolationKind = "uri-mismatch"
	ViolationHeaderValue     ViolationKind = "header-mismatch"
	ViolationHeaderMissing   ViolationKind = "header-missing"
	ViolationHeaderForbidden ViolationKind = "header-forbidden"
	ViolationQueryValue      ViolationKind = "query-param-mismatch"
	ViolationQueryMissing    ViolationKind = "query-param-missing"
	ViolationQueryForbidden  ViolationKind = "query-param-forbidden"
)

// Violation is a single reported mismatch between a live request and its
// expectation.
type Violation struct {
	Kind     ViolationKind `json:"kind"`
	Subject  string        `json:"subject,omitempty"`
	Actual   string        `json:"actual,omitempty"`
	Expected string        `json:"expected,omitempty"`
}

func (v Violation) String() string {
	switch v.Kind {
	case ViolationURI:
		return fmt.Sprintf("Incorrect URL actual: %s expected: %s", v.Actual, v.Expected)
	case ViolationHeaderValue:
		return fmt.Sprintf("Incorrect header %s actual: %s expected: %s", v.Subject, v.Actual, v.Expected)
	case ViolationHeaderMissing:
		return fmt.Sprintf("Missing required header: %s", v.Subject)
	case ViolationHeaderForbidden:
		return fmt.Sprintf("Forbidden header present: %s", v.Subject)
	case ViolationQueryValue:
		return fmt.Sprintf("Incorrect query parameter %s actual: %s expected: %s", v.Subject, v.Actual, v.Expected)
	case ViolationQueryMissing:
		return fmt.Sprintf("Missing required query parameter: %s", v.Subject)
	case ViolationQueryForbidden:
		return fmt.Sprintf("Forbidden query parameter present: %s", v.Subject)
	default:
		return string(v.Kind)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
