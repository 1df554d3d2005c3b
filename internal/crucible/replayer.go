package crucible

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Verdict is what the replayer wants done with an intercepted flow.
type Verdict int

const (
	// VerdictForward lets the flow proceed to the real network untouched.
	VerdictForward Verdict = iota
	// VerdictRespond substitutes the canned response and short-circuits the
	// flow; it never reaches the real destination.
	VerdictRespond
	// VerdictDrop terminates the flow without a response. It is the defined
	// terminal state when the recorded sequence is exhausted.
	VerdictDrop
)

// Decision carries the verdict for one intercepted request, with the canned
// response when the verdict is VerdictRespond.
type Decision struct {
	Verdict  Verdict
	Response *Response
}

// ReplaySession is the transient state of one replay run: the loaded test
// case plus every request the client under test has sent so far.
type ReplaySession struct {
	TestCase  *TestCase
	Observed  []*Request
	StartedAt time.Time
}

// NextResponse returns the next unconsumed canned response, or nil when the
// sequence is exhausted. The next index is the count of requests observed so
// far; correlation is positional, never content based.
func (s *ReplaySession) NextResponse() *Response {
	if len(s.Observed) < len(s.TestCase.Actions) {
		return s.TestCase.Actions[len(s.Observed)].Response
	}
	return nil
}

// NewReplayer returns a replayer loading test cases from the given store.
func NewReplayer(store *Store) *Replayer {
	return &Replayer{
		store:       store,
		clock:       clockwork.NewRealClock(),
		controlHost: DefaultControlHost,
	}
}

// Replayer serves a recorded test case back to a client under test, one
// canned response per intercepted request in strict order, while capturing
// what the client actually sent for later scoring.
type Replayer struct {
	mu          sync.Mutex
	store       *Store
	clock       clockwork.Clock
	controlHost string

	session *ReplaySession
}

// WithClock sets the replayer clock and returns a reference to the same
// replayer.
func (r *Replayer) WithClock(clock clockwork.Clock) *Replayer {
	r.clock = clock
	return r
}

// WithControlHost sets the authority excluded as self-traffic.
func (r *Replayer) WithControlHost(host string) *Replayer {
	r.controlHost = host
	return r
}

// Start loads the test case and activates a session for it. It fails, and
// the replayer stays idle, if another session is active or the load fails.
func (r *Replayer) Start(testID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session != nil {
		return ErrorSessionConflict().WithMessagef("test case %s is already in progress", r.session.TestCase.ID)
	}
	testCase, err := r.store.Load(testID)
	if err != nil {
		return err
	}
	r.session = &ReplaySession{
		TestCase:  testCase,
		StartedAt: r.clock.Now(),
	}
	slog.Info("replay session started",
		slog.String("test_id", testID),
		slog.Int("actions", len(testCase.Actions)),
	)
	return nil
}

// Active returns whether a replay session is in progress.
func (r *Replayer) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session != nil
}

// OnRequestReceived implements the request interception hook. While a session
// is active every non-self request is appended to the observed list and
// answered with the next canned response in order; once the sequence is
// exhausted the flow is dropped to signal over-calling.
func (r *Replayer) OnRequestReceived(req *Request) Decision {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil || isSelfTraffic(req, r.controlHost) {
		return Decision{Verdict: VerdictForward}
	}
	next := r.session.NextResponse()
	r.session.Observed = append(r.session.Observed, req.Clone())
	if next == nil {
		slog.Info("replay sequence exhausted, dropping flow",
			slog.String("test_id", r.session.TestCase.ID),
			slog.Int("observed", len(r.session.Observed)),
			slog.String("url", req.URL()),
		)
		return Decision{Verdict: VerdictDrop}
	}
	slog.Debug("replaying canned response",
		slog.String("test_id", r.session.TestCase.ID),
		slog.Int("position", len(r.session.Observed)-1),
	)
	return Decision{Verdict: VerdictRespond, Response: next.Clone()}
}

// CheckResult is the outcome of scoring the observed requests against the
// loaded test case.
type CheckResult struct {
	// CountMismatch is set when the client sent a different number of
	// requests than the test case records; no per-action comparison is
	// attempted in that case.
	CountMismatch bool
	ExpectedCount int
	ObservedCount int
	// Errors holds one rendered violation per rule broken, in positional then
	// rule order. Empty means the client was compliant.
	Errors []string
}

// Check scores the session so far without mutating it.
func (r *Replayer) Check() (*CheckResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil {
		return nil, ErrorNoSessionInProgress().WithMessage("no test case in progress")
	}
	expected := len(r.session.TestCase.Actions)
	observed := len(r.session.Observed)
	if expected != observed {
		return &CheckResult{
			CountMismatch: true,
			ExpectedCount: expected,
			ObservedCount: observed,
			Errors:        []string{},
		}, nil
	}
	errors := []string{}
	for index, req := range r.session.Observed {
		expectation := r.session.TestCase.Actions[index].Expectation
		if expectation == nil {
			errors = append(errors, "Action did not have validator")
			continue
		}
		for _, violation := range expectation.Compare(req) {
			errors = append(errors, violation.String())
		}
	}
	return &CheckResult{
		ExpectedCount: expected,
		ObservedCount: observed,
		Errors:        errors,
	}, nil
}

// Clear discards any active session unconditionally.
func (r *Replayer) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session != nil {
		slog.Info("replay session cleared",
			slog.String("test_id", r.session.TestCase.ID),
			slog.Duration("elapsed", r.clock.Since(r.session.StartedAt)),
		)
	}
	r.session = nil
}
