package crucible

import (
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// NewRecorder returns a recorder persisting to the given store.
func NewRecorder(store *Store) *Recorder {
	return &Recorder{
		store:       store,
		clock:       clockwork.NewRealClock(),
		controlHost: DefaultControlHost,
	}
}

// Recorder observes completed exchanges while armed and accumulates them, in
// order, for a test id. Exchanges addressed to the harness's own control
// authority are never captured.
//
// Interception callbacks may be delivered concurrently by the hosting proxy
// engine, so all session state is mutex guarded.
type Recorder struct {
	mu          sync.Mutex
	store       *Store
	clock       clockwork.Clock
	controlHost string

	testID    string
	startedAt time.Time
	actions   []Action
}

// WithClock sets the recorder clock and returns a reference to the same
// recorder.
func (r *Recorder) WithClock(clock clockwork.Clock) *Recorder {
	r.clock = clock
	return r
}

// WithControlHost sets the authority excluded as self-traffic.
func (r *Recorder) WithControlHost(host string) *Recorder {
	r.controlHost = host
	return r
}

// Start arms a new recording session for the test id, discarding any session
// already in progress.
func (r *Recorder) Start(testID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.testID != "" {
		slog.Warn("recording session replaced",
			slog.String("previous_test_id", r.testID),
			slog.String("test_id", testID),
		)
	}
	r.testID = testID
	r.startedAt = r.clock.Now()
	r.actions = nil
}

// Armed returns whether a recording session is in progress.
func (r *Recorder) Armed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.testID != ""
}

// OnExchangeComplete implements the exchange interception hook. A completed
// exchange is captured only while armed and only when it is not self-traffic.
func (r *Recorder) OnExchangeComplete(req *Request, resp *Response) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.testID == "" || isSelfTraffic(req, r.controlHost) {
		slog.Debug("exchange received but no recording in progress",
			slog.String("url", req.URL()),
		)
		return
	}
	r.actions = append(r.actions, Action{
		Request:  req.Clone(),
		Response: resp.Clone(),
	})
	slog.Debug("action recorded",
		slog.String("test_id", r.testID),
		slog.Int("actions", len(r.actions)),
		slog.String("url", req.URL()),
	)
}

// Stop persists the accumulated session and disarms, returning how many
// actions were recorded. Stopping while idle is a no-op reporting zero. If
// persisting fails the session is kept so the stop can be retried.
func (r *Recorder) Stop() (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.testID == "" {
		return 0, nil
	}
	for index := range r.actions {
		r.actions[index].Expectation = DeriveExpectation(r.actions[index].Request)
	}
	if err := r.store.Save(r.testID, r.actions); err != nil {
		return 0, err
	}
	count := len(r.actions)
	slog.Info("recording stopped",
		slog.String("test_id", r.testID),
		slog.Int("actions", count),
		slog.Duration("elapsed", r.clock.Since(r.startedAt)),
	)
	r.testID = ""
	r.actions = nil
	return count, nil
}

func isSelfTraffic(req *Request, controlHost string) bool {
	host := controlHost
	if split, _, err := net.SplitHostPort(controlHost); err == nil {
		host = split
	}
	return strings.EqualFold(req.Host(), host)
}
