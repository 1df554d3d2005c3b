package crucible

import (
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

func testExchange(path string) (*Request, *Response) {
	req := &Request{
		Method:    "GET",
		Scheme:    "http",
		Authority: "example.com",
		Path:      path,
		Proto:     "HTTP/1.1",
		Headers:   []Header{{Name: "Host", Value: "example.com"}},
	}
	resp := &Response{
		Proto:      "HTTP/1.1",
		StatusCode: 200,
		Reason:     "OK",
		Headers:    []Header{{Name: "Content-Type", Value: "text/plain"}},
		Body:       []byte("pong"),
	}
	return req, resp
}

func Test_Recorder_recordsWhileArmed(t *testing.T) {
	root := t.TempDir()
	store := NewStore(root)
	recorder := NewRecorder(store).WithClock(clockwork.NewFakeClock())

	recorder.Start("echo")
	require.True(t, recorder.Armed())

	req, resp := testExchange("/ping")
	recorder.OnExchangeComplete(req, resp)
	recorder.OnExchangeComplete(req, resp)

	actions, err := recorder.Stop()
	require.Nil(t, err)
	require.Equal(t, 2, actions)
	require.False(t, recorder.Armed())

	testCase, err := store.Load("echo")
	require.Nil(t, err)
	require.Len(t, testCase.Actions, 2)
	require.Equal(t, "http://example.com/ping", testCase.Actions[0].Request.URL())
	require.Equal(t, []byte("pong"), testCase.Actions[0].Response.Body)
	require.NotNil(t, testCase.Actions[0].Expectation)
	require.Equal(t, "http://example.com/ping", testCase.Actions[0].Expectation.URI)
}

func Test_Recorder_ignoresExchangesWhileIdle(t *testing.T) {
	store := NewStore(t.TempDir())
	recorder := NewRecorder(store)

	req, resp := testExchange("/ping")
	recorder.OnExchangeComplete(req, resp)

	actions, err := recorder.Stop()
	require.Nil(t, err)
	require.Equal(t, 0, actions)
}

func Test_Recorder_excludesSelfTraffic(t *testing.T) {
	store := NewStore(t.TempDir())
	recorder := NewRecorder(store)
	recorder.Start("self")

	selfReq := &Request{
		Method:    "GET",
		Scheme:    "http",
		Authority: "crucible:80",
		Path:      "/record/stop",
		Proto:     "HTTP/1.1",
	}
	recorder.OnExchangeComplete(selfReq, &Response{Proto: "HTTP/1.1", StatusCode: 200, Reason: "OK"})

	req, resp := testExchange("/ping")
	recorder.OnExchangeComplete(req, resp)

	actions, err := recorder.Stop()
	require.Nil(t, err)
	require.Equal(t, 1, actions)
}

func Test_Recorder_startReplacesSession(t *testing.T) {
	store := NewStore(t.TempDir())
	recorder := NewRecorder(store)

	recorder.Start("first")
	req, resp := testExchange("/one")
	recorder.OnExchangeComplete(req, resp)

	recorder.Start("second")
	req, resp = testExchange("/two")
	recorder.OnExchangeComplete(req, resp)

	actions, err := recorder.Stop()
	require.Nil(t, err)
	require.Equal(t, 1, actions)

	_, err = store.Load("first")
	require.NotNil(t, err)

	testCase, err := store.Load("second")
	require.Nil(t, err)
	require.Len(t, testCase.Actions, 1)
	require.Equal(t, "http://example.com/two", testCase.Actions[0].Request.URL())
}

func Test_Recorder_recordedActionsAreCopies(t *testing.T) {
	store := NewStore(t.TempDir())
	recorder := NewRecorder(store)
	recorder.Start("copies")

	req, resp := testExchange("/ping")
	recorder.OnExchangeComplete(req, resp)

	// mutating the caller's message after the callback must not change what
	// gets persisted
	req.Path = "/mutated"
	resp.Body = []byte("mutated")

	_, err := recorder.Stop()
	require.Nil(t, err)

	testCase, err := store.Load("copies")
	require.Nil(t, err)
	require.Equal(t, "/ping", testCase.Actions[0].Request.Path)
	require.Equal(t, []byte("pong"), testCase.Actions[0].Response.Body)
}
