package crucible

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func testSavedTestCase(t *testing.T, store *Store, testID string, count int) {
	t.Helper()
	recorder := NewRecorder(store)
	recorder.Start(testID)
	for index := 0; index < count; index++ {
		req, resp := testExchange(fmt.Sprintf("/step/%d", index))
		resp.Body = []byte(fmt.Sprintf("response %d", index))
		recorder.OnExchangeComplete(req, resp)
	}
	actions, err := recorder.Stop()
	require.Nil(t, err)
	require.Equal(t, count, actions)
}

func Test_Replayer_startUnknownTestCase(t *testing.T) {
	replayer := NewReplayer(NewStore(t.TempDir()))
	err := replayer.Start("unknown")
	require.NotNil(t, err)
	typed, ok := err.(*Error)
	require.True(t, ok)
	require.Equal(t, "crucible#TestCaseNotFound", typed.Type)
	require.False(t, replayer.Active())
}

func Test_Replayer_startConflict(t *testing.T) {
	store := NewStore(t.TempDir())
	testSavedTestCase(t, store, "conflict", 1)

	replayer := NewReplayer(store)
	require.Nil(t, replayer.Start("conflict"))

	err := replayer.Start("conflict")
	require.NotNil(t, err)
	typed, ok := err.(*Error)
	require.True(t, ok)
	require.Equal(t, "crucible#SessionConflict", typed.Type)

	// recoverable: clear then retry
	replayer.Clear()
	require.Nil(t, replayer.Start("conflict"))
}

func Test_Replayer_servesCannedResponsesInOrder(t *testing.T) {
	store := NewStore(t.TempDir())
	testSavedTestCase(t, store, "ordered", 3)

	replayer := NewReplayer(store)
	require.Nil(t, replayer.Start("ordered"))

	for index := 0; index < 3; index++ {
		req, _ := testExchange(fmt.Sprintf("/step/%d", index))
		decision := replayer.OnRequestReceived(req)
		require.Equal(t, VerdictRespond, decision.Verdict)
		require.Equal(t, []byte(fmt.Sprintf("response %d", index)), decision.Response.Body)
	}
}

func Test_Replayer_sequenceExhaustedDropsFlow(t *testing.T) {
	store := NewStore(t.TempDir())
	testSavedTestCase(t, store, "exhausted", 1)

	replayer := NewReplayer(store)
	require.Nil(t, replayer.Start("exhausted"))

	req, _ := testExchange("/step/0")
	require.Equal(t, VerdictRespond, replayer.OnRequestReceived(req).Verdict)

	extra, _ := testExchange("/step/1")
	decision := replayer.OnRequestReceived(extra)
	require.Equal(t, VerdictDrop, decision.Verdict)
	require.Nil(t, decision.Response)

	// the over-call is still counted, so check reports a mismatch
	result, err := replayer.Check()
	require.Nil(t, err)
	require.True(t, result.CountMismatch)
	require.Equal(t, 1, result.ExpectedCount)
	require.Equal(t, 2, result.ObservedCount)
}

func Test_Replayer_forwardsWhenIdleAndForSelfTraffic(t *testing.T) {
	store := NewStore(t.TempDir())
	testSavedTestCase(t, store, "forwarding", 1)

	replayer := NewReplayer(store)
	req, _ := testExchange("/step/0")
	require.Equal(t, VerdictForward, replayer.OnRequestReceived(req).Verdict)

	require.Nil(t, replayer.Start("forwarding"))
	selfReq := &Request{
		Method:    "GET",
		Scheme:    "http",
		Authority: "crucible",
		Path:      "/check_test",
		Proto:     "HTTP/1.1",
	}
	require.Equal(t, VerdictForward, replayer.OnRequestReceived(selfReq).Verdict)

	// self-traffic was not counted against the sequence
	require.Equal(t, VerdictRespond, replayer.OnRequestReceived(req).Verdict)
}

func Test_Replayer_checkCountMismatch(t *testing.T) {
	store := NewStore(t.TempDir())
	testSavedTestCase(t, store, "mismatch", 3)

	replayer := NewReplayer(store)
	require.Nil(t, replayer.Start("mismatch"))

	for index := 0; index < 2; index++ {
		req, _ := testExchange(fmt.Sprintf("/step/%d", index))
		replayer.OnRequestReceived(req)
	}

	result, err := replayer.Check()
	require.Nil(t, err)
	require.True(t, result.CountMismatch)
	require.Equal(t, 3, result.ExpectedCount)
	require.Equal(t, 2, result.ObservedCount)
	require.Empty(t, result.Errors)
}

func Test_Replayer_checkReportsViolations(t *testing.T) {
	store := NewStore(t.TempDir())
	testSavedTestCase(t, store, "violations", 2)

	replayer := NewReplayer(store)
	require.Nil(t, replayer.Start("violations"))

	good, _ := testExchange("/step/0")
	replayer.OnRequestReceived(good)
	bad, _ := testExchange("/elsewhere")
	replayer.OnRequestReceived(bad)

	result, err := replayer.Check()
	require.Nil(t, err)
	require.False(t, result.CountMismatch)
	require.Equal(t, []string{
		"Missing required header: Authorization",
		"Missing required header: X-Amz-Date",
		"Incorrect URL actual: http://example.com/elsewhere expected: http://example.com/step/1",
		"Missing required header: Authorization",
		"Missing required header: X-Amz-Date",
	}, result.Errors)
}

func Test_Replayer_checkCompliantRun(t *testing.T) {
	store := NewStore(t.TempDir())

	recorder := NewRecorder(store)
	recorder.Start("compliant")
	req, resp := testExchange("/ping")
	req.Headers = append(req.Headers,
		Header{Name: "Authorization", Value: "token"},
		Header{Name: "X-Amz-Date", Value: "20260829T120000Z"},
	)
	recorder.OnExchangeComplete(req, resp)
	_, err := recorder.Stop()
	require.Nil(t, err)

	replayer := NewReplayer(store)
	require.Nil(t, replayer.Start("compliant"))
	replayer.OnRequestReceived(req)

	result, err := replayer.Check()
	require.Nil(t, err)
	require.False(t, result.CountMismatch)
	require.Empty(t, result.Errors)
}

func Test_Replayer_checkWithoutSession(t *testing.T) {
	replayer := NewReplayer(NewStore(t.TempDir()))
	_, err := replayer.Check()
	require.NotNil(t, err)
	typed, ok := err.(*Error)
	require.True(t, ok)
	require.Equal(t, "crucible#NoSessionInProgress", typed.Type)
}

func Test_Replayer_clearIsUnconditional(t *testing.T) {
	store := NewStore(t.TempDir())
	testSavedTestCase(t, store, "cleared", 1)

	replayer := NewReplayer(store)
	replayer.Clear()
	require.False(t, replayer.Active())

	require.Nil(t, replayer.Start("cleared"))
	replayer.Clear()
	require.False(t, replayer.Active())
}
