package crucible

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func testActions(t *testing.T, count int) []Action {
	t.Helper()
	actions := make([]Action, 0, count)
	for index := 0; index < count; index++ {
		req := testRecordedRequest()
		resp := &Response{
			Proto:      "HTTP/1.1",
			StatusCode: 200,
			Reason:     "OK",
			Headers:    []Header{{Name: "Content-Type", Value: "text/plain"}},
			Body:       []byte{byte(index)},
		}
		actions = append(actions, Action{
			Request:     req,
			Response:    resp,
			Expectation: DeriveExpectation(req),
		})
	}
	return actions
}

func Test_Store_saveLoadRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir())
	actions := testActions(t, 3)
	require.Nil(t, store.Save("round-trip", actions))

	testCase, err := store.Load("round-trip")
	require.Nil(t, err)
	require.Equal(t, "round-trip", testCase.ID)
	require.Len(t, testCase.Actions, 3)
	for index, action := range testCase.Actions {
		require.Equal(t, actions[index].Request, action.Request)
		require.Equal(t, actions[index].Response, action.Response)
		require.Equal(t, actions[index].Expectation, action.Expectation)
	}
}

func Test_Store_loadNotFound(t *testing.T) {
	store := NewStore(t.TempDir())
	_, err := store.Load("missing")
	require.NotNil(t, err)
	typed, ok := err.(*Error)
	require.True(t, ok)
	require.Equal(t, "crucible#TestCaseNotFound", typed.Type)
}

func Test_Store_loadStopsAtFirstMissingIndex(t *testing.T) {
	root := t.TempDir()
	store := NewStore(root)
	require.Nil(t, store.Save("truncated", testActions(t, 3)))

	dir := filepath.Join(root, "truncated")
	require.Nil(t, os.Remove(filepath.Join(dir, "1.request.json")))
	require.Nil(t, os.Remove(filepath.Join(dir, "1.response.json")))
	require.Nil(t, os.Remove(filepath.Join(dir, "1.protocolTest.json")))

	// index 2 is unreachable past the gap; the scan stops at the first
	// missing index rather than skipping it
	testCase, err := store.Load("truncated")
	require.Nil(t, err)
	require.Len(t, testCase.Actions, 1)
}

func Test_Store_loadMissingSiblingIsCorrupt(t *testing.T) {
	root := t.TempDir()
	store := NewStore(root)
	require.Nil(t, store.Save("corrupt", testActions(t, 2)))

	require.Nil(t, os.Remove(filepath.Join(root, "corrupt", "1.response.json")))

	_, err := store.Load("corrupt")
	require.NotNil(t, err)
	typed, ok := err.(*Error)
	require.True(t, ok)
	require.Equal(t, "crucible#CorruptTestCase", typed.Type)
}

func Test_Store_loadMissingExpectationIsCorrupt(t *testing.T) {
	root := t.TempDir()
	store := NewStore(root)
	require.Nil(t, store.Save("no-validator", testActions(t, 1)))

	require.Nil(t, os.Remove(filepath.Join(root, "no-validator", "0.protocolTest.json")))

	_, err := store.Load("no-validator")
	require.NotNil(t, err)
	typed, ok := err.(*Error)
	require.True(t, ok)
	require.Equal(t, "crucible#CorruptTestCase", typed.Type)
}

func Test_Store_loadMalformedArtifactIsFormatError(t *testing.T) {
	root := t.TempDir()
	store := NewStore(root)
	require.Nil(t, store.Save("mangled", testActions(t, 1)))

	require.Nil(t, os.WriteFile(filepath.Join(root, "mangled", "0.request.json"), []byte("{"), 0o644))

	_, err := store.Load("mangled")
	require.NotNil(t, err)
	typed, ok := err.(*Error)
	require.True(t, ok)
	require.Equal(t, "crucible#FormatError", typed.Type)
}

func Test_Store_loadDisjointInvariantEnforced(t *testing.T) {
	root := t.TempDir()
	store := NewStore(root)
	actions := testActions(t, 1)
	actions[0].Expectation.ForbidHeaders = []string{"Authorization"}
	require.Nil(t, store.Save("conflicted", actions))

	_, err := store.Load("conflicted")
	require.NotNil(t, err)
	typed, ok := err.(*Error)
	require.True(t, ok)
	require.Equal(t, "crucible#CorruptTestCase", typed.Type)
}

func Test_Store_saveRequiresExpectations(t *testing.T) {
	store := NewStore(t.TempDir())
	actions := testActions(t, 1)
	actions[0].Expectation = nil
	err := store.Save("incomplete", actions)
	require.NotNil(t, err)
}
