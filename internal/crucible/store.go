package crucible

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Action is one completed exchange: the request, the response it got, and the
// expectation a compliant client is later held to. Expectation is nil while
// an action is still accumulating inside a recording session.
type Action struct {
	Request     *Request
	Response    *Response
	Expectation *Expectation
}

// TestCase is an ordered sequence of actions for a test id, immutable once
// loaded. Position in the sequence is the sole correlation key during replay.
type TestCase struct {
	ID      string
	Actions []Action
}

// NewStore returns a store rooted at the given directory.
func NewStore(root string) *Store {
	return &Store{root: root}
}

// Store reads and writes test cases, one directory per test id with three
// sibling artifacts per action index.
type Store struct {
	root string
}

// Load reconstructs the test case for an id by scanning action indexes from
// zero until one is missing. Every present index must have all three
// artifacts; a missing sibling fails the whole load.
func (s *Store) Load(testID string) (*TestCase, error) {
	dir := filepath.Join(s.root, testID)
	if _, err := os.Stat(dir); err != nil {
		return nil, ErrorTestCaseNotFound().WithMessagef("test case does not exist: %s", testID)
	}
	var actions []Action
	for index := 0; index < MaxTestCaseActions; index++ {
		requestData, err := os.ReadFile(requestPath(dir, index))
		if errors.Is(err, fs.ErrNotExist) {
			break
		}
		if err != nil {
			return nil, err
		}
		request, err := DecodeRequest(requestData)
		if err != nil {
			return nil, err
		}
		responseData, err := os.ReadFile(responsePath(dir, index))
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrorCorruptTestCase().WithMessagef("test case %s action %d is missing its response", testID, index)
		}
		if err != nil {
			return nil, err
		}
		response, err := DecodeResponse(responseData)
		if err != nil {
			return nil, err
		}
		expectation, err := loadExpectation(dir, testID, index)
		if err != nil {
			return nil, err
		}
		actions = append(actions, Action{
			Request:     request,
			Response:    response,
			Expectation: expectation,
		})
	}
	return &TestCase{ID: testID, Actions: actions}, nil
}

func loadExpectation(dir, testID string, index int) (*Expectation, error) {
	data, err := os.ReadFile(expectationPath(dir, index))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrorCorruptTestCase().WithMessagef("test case %s action %d is missing its protocol test", testID, index)
	}
	if err != nil {
		return nil, err
	}
	expectation, err := DecodeExpectation(data)
	if err != nil {
		return nil, err
	}
	if err := expectation.Validate(); err != nil {
		return nil, err
	}
	return expectation, nil
}

// Save writes one artifact triple per action index, creating the test
// directory if absent. Saving is not atomic across the sequence; a partially
// written case fails loudly on the next load instead.
func (s *Store) Save(testID string, actions []Action) error {
	dir := filepath.Join(s.root, testID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for index, action := range actions {
		if action.Expectation == nil {
			return ErrorCorruptTestCase().WithMessagef("action %d has no expectation to persist", index)
		}
		requestData, err := EncodeRequest(action.Request)
		if err != nil {
			return err
		}
		responseData, err := EncodeResponse(action.Response)
		if err != nil {
			return err
		}
		expectationData, err := EncodeExpectation(action.Expectation)
		if err != nil {
			return err
		}
		if err := os.WriteFile(requestPath(dir, index), requestData, 0o644); err != nil {
			return err
		}
		if err := os.WriteFile(responsePath(dir, index), responseData, 0o644); err != nil {
			return err
		}
		if err := os.WriteFile(expectationPath(dir, index), expectationData, 0o644); err != nil {
			return err
		}
	}
	return nil
}

func requestPath(dir string, index int) string {
	return filepath.Join(dir, fmt.Sprintf("%d.request.json", index))
}

func responsePath(dir string, index int) string {
	return filepath.Join(dir, fmt.Sprintf("%d.response.json", index))
}

func expectationPath(dir string, index int) string {
	return filepath.Join(dir, fmt.Sprintf("%d.protocolTest.json", index))
}
