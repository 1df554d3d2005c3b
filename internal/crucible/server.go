package crucible

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/ymwjbxxq/crucible/internal/httpz"
)

// NewServer returns the control surface for the given controllers.
func NewServer(recorder *Recorder, replayer *Replayer) *Server {
	s := &Server{
		recorder: recorder,
		replayer: replayer,
		router:   httprouter.New(),
	}
	s.router.GET("/record/start/:test_id", s.startRecording)
	s.router.GET("/record/stop", s.stopRecording)
	s.router.GET("/start_test/:test_id", s.startTest)
	s.router.GET("/clear_test", s.clearTest)
	s.router.GET("/check_test", s.checkTest)
	return s
}

var _ http.Handler = (*Server)(nil)

// Server is the thin HTTP control surface that drives the recording and
// replay state machines. It holds no state of its own.
type Server struct {
	recorder *Recorder
	replayer *Replayer
	router   *httprouter.Router
}

// ServeHTTP implements [http.Handler].
func (s *Server) ServeHTTP(rw http.ResponseWriter, req *http.Request) {
	s.router.ServeHTTP(rw, req)
}

type statusOK struct {
	Status string `json:"status"`
}

type statusMessage struct {
	Status  string `json:"status"`
	Message string `json:"msg"`
}

type stopRecordingResult struct {
	Status  string `json:"status"`
	Actions int    `json:"actions"`
}

type checkTestResult struct {
	Status string   `json:"status"`
	Errors []string `json:"errors"`
}

func (s *Server) startRecording(rw http.ResponseWriter, _ *http.Request, params httprouter.Params) {
	s.recorder.Start(params.ByName("test_id"))
	writeJSON(rw, http.StatusOK, statusOK{Status: "ok"})
}

func (s *Server) stopRecording(rw http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	actions, err := s.recorder.Stop()
	if err != nil {
		writeError(rw, err)
		return
	}
	writeJSON(rw, http.StatusOK, stopRecordingResult{Status: "ok", Actions: actions})
}

func (s *Server) startTest(rw http.ResponseWriter, _ *http.Request, params httprouter.Params) {
	if err := s.replayer.Start(params.ByName("test_id")); err != nil {
		writeError(rw, err)
		return
	}
	writeJSON(rw, http.StatusOK, statusOK{Status: "ok"})
}

func (s *Server) clearTest(rw http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	s.replayer.Clear()
	writeJSON(rw, http.StatusOK, statusOK{Status: "ok"})
}

func (s *Server) checkTest(rw http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	result, err := s.replayer.Check()
	if err != nil {
		writeError(rw, err)
		return
	}
	if result.CountMismatch {
		writeJSON(rw, http.StatusOK, statusMessage{Status: "ok", Message: "Wrong number of requests received"})
		return
	}
	writeJSON(rw, http.StatusOK, checkTestResult{Status: "ok", Errors: result.Errors})
}

func writeError(rw http.ResponseWriter, err error) {
	statusCode := http.StatusInternalServerError
	var typed *Error
	if errors.As(err, &typed) {
		statusCode = typed.StatusCode
	}
	writeJSON(rw, statusCode, statusMessage{Status: "error", Message: err.Error()})
}

func writeJSON(rw http.ResponseWriter, statusCode int, body any) {
	rw.Header().Set(httpz.HeaderContentType, httpz.ContentTypeApplicationJSON)
	rw.WriteHeader(statusCode)
	_ = json.NewEncoder(rw).Encode(body)
}
