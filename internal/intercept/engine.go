package intercept

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/elazarl/goproxy"

	"github.com/ymwjbxxq/crucible/internal/crucible"
	"github.com/ymwjbxxq/crucible/internal/httpz"
)

// RequestHook is invoked for every intercepted request before it is
// forwarded. The returned decision can substitute a response and
// short-circuit delivery to the real destination, or terminate the flow
// entirely.
type RequestHook interface {
	OnRequestReceived(*crucible.Request) crucible.Decision
}

// ExchangeHook is invoked once a full request/response pair exists for a
// flow that went to the real network.
type ExchangeHook interface {
	OnExchangeComplete(*crucible.Request, *crucible.Response)
}

// NewEngine returns an interception engine. Flows addressed to controlHost
// are routed to the control handler instead of the network; everything else
// passes through the registered hooks.
func NewEngine(controlHost string, control http.Handler) *Engine {
	e := &Engine{
		proxy:       goproxy.NewProxyHttpServer(),
		controlHost: controlHost,
		control:     control,
	}
	e.proxy.OnRequest().DoFunc(e.onRequest)
	e.proxy.OnResponse().DoFunc(e.onResponse)
	return e
}

var _ http.Handler = (*Engine)(nil)

// Engine adapts the goproxy intercepting proxy to the harness's two hook
// interfaces. It owns no session state; the controllers registered on it do.
type Engine struct {
	proxy       *goproxy.ProxyHttpServer
	controlHost string
	control     http.Handler

	requestHooks  []RequestHook
	exchangeHooks []ExchangeHook
}

// OnRequest registers a request interception hook.
func (e *Engine) OnRequest(hook RequestHook) {
	e.requestHooks = append(e.requestHooks, hook)
}

// OnExchange registers a completed-exchange hook.
func (e *Engine) OnExchange(hook ExchangeHook) {
	e.exchangeHooks = append(e.exchangeHooks, hook)
}

// ServeHTTP implements [http.Handler]. Non-proxied requests addressed to the
// control authority are answered directly so the control surface works both
// through the proxy and against the bind address.
func (e *Engine) ServeHTTP(rw http.ResponseWriter, req *http.Request) {
	if !req.URL.IsAbs() && e.isControlAuthority(req.Host) {
		e.control.ServeHTTP(rw, req)
		return
	}
	e.proxy.ServeHTTP(rw, req)
}

// flowState travels on the proxy context from the request hook to the
// response hook.
type flowState struct {
	request  *crucible.Request
	replayed bool
	control  bool
}

func (e *Engine) onRequest(req *http.Request, ctx *goproxy.ProxyCtx) (*http.Request, *http.Response) {
	if e.isControlAuthority(req.Host) {
		ctx.UserData = &flowState{control: true}
		return req, e.serveControl(req)
	}
	creq, err := crucible.RequestFromHTTP(req)
	if err != nil {
		slog.Error("failed to read intercepted request",
			slog.String("url", req.URL.String()),
			slog.Any("err", err),
		)
		return req, nil
	}
	state := &flowState{request: creq}
	ctx.UserData = state
	for _, hook := range e.requestHooks {
		decision := hook.OnRequestReceived(creq)
		switch decision.Verdict {
		case crucible.VerdictRespond:
			state.replayed = true
			return req, decision.Response.HTTPResponse(req)
		case crucible.VerdictDrop:
			// Aborts the connection without writing a response; the client
			// under test observes a dead flow, not an HTTP error.
			panic(http.ErrAbortHandler)
		}
	}
	return req, nil
}

func (e *Engine) onResponse(resp *http.Response, ctx *goproxy.ProxyCtx) *http.Response {
	if resp == nil {
		return nil
	}
	state, ok := ctx.UserData.(*flowState)
	if !ok || state.control || state.replayed || state.request == nil {
		return resp
	}
	cresp, err := crucible.ResponseFromHTTP(resp)
	if err != nil {
		slog.Error("failed to read intercepted response",
			slog.String("url", state.request.URL()),
			slog.Any("err", err),
		)
		return resp
	}
	for _, hook := range e.exchangeHooks {
		hook.OnExchangeComplete(state.request, cresp)
	}
	return resp
}

// serveControl runs the control handler against an in-memory response writer
// and hands the result back to the proxy as the flow's response.
func (e *Engine) serveControl(req *http.Request) *http.Response {
	var body bytes.Buffer
	rw := httpz.NewMockResponseWriter(&body)
	e.control.ServeHTTP(rw, req)
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", rw.StatusCode(), http.StatusText(rw.StatusCode())),
		StatusCode:    rw.StatusCode(),
		Proto:         req.Proto,
		ProtoMajor:    req.ProtoMajor,
		ProtoMinor:    req.ProtoMinor,
		Header:        rw.Header(),
		Body:          io.NopCloser(bytes.NewReader(body.Bytes())),
		ContentLength: int64(body.Len()),
		Request:       req,
	}
}

func (e *Engine) isControlAuthority(authority string) bool {
	host := authority
	if split, _, err := net.SplitHostPort(authority); err == nil {
		host = split
	}
	control := e.controlHost
	if split, _, err := net.SplitHostPort(control); err == nil {
		control = split
	}
	return strings.EqualFold(host, control)
}
