package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/morezero/frame-bridge/internal/config"
	"github.com/morezero/frame-bridge/pkg/bridge"
	"github.com/morezero/frame-bridge/pkg/db"
	"github.com/morezero/frame-bridge/pkg/wire"
)

const handlersLogPrefix = "server:handlers"

// JSON-RPC codes the HTTP endpoint uses for bridge-side failures.
const (
	CodeTimeout = -32000
	CodeClosed  = 4900
)

const maxRPCBody = 1 << 20

// bridgeEngine is the part of *bridge.Engine the HTTP endpoints use.
type bridgeEngine interface {
	Request(ctx context.Context, args bridge.RequestArgs) (json.RawMessage, error)
	Enable(ctx context.Context) ([]string, error)
	State() bridge.SessionState
	Pending() int
	HostVersion() string
	Accounts() []string
}

// callJournal is the read side of the call journal.
type callJournal interface {
	ListRecentCalls(ctx context.Context, limit int) ([]db.CallRecord, error)
	CountByOutcome(ctx context.Context) ([]db.OutcomeCount, error)
	Ping(ctx context.Context) error
}

// Server serves the bridge over HTTP.
type Server struct {
	cfg            *config.Config
	engine         bridgeEngine
	calls          callJournal
	commsConnected func() bool
	metrics        http.Handler
}

func newServer(cfg *config.Config, f *frame) *Server {
	s := &Server{
		cfg:            cfg,
		engine:         f.engine,
		commsConnected: f.nc.IsConnected,
		metrics:        promhttp.HandlerFor(f.registry, promhttp.HandlerOpts{}),
	}
	if f.repo != nil {
		s.calls = f.repo
	}
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleHome())
	mux.HandleFunc("/rpc", s.handleRPC())
	mux.HandleFunc("/health", s.handleHealth())
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready", "session": s.engine.State().String()})
	})
	mux.HandleFunc("/calls", s.handleCalls())
	mux.HandleFunc("/calls/outcomes", s.handleOutcomes())
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics)
	}
	return mux
}

// handleRPC forwards one JSON-RPC request through the bridge and answers with
// the caller's own id.
func (s *Server) handleRPC() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req wire.Request
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRPCBody)).Decode(&req); err != nil {
			writeJSON(w, http.StatusOK, wire.NewError(nil, wire.CodeParseError, "Parse error"))
			return
		}
		if req.Method == "" {
			writeJSON(w, http.StatusOK, wire.NewError(req.ID, wire.CodeInvalidRequest, "Missing method"))
			return
		}
		if !structuredParams(req.Params) {
			writeJSON(w, http.StatusOK, wire.NewError(req.ID, wire.CodeInvalidParams, "Params must be an array or object"))
			return
		}

		result, err := call(r.Context(), s.engine, req.Method, req.Params)
		if err != nil {
			slog.Debug(fmt.Sprintf("%s - %s failed: %v", handlersLogPrefix, req.Method, err))
			writeJSON(w, http.StatusOK, errorResponse(req.ID, err))
			return
		}

		resp, err := wire.NewResult(req.ID, result)
		if err != nil {
			writeJSON(w, http.StatusOK, wire.NewError(req.ID, wire.CodeInternalError, err.Error()))
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// structuredParams reports whether params is absent, null, an array or an object.
func structuredParams(params json.RawMessage) bool {
	p := bytes.TrimSpace(params)
	if len(p) == 0 || bytes.Equal(p, []byte("null")) {
		return true
	}
	return p[0] == '[' || p[0] == '{'
}

func errorResponse(id json.RawMessage, err error) *wire.Response {
	if rpcErr, ok := bridge.IsRpcError(err); ok {
		return &wire.Response{
			JSONRPC: wire.Version,
			ID:      id,
			Error:   &wire.ErrorObject{Code: rpcErr.Code, Message: rpcErr.Reason, Data: rpcErr.Data},
		}
	}
	switch {
	case errors.Is(err, bridge.ErrTimeout):
		return wire.NewError(id, CodeTimeout, err.Error())
	case errors.Is(err, bridge.ErrClosed):
		return wire.NewError(id, CodeClosed, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return wire.NewError(id, CodeTimeout, err.Error())
	default:
		return wire.NewError(id, wire.CodeInternalError, err.Error())
	}
}

// healthOutput is the GET /health body.
type healthOutput struct {
	Status      string       `json:"status"`
	Session     string       `json:"session"`
	HostVersion string       `json:"hostVersion,omitempty"`
	Pending     int          `json:"pending"`
	Checks      healthChecks `json:"checks"`
	Timestamp   string       `json:"timestamp"`
}

type healthChecks struct {
	Comms    bool  `json:"comms"`
	Database *bool `json:"database,omitempty"`
}

func (s *Server) health(ctx context.Context) *healthOutput {
	h := &healthOutput{
		Status:      "healthy",
		Session:     s.engine.State().String(),
		HostVersion: s.engine.HostVersion(),
		Pending:     s.engine.Pending(),
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
	h.Checks.Comms = s.commsConnected == nil || s.commsConnected()
	if s.calls != nil {
		ok := s.calls.Ping(ctx) == nil
		h.Checks.Database = &ok
		if !ok {
			h.Status = "unhealthy"
		}
	}
	if !h.Checks.Comms {
		h.Status = "unhealthy"
	}
	return h
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.cfg.HealthCheckTimeout)
		defer cancel()
		h := s.health(ctx)
		status := http.StatusOK
		if h.Status != "healthy" {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, h)
	}
}

func (s *Server) handleCalls() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.calls == nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "call journal disabled"})
			return
		}
		limit := db.DefaultListLimit
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
				return
			}
			limit = n
		}
		records, err := s.calls.ListRecentCalls(r.Context(), limit)
		if err != nil {
			slog.Error(fmt.Sprintf("%s - list calls: %v", handlersLogPrefix, err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		if records == nil {
			records = []db.CallRecord{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"calls": records})
	}
}

func (s *Server) handleOutcomes() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.calls == nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "call journal disabled"})
			return
		}
		counts, err := s.calls.CountByOutcome(r.Context())
		if err != nil {
			slog.Error(fmt.Sprintf("%s - count outcomes: %v", handlersLogPrefix, err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		if counts == nil {
			counts = []db.OutcomeCount{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"outcomes": counts})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error(fmt.Sprintf("%s - json encode: %v", handlersLogPrefix, err))
	}
}

// homePageTemplate is the HTML for the bridge home page (white bg, black/blue text).
const homePageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>Frame Bridge</title>
  <style>
    * { box-sizing: border-box; }
    body { background: #fff; color: #000; font-family: system-ui, sans-serif; margin: 0; padding: 2rem; line-height: 1.5; }
    h1, h2 { color: #0066cc; }
    .status-healthy { color: #0066cc; font-weight: bold; }
    .status-unhealthy { color: #cc0000; font-weight: bold; }
    table { border-collapse: collapse; width: 100%; max-width: 900px; margin-top: 0.5rem; }
    th, td { text-align: left; padding: 0.5rem 0.75rem; border: 1px solid #ccc; }
    th { background: #f0f4f8; color: #0066cc; }
    .stat { font-weight: bold; color: #0066cc; }
    .meta { color: #333; font-size: 0.9rem; margin-top: 1rem; }
    section { margin-bottom: 2rem; }
    .error { color: #cc0000; }
  </style>
</head>
<body>
  <h1>Frame Bridge</h1>
  <p class="meta">Session state, accounts, and recent calls.</p>

  <section>
    <h2>Health</h2>
    <p>Status: <span class="status-{{.Health.Status}}">{{.Health.Status}}</span></p>
    <p>Session: <span class="stat">{{.Health.Session}}</span>{{if .Health.HostVersion}} (host {{.Health.HostVersion}}){{end}}</p>
    <p>Pending calls: <span class="stat">{{.Health.Pending}}</span></p>
    <p>Timestamp: {{.Health.Timestamp}}</p>
  </section>

  <section>
    <h2>Accounts</h2>
    {{if not .Accounts}}
    <p>No accounts exposed.</p>
    {{else}}
    <ul>{{range .Accounts}}<li>{{.}}</li>{{end}}</ul>
    {{end}}
  </section>

  <section>
    <h2>Recent calls</h2>
    {{if not .JournalEnabled}}
    <p>Call journal disabled.</p>
    {{else if .CallsError}}
    <p class="error">Could not load calls: {{.CallsError}}</p>
    {{else if not .Calls}}
    <p>No calls recorded.</p>
    {{else}}
    <table>
      <thead>
        <tr><th>Id</th><th>Method</th><th>Outcome</th><th>Error</th><th>Duration (ms)</th><th>Settled</th></tr>
      </thead>
      <tbody>
        {{range .Calls}}
        <tr>
          <td>{{.CallID}}</td>
          <td>{{.Method}}</td>
          <td>{{.Outcome}}</td>
          <td>{{if .ErrorMessage}}{{.ErrorMessage}}{{end}}</td>
          <td>{{.DurationMs}}</td>
          <td>{{.SettledAt.Format "2006-01-02 15:04:05"}}</td>
        </tr>
        {{end}}
      </tbody>
    </table>
    {{end}}
  </section>
</body>
</html>
`

// homeData is the data passed to the home page template.
type homeData struct {
	Health         *healthOutput
	Accounts       []string
	JournalEnabled bool
	Calls          []db.CallRecord
	CallsError     string
}

const homeCallLimit = 25

// handleHome returns an HTTP handler for the bridge home page.
func (s *Server) handleHome() http.HandlerFunc {
	tmpl := template.Must(template.New("home").Parse(homePageTemplate))
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), s.cfg.HealthCheckTimeout)
		defer cancel()

		data := homeData{
			Health:         s.health(ctx),
			Accounts:       s.engine.Accounts(),
			JournalEnabled: s.calls != nil,
		}
		if s.calls != nil {
			calls, err := s.calls.ListRecentCalls(ctx, homeCallLimit)
			if err != nil {
				data.CallsError = err.Error()
			} else {
				data.Calls = calls
			}
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := tmpl.Execute(w, data); err != nil {
			slog.Error(fmt.Sprintf("%s - home template execute: %v", handlersLogPrefix, err))
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
	}
}
