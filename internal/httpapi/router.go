// Package httpapi serves the question-answering endpoint and the MCP tool surface.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"patentrag/internal/agent"
	"patentrag/internal/tool"
)

const defaultMaxBodyBytes = 1 << 20

// Response headers describing the agent run behind an answer.
const (
	RunIDHeader = "X-Run-ID"
	TurnsHeader = "X-Agent-Turns"
)

// Runner answers one query. *agent.Agent implements it.
type Runner interface {
	Run(ctx context.Context, query string, history []agent.Exchange) (*agent.Result, error)
}

type Options struct {
	Runner Runner
	// Tools are exposed over MCP when EnableMCP is set.
	Tools          *tool.Registry
	Logger         *slog.Logger
	RequestTimeout time.Duration
	MaxBodyBytes   int64
	EnableMCP      bool
	Version        string
}

type handler struct {
	runner  Runner
	logger  *slog.Logger
	timeout time.Duration
	maxBody int64
}

func NewRouter(opts Options) http.Handler {
	h := &handler{
		runner:  opts.Runner,
		logger:  opts.Logger,
		timeout: opts.RequestTimeout,
		maxBody: opts.MaxBodyBytes,
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	if h.maxBody <= 0 {
		h.maxBody = defaultMaxBodyBytes
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /{$}", h.handleQuery)
	if opts.EnableMCP {
		srv := NewMCPServer(opts.Runner, opts.Tools, opts.Version)
		mux.Handle("/mcp", mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return srv }, nil))
	}
	return mux
}

func (h *handler) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := decodeJSONBody(w, r, h.maxBody, &req); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.Is(err, errEmptyBody):
			writeError(w, http.StatusBadRequest, msgNoQuery)
		case errors.As(err, &tooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, msgBodyTooLarge)
		default:
			writeError(w, http.StatusBadRequest, msgInvalidJSON)
		}
		return
	}
	query := req.text()
	if query == "" {
		writeError(w, http.StatusBadRequest, msgNoQuery)
		return
	}

	ctx := r.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}
	res, err := h.runner.Run(ctx, query, nil)
	if err != nil {
		status, msg := statusFor(err)
		h.logger.ErrorContext(r.Context(), "query failed", slog.Int("status", status), slog.Any("err", err))
		writeError(w, status, msg)
		return
	}
	h.logger.InfoContext(r.Context(), "query answered",
		slog.String("run_id", res.RunID),
		slog.Int("turns", res.Transcript.Len()),
		slog.Bool("forced", res.Forced),
		slog.Bool("degraded", res.Degraded),
	)
	w.Header().Set(RunIDHeader, res.RunID)
	w.Header().Set(TurnsHeader, strconv.Itoa(res.Transcript.Len()))
	writeJSON(w, http.StatusOK, queryResponse{Response: res.Answer})
}
