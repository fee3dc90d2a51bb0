package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"patentrag/internal/agent"
	"patentrag/internal/llm"
)

const (
	msgNoQuery      = "no query specified"
	msgInvalidJSON  = "invalid JSON body"
	msgBodyTooLarge = "request body too large"
	msgUpstream     = "completion service unavailable"
	msgTimeout      = "request timed out"
	msgInternal     = "internal error"
)

var errEmptyBody = errors.New("request body is empty")

// queryRequest keeps query raw so that a non-string value is reported as a
// missing query rather than a malformed body.
type queryRequest struct {
	Query json.RawMessage `json:"query"`
}

// text returns the trimmed query, or "" when it is absent, null or not a string.
func (q queryRequest) text() string {
	var s string
	if len(q.Query) == 0 || json.Unmarshal(q.Query, &s) != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

type queryResponse struct {
	Response string `json:"response"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, maxBytes int64, dst any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBytes))
	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("request body must contain exactly one JSON object")
	}
	return nil
}

// statusFor maps a failed run to an HTTP status and a client-safe message.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, agent.ErrEmptyQuery):
		return http.StatusBadRequest, msgNoQuery
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, msgTimeout
	case errors.Is(err, llm.ErrService):
		return http.StatusBadGateway, msgUpstream
	default:
		return http.StatusInternalServerError, msgInternal
	}
}
