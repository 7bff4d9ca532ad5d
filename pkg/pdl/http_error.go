package pdl

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// errorEnvelope is the error body shape returned by the PDL API.
// Real responses may include additional fields; we intentionally ignore them.
type errorEnvelope struct {
	Status int `json:"status"`
	Error  struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// HTTPError is a sanitized summary of a non-2xx PDL API response.
//
// Important: do not include raw response bodies here (can leak PII/tokens).
type HTTPError struct {
	Op         string
	StatusCode int
	Status     string
	ErrorType  string
	Message    string

	// Snippet is a redacted, truncated hint for non-envelope responses.
	Snippet string
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "pdl http error"
	}
	parts := []string{
		fmt.Sprintf("pdl api error: op=%s status=%s", strings.TrimSpace(e.Op), strings.TrimSpace(e.Status)),
	}
	if strings.TrimSpace(e.ErrorType) != "" {
		parts = append(parts, "type="+strings.TrimSpace(e.ErrorType))
	}
	if strings.TrimSpace(e.Message) != "" {
		parts = append(parts, fmt.Sprintf("message=%q", strings.TrimSpace(e.Message)))
	}
	if strings.TrimSpace(e.Snippet) != "" {
		parts = append(parts, "body="+strings.TrimSpace(e.Snippet))
	}
	return strings.Join(parts, " ")
}

func newHTTPError(op string, resp *http.Response, body []byte) error {
	h := &HTTPError{Op: op}
	if resp != nil {
		h.StatusCode = resp.StatusCode
		h.Status = resp.Status
	}

	// Best effort: parse the PDL error envelope.
	var env errorEnvelope
	if len(body) > 0 && json.Unmarshal(body, &env) == nil {
		h.ErrorType = strings.TrimSpace(env.Error.Type)
		h.Message = strings.TrimSpace(env.Error.Message)
		if h.ErrorType != "" || h.Message != "" {
			return h
		}
	}

	h.Snippet = redactAndTruncate(body)
	return h
}
