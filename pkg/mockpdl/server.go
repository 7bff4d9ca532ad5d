package mockpdl

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
)

// BulkPath is the path the mock serves bulk enrichment on.
const BulkPath = "/v5/person/bulk"

// Call records a request made to the mock service.
type Call struct {
	Method string
	Path   string
	APIKey string
	Body   []byte
}

// Fixture is the canned answer for one profile.
type Fixture struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// Server implements a minimal "PDL-like" bulk person enrichment endpoint.
type Server struct {
	mu    sync.Mutex
	calls []Call

	expectedAPIKey string
	fixtures       map[string]Fixture

	// override replaces the whole response when set.
	override *rawResponse
}

type rawResponse struct {
	status int
	body   []byte
}

type bulkRequest struct {
	Requests []struct {
		Params struct {
			Profile string `json:"profile"`
		} `json:"params"`
	} `json:"requests"`
}

type errorBody struct {
	Status int `json:"status"`
	Error  struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// New constructs a new mock server with no fixtures.
func New() *Server {
	return &Server{fixtures: make(map[string]Fixture)}
}

// RequireAPIKey enforces that requests carry X-api-key matching key.
// If key is empty, the header is not checked.
func (s *Server) RequireAPIKey(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expectedAPIKey = strings.TrimSpace(key)
}

// SetRecord answers profile with status 200 and the given record.
func (s *Server) SetRecord(profile string, record string) {
	s.SetFixture(profile, Fixture{Status: http.StatusOK, Data: json.RawMessage(record)})
}

// SetFixture sets the canned answer for profile.
func (s *Server) SetFixture(profile string, f Fixture) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fixtures[profile] = f
}

// SetRawResponse makes every bulk call return status and body verbatim.
func (s *Server) SetRawResponse(status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.override = &rawResponse{status: status, body: []byte(body)}
}

// LoadFixtures reads a JSON object mapping profile -> Fixture.
func (s *Server) LoadFixtures(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read fixtures file: %w", err)
	}
	var raw map[string]Fixture
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("parse fixtures JSON: %w", err)
	}
	for profile, f := range raw {
		if f.Status == 0 {
			f.Status = http.StatusOK
		}
		s.SetFixture(profile, f)
	}
	return nil
}

// Handler returns an http.Handler that serves the mock API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(BulkPath, s.handleBulk)
	return mux
}

// Calls returns a snapshot of calls made to the server.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

func (s *Server) handleBulk(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	s.mu.Lock()
	s.calls = append(s.calls, Call{
		Method: r.Method,
		Path:   r.URL.Path,
		APIKey: r.Header.Get("X-api-key"),
		Body:   body,
	})
	expected := s.expectedAPIKey
	override := s.override
	s.mu.Unlock()

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use POST")
		return
	}
	if expected != "" && r.Header.Get("X-api-key") != expected {
		writeError(w, http.StatusUnauthorized, "authentication_error", "Invalid API Key")
		return
	}
	if override != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(override.status)
		_, _ = w.Write(override.body)
		return
	}
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		writeError(w, http.StatusBadRequest, "invalid_request_error", "Content-Type must be application/json")
		return
	}

	var req bulkRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_error", "Request body is not valid JSON")
		return
	}

	out := make([]any, 0, len(req.Requests))
	for _, item := range req.Requests {
		s.mu.Lock()
		f, ok := s.fixtures[item.Params.Profile]
		s.mu.Unlock()
		switch {
		case !ok:
			var e errorBody
			e.Status = http.StatusNotFound
			e.Error.Type = "not_found"
			e.Error.Message = "No records were found matching your request"
			out = append(out, e)
		case f.Status == http.StatusOK:
			out = append(out, map[string]any{"status": f.Status, "likelihood": 10, "data": f.Data})
		default:
			out = append(out, map[string]any{"status": f.Status})
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

func writeError(w http.ResponseWriter, status int, typ, msg string) {
	var e errorBody
	e.Status = status
	e.Error.Type = typ
	e.Error.Message = msg
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(e)
}
