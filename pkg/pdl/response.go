package pdl

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strings"

	"github.com/shpitdev/pdl-enricher/pkg/pipeline/redact"
)

// UsernameField names the record field used to derive output filenames.
const UsernameField = "linkedin_username"

// Record is the enrichment payload returned for one identifier.
//
// The raw JSON is kept (compacted) so it can be persisted without reordering keys.
type Record struct {
	Username string
	raw      json.RawMessage
}

// JSON returns the compact JSON encoding of the record as returned by the API.
func (r Record) JSON() []byte {
	return append([]byte(nil), r.raw...)
}

// Outcome is the result for one item of a bulk response: either Success or Failure.
type Outcome interface {
	isOutcome()
}

// Success is a status-200 item carrying a usable record.
type Success struct {
	Index   int
	Profile string
	Record  Record
}

// Failure is any item that did not yield a usable record.
type Failure struct {
	Index   int
	Profile string
	Status  int
	// Reason is set when the failure was decided client-side (e.g. a 200 without a username).
	Reason string
	Raw    json.RawMessage
}

func (Success) isOutcome() {}
func (Failure) isOutcome() {}

// ShapeError reports a response that does not match the documented bulk response layout.
type ShapeError struct {
	// Index is the offending item, or -1 when the envelope itself is malformed.
	Index   int
	Reason  string
	Snippet string
}

func (e *ShapeError) Error() string {
	if e == nil {
		return "pdl: malformed bulk response"
	}
	parts := []string{"pdl: malformed bulk response"}
	if e.Index >= 0 {
		parts = append(parts, fmt.Sprintf("item=%d", e.Index))
	}
	if strings.TrimSpace(e.Reason) != "" {
		parts = append(parts, "reason="+strings.TrimSpace(e.Reason))
	}
	if strings.TrimSpace(e.Snippet) != "" {
		parts = append(parts, "body="+strings.TrimSpace(e.Snippet))
	}
	return strings.Join(parts, " ")
}

// DecodeBulkResponse validates a bulk response body and converts each item into an Outcome.
//
// Item i is attributed to req.Requests[i]; the API answers in request order.
func DecodeBulkResponse(body []byte, req BulkRequest) ([]Outcome, error) {
	if !json.Valid(body) {
		return nil, &ShapeError{Index: -1, Reason: "body is not valid JSON", Snippet: redactAndTruncate(body)}
	}
	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, &ShapeError{Index: -1, Reason: "body is not a JSON array", Snippet: redactAndTruncate(body)}
	}

	out := make([]Outcome, 0, len(items))
	for i, raw := range items {
		o, err := decodeItem(i, raw, req.profileAt(i))
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

func decodeItem(i int, raw json.RawMessage, profile string) (Outcome, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return nil, &ShapeError{Index: i, Reason: "item is not a JSON object", Snippet: redactAndTruncate(raw)}
	}
	statusRaw, ok := fields["status"]
	if !ok {
		return nil, &ShapeError{Index: i, Reason: "item has no status field", Snippet: redactAndTruncate(raw)}
	}
	status, ok := parseStatus(statusRaw)
	if !ok {
		return nil, &ShapeError{Index: i, Reason: "status is not an integer", Snippet: redactAndTruncate(raw)}
	}

	fail := func(reason string) Outcome {
		return Failure{Index: i, Profile: profile, Status: status, Reason: reason, Raw: compact(raw)}
	}
	if status != http.StatusOK {
		return fail(""), nil
	}

	data, ok := fields["data"]
	var record map[string]json.RawMessage
	if !ok || json.Unmarshal(data, &record) != nil || record == nil {
		return fail("success item has no data object"), nil
	}
	var username string
	if err := json.Unmarshal(record[UsernameField], &username); err != nil || strings.TrimSpace(username) == "" {
		return fail("success item has no " + UsernameField), nil
	}
	if !validUsername(username) {
		return fail(fmt.Sprintf("%s %q is not a valid file name", UsernameField, username)), nil
	}

	return Success{
		Index:   i,
		Profile: profile,
		Record:  Record{Username: username, raw: compact(data)},
	}, nil
}

// parseStatus accepts any integral JSON number, so 200 and 200.0 are the same status.
func parseStatus(raw json.RawMessage) (int, bool) {
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, false
	}
	if f != math.Trunc(f) || f < math.MinInt32 || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

func validUsername(s string) bool {
	if s == "." || s == ".." {
		return false
	}
	return !strings.ContainsAny(s, `/\`+"\x00")
}

func compact(raw json.RawMessage) json.RawMessage {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return append(json.RawMessage(nil), raw...)
	}
	return buf.Bytes()
}

func redactAndTruncate(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	const max = 256
	b := body
	if len(b) > max {
		b = b[:max]
	}
	s := redact.Secrets(string(b))
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if len(body) > max {
		return s + "..."
	}
	return s
}
