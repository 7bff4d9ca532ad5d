package pdl

// DefaultEndpoint is the Bulk Person Enrichment endpoint.
const DefaultEndpoint = "https://api.peopledatalabs.com/v5/person/bulk"

// BulkRequest is the request envelope for the bulk person enrichment endpoint.
type BulkRequest struct {
	Requests []RequestItem `json:"requests"`
}

// RequestItem is one lookup inside a BulkRequest.
type RequestItem struct {
	Params Params `json:"params"`
}

// Params holds the match parameters for one lookup.
type Params struct {
	Profile string `json:"profile"`
}

// NewBulkRequest wraps each profile identifier into a request item, preserving order.
func NewBulkRequest(profiles []string) BulkRequest {
	req := BulkRequest{Requests: make([]RequestItem, 0, len(profiles))}
	for _, p := range profiles {
		req.Requests = append(req.Requests, RequestItem{Params: Params{Profile: p}})
	}
	return req
}

// Profiles returns the identifiers in request order.
func (r BulkRequest) Profiles() []string {
	out := make([]string, 0, len(r.Requests))
	for _, item := range r.Requests {
		out = append(out, item.Params.Profile)
	}
	return out
}

func (r BulkRequest) profileAt(i int) string {
	if i < 0 || i >= len(r.Requests) {
		return ""
	}
	return r.Requests[i].Params.Profile
}
