package client

import (
	"encoding/json"
	"net/http"
)

// endOfPagesMessage is the sentinel SendGrid puts in a 404 body once a paged
// endpoint has been walked past its last page.
const endOfPagesMessage = "No more pages"

// Response is a decoded-on-demand HTTP exchange result.
type Response struct {
	StatusCode int
	Body       []byte
}

// Decode unmarshals the response body into v.
func (r *Response) Decode(v any) error {
	return json.Unmarshal(r.Body, v)
}

// JSONMap decodes the body as a JSON object. Bodies that are not objects
// (bare arrays, malformed JSON) return nil.
func (r *Response) JSONMap() map[string]any {
	var m map[string]any
	if err := json.Unmarshal(r.Body, &m); err != nil {
		return nil
	}
	return m
}

// EndOfRecords reports whether pagination has finished, using two heuristics
// the paged endpoints exhibit:
//
//   - a 404 whose first error message is exactly "No more pages"
//   - a body whose recipient_count field equals 0, regardless of status
//
// Anything else means more pages may follow.
func EndOfRecords(r *Response) bool {
	body := r.JSONMap()
	if body == nil {
		return false
	}

	if r.StatusCode == http.StatusNotFound {
		if errs, ok := body["errors"].([]any); ok && len(errs) > 0 {
			if first, ok := errs[0].(map[string]any); ok {
				if msg, ok := first["message"].(string); ok && msg == endOfPagesMessage {
					return true
				}
			}
		}
	}

	if count, ok := body["recipient_count"].(float64); ok && count == 0 {
		return true
	}

	return false
}
