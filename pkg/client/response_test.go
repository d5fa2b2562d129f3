package client

import (
	"net/http"
	"testing"
)

func TestEndOfRecords(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   bool
	}{
		{
			name:   "404 with sentinel message",
			status: http.StatusNotFound,
			body:   `{"errors": [{"message": "No more pages"}]}`,
			want:   true,
		},
		{
			name:   "404 with other message",
			status: http.StatusNotFound,
			body:   `{"errors": [{"message": "not found"}]}`,
			want:   false,
		},
		{
			name:   "404 without errors",
			status: http.StatusNotFound,
			body:   `{}`,
			want:   false,
		},
		{
			name:   "zero recipient count on 200",
			status: http.StatusOK,
			body:   `{"recipient_count": 0, "recipients": []}`,
			want:   true,
		},
		{
			name:   "zero recipient count on 404",
			status: http.StatusNotFound,
			body:   `{"recipient_count": 0}`,
			want:   true,
		},
		{
			name:   "nonzero recipient count",
			status: http.StatusOK,
			body:   `{"recipient_count": 12, "recipients": [{"id": "a"}]}`,
			want:   false,
		},
		{
			name:   "sentinel message on 200 does not terminate",
			status: http.StatusOK,
			body:   `{"errors": [{"message": "No more pages"}]}`,
			want:   false,
		},
		{
			name:   "bare array body",
			status: http.StatusOK,
			body:   `[{"email": "a@example.com"}]`,
			want:   false,
		},
		{
			name:   "malformed body",
			status: http.StatusOK,
			body:   `<html>offline</html>`,
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Response{StatusCode: tt.status, Body: []byte(tt.body)}
			if got := EndOfRecords(r); got != tt.want {
				t.Errorf("EndOfRecords() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResponseDecode(t *testing.T) {
	r := &Response{StatusCode: 200, Body: []byte(`{"recipients": [{"email": "a@example.com"}]}`)}

	var body struct {
		Recipients []map[string]any `json:"recipients"`
	}
	if err := r.Decode(&body); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(body.Recipients) != 1 {
		t.Fatalf("Expected 1 recipient, got %d", len(body.Recipients))
	}
	if body.Recipients[0]["email"] != "a@example.com" {
		t.Errorf("email = %v, want a@example.com", body.Recipients[0]["email"])
	}
}

func TestResponseJSONMap_Malformed(t *testing.T) {
	r := &Response{StatusCode: 200, Body: []byte(`not json`)}
	if m := r.JSONMap(); m != nil {
		t.Errorf("JSONMap() = %v, want nil for malformed body", m)
	}
}
