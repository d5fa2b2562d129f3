package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()

	c, err := New(Config{
		APIKey:  "SG.test-key",
		BaseURL: baseURL,
		Timeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New(Config{})
	if err == nil {
		t.Fatal("Expected error for missing API key, got nil")
	}
}

func TestNew_Defaults(t *testing.T) {
	c, err := New(Config{APIKey: "SG.test-key"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if c.config.BaseURL != DefaultBaseURL {
		t.Errorf("BaseURL = %q, want %q", c.config.BaseURL, DefaultBaseURL)
	}
	if c.config.Retry.MaxAttempts != 20 {
		t.Errorf("Retry.MaxAttempts = %d, want 20", c.config.Retry.MaxAttempts)
	}
}

func TestGet_AttachesHeaders(t *testing.T) {
	var gotAuth, gotSGUID, gotAccept string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotSGUID = r.Header.Get("X-SGUID")
		gotAccept = r.Header.Get("Accept")
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	resp, err := c.Get(context.Background(), "lists", server.URL+"/v3/contactdb/lists", nil)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200", resp.StatusCode)
	}

	if gotAuth != "Bearer SG.test-key" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer SG.test-key")
	}
	if gotSGUID != sguidHeaderValue {
		t.Errorf("X-SGUID = %q, want %q", gotSGUID, sguidHeaderValue)
	}
	if gotAccept != "application/json" {
		t.Errorf("Accept = %q, want application/json", gotAccept)
	}
}

func TestGet_OptionalUserAgent(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	c, err := New(Config{
		APIKey:    "SG.test-key",
		UserAgent: "tap-sendgrid/1.0",
		BaseURL:   server.URL,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if _, err := c.Get(context.Background(), "lists", server.URL+"/v3/contactdb/lists", nil); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if gotUA != "tap-sendgrid/1.0" {
		t.Errorf("User-Agent = %q, want configured value", gotUA)
	}
}

func TestGet_MergesQueryParams(t *testing.T) {
	var gotQuery url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	params := url.Values{}
	params.Set("page", "3")
	params.Set("page_size", "1000")

	_, err := c.Get(context.Background(), "contacts", server.URL+"/v3/contactdb/recipients/search", params)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	if gotQuery.Get("page") != "3" {
		t.Errorf("page = %q, want 3", gotQuery.Get("page"))
	}
	if gotQuery.Get("page_size") != "1000" {
		t.Errorf("page_size = %q, want 1000", gotQuery.Get("page_size"))
	}
}

func TestGet_Returns4xxBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"errors": [{"message": "No more pages"}]}`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	resp, err := c.Get(context.Background(), "contacts", server.URL+"/x", nil)
	if err != nil {
		t.Fatalf("Get() error = %v, want body returned to caller", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", resp.StatusCode)
	}
	if !EndOfRecords(resp) {
		t.Error("Expected 404 body to be inspectable by the caller")
	}
}
