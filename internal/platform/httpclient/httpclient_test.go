package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDoJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" || r.Header.Get("X-Test") != "1" {
			http.Error(w, "missing headers", http.StatusBadRequest)
			return
		}
		if r.URL.Path == "/fail" {
			http.Error(w, "nope", http.StatusTeapot)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c, err := NewWithBaseURL(srv.URL+"/", 0)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	var out struct {
		OK bool `json:"ok"`
	}
	headers := map[string]string{"X-Test": "1"}
	if err := c.DoJSON(context.Background(), http.MethodPost, "echo", headers, map[string]int{"a": 1}, &out); err != nil {
		t.Fatalf("do: %v", err)
	}
	if !out.OK {
		t.Fatalf("expected decoded body")
	}

	err = c.DoJSON(context.Background(), http.MethodPost, "/fail", headers, struct{}{}, nil)
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusTeapot || httpErr.Body != "nope" {
		t.Fatalf("expected HTTPError 418, got %v", err)
	}
}

func TestResolveURL(t *testing.T) {
	if _, err := NewWithBaseURL("not a url", 0); err == nil {
		t.Fatalf("expected invalid base url error")
	}

	c, _ := NewWithBaseURL("", 0)
	if _, err := c.resolveURL("/relative"); err == nil {
		t.Fatalf("relative path without base url must fail")
	}
	if got, _ := c.resolveURL("https://idp.example/v1"); got != "https://idp.example/v1" {
		t.Fatalf("absolute url must pass through, got %q", got)
	}
}
