package loki

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestReady_OK(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ready" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	if !Ready(context.Background(), ts.URL+"/", 0) {
		t.Error("expected ready")
	}
}

func TestReady_NotReady(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	if Ready(context.Background(), ts.URL, 0) {
		t.Error("expected not ready on 503")
	}
}

func TestReady_Unreachable(t *testing.T) {
	start := time.Now()
	if Ready(context.Background(), "http://127.0.0.1:1", 200*time.Millisecond) {
		t.Error("expected not ready when unreachable")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("probe did not respect its timeout: %v", elapsed)
	}
}
