package httpclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRestyClientSendsSessionHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != "UA" {
			t.Errorf("User-Agent = %q", got)
		}
		if got := r.Header.Get("X-Extra"); got != "1" {
			t.Errorf("X-Extra = %q", got)
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html></html>"))
	}))
	defer srv.Close()

	c := NewRestyClient(2*time.Second, WithHeaders(map[string]string{"User-Agent": "UA", "Empty": " "}))
	resp, err := c.Get(context.Background(), srv.URL, map[string]string{"X-Extra": "1"})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if resp.StatusCode() != http.StatusOK || string(resp.Body()) != "<html></html>" {
		t.Fatalf("unexpected response %d %q", resp.StatusCode(), resp.Body())
	}
	if resp.Header("Content-Type") != "text/html; charset=utf-8" {
		t.Fatalf("Content-Type = %q", resp.Header("Content-Type"))
	}
}

func TestRestyClientStreamExposesRawBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Length", "5")
		_, _ = w.Write([]byte("hello"))
	}))
	defer srv.Close()

	c := NewRestyClient(2 * time.Second)
	resp, err := c.Stream(context.Background(), srv.URL, nil)
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	defer resp.Body().Close()

	if resp.ContentLength() != 5 {
		t.Fatalf("ContentLength = %d", resp.ContentLength())
	}
	data, err := io.ReadAll(resp.Body())
	if err != nil || string(data) != "hello" {
		t.Fatalf("body = %q err=%v", data, err)
	}
}

func TestRequestIntervalHonoursContext(t *testing.T) {
	c := NewRestyClient(time.Second, WithRequestInterval(time.Hour))
	// first token is free, second must wait and observe cancellation
	if err := c.wait(context.Background()); err != nil {
		t.Fatalf("first wait: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.wait(ctx); err == nil {
		t.Fatalf("expected cancelled wait to fail")
	}
}
