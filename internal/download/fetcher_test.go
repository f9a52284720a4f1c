package download

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samvad-hq/samvad-epaper-harvester/internal/domain"
	"github.com/samvad-hq/samvad-epaper-harvester/internal/logger"
	"github.com/samvad-hq/samvad-epaper-harvester/pkg/httpclient"
)

func newTestFetcher(t *testing.T, client httpclient.Client, policy Policy) *Fetcher {
	t.Helper()
	f, err := NewFetcher(client, policy, logger.NopLogger{})
	require.NoError(t, err)
	return f
}

func TestFetchStreamsWithProgress(t *testing.T) {
	payload := strings.Repeat("x", 20)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Length", "20")
		_, _ = w.Write([]byte(payload))
	}))
	defer srv.Close()

	f := newTestFetcher(t, httpclient.NewRestyClient(5*time.Second), Policy{ChunkSize: 8})
	dest := filepath.Join(t.TempDir(), "temp", "page_01.pdf")

	var events []domain.ProgressEvent
	ok := f.Fetch(context.Background(), srv.URL+"/a.pdf", dest, func(ev domain.ProgressEvent) {
		events = append(events, ev)
	})
	require.True(t, ok)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, payload, string(data))

	require.GreaterOrEqual(t, len(events), 3)
	assert.Equal(t, domain.PhaseStarting, events[0].Phase)
	assert.Equal(t, domain.PhaseCompleted, events[len(events)-1].Phase)
	assert.EqualValues(t, 20, events[len(events)-1].Done)
	for _, ev := range events {
		assert.EqualValues(t, 20, ev.Total)
	}
	for _, ev := range events[1 : len(events)-1] {
		assert.Equal(t, domain.PhaseDownloading, ev.Phase)
		assert.LessOrEqual(t, ev.Done, int64(20))
	}
}

func TestFetchRetriesNon200ThenSucceeds(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := newTestFetcher(t, httpclient.NewRestyClient(5*time.Second), DefaultPolicy())
	dest := filepath.Join(t.TempDir(), "page_01.jpg")

	require.True(t, f.Fetch(context.Background(), srv.URL, dest, nil))
	assert.EqualValues(t, 3, hits.Load())
}

func TestFetchGivesUpAfterMaxRetries(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := newTestFetcher(t, httpclient.NewRestyClient(5*time.Second), Policy{MaxRetries: 3})
	dest := filepath.Join(t.TempDir(), "page_01.pdf")

	assert.False(t, f.Fetch(context.Background(), srv.URL, dest, nil))
	assert.EqualValues(t, 3, hits.Load())
	assert.NoFileExists(t, dest)
}

type failingClient struct {
	calls atomic.Int32
}

func (c *failingClient) Get(context.Context, string, map[string]string) (httpclient.Response, error) {
	c.calls.Add(1)
	return nil, errors.New("dial tcp: connection refused")
}

func (c *failingClient) Stream(context.Context, string, map[string]string) (httpclient.StreamResponse, error) {
	c.calls.Add(1)
	return nil, errors.New("dial tcp: connection refused")
}

func TestFetchTransportErrorsConsumeAttempts(t *testing.T) {
	for _, retries := range []int{1, 3, 5} {
		client := &failingClient{}
		f := newTestFetcher(t, client, Policy{MaxRetries: retries})
		assert.False(t, f.Fetch(context.Background(), "http://unreachable.test/a.pdf", filepath.Join(t.TempDir(), "a.pdf"), nil))
		assert.EqualValues(t, retries, client.calls.Load(), "retries=%d", retries)
	}
}

type brokenBody struct {
	sent bool
}

func (b *brokenBody) Read(p []byte) (int, error) {
	if b.sent {
		return 0, errors.New("connection reset by peer")
	}
	b.sent = true
	return copy(p, "partial"), nil
}

func (b *brokenBody) Close() error { return nil }

type brokenStream struct{}

func (brokenStream) StatusCode() int      { return http.StatusOK }
func (brokenStream) ContentLength() int64 { return 100 }
func (brokenStream) Body() io.ReadCloser  { return &brokenBody{} }

type brokenClient struct {
	failingClient
}

func (c *brokenClient) Stream(context.Context, string, map[string]string) (httpclient.StreamResponse, error) {
	c.calls.Add(1)
	return brokenStream{}, nil
}

func TestFetchRemovesPartialFileOnStreamError(t *testing.T) {
	client := &brokenClient{}
	f := newTestFetcher(t, client, Policy{MaxRetries: 2})
	dest := filepath.Join(t.TempDir(), "page_02.pdf")

	assert.False(t, f.Fetch(context.Background(), "http://example.test/b.pdf", dest, nil))
	assert.EqualValues(t, 2, client.calls.Load())
	assert.NoFileExists(t, dest)
}

func TestFetchUnwritableDestinationCountsAsAttempt(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("data"))
	}))
	defer srv.Close()

	// dest is an existing directory, so creating the file fails every time.
	dest := t.TempDir()
	f := newTestFetcher(t, httpclient.NewRestyClient(5*time.Second), Policy{MaxRetries: 2})
	assert.False(t, f.Fetch(context.Background(), srv.URL, dest, nil))
	assert.EqualValues(t, 2, hits.Load())
}

func TestFetchStopsWhenContextCancelled(t *testing.T) {
	client := &failingClient{}
	f := newTestFetcher(t, client, Policy{MaxRetries: 5, RetryDelay: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	assert.False(t, f.Fetch(ctx, "http://example.test", filepath.Join(t.TempDir(), "x"), nil))
	assert.Less(t, time.Since(start), time.Second)
	assert.EqualValues(t, 1, client.calls.Load())
}

func TestNewFetcherNormalizesPolicy(t *testing.T) {
	f, err := NewFetcher(&failingClient{}, Policy{MaxRetries: -1, ChunkSize: 0, RetryDelay: -time.Second}, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultPolicy(), f.Policy())

	_, err = NewFetcher(nil, DefaultPolicy(), nil)
	assert.Error(t, err)
}
