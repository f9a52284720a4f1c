package jobs

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/samvad-hq/samvad-epaper-harvester/internal/domain"
	"github.com/samvad-hq/samvad-epaper-harvester/internal/download"
	"github.com/samvad-hq/samvad-epaper-harvester/internal/layout"
	"github.com/samvad-hq/samvad-epaper-harvester/pkg/httpclient"
	"github.com/samvad-hq/samvad-epaper-harvester/pkg/platforms"
)

// fakeSession serves page bodies by URL; URLs in fail always answer 500.
type fakeSession struct {
	mu    sync.Mutex
	body  map[string]string
	fail  map[string]bool
	calls int
}

func newFakeSession() *fakeSession {
	return &fakeSession{body: map[string]string{}, fail: map[string]bool{}}
}

func (s *fakeSession) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type fakeStream struct {
	status int
	body   string
}

func (f fakeStream) StatusCode() int      { return f.status }
func (f fakeStream) ContentLength() int64 { return int64(len(f.body)) }
func (f fakeStream) Body() io.ReadCloser  { return io.NopCloser(strings.NewReader(f.body)) }

func (s *fakeSession) Get(context.Context, string, map[string]string) (httpclient.Response, error) {
	return nil, errors.New("not used")
}

func (s *fakeSession) Stream(_ context.Context, url string, _ map[string]string) (httpclient.StreamResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.fail[url] {
		return fakeStream{status: http.StatusInternalServerError}, nil
	}
	body, ok := s.body[url]
	if !ok {
		return fakeStream{status: http.StatusNotFound}, nil
	}
	return fakeStream{status: http.StatusOK, body: body}, nil
}

// fakeAdapter publishes an edition for every date in editions.
type fakeAdapter struct {
	session   *fakeSession
	editions  map[string][]string
	latest    time.Time
	onResolve func()
}

func (a *fakeAdapter) ID() string                    { return "rmrb" }
func (a *fakeAdapter) Name() string                  { return "人民日报" }
func (a *fakeAdapter) Session() platforms.HTTPClient { return a.session }

func (a *fakeAdapter) ResolveEdition(_ context.Context, day time.Time) (domain.Edition, bool) {
	if a.onResolve != nil {
		a.onResolve()
	}
	if day.IsZero() {
		day = a.latest
	}
	urls := a.editions[day.Format(domain.DateLayout)]
	if len(urls) == 0 {
		return domain.Edition{}, false
	}
	return domain.Edition{PlatformID: "rmrb", Date: day, PageURLs: urls, Filename: "x.pdf", MimeType: "application/pdf"}, true
}

type fakeSource struct {
	adapter platforms.Adapter
	err     error
}

func (s fakeSource) Adapter(string) (platforms.Adapter, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.adapter, nil
}

// fakeAssembler records what it was asked to merge.
type fakeAssembler struct {
	mu    sync.Mutex
	calls [][]domain.PageFetchResult
	err   error
}

func (f *fakeAssembler) Assemble(_ context.Context, _ domain.Kind, pages []domain.PageFetchResult, out string) error {
	f.mu.Lock()
	f.calls = append(f.calls, append([]domain.PageFetchResult(nil), pages...))
	f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(out, []byte("%PDF-1.7"), 0o644)
}

func (f *fakeAssembler) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fixture struct {
	root      string
	resolver  *layout.Resolver
	session   *fakeSession
	adapter   *fakeAdapter
	assembler *fakeAssembler
	runner    *Runner
}

func newFixture(t *testing.T, opts ...RunnerOption) *fixture {
	t.Helper()
	root := t.TempDir()
	resolver, err := layout.NewResolver(root)
	require.NoError(t, err)

	session := newFakeSession()
	adapter := &fakeAdapter{session: session, editions: map[string][]string{}}
	assembler := &fakeAssembler{}

	opts = append([]RunnerOption{WithPolicy(download.Policy{MaxRetries: 2})}, opts...)
	runner, err := NewRunner(fakeSource{adapter: adapter}, resolver, assembler, nil, opts...)
	require.NoError(t, err)

	return &fixture{root: root, resolver: resolver, session: session, adapter: adapter, assembler: assembler, runner: runner}
}

// publish registers n PDF pages for day and returns their URLs.
func (f *fixture) publish(day string, n int) []string {
	urls := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		u := "https://paper.example/" + day + "/page" + string(rune('0'+i)) + ".pdf"
		f.session.body[u] = "%PDF page " + string(rune('0'+i))
		urls = append(urls, u)
	}
	f.adapter.editions[day] = urls
	return urls
}

func (f *fixture) tempDir(day time.Time) string {
	return filepath.Join(f.root, "人民日报", day.Format(domain.CompactDateLayout), "temp")
}

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) sink() EventSink {
	return func(ev Event) {
		l.mu.Lock()
		l.events = append(l.events, ev)
		l.mu.Unlock()
	}
}

func (l *eventLog) ofKind(kind EventKind) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Event
	for _, ev := range l.events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

func mustDay(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := domain.ParseDay(s)
	require.NoError(t, err)
	return d
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}
