package platforms

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/samvad-hq/samvad-epaper-harvester/pkg/httpclient"
)

type fakePage struct {
	status      int
	body        string
	contentType string
}

// fakeSite serves canned pages by exact URL; anything else is a 404.
type fakeSite struct {
	mu      sync.Mutex
	pages   map[string]fakePage
	failing map[string]bool
	calls   []string
}

func newFakeSite() *fakeSite {
	return &fakeSite{pages: map[string]fakePage{}, failing: map[string]bool{}}
}

func (s *fakeSite) add(url, body string) {
	s.pages[url] = fakePage{status: http.StatusOK, body: body}
}

func (s *fakeSite) requested() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.calls))
	copy(out, s.calls)
	return out
}

type fakeResponse struct {
	page fakePage
}

func (r fakeResponse) Body() []byte    { return []byte(r.page.body) }
func (r fakeResponse) StatusCode() int { return r.page.status }
func (r fakeResponse) Header(key string) string {
	if strings.EqualFold(key, "Content-Type") {
		return r.page.contentType
	}
	return ""
}

type fakeStream struct {
	page fakePage
}

func (r fakeStream) StatusCode() int      { return r.page.status }
func (r fakeStream) ContentLength() int64 { return int64(len(r.page.body)) }
func (r fakeStream) Body() io.ReadCloser  { return io.NopCloser(strings.NewReader(r.page.body)) }

func (s *fakeSite) lookup(url string) (fakePage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, url)
	if s.failing[url] {
		return fakePage{}, errors.New("connection reset")
	}
	p, ok := s.pages[url]
	if !ok {
		return fakePage{status: http.StatusNotFound, body: "not found"}, nil
	}
	return p, nil
}

func (s *fakeSite) Get(_ context.Context, url string, _ map[string]string) (httpclient.Response, error) {
	p, err := s.lookup(url)
	if err != nil {
		return nil, err
	}
	return fakeResponse{page: p}, nil
}

func (s *fakeSite) Stream(_ context.Context, url string, _ map[string]string) (httpclient.StreamResponse, error) {
	p, err := s.lookup(url)
	if err != nil {
		return nil, err
	}
	return fakeStream{page: p}, nil
}

type recordingLogger struct {
	mu    sync.Mutex
	warns []string
}

func (l *recordingLogger) InfoObj(string, string, interface{})  {}
func (l *recordingLogger) DebugObj(string, string, interface{}) {}
func (l *recordingLogger) ErrorObj(string, string, interface{}) {}
func (l *recordingLogger) WarnObj(msg, _ string, _ interface{}) {
	l.mu.Lock()
	l.warns = append(l.warns, msg)
	l.mu.Unlock()
}
