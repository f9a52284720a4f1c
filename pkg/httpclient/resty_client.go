package httpclient

import (
	"context"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

// BrowserHeaders is the identity header set sent by every publisher session.
func BrowserHeaders() map[string]string {
	return map[string]string{
		"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
		"Accept-Language": "zh-CN,zh;q=0.9,en;q=0.8",
	}
}

// RestyClient adapts resty.Client to the httpclient.Client interface.
// One RestyClient is one persistent session: connections and default
// headers are shared by every request it issues.
type RestyClient struct {
	client  *resty.Client
	limiter *rate.Limiter
}

// Option configures a RestyClient.
type Option func(*RestyClient)

// WithHeaders sets headers sent on every request of the session.
func WithHeaders(headers map[string]string) Option {
	return func(r *RestyClient) {
		for k, v := range headers {
			if strings.TrimSpace(k) == "" || strings.TrimSpace(v) == "" {
				continue
			}
			r.client.SetHeader(k, v)
		}
	}
}

// WithRequestInterval spaces consecutive requests at least d apart.
func WithRequestInterval(d time.Duration) Option {
	return func(r *RestyClient) {
		if d <= 0 {
			r.limiter = nil
			return
		}
		r.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// NewRestyClient creates a new RestyClient with the specified timeout.
func NewRestyClient(timeout time.Duration, opts ...Option) *RestyClient {
	r := &RestyClient{client: newRestyBaseClient(timeout)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewRestyHTTPClient exposes a configured resty.Client for callers needing custom verbs.
func NewRestyHTTPClient(timeout time.Duration) *resty.Client {
	return newRestyBaseClient(timeout)
}

// newRestyBaseClient creates a new resty.Client with the specified timeout.
func newRestyBaseClient(timeout time.Duration) *resty.Client {
	c := resty.New()
	c.SetTimeout(timeout)
	return c
}

// Get performs an HTTP GET request with the specified context, URL, and headers.
func (r *RestyClient) Get(ctx context.Context, url string, headers map[string]string) (Response, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	req := r.client.R().SetContext(ctx)
	if len(headers) > 0 {
		req.SetHeaders(headers)
	}
	resp, err := req.Get(url)
	if err != nil {
		return nil, err
	}
	return &restyResponseAdapter{resp: resp}, nil
}

// Stream performs a GET and hands back the unread body for chunked copying.
func (r *RestyClient) Stream(ctx context.Context, url string, headers map[string]string) (StreamResponse, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	req := r.client.R().SetContext(ctx).SetDoNotParseResponse(true)
	if len(headers) > 0 {
		req.SetHeaders(headers)
	}
	resp, err := req.Get(url)
	if err != nil {
		if resp != nil && resp.RawBody() != nil {
			resp.RawBody().Close()
		}
		return nil, err
	}
	return &restyStreamAdapter{resp: resp}, nil
}

func (r *RestyClient) wait(ctx context.Context) error {
	if r.limiter == nil {
		return nil
	}
	return r.limiter.Wait(ctx)
}

// restyResponseAdapter adapts resty.Response to the httpclient.Response interface.
type restyResponseAdapter struct {
	resp *resty.Response
}

func (r *restyResponseAdapter) Body() []byte             { return r.resp.Body() }
func (r *restyResponseAdapter) StatusCode() int          { return r.resp.StatusCode() }
func (r *restyResponseAdapter) Header(key string) string { return r.resp.Header().Get(key) }

// restyStreamAdapter exposes an unparsed resty response as a StreamResponse.
type restyStreamAdapter struct {
	resp *resty.Response
}

func (r *restyStreamAdapter) StatusCode() int     { return r.resp.StatusCode() }
func (r *restyStreamAdapter) Body() io.ReadCloser { return r.resp.RawBody() }

// ContentLength reads the content-length header, 0 when absent or invalid.
func (r *restyStreamAdapter) ContentLength() int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(r.resp.Header().Get("Content-Length")), 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
