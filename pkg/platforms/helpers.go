package platforms

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"

	"github.com/samvad-hq/samvad-epaper-harvester/internal/domain"
)

const pdfMimeType = "application/pdf"

func responseSnippet(body []byte) string {
	const maxLen = 512
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	if s == "" {
		return "<empty>"
	}
	return s
}

// page is a fetched HTML page decoded to UTF-8.
type page struct {
	url    string
	status int
	body   []byte
}

func (p page) text() string {
	return string(p.body)
}

func (p page) document() (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(p.body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", p.url, err)
	}
	return doc, nil
}

// fetchPage GETs pageURL and decodes the body using the declared or sniffed charset.
// Non-200 statuses are returned as errors unless allowStatus lists them.
func fetchPage(ctx context.Context, client HTTPClient, pageURL string, headers map[string]string, allowStatus ...int) (page, error) {
	resp, err := client.Get(ctx, pageURL, headers)
	if err != nil {
		return page{}, fmt.Errorf("fetch %s: %w", pageURL, err)
	}

	status := resp.StatusCode()
	body := resp.Body()
	if status != http.StatusOK && !containsStatus(allowStatus, status) {
		return page{}, fmt.Errorf("%s returned status %d body: %s", pageURL, status, responseSnippet(body))
	}

	decoded, err := decodeBody(body, resp.Header("Content-Type"))
	if err != nil {
		return page{}, fmt.Errorf("decode %s: %w", pageURL, err)
	}
	return page{url: pageURL, status: status, body: decoded}, nil
}

func decodeBody(body []byte, contentType string) ([]byte, error) {
	if len(body) == 0 {
		return body, nil
	}
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return nil, err
	}
	return io.ReadAll(r)
}

func containsStatus(list []int, status int) bool {
	for _, s := range list {
		if s == status {
			return true
		}
	}
	return false
}

// resolveURL resolves ref against base; an unparsable pair yields "".
func resolveURL(ref, base string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	b, err := url.Parse(base)
	if err != nil {
		return ""
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return b.ResolveReference(r).String()
}

// dedupe drops empty and repeated values, keeping first-seen order.
func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// walkNumbered visits pages 1..limit in order and stops at the first page that
// yields nothing. Results are returned in page order.
func walkNumbered(ctx context.Context, limit int, pageURL func(n int) string, extract func(ctx context.Context, u string) (string, bool)) []string {
	out := make([]string, 0, limit)
	for n := 1; n <= limit; n++ {
		if ctx.Err() != nil {
			break
		}
		loc, ok := extract(ctx, pageURL(n))
		if !ok {
			break
		}
		out = append(out, loc)
	}
	return out
}

// adapterCore carries what every variant shares: the platform entry, the
// persistent session and a clock for "latest" resolution.
type adapterCore struct {
	platform Platform
	client   HTTPClient
	headers  map[string]string
	log      Logger
	now      func() time.Time
}

func newAdapterCore(p Platform, client HTTPClient, log Logger) (adapterCore, error) {
	if client == nil {
		return adapterCore{}, fmt.Errorf("platform %q: http client is nil", p.ID)
	}
	if strings.TrimSpace(p.BaseURL) == "" {
		return adapterCore{}, fmt.Errorf("platform %q: base_url is empty", p.ID)
	}
	return adapterCore{
		platform: p,
		client:   client,
		headers:  Headers(p),
		log:      ensureLogger(log),
		now:      time.Now,
	}, nil
}

func (c *adapterCore) ID() string          { return c.platform.ID }
func (c *adapterCore) Name() string        { return c.platform.Name }
func (c *adapterCore) Session() HTTPClient { return c.client }

func (c *adapterCore) get(ctx context.Context, pageURL string, allowStatus ...int) (page, error) {
	return fetchPage(ctx, c.client, pageURL, c.headers, allowStatus...)
}

func (c *adapterCore) today() time.Time {
	return domain.Day(c.now())
}

// edition builds the result for day; an empty locator list means not found.
func (c *adapterCore) edition(day time.Time, urls []string) (domain.Edition, bool) {
	if len(urls) == 0 {
		return domain.Edition{}, false
	}
	day = domain.Day(day)
	return domain.Edition{
		PlatformID: c.platform.ID,
		Date:       day,
		PageURLs:   urls,
		Filename:   fmt.Sprintf("%s_%s.pdf", c.platform.Name, day.Format(domain.CompactDateLayout)),
		MimeType:   pdfMimeType,
	}, true
}

func (c *adapterCore) warn(msg string, day time.Time, err error) {
	fields := map[string]any{
		"platform": c.platform.ID,
		"date":     domain.FormatDay(day),
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	c.log.WarnObj(msg, "platform_discovery", fields)
}

func (c *adapterCore) debug(msg string, fields map[string]any) {
	fields["platform"] = c.platform.ID
	c.log.DebugObj(msg, "platform_discovery", fields)
}
