package platforms

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/samvad-hq/samvad-epaper-harvester/internal/domain"
)

// TypeLinkPattern reads one dated node page and pattern-matches its PDF links.
const TypeLinkPattern = "link_pattern"

const (
	defaultResourcePath = "files/Resource/yt"
	redirectStubMaxLen  = 500
)

var linkPatternIndexRe = regexp.MustCompile(`\./(\d{4}-\d{2}/\d{2})/node_1\.html`)

type linkPatternAdapter struct {
	adapterCore
	strictRe *regexp.Regexp
	looseRe  *regexp.Regexp
}

// NewLinkPatternAdapter builds the adapter for papers whose node page links every page PDF.
func NewLinkPatternAdapter(p Platform, client HTTPClient, log Logger) (Adapter, error) {
	if p.Section == "" {
		return nil, fmt.Errorf("platform %q: section is required for %s", p.ID, TypeLinkPattern)
	}
	core, err := newAdapterCore(p, client, log)
	if err != nil {
		return nil, err
	}
	resource := strings.Trim(ConfigString(p, ConfigResourcePathKey, defaultResourcePath), "/")
	prefix := `href="(` + regexp.QuoteMeta(p.BaseURL+"/"+resource+"/"+p.Section) + `/\d{4}-\d{2}-\d{2}/\d{2}/images/`
	strict, err := regexp.Compile(prefix + `\d{2}-[a-f0-9-]+\.pdf)"`)
	if err != nil {
		return nil, fmt.Errorf("platform %q: pdf pattern: %w", p.ID, err)
	}
	loose, err := regexp.Compile(prefix + `[^"]+\.pdf)"`)
	if err != nil {
		return nil, fmt.Errorf("platform %q: pdf pattern: %w", p.ID, err)
	}
	return &linkPatternAdapter{adapterCore: core, strictRe: strict, looseRe: loose}, nil
}

func (a *linkPatternAdapter) sectionRoot() string {
	return a.platform.BaseURL + "/" + a.platform.Section
}

func (a *linkPatternAdapter) ResolveEdition(ctx context.Context, day time.Time) (domain.Edition, bool) {
	if day.IsZero() {
		latest, ok := a.latestDay(ctx)
		if !ok {
			return domain.Edition{}, false
		}
		day = latest
	}
	day = domain.Day(day)

	nodeURL := fmt.Sprintf("%s/%s/%s/node_1.html", a.sectionRoot(), day.Format("2006-01"), day.Format("02"))
	pg, err := a.get(ctx, nodeURL, http.StatusNotFound)
	if err != nil {
		a.warn("read node page failed", day, err)
		return domain.Edition{}, false
	}
	if pg.status == http.StatusNotFound || isRedirectStub(pg.body) {
		a.debug("no edition published", map[string]any{"date": domain.FormatDay(day), "status": pg.status})
		return domain.Edition{}, false
	}

	return a.edition(day, a.pdfLinks(pg.text()))
}

// pdfLinks prefers the page-numbered file form and falls back to any PDF
// under the day's images directory.
func (a *linkPatternAdapter) pdfLinks(html string) []string {
	for _, re := range []*regexp.Regexp{a.strictRe, a.looseRe} {
		var urls []string
		for _, m := range re.FindAllStringSubmatch(html, -1) {
			urls = append(urls, m[1])
		}
		if len(urls) > 0 {
			return dedupe(urls)
		}
	}
	return nil
}

func (a *linkPatternAdapter) latestDay(ctx context.Context) (time.Time, bool) {
	pg, err := a.get(ctx, a.sectionRoot()+"/")
	if err != nil {
		a.warn("read section index failed", time.Time{}, err)
		return time.Time{}, false
	}
	m := linkPatternIndexRe.FindStringSubmatch(pg.text())
	if m == nil {
		a.warn("section index has no dated node", time.Time{}, nil)
		return time.Time{}, false
	}
	day, err := time.Parse("2006-01/02", m[1])
	if err != nil {
		a.warn("section index date unparsable", time.Time{}, err)
		return time.Time{}, false
	}
	return day, true
}

// isRedirectStub spots the tiny script page served instead of a 404 for days
// without an issue.
func isRedirectStub(body []byte) bool {
	return len(body) < redirectStubMaxLen && strings.Contains(string(body), "window.location.href")
}
