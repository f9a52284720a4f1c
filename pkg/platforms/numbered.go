package platforms

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/samvad-hq/samvad-epaper-harvester/internal/domain"
)

// TypeNumberedPages walks node_01..node_NN layout pages, each linking one PDF attachment.
const TypeNumberedPages = "numbered_pages"

const (
	defaultNumberedMaxPages = 30
	defaultAttachmentDir    = "attachement"
)

var numberedIndexDateRe = regexp.MustCompile(`href="(\d{6})/(\d{2})/node_\d+\.html"`)

type numberedPagesAdapter struct {
	adapterCore
	maxPages     int
	attachmentRe *regexp.Regexp
}

// NewNumberedPagesAdapter builds the adapter for papers whose layout pages are numbered nodes.
func NewNumberedPagesAdapter(p Platform, client HTTPClient, log Logger) (Adapter, error) {
	core, err := newAdapterCore(p, client, log)
	if err != nil {
		return nil, err
	}
	maxPages := p.MaxPages
	if maxPages <= 0 {
		maxPages = defaultNumberedMaxPages
	}
	dir := ConfigString(p, ConfigAttachmentDirKey, defaultAttachmentDir)
	re, err := regexp.Compile(`href="\.\./\.\./\.\./` + regexp.QuoteMeta(dir) + `/(\d{6}/\d{2}/[A-Za-z0-9_-]+\.pdf)"`)
	if err != nil {
		return nil, fmt.Errorf("platform %q: attachment pattern: %w", p.ID, err)
	}
	return &numberedPagesAdapter{adapterCore: core, maxPages: maxPages, attachmentRe: re}, nil
}

func (a *numberedPagesAdapter) layoutRoot() string {
	return a.platform.BaseURL + "/" + a.platform.Section + "/layout"
}

func (a *numberedPagesAdapter) ResolveEdition(ctx context.Context, day time.Time) (domain.Edition, bool) {
	if day.IsZero() {
		return a.resolveLatest(ctx)
	}
	day = domain.Day(day)
	datePath := day.Format("200601") + "/" + day.Format("02")

	urls := walkNumbered(ctx, a.maxPages, func(n int) string {
		return fmt.Sprintf("%s/%s/node_%02d.html", a.layoutRoot(), datePath, n)
	}, a.attachmentFor)

	if len(urls) == 0 {
		a.debug("no pages for date", map[string]any{"date": domain.FormatDay(day)})
	}
	return a.edition(day, urls)
}

// resolveLatest reads the layout index, takes the first dated node link and
// collects every node of that date listed on the index.
func (a *numberedPagesAdapter) resolveLatest(ctx context.Context) (domain.Edition, bool) {
	index, err := a.get(ctx, a.layoutRoot()+"/index.html")
	if err != nil {
		a.warn("read layout index failed", time.Time{}, err)
		return domain.Edition{}, false
	}
	m := numberedIndexDateRe.FindStringSubmatch(index.text())
	if m == nil {
		a.warn("layout index has no dated pages", time.Time{}, nil)
		return domain.Edition{}, false
	}
	day, err := time.Parse(domain.CompactDateLayout, m[1]+m[2])
	if err != nil {
		a.warn("layout index date unparsable", time.Time{}, err)
		return domain.Edition{}, false
	}

	nodeRe := regexp.MustCompile(`href="(` + m[1] + `/` + m[2] + `/node_(\d+)\.html)"`)
	var nodes []string
	for _, nm := range nodeRe.FindAllStringSubmatch(index.text(), -1) {
		if n, _ := strconv.Atoi(nm[2]); n > a.maxPages {
			continue
		}
		nodes = append(nodes, a.layoutRoot()+"/"+nm[1])
	}

	var urls []string
	for _, node := range dedupe(nodes) {
		if ctx.Err() != nil {
			break
		}
		if loc, ok := a.attachmentFor(ctx, node); ok {
			urls = append(urls, loc)
		}
	}
	return a.edition(day, urls)
}

func (a *numberedPagesAdapter) attachmentFor(ctx context.Context, pageURL string) (string, bool) {
	pg, err := a.get(ctx, pageURL)
	if err != nil {
		a.debug("layout page unavailable", map[string]any{"url": pageURL, "error": err.Error()})
		return "", false
	}
	m := a.attachmentRe.FindStringSubmatch(pg.text())
	if m == nil {
		return "", false
	}
	dir := ConfigString(a.platform, ConfigAttachmentDirKey, defaultAttachmentDir)
	return a.platform.BaseURL + "/" + a.platform.Section + "/" + dir + "/" + m[1], true
}
