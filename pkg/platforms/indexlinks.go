package platforms

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/samvad-hq/samvad-epaper-harvester/internal/domain"
)

// TypeIndexLinks reads a dated layout index listing every page, then pulls one
// page scan image from each listed detail page.
const TypeIndexLinks = "index_links"

const indexFallbackPages = 19

type indexLinksAdapter struct {
	adapterCore
	fallbackScan bool
}

// NewIndexLinksAdapter builds the adapter shared by the Guangming family of papers.
func NewIndexLinksAdapter(p Platform, client HTTPClient, log Logger) (Adapter, error) {
	if p.PaperCode == "" {
		return nil, fmt.Errorf("platform %q: paper_code is required for %s", p.ID, TypeIndexLinks)
	}
	core, err := newAdapterCore(p, client, log)
	if err != nil {
		return nil, err
	}
	return &indexLinksAdapter{
		adapterCore:  core,
		fallbackScan: ConfigBool(p, ConfigFallbackImageScanKey, false),
	}, nil
}

func (a *indexLinksAdapter) dayRoot(day time.Time) string {
	return fmt.Sprintf("%s/%s/html/layout/%s/%s", a.platform.BaseURL, a.platform.PaperCode, day.Format("200601"), day.Format("02"))
}

func (a *indexLinksAdapter) ResolveEdition(ctx context.Context, day time.Time) (domain.Edition, bool) {
	if day.IsZero() {
		day = a.today()
	}
	day = domain.Day(day)

	pages, err := a.pageLinks(ctx, day)
	if err != nil {
		a.warn("read page index failed", day, err)
		return domain.Edition{}, false
	}

	urls := make([]string, 0, len(pages))
	for _, pageURL := range pages {
		if ctx.Err() != nil {
			break
		}
		if img, ok := a.pageImage(ctx, pageURL); ok {
			urls = append(urls, img)
		}
	}
	return a.edition(day, urls)
}

// pageLinks lists the detail pages of day from the ul#list index. When the
// index carries no list the numbered node pages are tried instead.
func (a *indexLinksAdapter) pageLinks(ctx context.Context, day time.Time) ([]string, error) {
	indexURL := a.dayRoot(day) + "/node_01.html"
	pg, err := a.get(ctx, indexURL)
	if err != nil {
		return nil, err
	}
	doc, err := pg.document()
	if err != nil {
		return nil, err
	}

	var links []string
	doc.Find("ul#list li a[href]").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if href == "" {
			return
		}
		links = append(links, resolveURL(href, indexURL))
	})
	links = dedupe(links)
	if len(links) > 0 {
		return links, nil
	}

	a.debug("page index empty, trying numbered nodes", map[string]any{"date": domain.FormatDay(day)})
	links = make([]string, 0, indexFallbackPages)
	for n := 1; n <= indexFallbackPages; n++ {
		links = append(links, fmt.Sprintf("%s/node_%02d.html", a.dayRoot(day), n))
	}
	return links, nil
}

func (a *indexLinksAdapter) pageImage(ctx context.Context, pageURL string) (string, bool) {
	pg, err := a.get(ctx, pageURL)
	if err != nil {
		a.debug("detail page unavailable", map[string]any{"url": pageURL, "error": err.Error()})
		return "", false
	}
	doc, err := pg.document()
	if err != nil {
		return "", false
	}
	if img, _, ok := ExtractVersionedImage(doc, pageURL); ok {
		return img, true
	}
	if a.fallbackScan {
		return ScanPageImage(doc, pageURL)
	}
	return "", false
}
