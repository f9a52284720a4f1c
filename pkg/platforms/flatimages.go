package platforms

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/samvad-hq/samvad-epaper-harvester/internal/domain"
)

// TypeFlatImages reads a single dated page that embeds every page scan.
const TypeFlatImages = "flat_images"

const defaultFirstPage = "Page01BC.htm"

type flatImagesAdapter struct {
	adapterCore
	firstPage string
}

// NewFlatImagesAdapter builds the adapter for papers publishing all scans on one page.
func NewFlatImagesAdapter(p Platform, client HTTPClient, log Logger) (Adapter, error) {
	core, err := newAdapterCore(p, client, log)
	if err != nil {
		return nil, err
	}
	return &flatImagesAdapter{
		adapterCore: core,
		firstPage:   ConfigString(p, ConfigFirstPageKey, defaultFirstPage),
	}, nil
}

// ResolveEdition collects every <img> whose src names a Page*.jpg scan. Order
// is lexicographic on the resolved URL, which matches the publisher's
// zero-padded page numbering.
func (a *flatImagesAdapter) ResolveEdition(ctx context.Context, day time.Time) (domain.Edition, bool) {
	if day.IsZero() {
		day = a.today()
	}
	day = domain.Day(day)

	pageURL := fmt.Sprintf("%s/content/%s/%s", a.platform.BaseURL, day.Format(domain.CompactDateLayout), a.firstPage)
	pg, err := a.get(ctx, pageURL)
	if err != nil {
		a.warn("read edition page failed", day, err)
		return domain.Edition{}, false
	}
	doc, err := pg.document()
	if err != nil {
		a.warn("parse edition page failed", day, err)
		return domain.Edition{}, false
	}

	var urls []string
	doc.Find("img[src]").Each(func(_ int, s *goquery.Selection) {
		src := strings.TrimSpace(s.AttrOr("src", ""))
		if !strings.Contains(src, "Page") || !strings.Contains(src, ".jpg") {
			return
		}
		urls = append(urls, resolveURL(src, pageURL))
	})
	urls = dedupe(urls)
	sort.Strings(urls)
	return a.edition(day, urls)
}
