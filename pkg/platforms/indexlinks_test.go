package platforms

import (
	"context"
	"fmt"
	"testing"
	"time"
)

const gmwBase = "https://epaper.gmw.cn"

func gmwDetail(n int) string {
	return fmt.Sprintf(`<html><body>
<div class="m-paper-version"><span class="mob-version">第%02d版</span></div>
<img id="map" src="../../../images/2024-01/15/%02d/page%02d.jpg.2">
</body></html>`, n, n, n)
}

func TestIndexLinksReadsListAndExtractsImages(t *testing.T) {
	site := newFakeSite()
	root := gmwBase + "/gmrb/html/layout/202401/15"
	site.add(root+"/node_01.html", `<ul id="list">
<li><a href="node_01.html">01</a></li>
<li><a href="node_02.html">02</a></li>
<li><a href="node_03.html">03</a></li>
</ul>`)
	// node_01 is the index itself and carries no scan.
	site.add(root+"/node_02.html", gmwDetail(2))
	site.add(root+"/node_03.html", gmwDetail(3))

	p := Platform{ID: "guangming", Name: "光明日报", Type: TypeIndexLinks, BaseURL: gmwBase, PaperCode: "gmrb"}
	a, err := NewIndexLinksAdapter(p, site, nil)
	if err != nil {
		t.Fatalf("NewIndexLinksAdapter: %v", err)
	}
	ed, ok := a.ResolveEdition(context.Background(), time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))
	if !ok {
		t.Fatalf("expected edition")
	}
	if len(ed.PageURLs) != 2 {
		t.Fatalf("expected 2 images, got %v", ed.PageURLs)
	}
	want := gmwBase + "/gmrb/html/images/2024-01/15/02/page02.jpg"
	if ed.PageURLs[0] != want {
		t.Fatalf("image = %q, want %q", ed.PageURLs[0], want)
	}
}

func TestIndexLinksFallsBackToNumberedNodes(t *testing.T) {
	site := newFakeSite()
	root := gmwBase + "/zhdsb/html/layout/202401/17"
	site.add(root+"/node_01.html", gmwDetail(1))
	site.add(root+"/node_04.html", gmwDetail(4))

	p := Platform{ID: "zhonghuadushu", Name: "中华读书报", Type: TypeIndexLinks, BaseURL: gmwBase, PaperCode: "zhdsb"}
	a, _ := NewIndexLinksAdapter(p, site, nil)
	ed, ok := a.ResolveEdition(context.Background(), time.Date(2024, 1, 17, 0, 0, 0, 0, time.UTC))
	if !ok {
		t.Fatalf("expected edition")
	}
	if len(ed.PageURLs) != 2 {
		t.Fatalf("expected 2 images from numbered fallback, got %v", ed.PageURLs)
	}
	// index read + 19 node pages
	if calls := site.requested(); len(calls) != 1+indexFallbackPages {
		t.Fatalf("expected %d requests, got %d", 1+indexFallbackPages, len(calls))
	}
}

func TestIndexLinksFallbackImageScan(t *testing.T) {
	site := newFakeSite()
	root := gmwBase + "/wzb/html/layout/202401/15"
	site.add(root+"/node_01.html", `<ul id="list"><li><a href="node_02.html">02</a></li></ul>`)
	site.add(root+"/node_02.html", `<img src="/logo.png"><img src="../../../page/02/scan.jpg">`)

	p := Platform{ID: "wenzhai", Name: "文摘报", Type: TypeIndexLinks, BaseURL: gmwBase, PaperCode: "wzb"}
	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	plain, _ := NewIndexLinksAdapter(p, site, nil)
	if _, ok := plain.ResolveEdition(context.Background(), day); ok {
		t.Fatalf("expected not found without fallback scan")
	}

	p.Config = map[string]any{ConfigFallbackImageScanKey: true}
	scanning, _ := NewIndexLinksAdapter(p, site, nil)
	ed, ok := scanning.ResolveEdition(context.Background(), day)
	if !ok || len(ed.PageURLs) != 1 {
		t.Fatalf("expected one image via fallback scan, got %v", ed.PageURLs)
	}
	if ed.PageURLs[0] != gmwBase+"/wzb/html/page/02/scan.jpg" {
		t.Fatalf("unexpected image %q", ed.PageURLs[0])
	}
}

func TestIndexLinksIndexFailureIsNotFound(t *testing.T) {
	site := newFakeSite()
	log := &recordingLogger{}
	p := Platform{ID: "guangming", Name: "光明日报", Type: TypeIndexLinks, BaseURL: gmwBase, PaperCode: "gmrb"}
	a, _ := NewIndexLinksAdapter(p, site, log)
	if _, ok := a.ResolveEdition(context.Background(), time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)); ok {
		t.Fatalf("expected not found")
	}
	if len(log.warns) != 1 {
		t.Fatalf("expected one warning, got %v", log.warns)
	}
}

func TestIndexLinksRequiresPaperCode(t *testing.T) {
	if _, err := NewIndexLinksAdapter(Platform{ID: "x", BaseURL: gmwBase}, newFakeSite(), nil); err == nil {
		t.Fatalf("expected error without paper_code")
	}
}
