package platforms

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const unknownPageName = "未知版"

// ExtractVersionedImage pulls the page scan locator out of a Guangming-style
// detail page. The scan is img#map; its src is resolved against pageURL and
// the ".jpg.2" thumbnail suffix is rewritten to the full-size ".jpg".
func ExtractVersionedImage(doc *goquery.Document, pageURL string) (imageURL, pageName string, ok bool) {
	if doc == nil {
		return "", unknownPageName, false
	}
	pageName = versionName(doc)

	src, exists := doc.Find("img#map").First().Attr("src")
	if !exists || strings.TrimSpace(src) == "" {
		return "", pageName, false
	}
	abs := resolveURL(src, pageURL)
	if abs == "" {
		return "", pageName, false
	}
	return strings.ReplaceAll(abs, ".jpg.2", ".jpg"), pageName, true
}

// ScanPageImage is the looser fallback used by some papers: the first <img>
// whose src mentions "page" and either ".jpg" or "images".
func ScanPageImage(doc *goquery.Document, pageURL string) (string, bool) {
	if doc == nil {
		return "", false
	}
	var found string
	doc.Find("img[src]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		src := strings.TrimSpace(s.AttrOr("src", ""))
		if !strings.Contains(src, "page") {
			return true
		}
		if !strings.Contains(src, ".jpg") && !strings.Contains(src, "images") {
			return true
		}
		if abs := resolveURL(src, pageURL); abs != "" {
			found = strings.ReplaceAll(abs, ".jpg.2", ".jpg")
			return false
		}
		return true
	})
	return found, found != ""
}

func versionName(doc *goquery.Document) string {
	name := strings.TrimSpace(doc.Find("div.m-paper-version span.mob-version").First().Text())
	if name == "" {
		return unknownPageName
	}
	return name
}
