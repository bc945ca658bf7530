package tracking

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
)

// Injector rewrites campaign HTML so opens and clicks route through the
// tracking endpoints. It is a pure transformation: the same input always
// yields the same output, and already-rewritten links are left alone.
type Injector struct {
	baseURL string
}

// NewInjector creates an Injector. baseURL is the externally reachable root
// of the tracking endpoints, without a trailing slash.
func NewInjector(baseURL string) *Injector {
	return &Injector{baseURL: strings.TrimRight(baseURL, "/")}
}

// PixelURL is the open-tracking pixel address for one recipient of a campaign.
func (in *Injector) PixelURL(campaignID, subscriberID uuid.UUID) string {
	return fmt.Sprintf("%s/track/open/%s/%s/pixel.png", in.baseURL, campaignID, subscriberID)
}

// ClickURL wraps target in a click-tracking redirect for one recipient.
func (in *Injector) ClickURL(campaignID, subscriberID uuid.UUID, target string) string {
	return fmt.Sprintf("%s/track/click/%s/%s?url=%s",
		in.baseURL, campaignID, subscriberID, url.QueryEscape(target))
}

// Inject rewrites anchor links to click redirects and appends the open pixel.
// The pixel goes right before the closing body tag when one exists, otherwise
// at the end of the document. HTML that cannot be parsed still gets the
// pixel; link rewriting is skipped for it.
func (in *Injector) Inject(html string, campaignID, subscriberID uuid.UUID) string {
	html = in.rewriteLinks(html, campaignID, subscriberID)

	pixel := fmt.Sprintf(`<img src="%s" width="1" height="1" alt="" style="display:none"/>`,
		in.PixelURL(campaignID, subscriberID))

	if idx := lastBodyClose(html); idx >= 0 {
		return html[:idx] + pixel + html[idx:]
	}
	return html + pixel
}

// rewriteLinks swaps each trackable anchor href for its click redirect.
// Parsing finds the hrefs; the substitution itself is plain string
// replacement so the rest of the document survives byte for byte.
func (in *Injector) rewriteLinks(html string, campaignID, subscriberID uuid.UUID) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}

	seen := make(map[string]struct{})
	var targets []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		if !in.trackable(href) {
			return
		}
		if _, dup := seen[href]; dup {
			return
		}
		seen[href] = struct{}{}
		targets = append(targets, href)
	})

	for _, target := range targets {
		tracked := in.ClickURL(campaignID, subscriberID, target)
		// The parser hands back decoded hrefs; the source markup may
		// carry the same URL entity-encoded, so match both spellings.
		forms := []string{target}
		if enc := strings.ReplaceAll(target, "&", "&amp;"); enc != target {
			forms = append(forms, enc)
		}
		for _, form := range forms {
			html = strings.ReplaceAll(html, `href="`+form+`"`, `href="`+tracked+`"`)
			html = strings.ReplaceAll(html, `href='`+form+`'`, `href='`+tracked+`'`)
		}
	}
	return html
}

// trackable reports whether an href should be wrapped: absolute http(s)
// links only, and never links that already point at the tracking host.
func (in *Injector) trackable(href string) bool {
	if strings.HasPrefix(href, in.baseURL+"/track/") {
		return false
	}
	u, err := url.Parse(href)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// lastBodyClose returns the index of the final </body>, case-insensitive,
// or -1 when the document has none.
func lastBodyClose(html string) int {
	return strings.LastIndex(strings.ToLower(html), "</body>")
}
