package tracking

import (
	"net/url"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const trackingBase = "https://track.example.com"

func TestInjectPixelBeforeBodyClose(t *testing.T) {
	in := NewInjector(trackingBase)
	campaignID, subscriberID := uuid.New(), uuid.New()

	out := in.Inject("<html><body><p>Hello</p></body></html>", campaignID, subscriberID)

	pixel := in.PixelURL(campaignID, subscriberID)
	require.Contains(t, out, pixel)
	assert.Less(t, strings.Index(out, pixel), strings.Index(out, "</body>"),
		"pixel should sit before the closing body tag")
}

func TestInjectPixelAppendedWithoutBody(t *testing.T) {
	in := NewInjector(trackingBase)
	campaignID, subscriberID := uuid.New(), uuid.New()

	out := in.Inject("<p>Hello</p>", campaignID, subscriberID)

	assert.True(t, strings.HasSuffix(out, `style="display:none"/>`),
		"pixel should be appended at the end: %s", out)
	assert.Contains(t, out, in.PixelURL(campaignID, subscriberID))
}

func TestInjectPixelCaseInsensitiveBodyTag(t *testing.T) {
	in := NewInjector(trackingBase)
	campaignID, subscriberID := uuid.New(), uuid.New()

	out := in.Inject("<HTML><BODY>hi</BODY></HTML>", campaignID, subscriberID)

	pixel := in.PixelURL(campaignID, subscriberID)
	assert.Less(t, strings.Index(out, pixel), strings.Index(out, "</BODY>"))
}

func TestInjectRewritesAbsoluteLinks(t *testing.T) {
	in := NewInjector(trackingBase)
	campaignID, subscriberID := uuid.New(), uuid.New()

	html := `<html><body><a href="https://example.com/offer">Offer</a></body></html>`
	out := in.Inject(html, campaignID, subscriberID)

	assert.NotContains(t, out, `href="https://example.com/offer"`)
	assert.Contains(t, out, in.ClickURL(campaignID, subscriberID, "https://example.com/offer"))
	assert.Contains(t, out, "url="+url.QueryEscape("https://example.com/offer"))
}

func TestInjectRewritesEntityEncodedLinks(t *testing.T) {
	in := NewInjector(trackingBase)
	campaignID, subscriberID := uuid.New(), uuid.New()

	// Multi-parameter URLs usually arrive entity-encoded in email markup.
	html := `<html><body><a href="https://example.com/?a=1&amp;b=2">Offer</a></body></html>`
	out := in.Inject(html, campaignID, subscriberID)

	assert.NotContains(t, out, `href="https://example.com/?a=1&amp;b=2"`)
	assert.Contains(t, out, in.ClickURL(campaignID, subscriberID, "https://example.com/?a=1&b=2"))
	assert.Contains(t, out, "url="+url.QueryEscape("https://example.com/?a=1&b=2"))
}

func TestInjectLeavesNonHTTPLinksAlone(t *testing.T) {
	in := NewInjector(trackingBase)
	campaignID, subscriberID := uuid.New(), uuid.New()

	html := `<html><body>` +
		`<a href="mailto:hi@example.com">mail</a>` +
		`<a href="#section">anchor</a>` +
		`<a href="/relative">rel</a>` +
		`</body></html>`
	out := in.Inject(html, campaignID, subscriberID)

	assert.Contains(t, out, `href="mailto:hi@example.com"`)
	assert.Contains(t, out, `href="#section"`)
	assert.Contains(t, out, `href="/relative"`)
}

func TestInjectIsIdempotent(t *testing.T) {
	in := NewInjector(trackingBase)
	campaignID, subscriberID := uuid.New(), uuid.New()

	html := `<html><body><a href="https://example.com/a">A</a></body></html>`
	once := in.Inject(html, campaignID, subscriberID)
	twice := in.rewriteLinks(once, campaignID, subscriberID)

	assert.Equal(t, once, twice, "already-rewritten links must not be wrapped again")
}

func TestInjectIsDeterministic(t *testing.T) {
	in := NewInjector(trackingBase)
	campaignID, subscriberID := uuid.New(), uuid.New()

	html := `<html><body><a href="https://example.com/a">A</a><a href="https://example.com/b">B</a></body></html>`
	assert.Equal(t,
		in.Inject(html, campaignID, subscriberID),
		in.Inject(html, campaignID, subscriberID))
}

func TestInjectDuplicateLinksShareOneRedirect(t *testing.T) {
	in := NewInjector(trackingBase)
	campaignID, subscriberID := uuid.New(), uuid.New()

	html := `<html><body>` +
		`<a href="https://example.com/x">first</a>` +
		`<a href="https://example.com/x">second</a>` +
		`</body></html>`
	out := in.Inject(html, campaignID, subscriberID)

	tracked := in.ClickURL(campaignID, subscriberID, "https://example.com/x")
	assert.Equal(t, 2, strings.Count(out, tracked))
}

func TestClickURLEscapesTarget(t *testing.T) {
	in := NewInjector(trackingBase)
	campaignID, subscriberID := uuid.New(), uuid.New()

	got := in.ClickURL(campaignID, subscriberID, "https://example.com/?a=1&b=2")
	assert.Contains(t, got, url.QueryEscape("https://example.com/?a=1&b=2"))
	assert.NotContains(t, got, "b=2\"")
}

func TestInjectPlainTextGetsPixelOnly(t *testing.T) {
	in := NewInjector(trackingBase)
	campaignID, subscriberID := uuid.New(), uuid.New()

	out := in.Inject("just words, no markup", campaignID, subscriberID)
	assert.Contains(t, out, in.PixelURL(campaignID, subscriberID))
	assert.Contains(t, out, "just words, no markup")
}
