// Package checkout holds the request-independent rules for building hosted
// checkout sessions: public origin resolution, redirect URLs and product text.
package checkout

import (
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxDescriptionLen bounds the product description sent to the payment provider.
const MaxDescriptionLen = 240

// NormalizeOrigin trims trailing slashes and returns "" for anything that is
// not an absolute http(s) base.
func NormalizeOrigin(raw string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(raw), "/")
	if ParseRedirect(trimmed) == "" {
		return ""
	}
	return trimmed
}

// ResolveOrigin picks the base for redirect URLs: an explicit value, then the
// configured public origin, then forwarded or direct host headers.
func ResolveOrigin(explicit, configured string, headers http.Header, host string) string {
	if origin := NormalizeOrigin(explicit); origin != "" {
		return origin
	}
	if origin := NormalizeOrigin(configured); origin != "" {
		return origin
	}
	fwdHost := firstValue(headers.Get("X-Forwarded-Host"))
	if fwdHost == "" {
		fwdHost = firstValue(host)
	}
	if fwdHost == "" {
		return ""
	}
	proto := firstValue(headers.Get("X-Forwarded-Proto"))
	if proto == "" {
		proto = "https"
	}
	return NormalizeOrigin(proto + "://" + fwdHost)
}

// RedirectURLs returns the success and cancel targets. Caller-supplied URLs are
// kept when they parse as absolute http(s); otherwise the defaults point back
// at origin with the checkout outcome and listing id.
func RedirectURLs(origin string, listingID uuid.UUID, success, cancel string) (string, string) {
	successURL := ParseRedirect(success)
	if successURL == "" {
		successURL = origin + "/?checkout=success&listing=" + listingID.String()
	}
	cancelURL := ParseRedirect(cancel)
	if cancelURL == "" {
		cancelURL = origin + "/?checkout=cancelled&listing=" + listingID.String()
	}
	return successURL, cancelURL
}

// ParseRedirect returns the canonical form of an absolute http(s) URL or "".
func ParseRedirect(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}

func ProductName(brand, title string) string {
	return strings.TrimSpace(strings.TrimSpace(brand) + " " + strings.TrimSpace(title))
}

// Description clips text to MaxDescriptionLen runes.
func Description(text string) string {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) <= MaxDescriptionLen {
		return text
	}
	return strings.TrimSpace(string([]rune(text)[:MaxDescriptionLen]))
}

func firstValue(raw string) string {
	if i := strings.IndexByte(raw, ','); i >= 0 {
		raw = raw[:i]
	}
	return strings.TrimSpace(raw)
}
