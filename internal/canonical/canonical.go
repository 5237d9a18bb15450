// Package canonical normalizes URLs and text strings into comparison-stable
// forms for deduplication. Both functions are total: unparseable input falls
// back to the trimmed, lower-cased original.
package canonical

import (
	"net/url"
	"regexp"
	"strings"
)

var whitespace = regexp.MustCompile(`\s+`)

// trackingPrefixes and trackingParams name query parameters that carry
// attribution state, not content. Two URLs differing only in these point at
// the same resource.
var trackingPrefixes = []string{"utm_", "mtm_", "pk_"}

var trackingParams = map[string]struct{}{
	"gclid":   {},
	"gclsrc":  {},
	"dclid":   {},
	"gbraid":  {},
	"wbraid":  {},
	"fbclid":  {},
	"msclkid": {},
	"yclid":   {},
	"mc_cid":  {},
	"mc_eid":  {},
	"igshid":  {},
}

// URL returns the canonical form of raw: tracking parameters removed, scheme
// and host lower-cased, trailing slash stripped from bare paths. Path and the
// order of surviving query parameters are preserved.
func URL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	u, err := url.Parse(trimmed)
	if err != nil || u.Host == "" {
		return strings.ToLower(trimmed)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawQuery = stripTracking(u.RawQuery)

	if u.RawQuery == "" && strings.HasSuffix(u.Path, "/") {
		u.Path = strings.TrimRight(u.Path, "/")
	}

	return u.String()
}

// stripTracking filters the raw query string pair by pair, keeping order. Not
// using url.Values here: it would reorder surviving parameters.
func stripTracking(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}
	pairs := strings.Split(rawQuery, "&")
	kept := pairs[:0]
	for _, pair := range pairs {
		name, _, _ := strings.Cut(pair, "=")
		if isTracking(strings.ToLower(name)) {
			continue
		}
		kept = append(kept, pair)
	}
	return strings.Join(kept, "&")
}

func isTracking(name string) bool {
	if _, ok := trackingParams[name]; ok {
		return true
	}
	for _, prefix := range trackingPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// Text trims, collapses internal whitespace runs to one space, and
// lower-cases, so question strings differing only in case or spacing collapse
// to the same dedupe key.
func Text(raw string) string {
	return strings.ToLower(whitespace.ReplaceAllString(strings.TrimSpace(raw), " "))
}

// Domain extracts the bare host from a URL, without scheme, port, or a
// leading www. Empty when raw has no parseable host.
func Domain(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www.")
}
