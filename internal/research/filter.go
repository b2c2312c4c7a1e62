package research

import (
	"net/url"
	"strings"
)

// DefaultSkipDomains are sites whose pages rarely yield readable article text.
var DefaultSkipDomains = []string{
	"youtube.com",
	"facebook.com",
	"instagram.com",
	"tiktok.com",
	"x.com",
	"twitter.com",
	"linkedin.com",
	"pinterest.com",
}

// SkippedURL is a search result that was not used.
type SkippedURL struct {
	URL    string `json:"url"`
	Reason string `json:"reason"`
}

// FilterResults drops duplicate links, non-web links and results from
// skipDomains (including their subdomains). Order is preserved.
func FilterResults(results []Result, skipDomains []string) (kept []Result, skipped []SkippedURL) {
	seen := make(map[string]bool)
	for _, r := range results {
		domain := extractDomainFromURL(r.Link)
		switch {
		case domain == "" || !isWebURL(r.Link):
			skipped = append(skipped, SkippedURL{URL: r.Link, Reason: "not a web page"})
		case seen[normalizeURL(r.Link)]:
			skipped = append(skipped, SkippedURL{URL: r.Link, Reason: "duplicate"})
		case isFromDomain(domain, skipDomains):
			skipped = append(skipped, SkippedURL{URL: r.Link, Reason: "blocked domain"})
		default:
			seen[normalizeURL(r.Link)] = true
			kept = append(kept, r)
		}
	}
	return kept, skipped
}

// extractDomainFromURL extracts the host from a URL without a leading "www."
func extractDomainFromURL(urlStr string) string {
	if urlStr == "" {
		return ""
	}
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
}

func isWebURL(urlStr string) bool {
	return strings.HasPrefix(urlStr, "http://") || strings.HasPrefix(urlStr, "https://")
}

// normalizeURL ignores scheme, fragment and a trailing slash when comparing links.
func normalizeURL(urlStr string) string {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return urlStr
	}
	parsed.Scheme = ""
	parsed.Fragment = ""
	parsed.Host = strings.TrimPrefix(strings.ToLower(parsed.Host), "www.")
	return strings.TrimSuffix(parsed.String(), "/")
}

func isFromDomain(domain string, domains []string) bool {
	for _, d := range domains {
		if domain == d || strings.HasSuffix(domain, "."+d) {
			return true
		}
	}
	return false
}
