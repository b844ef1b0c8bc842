package crawler

import (
	"net/url"
	"path"
	"strings"
)

// linkFilter decides whether a discovered link may enter the frontier.
// Only http and https URLs are crawled. Path patterns use glob syntax:
// "/admin/*" matches everything below /admin, "*.pdf" matches any path
// ending in .pdf, and other patterns go through path.Match.
type linkFilter struct {
	// ignore patterns reject a URL when any of them matches.
	ignore []string

	// follow patterns, when set, require at least one match.
	follow []string
}

// allow reports whether rawURL should be crawled.
func (lf linkFilter) allow(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}

	p := u.Path
	if p == "" {
		p = "/"
	}

	for _, pattern := range lf.ignore {
		if matchPattern(pattern, p) {
			return false
		}
	}

	if len(lf.follow) == 0 {
		return true
	}
	for _, pattern := range lf.follow {
		if matchPattern(pattern, p) {
			return true
		}
	}
	return false
}

// matchPattern matches a URL path against a glob pattern.
func matchPattern(pattern, p string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "/*"); ok {
		if p == prefix || strings.HasPrefix(p, prefix+"/") {
			return true
		}
	}

	if ext, ok := strings.CutPrefix(pattern, "*."); ok && !strings.Contains(ext, "/") {
		if strings.HasSuffix(p, "."+ext) {
			return true
		}
	}

	matched, err := path.Match(pattern, p)
	return err == nil && matched
}
