package crawler

import (
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// Tag names the extractor reacts to.
const (
	tagScript = "script"
	tagStyle  = "style"
	tagTitle  = "title"
	tagAnchor = "a"
	tagLink   = "link"
)

// suppressingTags lists elements whose text content is never visible.
var suppressingTags = map[string]bool{
	tagScript: true,
	tagStyle:  true,
}

// ExtractionResult is everything the extractor learns from one document.
type ExtractionResult struct {
	// Title is the last non-empty text seen inside a <title> element.
	Title string

	// BodyText is the visible text of the document. Fragments are trimmed and
	// joined with a single space.
	BodyText string

	// InternalLinks are resolved links sharing the base URL's host:port,
	// de-duplicated, in the order they first appear.
	InternalLinks []string

	// ExternalLinks are resolved links on any other host:port,
	// de-duplicated, in the order they first appear.
	ExternalLinks []string
}

// Extractor scans HTML token by token and collects title, visible text and
// links relative to a base URL.
//
// Design decision: We use the x/net/html Tokenizer rather than html.Parse
// because:
//  1. The document is processed as a stream; no DOM is built
//  2. Unmatched or stray tags are reported as they appear instead of being
//     repaired by the tree builder, so they can simply be ignored
//  3. Script and style bodies are delivered as single raw text tokens
type Extractor struct {
	// base is used to resolve relative hrefs. Nil when the base URL could
	// not be parsed, in which case hrefs are kept as written.
	base *url.URL
}

// NewExtractor creates an Extractor for documents served from baseURL.
// An unparsable base URL does not fail; links are then left unresolved.
func NewExtractor(baseURL string) *Extractor {
	u, err := url.Parse(baseURL)
	if err != nil {
		u = nil
	}
	return &Extractor{base: u}
}

// Extract scans the document read from r with links resolved against baseURL.
func Extract(baseURL string, r io.Reader) *ExtractionResult {
	return NewExtractor(baseURL).Extract(r)
}

// ExtractString is Extract for a document already held in memory.
func ExtractString(baseURL, htmlText string) *ExtractionResult {
	return Extract(baseURL, strings.NewReader(htmlText))
}

// Extract scans the document read from r. It never fails: malformed markup
// degrades to whatever could be tokenized, and a read error ends the scan
// with the data gathered so far.
func (e *Extractor) Extract(r io.Reader) *ExtractionResult {
	state := newExtractState(e.base)

	z := html.NewTokenizer(r)
	for {
		switch z.Next() {
		case html.ErrorToken:
			return state.result()
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			state.startTag(z, string(name), hasAttr)
		case html.EndTagToken:
			name, _ := z.TagName()
			state.endTag(string(name))
		case html.TextToken:
			state.text(string(z.Text()))
		}
	}
}

// extractState is the per-document parser state. A new one is created for
// every Extract call so nothing leaks between documents.
type extractState struct {
	base *url.URL

	// open counts currently open suppressing elements by tag name.
	open map[string]int

	capturingTitle bool
	title          string
	fragments      []string

	internal linkSet
	external linkSet
}

func newExtractState(base *url.URL) *extractState {
	return &extractState{
		base:      base,
		open:      make(map[string]int, len(suppressingTags)),
		fragments: make([]string, 0),
		internal:  newLinkSet(),
		external:  newLinkSet(),
	}
}

// startTag handles both <tag> and <tag/>. A self-closing <script/>, <style/>
// or <title/> still opens its region: the tokenizer switches to raw text
// after it, as HTML5 parsers do, so the region lasts until the close tag.
func (s *extractState) startTag(z *html.Tokenizer, name string, hasAttr bool) {
	switch {
	case suppressingTags[name]:
		s.open[name]++
	case name == tagTitle:
		s.capturingTitle = true
	case name == tagAnchor || name == tagLink:
		if href, ok := hrefAttr(z, hasAttr); ok {
			s.addLink(href)
		}
	}
}

// endTag closes a region. A close tag without a matching open tag is ignored.
func (s *extractState) endTag(name string) {
	switch {
	case suppressingTags[name]:
		if s.open[name] > 0 {
			s.open[name]--
		}
	case name == tagTitle:
		s.capturingTitle = false
	}
}

func (s *extractState) text(data string) {
	if s.suppressed() {
		return
	}

	trimmed := strings.TrimSpace(data)
	if s.capturingTitle {
		if trimmed != "" {
			s.title = trimmed
		}
		return
	}

	if trimmed != "" {
		s.fragments = append(s.fragments, trimmed)
	}
}

func (s *extractState) suppressed() bool {
	for _, n := range s.open {
		if n > 0 {
			return true
		}
	}
	return false
}

// addLink strips the fragment, resolves href against the base URL and files
// the result as internal or external by comparing host:port.
func (s *extractState) addLink(href string) {
	if i := strings.IndexByte(href, '#'); i >= 0 {
		href = href[:i]
	}

	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return
	}

	resolved := ref
	baseHost := ""
	if s.base != nil {
		resolved = s.base.ResolveReference(ref)
		baseHost = s.base.Host
	}

	link := resolved.String()
	if link == "" {
		return
	}

	if resolved.Host == baseHost {
		s.internal.add(link)
	} else {
		s.external.add(link)
	}
}

func (s *extractState) result() *ExtractionResult {
	return &ExtractionResult{
		Title:         s.title,
		BodyText:      strings.Join(s.fragments, " "),
		InternalLinks: s.internal.items,
		ExternalLinks: s.external.items,
	}
}

// hrefAttr returns the href attribute of the current tag.
func hrefAttr(z *html.Tokenizer, hasAttr bool) (string, bool) {
	for hasAttr {
		var key, val []byte
		key, val, hasAttr = z.TagAttr()
		if string(key) == "href" {
			return string(val), true
		}
	}
	return "", false
}

// linkSet is a set of strings that remembers insertion order.
type linkSet struct {
	seen  map[string]struct{}
	items []string
}

func newLinkSet() linkSet {
	return linkSet{
		seen:  make(map[string]struct{}),
		items: make([]string, 0),
	}
}

func (l *linkSet) add(link string) {
	if _, ok := l.seen[link]; ok {
		return
	}
	l.seen[link] = struct{}{}
	l.items = append(l.items, link)
}
