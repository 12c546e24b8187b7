package dedup

import (
	"regexp"
	"strings"
	"sync"

	"github.com/rohmanhakim/docs-crawler/pkg/hashutil"
)

/*
Responsibilities

- Hash fetched page content and detect whether the same content has
  already been seen under a different URL (mirrors, trailing-slash
  variants, session-ID query strings the URL canonicalizer doesn't strip)
- Optionally normalize markup before hashing (strip script/style/comments,
  collapse whitespace) so boilerplate-only differences don't defeat
  detection (§4.7)
- Never gate control flow by itself — duplicate detection is reported to
  the caller, which decides whether to still record the page for
  observability while skipping extraction/storage

dedup decides purely on content bytes; it records which URLs presented
each hash but knows nothing about depth or the frontier.
*/

var (
	scriptTagRe   = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleTagRe    = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	noscriptTagRe = regexp.MustCompile(`(?is)<noscript[^>]*>.*?</noscript>`)
	htmlCommentRe = regexp.MustCompile(`(?s)<!--.*?-->`)
	htmlTagRe     = regexp.MustCompile(`(?s)<[^>]+>`)
	whitespaceRe  = regexp.MustCompile(`\s+`)
)

// Deduplicator reports whether previously-seen content has recurred,
// keyed by content hash. A Deduplicator with MinContentLength > 0 never
// flags shorter bodies as duplicates (and never records them), matching
// the "below min_content_length" exemption.
type Deduplicator struct {
	mu               sync.Mutex
	algo             hashutil.HashAlgo
	minContentLength int
	normalize        bool
	hashToURLs       map[string]map[string]struct{}
}

// New constructs a Deduplicator hashing content with algo. minContentLength
// of 0 disables the length exemption. normalize strips script/style/
// comment markup and collapses whitespace before hashing.
func New(algo hashutil.HashAlgo, minContentLength int, normalize bool) *Deduplicator {
	return &Deduplicator{
		algo:             algo,
		minContentLength: minContentLength,
		normalize:        normalize,
		hashToURLs:       make(map[string]map[string]struct{}),
	}
}

// IsDuplicate reports whether content has already been observed under a
// different hash-equal body. The first URL to present a given hash is
// never a duplicate; every subsequent URL presenting the same hash is.
// content shorter than minContentLength is never recorded and always
// reports false, per §4.7.
func (d *Deduplicator) IsDuplicate(content []byte, sourceURL string) bool {
	if d.minContentLength > 0 && len(content) < d.minContentLength {
		return false
	}

	payload := content
	if d.normalize {
		payload = []byte(normalizeText(string(content)))
	}

	digest, err := hashutil.HashBytes(payload, d.algo)
	if err != nil {
		// An unsupported algorithm is a construction-time programming
		// error, not a runtime condition; treat content as unique rather
		// than panic mid-crawl.
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	urls, exists := d.hashToURLs[digest]
	if !exists {
		d.hashToURLs[digest] = map[string]struct{}{sourceURL: {}}
		return false
	}

	urls[sourceURL] = struct{}{}
	return true
}

// URLsFor returns every URL recorded against the hash of content, or nil
// if content was never recorded (below the length floor, or never seen).
func (d *Deduplicator) URLsFor(content []byte) []string {
	payload := content
	if d.normalize {
		payload = []byte(normalizeText(string(content)))
	}
	digest, err := hashutil.HashBytes(payload, d.algo)
	if err != nil {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	urls, ok := d.hashToURLs[digest]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(urls))
	for u := range urls {
		out = append(out, u)
	}
	return out
}

// Count returns the number of distinct content hashes observed.
func (d *Deduplicator) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.hashToURLs)
}

// normalizeText strips script/style/noscript blocks, HTML comments, and
// all remaining tags, then collapses whitespace — approximating the
// "extract visible text" normalization §4.7 allows before hashing.
func normalizeText(body string) string {
	body = scriptTagRe.ReplaceAllString(body, "")
	body = styleTagRe.ReplaceAllString(body, "")
	body = noscriptTagRe.ReplaceAllString(body, "")
	body = htmlCommentRe.ReplaceAllString(body, "")
	body = htmlTagRe.ReplaceAllString(body, " ")
	body = whitespaceRe.ReplaceAllString(body, " ")
	return strings.TrimSpace(body)
}
