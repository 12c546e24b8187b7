package sitemap

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rohmanhakim/docs-crawler/internal/metadata"
)

/*
Responsibilities

- Parse sitemap index and urlset documents per sitemaps.org schema 0.9
- Recurse into sitemap index children, guarded against cycles
- Collect per-URL entries (loc, lastmod, changefreq, priority) for the
  scheduler to submit into the frontier at depth 0, discovery_method=sitemap

Sitemap knows nothing about the frontier or scope rules; it hands back a
flat list of Entry values and lets the caller decide what to do with them.
*/

// Entry is one <url> element from a urlset document.
type Entry struct {
	Loc        string
	LastMod    string
	ChangeFreq string
	Priority   string
	SourceURL  string // the sitemap document this entry was found in
}

type xmlURLSet struct {
	XMLName xml.Name   `xml:"urlset"`
	URLs    []xmlURLEl `xml:"url"`
}

type xmlURLEl struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod"`
	ChangeFreq string `xml:"changefreq"`
	Priority   string `xml:"priority"`
}

type xmlSitemapIndex struct {
	XMLName  xml.Name        `xml:"sitemapindex"`
	Sitemaps []xmlSitemapEl `xml:"sitemap"`
}

type xmlSitemapEl struct {
	Loc string `xml:"loc"`
}

// Fetcher abstracts the HTTP GET used to retrieve sitemap documents, so
// the scheduler's shared http.Client (with its transport-level retry
// wrapper) can be reused instead of sitemap dialing its own connections.
type Fetcher interface {
	Get(ctx context.Context, url string) (*http.Response, error)
}

// Bootstrapper collects sitemap entries starting from one or more
// candidate sitemap URLs, recursing into sitemap indexes.
type Bootstrapper struct {
	fetcher Fetcher
	sink    metadata.MetadataSink
	visited map[string]struct{}
}

// NewBootstrapper constructs a Bootstrapper using fetcher to retrieve
// documents and sink to report per-document errors (observational only;
// a failed sitemap is skipped, never fatal to the crawl — §4.8).
func NewBootstrapper(fetcher Fetcher, sink metadata.MetadataSink) *Bootstrapper {
	return &Bootstrapper{
		fetcher: fetcher,
		sink:    sink,
		visited: make(map[string]struct{}),
	}
}

// Collect resolves every candidate URL, recursing into sitemap indexes,
// and returns the flattened list of urlset entries found. A parse or
// fetch failure on any single candidate is recorded and the candidate is
// skipped; the crawl continues per §4.8.
func (b *Bootstrapper) Collect(ctx context.Context, candidates []string) []Entry {
	var entries []Entry
	for _, candidate := range candidates {
		entries = append(entries, b.collectOne(ctx, candidate)...)
	}
	return entries
}

func (b *Bootstrapper) collectOne(ctx context.Context, sitemapURL string) []Entry {
	if _, seen := b.visited[sitemapURL]; seen {
		return nil
	}
	b.visited[sitemapURL] = struct{}{}

	body, err := b.fetch(ctx, sitemapURL)
	if err != nil {
		b.recordError(sitemapURL, err)
		return nil
	}

	if index, ok := tryParseIndex(body); ok {
		var entries []Entry
		for _, child := range index.Sitemaps {
			entries = append(entries, b.collectOne(ctx, child.Loc)...)
		}
		return entries
	}

	urlset, err := parseURLSet(body)
	if err != nil {
		b.recordError(sitemapURL, &SitemapError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseParseFailure,
		})
		return nil
	}

	entries := make([]Entry, 0, len(urlset.URLs))
	for _, u := range urlset.URLs {
		entries = append(entries, Entry{
			Loc:        u.Loc,
			LastMod:    u.LastMod,
			ChangeFreq: u.ChangeFreq,
			Priority:   u.Priority,
			SourceURL:  sitemapURL,
		})
	}
	return entries
}

func (b *Bootstrapper) fetch(ctx context.Context, sitemapURL string) ([]byte, *SitemapError) {
	resp, err := b.fetcher.Get(ctx, sitemapURL)
	if err != nil {
		return nil, &SitemapError{Message: err.Error(), Retryable: true, Cause: ErrCauseFetchFailure}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &SitemapError{
			Message:   fmt.Sprintf("unexpected status %d", resp.StatusCode),
			Retryable: resp.StatusCode >= 500,
			Cause:     ErrCauseFetchFailure,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &SitemapError{Message: err.Error(), Retryable: true, Cause: ErrCauseFetchFailure}
	}
	return body, nil
}

func (b *Bootstrapper) recordError(sitemapURL string, err *SitemapError) {
	if b.sink == nil {
		return
	}
	b.sink.RecordError(time.Now(), "sitemap", "collect", mapSitemapErrorToMetadataCause(err), err.Error(), []metadata.Attribute{
		metadata.NewAttr(metadata.AttrURL, sitemapURL),
	})
}

func tryParseIndex(body []byte) (xmlSitemapIndex, bool) {
	var index xmlSitemapIndex
	if err := xml.Unmarshal(body, &index); err != nil {
		return xmlSitemapIndex{}, false
	}
	return index, len(index.Sitemaps) > 0
}

func parseURLSet(body []byte) (xmlURLSet, error) {
	var urlset xmlURLSet
	if err := xml.Unmarshal(body, &urlset); err != nil {
		return xmlURLSet{}, err
	}
	return urlset, nil
}
