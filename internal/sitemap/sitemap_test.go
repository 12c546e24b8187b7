package sitemap_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rohmanhakim/docs-crawler/internal/sitemap"
)

type stubFetcher struct {
	server *httptest.Server
}

func (s stubFetcher) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return s.server.Client().Do(req)
}

func TestCollect_FlatURLSet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>https://example.com/a</loc><lastmod>2024-01-01</lastmod></url>
  <url><loc>https://example.com/b</loc><priority>0.5</priority></url>
</urlset>`))
	}))
	defer server.Close()

	b := sitemap.NewBootstrapper(stubFetcher{server}, nil)
	entries := b.Collect(context.Background(), []string{server.URL})

	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Loc != "https://example.com/a" || entries[0].LastMod != "2024-01-01" {
		t.Fatalf("unexpected entry 0: %+v", entries[0])
	}
	if entries[1].Priority != "0.5" {
		t.Fatalf("unexpected entry 1: %+v", entries[1])
	}
}

func TestCollect_IndexRecursesIntoChildren(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/index.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <sitemap><loc>http://placeholder/child.xml</loc></sitemap>
</sitemapindex>`))
	})
	mux.HandleFunc("/child.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>https://example.com/child-page</loc></url>
</urlset>`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	fetcher := rewritingFetcher{server: server}
	b := sitemap.NewBootstrapper(fetcher, nil)
	entries := b.Collect(context.Background(), []string{server.URL + "/index.xml"})

	if len(entries) != 1 {
		t.Fatalf("expected 1 entry from recursed child, got %d", len(entries))
	}
	if entries[0].Loc != "https://example.com/child-page" {
		t.Fatalf("unexpected entry: %+v", entries[0])
	}
}

// rewritingFetcher maps the placeholder child host back onto the local
// test server so the index's <loc> can reference a stable absolute URL.
type rewritingFetcher struct {
	server *httptest.Server
}

func (f rewritingFetcher) Get(ctx context.Context, url string) (*http.Response, error) {
	if url == "http://placeholder/child.xml" {
		url = f.server.URL + "/child.xml"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return f.server.Client().Do(req)
}

func TestCollect_DuplicateCandidateVisitedOnce(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9"><url><loc>https://example.com/a</loc></url></urlset>`))
	}))
	defer server.Close()

	b := sitemap.NewBootstrapper(stubFetcher{server}, nil)
	b.Collect(context.Background(), []string{server.URL, server.URL})

	if calls != 1 {
		t.Fatalf("expected sitemap to be fetched once, got %d calls", calls)
	}
}

func TestCollect_FetchFailureSkipped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	b := sitemap.NewBootstrapper(stubFetcher{server}, nil)
	entries := b.Collect(context.Background(), []string{server.URL})

	if entries != nil {
		t.Fatalf("expected no entries from a failed fetch, got %+v", entries)
	}
}
