package fetcher

import (
	"net/url"
	"time"
)

// FetchResult is the HTTP-level outcome of a single fetch attempt.
type FetchResult struct {
	url       url.URL
	body      []byte
	meta      ResponseMeta
	fetchedAt time.Time
}

func (f *FetchResult) URL() url.URL {
	return f.url
}

func (f *FetchResult) Body() []byte {
	return f.body
}

func (f *FetchResult) Code() int {
	return f.meta.statusCode
}

func (f *FetchResult) SizeByte() uint64 {
	return uint64(len(f.body))
}

func (f *FetchResult) Headers() map[string]string {
	return f.meta.responseHeaders
}

func (f *FetchResult) FetchedAt() time.Time {
	return f.fetchedAt
}

// NotModified reports whether this result represents a 304 conditional-GET
// response; callers must leave the prior incremental record untouched and
// must not re-run extraction over it (§4.10 step 6).
func (f *FetchResult) NotModified() bool {
	return f.meta.statusCode == 304
}

type ResponseMeta struct {
	statusCode      int
	responseHeaders map[string]string
}

// NewCachedFetchResult reconstructs a FetchResult from a cache.Cache hit:
// the cache only stores the response body, so status is always reported as
// 200 and fetchedAt is the time of the cache read, not the original fetch.
func NewCachedFetchResult(url url.URL, body []byte, fetchedAt time.Time) FetchResult {
	return FetchResult{
		url:       url,
		body:      body,
		fetchedAt: fetchedAt,
		meta: ResponseMeta{
			statusCode:      200,
			responseHeaders: map[string]string{"Content-Type": "text/html"},
		},
	}
}

// NewFetchResultForTest creates a FetchResult for testing purposes.
// This allows test packages to construct FetchResult values without
// accessing unexported fields directly.
func NewFetchResultForTest(
	url url.URL,
	body []byte,
	statusCode int,
	contentType string,
	responseHeaders map[string]string,
	fetchedAt time.Time,
) FetchResult {
	if responseHeaders == nil {
		responseHeaders = make(map[string]string)
	}
	if contentType != "" {
		responseHeaders["Content-Type"] = contentType
	}
	return FetchResult{
		url:       url,
		body:      body,
		fetchedAt: fetchedAt,
		meta: ResponseMeta{
			statusCode:      statusCode,
			responseHeaders: responseHeaders,
		},
	}
}
