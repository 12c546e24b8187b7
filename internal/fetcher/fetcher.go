package fetcher

import (
	"context"
	"net/http"
	"net/url"

	"github.com/rohmanhakim/docs-crawler/pkg/failure"
	"github.com/rohmanhakim/docs-crawler/pkg/retry"
)

// Fetcher performs the HTTP-level work of a crawl: issuing the request,
// classifying the response, and handing back raw bytes plus metadata. It
// never parses content.
type Fetcher interface {
	Init(httpClient *http.Client, userAgent string)
	Fetch(
		ctx context.Context,
		crawlDepth int,
		fetchUrl url.URL,
		retryParam retry.RetryParam,
	) (FetchResult, failure.ClassifiedError)

	// FetchConditional behaves like Fetch but threads extra request headers
	// (If-None-Match / If-Modified-Since, per §4.10 step 3 & 11) so a prior
	// 304 can be recognized without re-downloading the body.
	FetchConditional(
		ctx context.Context,
		crawlDepth int,
		fetchUrl url.URL,
		retryParam retry.RetryParam,
		extraHeaders map[string]string,
	) (FetchResult, failure.ClassifiedError)
}
