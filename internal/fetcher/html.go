package fetcher

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/rehttp"
	"github.com/rohmanhakim/docs-crawler/internal/metadata"
	"github.com/rohmanhakim/docs-crawler/pkg/failure"
	"github.com/rohmanhakim/docs-crawler/pkg/retry"
)

/*
Responsibilities

- Perform HTTP requests
- Apply headers and timeouts
- Handle redirects safely
- Classify responses

Fetch Semantics

- Only successful HTML responses are processed by default; callers that
  need binary/PDF passthrough (§4.10 steps 8-9) opt in via
  AcceptContentType before calling Fetch
- Redirect chains are bounded by the http.Client's own policy
- All responses are logged with metadata

The fetcher never parses content; it only returns bytes and metadata.
*/

type HtmlFetcher struct {
	metadataSink      metadata.MetadataSink
	httpClient        *http.Client
	userAgent         string
	extraContentTypes []string
}

func NewHtmlFetcher(
	metadataSink metadata.MetadataSink,
) HtmlFetcher {
	return HtmlFetcher{
		metadataSink: metadataSink,
		httpClient:   &http.Client{},
	}
}

// Init wires the HTTP client this fetcher will issue requests through and
// the user agent string sent on every request. A rehttp-based transport
// layer is wrapped around whatever client is supplied, giving transport-level
// retries on transient network errors — a second, independent layer below
// the orchestrator's own classification-based retry.Retry call.
func (h *HtmlFetcher) Init(httpClient *http.Client, userAgent string) {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	h.userAgent = userAgent

	baseTransport := httpClient.Transport
	if baseTransport == nil {
		baseTransport = &http.Transport{TLSClientConfig: &tls.Config{}}
	}

	httpClient.Transport = rehttp.NewTransport(
		baseTransport,
		rehttp.RetryAll(
			rehttp.RetryMaxRetries(2),
			rehttp.RetryTemporaryErr(),
		),
		rehttp.ExpJitterDelay(100*time.Millisecond, 2*time.Second),
	)

	h.httpClient = httpClient
}

// AcceptContentType registers an additional content-type prefix (e.g.
// "application/pdf") that performFetch will treat as a successful fetch
// instead of rejecting it with ErrCauseContentTypeInvalid. HTML is always
// accepted; this only widens the set.
func (h *HtmlFetcher) AcceptContentType(prefix string) {
	h.extraContentTypes = append(h.extraContentTypes, strings.ToLower(prefix))
}

func (h *HtmlFetcher) Fetch(
	ctx context.Context,
	crawlDepth int,
	fetchUrl url.URL,
	retryParam retry.RetryParam,
) (FetchResult, failure.ClassifiedError) {
	return h.fetch(ctx, crawlDepth, fetchUrl, retryParam, nil)
}

func (h *HtmlFetcher) FetchConditional(
	ctx context.Context,
	crawlDepth int,
	fetchUrl url.URL,
	retryParam retry.RetryParam,
	extraHeaders map[string]string,
) (FetchResult, failure.ClassifiedError) {
	return h.fetch(ctx, crawlDepth, fetchUrl, retryParam, extraHeaders)
}

func (h *HtmlFetcher) fetch(
	ctx context.Context,
	crawlDepth int,
	fetchUrl url.URL,
	retryParam retry.RetryParam,
	extraHeaders map[string]string,
) (FetchResult, failure.ClassifiedError) {
	callerMethod := "HtmlFetcher.Fetch"
	startTime := time.Now()

	fetchResult := h.fetchWithRetry(ctx, fetchUrl, retryParam, extraHeaders)

	duration := time.Since(startTime)

	var statusCode int
	var contentType string

	if fetchResult.err == nil {
		statusCode = fetchResult.result.Code()
		contentType = h.extractContentType(fetchResult.result.Headers())
	}

	h.metadataSink.RecordFetch(
		fetchUrl.String(),
		statusCode,
		duration,
		contentType,
		fetchResult.attempts,
		crawlDepth,
	)

	if fetchResult.err != nil {
		var retryErr *retry.RetryError
		if errors.As(fetchResult.err, &retryErr) {
			h.recordRetryError(callerMethod, fetchUrl, fetchResult.err)
		} else {
			h.recordFetchError(callerMethod, fetchUrl, fetchResult.err)
		}

		return FetchResult{}, fetchResult.err
	}

	return fetchResult.result, nil
}

func (h *HtmlFetcher) extractContentType(headers map[string]string) string {
	if ct, ok := headers["Content-Type"]; ok {
		return ct
	}
	return ""
}

func (h *HtmlFetcher) recordFetchError(callerMethod string, fetchUrl url.URL, err failure.ClassifiedError) {
	var fetchError *FetchError
	if errors.As(err, &fetchError) {
		h.metadataSink.RecordError(
			time.Now(),
			"fetcher",
			callerMethod,
			mapFetchErrorToMetadataCause(fetchError),
			err.Error(),
			[]metadata.Attribute{
				metadata.NewAttr(metadata.AttrURL, fetchUrl.String()),
			},
		)
	}
}

func (h *HtmlFetcher) recordRetryError(callerMethod string, fetchUrl url.URL, err failure.ClassifiedError) {
	var retryError *retry.RetryError
	if errors.As(err, &retryError) {
		h.metadataSink.RecordError(
			time.Now(),
			"fetcher",
			callerMethod,
			metadata.CauseRetryFailure,
			err.Error(),
			[]metadata.Attribute{
				metadata.NewAttr(metadata.AttrMessage, retryError.Error()),
				metadata.NewAttr(metadata.AttrURL, fetchUrl.String()),
			},
		)
	}
}

type retryOutcome struct {
	result   FetchResult
	err      failure.ClassifiedError
	attempts int
}

func (h *HtmlFetcher) fetchWithRetry(
	ctx context.Context,
	fetchUrl url.URL,
	retryParam retry.RetryParam,
	extraHeaders map[string]string,
) retryOutcome {
	fetchTask := func() (FetchResult, failure.ClassifiedError) {
		return h.performFetch(ctx, fetchUrl, extraHeaders)
	}

	outcome := retry.Retry(retryParam, fetchTask)

	if outcome.Err() != nil {
		var fetchErr *FetchError
		if errors.As(outcome.Err(), &fetchErr) {
			return retryOutcome{err: fetchErr, attempts: outcome.Attempts()}
		}
		return retryOutcome{err: outcome.Err(), attempts: outcome.Attempts()}
	}

	return retryOutcome{result: outcome.Value(), attempts: outcome.Attempts()}
}

func (h *HtmlFetcher) performFetch(ctx context.Context, fetchUrl url.URL, extraHeaders map[string]string) (FetchResult, failure.ClassifiedError) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchUrl.String(), nil)
	if err != nil {
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("failed to create request: %v", err),
			Retryable: false,
			Cause:     ErrCauseNetworkFailure,
		}
	}

	headers := requestHeaders(h.userAgent)
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	for key, value := range extraHeaders {
		req.Header.Set(key, value)
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("request failed: %v", err),
			Retryable: true,
			Cause:     ErrCauseNetworkFailure,
		}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == 304:
		// Conditional GET confirms the cached copy is fresh; no body to read.
		return FetchResult{
			url: fetchUrl,
			meta: ResponseMeta{
				statusCode:      resp.StatusCode,
				responseHeaders: flattenHeaders(resp.Header),
			},
		}, nil

	case resp.StatusCode >= 500:
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("server error: %d", resp.StatusCode),
			Retryable: true,
			Cause:     ErrCauseRequest5xx,
		}

	case resp.StatusCode == 429:
		return FetchResult{}, &FetchError{
			Message:   "rate limited (429)",
			Retryable: true,
			Cause:     ErrCauseRequestTooMany,
		}

	case resp.StatusCode == 403:
		return FetchResult{}, &FetchError{
			Message:   "access forbidden (403)",
			Retryable: false,
			Cause:     ErrCauseRequestPageForbidden,
		}

	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("client error: %d", resp.StatusCode),
			Retryable: false,
			Cause:     ErrCauseRequestPageForbidden,
		}

	case resp.StatusCode >= 300 && resp.StatusCode < 400:
		// http.Client already follows redirects; arriving here means its
		// own redirect-limit policy gave up.
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("redirect error: %d", resp.StatusCode),
			Retryable: false,
			Cause:     ErrCauseRedirectLimitExceeded,
		}
	}

	contentType := resp.Header.Get("Content-Type")
	if !h.isAcceptableContent(contentType) {
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("non-HTML content type: %s", contentType),
			Retryable: false,
			Cause:     ErrCauseContentTypeInvalid,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("failed to read response body: %v", err),
			Retryable: true,
			Cause:     ErrCauseReadResponseBodyError,
		}
	}

	result := FetchResult{
		url:       fetchUrl,
		body:      body,
		fetchedAt: time.Now(),
		meta: ResponseMeta{
			statusCode:      resp.StatusCode,
			responseHeaders: flattenHeaders(resp.Header),
		},
	}

	return result, nil
}

func flattenHeaders(header http.Header) map[string]string {
	responseHeaders := make(map[string]string, len(header))
	for key, values := range header {
		if len(values) > 0 {
			responseHeaders[key] = values[0]
		}
	}
	return responseHeaders
}

func (h *HtmlFetcher) isAcceptableContent(contentType string) bool {
	if isHTMLContent(contentType) {
		return true
	}
	lower := strings.ToLower(contentType)
	for _, prefix := range h.extraContentTypes {
		if strings.Contains(lower, prefix) {
			return true
		}
	}
	return false
}

func isHTMLContent(contentType string) bool {
	contentType = strings.ToLower(contentType)
	return strings.Contains(contentType, "text/html") ||
		strings.Contains(contentType, "application/xhtml")
}

func requestHeaders(userAgent string) map[string]string {
	return map[string]string{
		"User-Agent":      userAgent,
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Accept-Language": "en-US,en;q=0.5",
		"Accept-Encoding": "gzip, deflate, br",
		"DNT":             "1",
		"Connection":      "keep-alive",
	}
}
