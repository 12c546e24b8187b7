package scheduler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rohmanhakim/docs-crawler/internal/assets"
	"github.com/rohmanhakim/docs-crawler/internal/extractor"
	"github.com/rohmanhakim/docs-crawler/internal/fetcher"
	"github.com/rohmanhakim/docs-crawler/internal/frontier"
	"github.com/rohmanhakim/docs-crawler/internal/mdconvert"
	"github.com/rohmanhakim/docs-crawler/internal/metadata"
	"github.com/rohmanhakim/docs-crawler/internal/robots"
	"github.com/rohmanhakim/docs-crawler/internal/sanitizer"
	"github.com/rohmanhakim/docs-crawler/internal/scheduler"
	"github.com/rohmanhakim/docs-crawler/internal/storage"
	"github.com/rohmanhakim/docs-crawler/pkg/timeutil"
)

// createSchedulerForTest wires a Scheduler out of test doubles. Any dependency
// passed as nil falls back to NewSchedulerWithDeps' own default (a real
// implementation), so each test only has to mock the collaborators it's
// actually exercising.
func createSchedulerForTest(
	t *testing.T,
	ctx context.Context,
	mockFinalizer *mockFinalizer,
	metadataSink metadata.MetadataSink,
	mockLimiter *rateLimiterMock,
	mockFrontier *frontierMock,
	mockRobot *robotsMock,
	mockFetcher *fetcherMock,
	mockExtractor *extractorMock,
	mockSanitizer *sanitizerMock,
	mockConvert *convertMock,
	mockResolver *resolverMock,
	mockStorage *storageMock,
	mockSleeper *sleeperMock,
) *scheduler.Scheduler {
	t.Helper()

	var frontierImpl frontier.Frontier
	if mockFrontier != nil {
		frontierImpl = mockFrontier
	}
	var robot robots.Robot
	if mockRobot != nil {
		robot = mockRobot
	}
	var fetcherImpl fetcher.Fetcher
	if mockFetcher != nil {
		fetcherImpl = mockFetcher
	}
	var extractorImpl extractor.Extractor
	if mockExtractor != nil {
		extractorImpl = mockExtractor
	}
	var sanitizerImpl sanitizer.Sanitizer
	if mockSanitizer != nil {
		sanitizerImpl = mockSanitizer
	}
	var convertImpl mdconvert.ConvertRule
	if mockConvert != nil {
		convertImpl = mockConvert
	}
	var resolverImpl assets.Resolver
	if mockResolver != nil {
		resolverImpl = mockResolver
	}
	var storageImpl storage.Sink
	if mockStorage != nil {
		storageImpl = mockStorage
	}
	var sleeperImpl timeutil.Sleeper
	if mockSleeper != nil {
		sleeperImpl = mockSleeper
	}

	s := scheduler.NewSchedulerWithDeps(
		ctx,
		mockFinalizer,
		metadataSink,
		mockLimiter,
		frontierImpl,
		robot,
		fetcherImpl,
		extractorImpl,
		sanitizerImpl,
		convertImpl,
		resolverImpl,
		nil,
		storageImpl,
		sleeperImpl,
	)
	return &s
}

// mockFinalizer, capturedStats, and newMockFinalizer are defined once in
// helper_finalizer_test.go.

// rateLimiterMock is defined once in helper_limiter_test.go.

// setupTestServer creates a test HTTP server that serves robots.txt content
func setupTestServer(t *testing.T, robotsContent string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			w.Header().Set("Content-Type", "text/plain")
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(robotsContent))
		} else {
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

// setupTestServerWithStatus creates a test HTTP server that returns a specific status code
func setupTestServerWithStatus(t *testing.T, statusCode int, robotsContent string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			w.Header().Set("Content-Type", "text/plain")
			w.WriteHeader(statusCode)
			if robotsContent != "" {
				w.Write([]byte(robotsContent))
			}
		} else {
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

// errorRecordingSink, fetcherMock, and mockClassifiedError are shared test
// doubles defined once in helper_metadata_test.go / helper_fetcher_test.go /
// helper_error_test.go respectively, to avoid duplicate declarations in this
// package.
