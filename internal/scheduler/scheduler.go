package scheduler

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/rohmanhakim/docs-crawler/internal/artifact"
	"github.com/rohmanhakim/docs-crawler/internal/assets"
	"github.com/rohmanhakim/docs-crawler/internal/budget"
	"github.com/rohmanhakim/docs-crawler/internal/build"
	"github.com/rohmanhakim/docs-crawler/internal/cache"
	"github.com/rohmanhakim/docs-crawler/internal/checkpoint"
	"github.com/rohmanhakim/docs-crawler/internal/config"
	"github.com/rohmanhakim/docs-crawler/internal/dedup"
	"github.com/rohmanhakim/docs-crawler/internal/extractor"
	"github.com/rohmanhakim/docs-crawler/internal/fetcher"
	"github.com/rohmanhakim/docs-crawler/internal/filter"
	"github.com/rohmanhakim/docs-crawler/internal/frontier"
	"github.com/rohmanhakim/docs-crawler/internal/incremental"
	"github.com/rohmanhakim/docs-crawler/internal/mdconvert"
	"github.com/rohmanhakim/docs-crawler/internal/metadata"
	"github.com/rohmanhakim/docs-crawler/internal/normalize"
	"github.com/rohmanhakim/docs-crawler/internal/pipeline"
	"github.com/rohmanhakim/docs-crawler/internal/robots"
	"github.com/rohmanhakim/docs-crawler/internal/sanitizer"
	"github.com/rohmanhakim/docs-crawler/internal/sitemap"
	"github.com/rohmanhakim/docs-crawler/internal/storage"
	"github.com/rohmanhakim/docs-crawler/internal/visited"
	"github.com/rohmanhakim/docs-crawler/pkg/failure"
	"github.com/rohmanhakim/docs-crawler/pkg/hashutil"
	"github.com/rohmanhakim/docs-crawler/pkg/limiter"
	"github.com/rohmanhakim/docs-crawler/pkg/retry"
	"github.com/rohmanhakim/docs-crawler/pkg/timeutil"
	"github.com/rohmanhakim/docs-crawler/pkg/urlutil"
)

/*
 Scheduler is the sole control-plane authority of the crawl.

 Determinism and admission guarantees:
 - Scheduler is the ONLY component allowed to decide whether a URL
   may enter the crawl frontier.
 - All semantic admission checks (robots.txt, scope, depth, limits)
   MUST be completed before submitting a URL to the frontier.
 - No other component may enqueue, reject, or reorder URLs.
 - The frontier should only accept already-admitted URLs.
 - Pipeline stages may detect and classify failure, but must never decide retry, continuation, or abortion.

 The scheduler coordinates pipeline execution but does not delegate
 control-flow decisions to downstream stages.

 Metadata emission is observational only and MUST NOT influence
 scheduling, retries, or crawl termination.

 Scheduler Responsibilities:
 - Coordinate crawl lifecycle
 - Enforce global limits (pages, depth)
 - Manage graceful shutdown
 - Aggregate crawl statistics
 - Decide whether a robots outcome proceeds to the frontier.
 - The sole authority on:
	- retry
	- continue
	- abort
 TODO:
	- Introduce worker-scoped recorders when concurrency exists
*/

type Scheduler struct {
	ctx                    context.Context
	metadataSink           metadata.MetadataSink
	crawlFinalizer         metadata.CrawlFinalizer
	robot                  robots.Robot
	frontier               frontier.Frontier
	htmlFetcher            fetcher.Fetcher
	domExtractor           extractor.Extractor
	htmlSanitizer          sanitizer.Sanitizer
	markdownConversionRule mdconvert.ConvertRule
	assetResolver          assets.Resolver
	markdownConstraint     normalize.Constraint
	storageSink            storage.Sink
	writeResults           []storage.WriteResult
	currentHost            string
	rateLimiter            limiter.RateLimiter
	sleeper                timeutil.Sleeper

	// The fields below are resolved per-run from config by
	// InitializeCrawling and left nil by NewSchedulerWithDeps, so every
	// existing direct-dependency test keeps exercising the same no-op
	// defaults it always has. SubmitUrlForAdmission and the crawl loop
	// treat each of them as optional.
	visitedSet       *visited.Set
	budgetTracker    *budget.Tracker
	cacheStore       cache.Cache
	dedupImpl        *dedup.Deduplicator
	incrementalStore *incremental.Store
	urlFilter        filter.Filter
	contentPlugins   []extractor.Plugin
	runID            string
	paused           int32
	seq              int
}

func NewScheduler() Scheduler {
	recorder := metadata.NewRecorder(nil)
	cachedRobot := robots.NewCachedRobot(&recorder)
	crawlFrontier := frontier.NewCrawlFrontier()
	fetcher := fetcher.NewHtmlFetcher(&recorder)
	fetcher.Init(&http.Client{}, "docs-crawler/1.0")
	ext := extractor.NewDomExtractor(&recorder)
	sanitizer := sanitizer.NewHTMLSanitizer(&recorder)
	conversionRule := mdconvert.NewRule(&recorder)
	resolver := assets.NewLocalResolver(&recorder, &http.Client{}, "docs-crawler/1.0")
	markdownConstraint := normalize.NewMarkdownConstraint(&recorder)
	storageSink := storage.NewSink(&recorder)
	rateLimiter := limiter.NewConcurrentRateLimiter()
	sleeper := timeutil.NewRealSleeper()
	return Scheduler{
		metadataSink:           &recorder,
		crawlFinalizer:         &recorder,
		robot:                  &cachedRobot,
		frontier:               crawlFrontier,
		htmlFetcher:            &fetcher,
		domExtractor:           &ext,
		htmlSanitizer:          &sanitizer,
		markdownConversionRule: conversionRule,
		assetResolver:          &resolver,
		markdownConstraint:     &markdownConstraint,
		storageSink:            storageSink,
		rateLimiter:            rateLimiter,
		sleeper:                &sleeper,
	}
}

// NewSchedulerWithDeps creates a Scheduler with injected dependencies for testing.
// This constructor allows tests to provide mock implementations of metadata interfaces
// to verify behavior without relying on real infrastructure. Any dependency left nil
// falls back to the same concrete implementation NewScheduler wires up, so a test only
// has to mock the collaborators it actually cares about.
func NewSchedulerWithDeps(
	ctx context.Context,
	crawlFinalizer metadata.CrawlFinalizer,
	metadataSink metadata.MetadataSink,
	rateLimiter limiter.RateLimiter,
	frontierImpl frontier.Frontier,
	robot robots.Robot,
	htmlFetcher fetcher.Fetcher,
	domExtractor extractor.Extractor,
	htmlSanitizer sanitizer.Sanitizer,
	rule mdconvert.ConvertRule,
	resolver assets.Resolver,
	markdownConstraint normalize.Constraint,
	storageSink storage.Sink,
	sleeper timeutil.Sleeper,
) Scheduler {
	if metadataSink == nil {
		metadataSink = metadata.NoopSink{}
	}
	if frontierImpl == nil {
		frontierImpl = frontier.NewCrawlFrontier()
	}
	if robot == nil {
		cachedRobot := robots.NewCachedRobot(metadataSink)
		robot = &cachedRobot
	}
	if htmlFetcher == nil {
		f := fetcher.NewHtmlFetcher(metadataSink)
		f.Init(&http.Client{}, "docs-crawler/1.0")
		htmlFetcher = &f
	}
	if domExtractor == nil {
		ext := extractor.NewDomExtractor(metadataSink)
		domExtractor = &ext
	}
	if htmlSanitizer == nil {
		s := sanitizer.NewHTMLSanitizer(metadataSink)
		htmlSanitizer = &s
	}
	if rule == nil {
		rule = mdconvert.NewRule(metadataSink)
	}
	if resolver == nil {
		r := assets.NewLocalResolver(metadataSink, &http.Client{}, "docs-crawler/1.0")
		resolver = &r
	}
	if storageSink == nil {
		storageSink = storage.NewSink(metadataSink)
	}
	if rateLimiter == nil {
		rateLimiter = limiter.NewConcurrentRateLimiter()
	}
	if sleeper == nil {
		sleeper = timeutil.NewRealSleeper()
	}
	if markdownConstraint == nil {
		constraint := normalize.NewMarkdownConstraint(metadataSink)
		markdownConstraint = &constraint
	}
	return Scheduler{
		ctx:                    ctx,
		metadataSink:           metadataSink,
		crawlFinalizer:         crawlFinalizer,
		robot:                  robot,
		frontier:               frontierImpl,
		htmlFetcher:            htmlFetcher,
		domExtractor:           domExtractor,
		htmlSanitizer:          htmlSanitizer,
		markdownConversionRule: rule,
		assetResolver:          resolver,
		markdownConstraint:     markdownConstraint,
		storageSink:            storageSink,
		rateLimiter:            rateLimiter,
		sleeper:                sleeper,
	}
}

// SubmitUrlForAdmission performs all semantic checks required for a URL
// to enter the crawl frontier.
//
// This function is the single admission choke point for the system.
// If this function returns nil, the URL is guaranteed to be admissible
// and safe to submit to the frontier.
//
// No other code path may call Frontier.Submit.
// - Only the scheduler imports frontier
// - Only the scheduler constructs CrawlAdmissionCandidate
// - Pipeline stages never see frontier types
func (s *Scheduler) SubmitUrlForAdmission(
	url url.URL,
	sourceContext frontier.SourceContext,
	depth int,
) failure.ClassifiedError {
	// A tripped budget closes admission outright: no further robots check,
	// no further frontier growth, regardless of source.
	if s.budgetTracker != nil && s.budgetTracker.Tripped() {
		return nil
	}

	// Scope/pattern rejection happens before robots: a blocked extension
	// or query parameter is never worth a robots.txt round trip.
	if s.urlFilter != nil && !s.urlFilter.IsAllowed(url) {
		return nil
	}

	// Fetch robots.txt
	robotsDecision, robotsError := s.robot.Decide(url)
	// Robots infrastructure failure → scheduler-level error
	if robotsError != nil {
		return robotsError
	}

	// Reset backoff after successful robots request
	if s.rateLimiter != nil {
		s.rateLimiter.ResetBackoff(url.Host)
	}

	if robotsDecision.CrawlDelay > 0 && s.rateLimiter != nil {
		s.rateLimiter.SetCrawlDelay(s.currentHost, robotsDecision.CrawlDelay)
	}

	// Robots explicitly disallowed → normal, terminal outcome
	if !robotsDecision.Allowed {
		// Important:
		// - metadata already emitted by robots
		// - NO retry
		// - NO abort
		// - NO frontier submission
		// TODO: record to metadataSink that robots explcitly disallowed the URL
		return nil
	}

	// Only submit to frontier if robots allowed
	candidate := frontier.NewCrawlAdmissionCandidate(
		robotsDecision.Url,
		sourceContext,
		frontier.DiscoveryMetadata{
			Depth: depth,
		},
	)

	// Submit Allowed URL for Admission by Frontier
	s.frontier.Submit(candidate)
	return nil
}

// InitializeCrawling resolves the crawl config, primes the rate limiter,
// frontier, and extractor, and admits the seed URL. It is the first half of
// the crawl lifecycle; ExecuteCrawlingWithState runs the actual fetch loop.
// Splitting the two lets a caller re-run the fetch loop against the same
// resolved config without paying for config parsing or seed admission twice.
//
// Final crawl stats are recorded here only on failure, since a failed init
// never reaches ExecuteCrawlingWithState to record them itself.
func (s *Scheduler) InitializeCrawling(configPath string) (*CrawlInitialization, error) {
	cfg, err := config.WithConfigFile(configPath)
	if err != nil {
		s.metadataSink.RecordError(
			time.Now(),
			"config",
			"config.WithConfigFile",
			metadata.CauseContentInvalid,
			err.Error(),
			[]metadata.Attribute{
				metadata.NewAttr(metadata.AttrField, fmt.Sprintf("field: %v", "theFieldError")),
			},
		)
		s.crawlFinalizer.RecordFinalCrawlStats(s.frontier.VisitedCount(), 0, 0, 0)
		return nil, err
	}
	return s.InitializeCrawlingWithConfig(cfg)
}

// InitializeCrawlingWithConfig runs the same setup as InitializeCrawling but
// takes an already-resolved config.Config, so callers that build their
// config in-process (the CLI, driven from flags rather than a config file)
// don't have to round-trip it through a temporary file on disk.
func (s *Scheduler) InitializeCrawlingWithConfig(cfg config.Config) (*CrawlInitialization, error) {
	initStartTime := time.Now()
	recordInitFailureStats := func() {
		s.crawlFinalizer.RecordFinalCrawlStats(
			s.frontier.VisitedCount(),
			0,
			0,
			time.Since(initStartTime),
		)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout())
	if s.ctx == nil {
		s.ctx = ctx
	}

	// Validate that at least one seed URL exists
	if len(cfg.SeedURLs()) == 0 {
		err := fmt.Errorf("no seed URLs configured")
		s.metadataSink.RecordError(
			time.Now(),
			"config",
			"config validation",
			metadata.CauseContentInvalid,
			err.Error(),
			[]metadata.Attribute{},
		)
		recordInitFailureStats()
		cancel()
		return nil, err
	}

	// 1.1 Initialize rate limiter
	s.rateLimiter.SetBaseDelay(cfg.BaseDelay())
	s.rateLimiter.SetJitter(cfg.Jitter())
	s.rateLimiter.SetRandomSeed(cfg.RandomSeed())

	// 1.2 Initialize Robots and Frontier
	s.robot.Init(cfg.UserAgent())
	s.frontier.Init(cfg)

	// 1.3 Configure DOM Extractor with extraction parameters from config
	extractParam := extractor.ExtractParam{
		BodySpecificityBias:  cfg.BodySpecificityBias(),
		LinkDensityThreshold: cfg.LinkDensityThreshold(),
		ScoreMultiplier: extractor.ContentScoreMultiplier{
			NonWhitespaceDivisor: cfg.ScoreMultiplierNonWhitespaceDivisor(),
			Paragraphs:           cfg.ScoreMultiplierParagraphs(),
			Headings:             cfg.ScoreMultiplierHeadings(),
			CodeBlocks:           cfg.ScoreMultiplierCodeBlocks(),
			ListItems:            cfg.ScoreMultiplierListItems(),
		},
		Threshold: extractor.MeaningfulThreshold{
			MinNonWhitespace:    cfg.ThresholdMinNonWhitespace(),
			MinHeadings:         cfg.ThresholdMinHeadings(),
			MinParagraphsOrCode: cfg.ThresholdMinParagraphsOrCode(),
			MaxLinkDensity:      cfg.ThresholdMaxLinkDensity(),
		},
	}
	s.domExtractor.SetExtractParam(extractParam)

	// 1.4 Build the per-run components that only make sense once cfg is
	// resolved: visited-claim gate, budget tracker, content cache, content
	// dedup, incremental conditional-GET store, URL scope filter, and
	// the enabled content extractor plugins. Every one of these is left
	// nil when its corresponding config surface is off, so
	// SubmitUrlForAdmission and the crawl loop's nil checks are the only
	// thing standing between "off" and "on" for each concern.
	s.visitedSet = visited.New()
	s.runID = fmt.Sprintf("%s-%d", cfg.SeedURLs()[0].Host, initStartTime.UnixNano())

	s.budgetTracker = budget.NewTracker(budget.Limits{
		MaxPages:   cfg.MaxPages(),
		MaxBytes:   cfg.MaxBytes(),
		MaxElapsed: cfg.MaxDuration(),
	}, timeutil.NewRealClock())

	if cfg.CacheEnabled() {
		if cfg.CacheDir() != "" {
			disk, cacheErr := cache.NewDiskCache(cfg.CacheDir(), timeutil.NewRealClock())
			if cacheErr != nil {
				s.metadataSink.RecordError(
					time.Now(), "cache", "cache.NewDiskCache", metadata.CauseContentInvalid,
					cacheErr.Message, []metadata.Attribute{},
				)
			} else {
				s.cacheStore = disk
			}
		} else {
			s.cacheStore = cache.NewMemoryCache(timeutil.NewRealClock())
		}
	}

	if cfg.DedupEnabled() {
		s.dedupImpl = dedup.New(hashutil.HashAlgo(cfg.DedupHashAlgo()), cfg.DedupMinContentLen(), cfg.DedupNormalizeText())
	}

	if cfg.IncrementalEnabled() {
		s.incrementalStore = incremental.New()
	}

	if len(cfg.AllowURLPatterns()) > 0 || len(cfg.BlockURLPatterns()) > 0 ||
		len(cfg.AllowExtensions()) > 0 || len(cfg.BlockExtensions()) > 0 ||
		len(cfg.AllowQueryParams()) > 0 || len(cfg.BlockQueryParams()) > 0 {
		urlFilter, filterErr := filter.New(
			cfg.AllowURLPatterns(), cfg.BlockURLPatterns(),
			cfg.AllowExtensions(), cfg.BlockExtensions(),
			cfg.AllowQueryParams(), cfg.BlockQueryParams(),
			nil,
		)
		if filterErr != nil {
			s.metadataSink.RecordError(
				time.Now(), "filter", "filter.New", metadata.CauseContentInvalid,
				filterErr.Error(), []metadata.Attribute{},
			)
		} else {
			s.urlFilter = urlFilter
		}
	}

	s.contentPlugins = s.contentPlugins[:0]
	if cfg.KeywordExtractionEnabled() {
		s.contentPlugins = append(s.contentPlugins, extractor.NewKeywordPlugin())
	}
	if cfg.TableExtractionEnabled() {
		s.contentPlugins = append(s.contentPlugins, extractor.NewTablePlugin())
	}
	if cfg.ImageExtractionEnabled() {
		s.contentPlugins = append(s.contentPlugins, extractor.NewImagePlugin())
	}

	// 2. Fetch robots.txt & decide the crawling policy for this hostname based on that
	s.currentHost = cfg.SeedURLs()[0].Host
	seedScheme := cfg.SeedURLs()[0].Scheme
	err := s.SubmitUrlForAdmission(cfg.SeedURLs()[0], frontier.SourceSeed, 0)
	if err != nil {
		// Check if this is a robots error that requires backoff
		if robotsErr, ok := err.(*robots.RobotsError); ok {
			s.recordRobotsErrorAndBackoff(robotsErr, cfg.SeedURLs()[0])
		}
		recordInitFailureStats()
		cancel()
		return nil, err
	}

	// 2.1 Bootstrap from sitemaps, if configured: every discovered loc is
	// admitted exactly like a crawl-discovered link, just tagged by its
	// own source context for observability.
	if cfg.SitemapEnabled() && len(cfg.SitemapURLs()) > 0 {
		bootstrapper := sitemap.NewBootstrapper(&httpSitemapGetter{client: &http.Client{Timeout: cfg.Timeout()}}, s.metadataSink)
		candidates := make([]string, 0, len(cfg.SitemapURLs()))
		for _, u := range cfg.SitemapURLs() {
			candidates = append(candidates, u.String())
		}
		for _, entry := range bootstrapper.Collect(s.ctx, candidates) {
			entryURL, parseErr := url.Parse(entry.Loc)
			if parseErr != nil {
				continue
			}
			if submissionErr := s.SubmitUrlForAdmission(*entryURL, frontier.SourceSitemap, 0); submissionErr != nil {
				if robotsErr, ok := submissionErr.(*robots.RobotsError); ok {
					s.recordRobotsErrorAndBackoff(robotsErr, *entryURL)
				}
			}
		}
	}

	// Apply rate limiting delay after successful robots check
	delay := s.rateLimiter.ResolveDelay(s.currentHost)
	s.sleeper.Sleep(delay)

	return &CrawlInitialization{
		cfg:                 cfg,
		currentHost:         s.currentHost,
		seedScheme:          seedScheme,
		initialDelayApplied: true,
		cancel:              cancel,
		runID:               s.runID,
	}, nil
}

// httpSitemapGetter adapts *http.Client to sitemap.Fetcher.
type httpSitemapGetter struct {
	client *http.Client
}

func (g *httpSitemapGetter) Get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	return g.client.Do(req)
}

// dispatchJob is one frontier token tagged with its dispatch order. Workers
// never see the frontier directly; they only ever see the job handed to
// them and report a PipelineOutcome carrying the same Seq back.
type dispatchJob struct {
	seq   int
	token frontier.CrawlToken
}

// ExecuteCrawlingWithState runs the fetch/extract/convert/write loop against
// a frontier already primed by InitializeCrawling. Final crawl stats are
// always recorded here, covering only the execution phase's duration.
//
// Each round drains every token currently queued and fans them out across
// cfg.Concurrency() worker goroutines; the dispatcher (this goroutine) is
// the only one that ever touches s.frontier, s.writeResults, or calls
// SubmitUrlForAdmission, and it always does so in dispatch order, buffering
// outcomes that complete out of order until every earlier Seq has landed.
// That keeps writeResults ordered by dispatch order under genuine
// concurrency, matching what the old strictly-sequential loop produced.
func (s *Scheduler) ExecuteCrawlingWithState(init *CrawlInitialization) (CrawlingExecution, error) {
	crawlStartTime := time.Now()
	defer init.cancel()

	cfg := init.cfg
	seedScheme := init.seedScheme

	workerCount := cfg.Concurrency()
	if workerCount < 1 {
		workerCount = 1
	}

	// Statistics tracking
	var totalErrors int
	var totalAssets int

	// Ensure final stats are recorded even if errors occur
	defer func() {
		crawlDuration := time.Since(crawlStartTime)
		totalPages := s.frontier.VisitedCount()
		s.crawlFinalizer.RecordFinalCrawlStats(
			totalPages,
			totalErrors,
			totalAssets,
			crawlDuration,
		)
	}()

	for {
		if s.budgetTracker != nil && s.budgetTracker.Tripped() {
			break
		}
		s.waitWhileResumed()

		batch := s.drainBatch()
		if len(batch) == 0 {
			break
		}

		outcomes := s.runBatch(cfg, seedScheme, batch, workerCount)

		for _, outcome := range outcomes {
			totalErrors += outcome.ErrorCount

			for _, discoveredurl := range outcome.DiscoveredURLs {
				submissionErr := s.SubmitUrlForAdmission(discoveredurl, frontier.SourceCrawl, outcome.Token.Depth()+1)
				if submissionErr != nil {
					if robotsErr, ok := submissionErr.(*robots.RobotsError); ok {
						s.recordRobotsErrorAndBackoff(robotsErr, discoveredurl)
					}
					totalErrors++
				}
			}

			if outcome.ReadyToWrite {
				writeResult, writeErr := s.storageSink.Write(outcome.Normalized)
				if writeErr != nil {
					if writeErr.Severity() == failure.SeverityFatal {
						return CrawlingExecution{}, writeErr
					}
					totalErrors++
				} else {
					s.writeResults = append(s.writeResults, writeResult)
				}
			}

			totalAssets += outcome.AssetCount

			if outcome.Abort {
				return CrawlingExecution{}, outcome.FatalErr
			}
		}

		// Apply rate limiting delay once per round, matching the per-page
		// delay the sequential loop applied after every dequeue.
		delay := s.rateLimiter.ResolveDelay(s.currentHost)
		s.sleeper.Sleep(delay)
	}

	// Stats are recorded by defer - return successful execution result
	return CrawlingExecution{
		writeResults: s.writeResults,
	}, nil
}

// drainBatch dequeues every token currently available from the frontier and
// tags each with the next dispatch sequence number. A token the visited set
// has already claimed through some other path (e.g. a sitemap entry that
// also appeared as a discovered link) is silently skipped rather than
// reprocessed.
func (s *Scheduler) drainBatch() []dispatchJob {
	var batch []dispatchJob
	for {
		token, ok := s.frontier.Dequeue()
		if !ok {
			break
		}
		if s.visitedSet != nil {
			tokenURL := token.URL()
			if !s.visitedSet.Claim(tokenURL.String()) {
				continue
			}
		}
		s.seq++
		batch = append(batch, dispatchJob{seq: s.seq, token: token})
	}
	return batch
}

// runBatch fans batch out across workerCount goroutines and returns every
// outcome ordered by dispatch sequence, regardless of which worker finished
// first.
func (s *Scheduler) runBatch(cfg config.Config, seedScheme string, batch []dispatchJob, workerCount int) []PipelineOutcome {
	if workerCount > len(batch) {
		workerCount = len(batch)
	}

	jobs := make(chan dispatchJob)
	results := make(chan PipelineOutcome, len(batch))

	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				outcome := s.processToken(cfg, seedScheme, job.token)
				outcome.Seq = job.seq
				results <- outcome
			}
		}()
	}

	go func() {
		for _, job := range batch {
			jobs <- job
		}
		close(jobs)
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	pending := make(map[int]PipelineOutcome, len(batch))
	ordered := make([]PipelineOutcome, 0, len(batch))
	next := batch[0].seq
	for outcome := range results {
		pending[outcome.Seq] = outcome
		for {
			o, ok := pending[next]
			if !ok {
				break
			}
			ordered = append(ordered, o)
			delete(pending, next)
			next++
		}
	}
	return ordered
}

// processToken runs one claimed token through fetch, extraction, content
// plugins, sanitize, convert, resolve, and normalize. It never touches the
// frontier or storageSink directly — every side effect a worker would
// otherwise cause is reported back through the returned PipelineOutcome for
// the dispatcher to apply in sequence order.
func (s *Scheduler) processToken(cfg config.Config, seedScheme string, token frontier.CrawlToken) PipelineOutcome {
	outcome := PipelineOutcome{Token: token}
	pageURL := token.URL()
	cacheKey := pageURL.String()

	var fetchResult fetcher.FetchResult
	fromCache := false
	if s.cacheStore != nil {
		if cached, hit := s.cacheStore.Get(cacheKey); hit {
			fetchResult = fetcher.NewCachedFetchResult(pageURL, []byte(cached), time.Now())
			fromCache = true
		}
	}

	if !fromCache {
		var err failure.ClassifiedError
		if s.incrementalStore != nil {
			headers := s.incrementalStore.ConditionalHeaders(cacheKey)
			fetchResult, err = s.htmlFetcher.FetchConditional(s.ctx, token.Depth(), pageURL, RetryParam(cfg), headers)
		} else {
			fetchResult, err = s.htmlFetcher.Fetch(s.ctx, token.Depth(), pageURL, RetryParam(cfg))
		}
		if err != nil {
			if err.Severity() == failure.SeverityFatal {
				outcome.Abort, outcome.FatalErr = true, err
				return outcome
			}
			outcome.ErrorCount++
			return outcome
		}

		if s.incrementalStore != nil {
			headers := fetchResult.Headers()
			s.incrementalStore.RecordResponse(cacheKey, fetchResult.Code(), headers["ETag"], headers["Last-Modified"])
			if fetchResult.NotModified() {
				// Nothing changed since the prior crawl of this URL; no
				// re-extraction and no rewrite, per the conditional-GET
				// contract incremental.Store documents.
				return outcome
			}
		}

		if s.budgetTracker != nil {
			s.budgetTracker.RecordPage(int64(fetchResult.SizeByte()))
		}

		if s.cacheStore != nil {
			s.cacheStore.Put(cacheKey, string(fetchResult.Body()), cfg.CacheTTL())
		}
	}

	if s.dedupImpl != nil && s.dedupImpl.IsDuplicate(fetchResult.Body(), cacheKey) {
		return outcome
	}

	// 4. Extract HTML DOM
	extractionResult, err := s.domExtractor.Extract(fetchResult.URL(), fetchResult.Body())
	if err != nil {
		if err.Severity() == failure.SeverityFatal {
			outcome.Abort, outcome.FatalErr = true, err
			return outcome
		}
		outcome.ErrorCount++
		return outcome
	}

	s.runContentPlugins(extractionResult.ContentNode)

	// 5. Sanitize extracted HTML
	sanitizedHtml, err := s.htmlSanitizer.Sanitize(extractionResult.ContentNode)
	if err != nil {
		if err.Severity() == failure.SeverityFatal {
			outcome.Abort, outcome.FatalErr = true, err
			return outcome
		}
		outcome.ErrorCount++
		return outcome
	}

	// 5.2-5.4 Resolve relative discovered URLs to absolute form and keep
	// only ones on the current host.
	discoveredURLs := sanitizedHtml.GetDiscoveredURLs()
	resolvedURLs := make([]url.URL, 0, len(discoveredURLs))
	for _, u := range discoveredURLs {
		resolvedURLs = append(resolvedURLs, urlutil.Resolve(u, seedScheme, s.currentHost))
	}
	outcome.DiscoveredURLs = urlutil.FilterByHost(s.currentHost, resolvedURLs)

	// 6. HTML → Markdown Conversion
	markdownDoc, err := s.markdownConversionRule.Convert(sanitizedHtml)
	if err != nil {
		if err.Severity() == failure.SeverityFatal {
			outcome.Abort, outcome.FatalErr = true, err
			return outcome
		}
		outcome.ErrorCount++
		return outcome
	}

	// 7. Assets Resolution
	resolveParam := assets.NewResolveParam(cfg.OutputDir(), cfg.MaxFileBytes())
	assetfulMarkdown, err := s.assetResolver.Resolve(
		s.ctx,
		fetchResult.URL(),
		markdownDoc,
		resolveParam,
		RetryParam(cfg),
	)
	if err != nil {
		if err.Severity() == failure.SeverityFatal {
			outcome.Abort, outcome.FatalErr = true, err
			return outcome
		}
		outcome.ErrorCount++
		// Continue to process the markdown even if asset resolution had errors
	}
	outcome.AssetCount = len(assetfulMarkdown.LocalAssets())

	// 8. Markdown Normalization
	normalizeParam := normalize.NewNormalizeParam(
		build.FullVersion(),
		fetchResult.FetchedAt(),
		hashutil.HashAlgo(cfg.DedupHashAlgo()),
		token.Depth(),
		cfg.AllowedPathPrefix(),
	)
	normalizedMarkdown, err := s.markdownConstraint.Normalize(fetchResult.URL(), assetfulMarkdown, normalizeParam)
	if err != nil {
		if err.Severity() == failure.SeverityFatal {
			outcome.Abort, outcome.FatalErr = true, err
			return outcome
		}
		outcome.ErrorCount++
		return outcome
	}

	outcome.Normalized = normalizedMarkdown
	outcome.ReadyToWrite = true
	return outcome
}

// runContentPlugins runs every enabled extractor.Plugin over the isolated
// content node through a pipeline.Runner: each plugin contributes an
// independent field (keywords, tables, images) and one plugin panicking or
// erroring must never block another's field from landing, which is exactly
// the revert-and-continue contract pipeline.Runner already provides for
// per-stage failures. Results are merged into a scratch artifact and
// recorded for observability; they do not gate fetch/convert/write.
func (s *Scheduler) runContentPlugins(contentNode *html.Node) {
	if len(s.contentPlugins) == 0 || contentNode == nil {
		return
	}

	doc := goquery.NewDocumentFromNode(contentNode)
	stages := make([]pipeline.Stage, 0, len(s.contentPlugins))
	for _, plugin := range s.contentPlugins {
		plugin := plugin
		stages = append(stages, pipeline.StageFunc{
			StageName: plugin.Name(),
			Fn: func(a *artifact.PageArtifact) (pipeline.Result, error) {
				fields, pluginErr := plugin.Extract(doc)
				if pluginErr != nil {
					return pipeline.Result{}, pluginErr
				}
				for k, v := range fields {
					a.Extracted[k] = v
				}
				return pipeline.Result{Artifact: a}, nil
			},
		})
	}

	runner := pipeline.New(stages, s.metadataSink)
	runner.Run(artifact.New(s.currentHost, time.Now(), artifact.CrawlMeta{RunID: s.runID}))
}

// waitWhileResumed blocks the dispatcher loop while the crawl is paused
// (§4.10), polling in small increments rather than a condition variable so
// Resume needs no separate wakeup signal.
func (s *Scheduler) waitWhileResumed() {
	for atomic.LoadInt32(&s.paused) == 1 {
		s.sleeper.Sleep(pausePollInterval)
	}
}

const pausePollInterval = 100 * time.Millisecond

// Pause halts dispatch of new batches until Resume is called. In-flight
// batches already dispatched still finish.
func (s *Scheduler) Pause() {
	atomic.StoreInt32(&s.paused, 1)
}

// Resume un-halts a paused crawl.
func (s *Scheduler) Resume() {
	atomic.StoreInt32(&s.paused, 0)
}

// Paused reports whether the crawl is currently paused.
func (s *Scheduler) Paused() bool {
	return atomic.LoadInt32(&s.paused) == 1
}

// SaveCheckpoint serializes the current frontier/visited/results state to
// cfg.CheckpointPath() so a paused or interrupted crawl can resume later
// (§8). A blank CheckpointPath is a no-op: checkpointing is opt-in.
func (s *Scheduler) SaveCheckpoint(init *CrawlInitialization, now time.Time) *checkpoint.CheckpointError {
	path := init.cfg.CheckpointPath()
	if path == "" {
		return nil
	}

	doc := checkpoint.Document{
		Results:  make(map[string]any, len(s.writeResults)),
		Metadata: map[string]any{"run_id": s.runID, "current_host": s.currentHost},
	}
	for _, wr := range s.writeResults {
		doc.Results[wr.URLHash()] = wr.Path()
	}
	return checkpoint.Save(path, doc, now)
}

// LoadCheckpoint restores a prior checkpoint document from
// cfg.CheckpointPath(), re-claiming every visited URL it recorded so the
// resumed crawl never refetches a page the prior run already wrote.
func (s *Scheduler) LoadCheckpoint(cfg config.Config) (checkpoint.Document, *checkpoint.CheckpointError) {
	doc, err := checkpoint.Load(cfg.CheckpointPath())
	if err != nil {
		return checkpoint.Document{}, err
	}
	if s.visitedSet == nil {
		s.visitedSet = visited.New()
	}
	for _, u := range doc.VisitedURLs {
		s.visitedSet.Claim(u)
	}
	return doc, nil
}

// ExecuteCrawling runs a full crawl end to end: it resolves configPath via
// InitializeCrawling and then drives the fetch loop via ExecuteCrawlingWithState.
// Current implementation uses a single recorder and single execution path.
// This does not imply a global ordering guarantee.
// TODO: In the future consider implementing global ordering guarantee
func (s *Scheduler) ExecuteCrawling(configPath string) (CrawlingExecution, error) {
	init, err := s.InitializeCrawling(configPath)
	if err != nil {
		return CrawlingExecution{}, err
	}
	return s.ExecuteCrawlingWithState(init)
}

// ExecuteCrawlingWithConfig is the in-process counterpart of ExecuteCrawling
// for callers, such as the CLI, that already hold a resolved config.Config
// rather than a path to one on disk.
func (s *Scheduler) ExecuteCrawlingWithConfig(cfg config.Config) (CrawlingExecution, error) {
	init, err := s.InitializeCrawlingWithConfig(cfg)
	if err != nil {
		return CrawlingExecution{}, err
	}
	return s.ExecuteCrawlingWithState(init)
}

// recordRobotsErrorAndBackoff records a robots error using metadataSink and
// triggers exponential backoff on the rate limiter if the error cause warrants it.
// This method handles ErrCauseHttpTooManyRequests (429) and ErrCauseHttpServerError (5xx)
// by recording the error and applying backoff to the current host.
func (s *Scheduler) recordRobotsErrorAndBackoff(robotsErr *robots.RobotsError, targetURL url.URL) {
	// Only record and backoff for specific HTTP error causes
	if robotsErr.Cause == robots.ErrCauseHttpTooManyRequests ||
		robotsErr.Cause == robots.ErrCauseHttpServerError {
		s.metadataSink.RecordError(
			time.Now(),
			"scheduler",
			"SubmitUrlForAdmission",
			metadata.CauseNetworkFailure,
			robotsErr.Error(),
			[]metadata.Attribute{
				metadata.NewAttr(metadata.AttrURL, targetURL.String()),
				metadata.NewAttr(metadata.AttrHost, targetURL.Host),
				metadata.NewAttr(metadata.AttrPath, targetURL.Path),
			},
		)
		if s.rateLimiter != nil {
			s.rateLimiter.Backoff(targetURL.Host)
		}
	}
}

func RetryParam(cfg config.Config) retry.RetryParam {
	return retry.NewRetryParam(
		cfg.BaseDelay(),
		cfg.Jitter(),
		cfg.RandomSeed(),
		cfg.MaxAttempt(),
		timeutil.NewBackoffParam(
			cfg.BackoffInitialDuration(),
			cfg.BackoffMultiplier(),
			cfg.BackoffMaxDuration(),
		),
	)
}

// ---------------------------------------------------------------------------
// Test Helper Methods
// These methods are exported to enable testing of SubmitUrlForAdmission()
// and other scheduler internals. They are not part of the public API.
// ---------------------------------------------------------------------------

// InitWith initializes the dependencies with the given data.
// This is a test helper method.
func (s *Scheduler) InitWith(userAgent string, baseDelay time.Duration, jitter time.Duration, randomSeed int64) {
	s.robot.Init(userAgent)
	s.rateLimiter.SetBaseDelay(baseDelay)
	s.rateLimiter.SetJitter(jitter)
	s.rateLimiter.SetRandomSeed(randomSeed)
}

// SetCurrentHost sets the current host.
// This is a test helper method to simulate the host context.
func (s *Scheduler) SetCurrentHost(host string) {
	s.currentHost = host
	// s.rateLimiter.RegisterHost(host)
}

// FrontierVisitedCount returns the number of URLs in the frontier's visited set.
// This is a test helper method to verify frontier state.
func (s *Scheduler) FrontierVisitedCount() int {
	if s.frontier == nil {
		return 0
	}
	return s.frontier.VisitedCount()
}

// DequeueFromFrontier dequeues a token from the frontier.
// This is a test helper method to verify frontier contents.
func (s *Scheduler) DequeueFromFrontier() (frontier.CrawlToken, bool) {
	if s.frontier == nil {
		return frontier.CrawlToken{}, false
	}
	return s.frontier.Dequeue()
}

// SetConvertRule sets the markdown conversion rule for testing.
// This is a test helper method to inject mock conversion rules.
func (s *Scheduler) SetConvertRule(rule mdconvert.ConvertRule) {
	s.markdownConversionRule = rule
}
