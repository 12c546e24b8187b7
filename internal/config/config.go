package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	//===============
	//  Crawl scope
	//===============
	// Initial pages to give to the crawler to begin discovering and traversing other pages.
	seedURLs []url.URL
	// Whitelisted hostname. Build fills an empty set with the seed URL hostnames
	allowedHosts map[string]struct{}
	// Which URL path segments are permitted to be fetched and traversed, even if the links are on the same domain
	allowedPathPrefix []string
	// internalOnly restricts traversal to the seed host(s); violators are recorded, not fetched
	internalOnly bool
	// samePathOnly restricts traversal to URLs whose path shares the seed's path prefix
	samePathOnly bool

	//===============
	// Limits
	//===============
	// Maximum number of hyperlink hops from a seed (root) URL
	maxDepth int
	// Maximum number of total documents are allowed to be fetched
	maxPages int
	// Maximum cumulative bytes downloaded before the budget latches; 0 means unlimited
	maxBytes int64
	// Maximum wall-clock duration of the run before the budget latches; 0 means unlimited
	maxDuration time.Duration
	// Maximum size of a single downloaded file; files over this are declined, crawling continues
	maxFileBytes int64
	// Maximum frontier size; items submitted past capacity are dropped
	maxQueueSize int

	//===============
	// Politeness
	//===============
	// Maximum number of crawl worker goroutines processing URLs concurrently;
	// it does not control OS threads or CPU parallelism.
	concurrency int
	// Minimum, fixed waiting time you enforce between two HTTP requests to the same host.
	baseDelay time.Duration
	// Randomized variation added on top of the base delay.
	// Intentional randomness applied to timing.
	jitter time.Duration
	// Controls the random number generator
	randomSeed int64
	// maximum attempt during retry
	maxAttempt int
	// initial delay for backoff
	backoffInitialDuration time.Duration
	// multiplier during exponential backoff
	backoffMultiplier float64
	// capped maximum delay for backoff to stop exponential multiplication
	backoffMaxDuration time.Duration
	// respectRobots gates every admission decision on robots.txt
	respectRobots bool
	// dynamicRateAdjustment enables response-time/error-rate driven delay adjustment (spec §4.3 dynamic variant)
	dynamicRateAdjustment bool

	//===============
	// Fetch
	//===============
	// Maximum time of a single fetch request
	timeout time.Duration
	// User agent that will be used in the request header. In raw string
	userAgent string

	//===============
	// Cache
	//===============
	cacheEnabled bool
	cacheDir     string
	cacheTTL     time.Duration

	//===============
	// Deduplication
	//===============
	dedupEnabled       bool
	dedupMinContentLen int
	dedupNormalizeText bool
	dedupHashAlgo      string

	//===============
	// Sitemap bootstrap
	//===============
	sitemapEnabled bool
	sitemapURLs    []url.URL

	//===============
	// Incremental (conditional GET)
	//===============
	incrementalEnabled bool

	//===============
	// Filter
	//===============
	allowURLPatterns []string
	blockURLPatterns []string
	allowExtensions  []string
	blockExtensions  []string
	allowQueryParams []string
	blockQueryParams []string

	//===============
	// Scheduling
	//===============
	// schedulingModel ∈ {sync-single, sync-multi, async}; see spec §5
	schedulingModel string
	checkpointPath  string

	//===============
	// Output
	//===============
	// Root directory in which to store the resulting artifacts
	outputDir string
	// Whether the program will simulates what it would do without
	// actually performing any irreversible or side-effecting actions
	dryRun bool

	//===============
	// Extraction
	//===============
	// BodySpecificityBias is the threshold for preferring a child container over <body>.
	// If a child node's score is >= BodySpecificityBias * bodyScore, the child is preferred.
	// Default: 0.75 (75%)
	bodySpecificityBias float64
	// LinkDensityThreshold is the maximum ratio of link text to total text before
	// applying a penalty. Higher values allow more link-heavy content.
	// Default: 0.80 (80%)
	linkDensityThreshold                float64
	scoreMultiplierNonWhitespaceDivisor float64
	scoreMultiplierParagraphs           float64
	scoreMultiplierHeadings             float64
	scoreMultiplierCodeBlocks           float64
	scoreMultiplierListItems            float64
	thresholdMinNonWhitespace           int
	thresholdMinHeadings                int
	thresholdMinParagraphsOrCode        int
	thresholdMaxLinkDensity             float64
	keywordExtractionEnabled            bool
	tableExtractionEnabled              bool
	imageExtractionEnabled              bool
	markdownExtractionEnabled           bool
	pdfExtractionEnabled                bool
}

type configDTO struct {
	SeedURLs               []url.URL           `json:"seedUrls" yaml:"seedUrls"`
	AllowedHosts           map[string]struct{} `json:"allowedHosts,omitempty" yaml:"allowedHosts,omitempty"`
	AllowedPathPrefix      []string            `json:"allowedPathPrefix,omitempty" yaml:"allowedPathPrefix,omitempty"`
	InternalOnly           bool                `json:"internalOnly,omitempty" yaml:"internalOnly,omitempty"`
	SamePathOnly           bool                `json:"samePathOnly,omitempty" yaml:"samePathOnly,omitempty"`
	MaxDepth               int                 `json:"maxDepth,omitempty" yaml:"maxDepth,omitempty"`
	MaxPages               int                 `json:"maxPages,omitempty" yaml:"maxPages,omitempty"`
	MaxBytes               int64               `json:"maxBytes,omitempty" yaml:"maxBytes,omitempty"`
	MaxDuration            time.Duration       `json:"maxDuration,omitempty" yaml:"maxDuration,omitempty"`
	MaxFileBytes           int64               `json:"maxFileBytes,omitempty" yaml:"maxFileBytes,omitempty"`
	MaxQueueSize           int                 `json:"maxQueueSize,omitempty" yaml:"maxQueueSize,omitempty"`
	Concurrency            int                 `json:"concurrency,omitempty" yaml:"concurrency,omitempty"`
	BaseDelay              time.Duration       `json:"baseDelay,omitempty" yaml:"baseDelay,omitempty"`
	Jitter                 time.Duration       `json:"jitter,omitempty" yaml:"jitter,omitempty"`
	RandomSeed             int64               `json:"randomSeed,omitempty" yaml:"randomSeed,omitempty"`
	MaxAttempt             int                 `json:"maxAttempt,omitempty" yaml:"maxAttempt,omitempty"`
	BackoffInitialDuration time.Duration       `json:"backoffInitialDuration,omitempty" yaml:"backoffInitialDuration,omitempty"`
	BackoffMultiplier      float64             `json:"backoffMultiplier,omitempty" yaml:"backoffMultiplier,omitempty"`
	BackoffMaxDuration     time.Duration       `json:"backoffMaxDuration,omitempty" yaml:"backoffMaxDuration,omitempty"`
	RespectRobots          bool                `json:"respectRobots,omitempty" yaml:"respectRobots,omitempty"`
	DynamicRateAdjustment  bool                `json:"dynamicRateAdjustment,omitempty" yaml:"dynamicRateAdjustment,omitempty"`
	Timeout                time.Duration       `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	UserAgent              string              `json:"userAgent,omitempty" yaml:"userAgent,omitempty"`
	CacheEnabled           bool                `json:"cacheEnabled,omitempty" yaml:"cacheEnabled,omitempty"`
	CacheDir               string              `json:"cacheDir,omitempty" yaml:"cacheDir,omitempty"`
	CacheTTL               time.Duration       `json:"cacheTTL,omitempty" yaml:"cacheTTL,omitempty"`
	DedupEnabled           bool                `json:"dedupEnabled,omitempty" yaml:"dedupEnabled,omitempty"`
	DedupMinContentLen     int                 `json:"dedupMinContentLen,omitempty" yaml:"dedupMinContentLen,omitempty"`
	DedupNormalizeText     bool                `json:"dedupNormalizeText,omitempty" yaml:"dedupNormalizeText,omitempty"`
	DedupHashAlgo          string              `json:"dedupHashAlgo,omitempty" yaml:"dedupHashAlgo,omitempty"`
	SitemapEnabled         bool                `json:"sitemapEnabled,omitempty" yaml:"sitemapEnabled,omitempty"`
	SitemapURLs            []url.URL           `json:"sitemapUrls,omitempty" yaml:"sitemapUrls,omitempty"`
	IncrementalEnabled     bool                `json:"incrementalEnabled,omitempty" yaml:"incrementalEnabled,omitempty"`
	AllowURLPatterns       []string            `json:"allowUrlPatterns,omitempty" yaml:"allowUrlPatterns,omitempty"`
	BlockURLPatterns       []string            `json:"blockUrlPatterns,omitempty" yaml:"blockUrlPatterns,omitempty"`
	AllowExtensions        []string            `json:"allowExtensions,omitempty" yaml:"allowExtensions,omitempty"`
	BlockExtensions        []string            `json:"blockExtensions,omitempty" yaml:"blockExtensions,omitempty"`
	AllowQueryParams       []string            `json:"allowQueryParams,omitempty" yaml:"allowQueryParams,omitempty"`
	BlockQueryParams       []string            `json:"blockQueryParams,omitempty" yaml:"blockQueryParams,omitempty"`
	SchedulingModel        string              `json:"schedulingModel,omitempty" yaml:"schedulingModel,omitempty"`
	CheckpointPath         string              `json:"checkpointPath,omitempty" yaml:"checkpointPath,omitempty"`
	OutputDir              string              `json:"outputDir,omitempty" yaml:"outputDir,omitempty"`
	DryRun                 bool                `json:"dryRun,omitempty" yaml:"dryRun,omitempty"`

	BodySpecificityBias                 float64 `json:"bodySpecificityBias,omitempty" yaml:"bodySpecificityBias,omitempty"`
	LinkDensityThreshold                float64 `json:"linkDensityThreshold,omitempty" yaml:"linkDensityThreshold,omitempty"`
	ScoreMultiplierNonWhitespaceDivisor float64 `json:"scoreMultiplierNonWhitespaceDivisor,omitempty" yaml:"scoreMultiplierNonWhitespaceDivisor,omitempty"`
	ScoreMultiplierParagraphs           float64 `json:"scoreMultiplierParagraphs,omitempty" yaml:"scoreMultiplierParagraphs,omitempty"`
	ScoreMultiplierHeadings             float64 `json:"scoreMultiplierHeadings,omitempty" yaml:"scoreMultiplierHeadings,omitempty"`
	ScoreMultiplierCodeBlocks           float64 `json:"scoreMultiplierCodeBlocks,omitempty" yaml:"scoreMultiplierCodeBlocks,omitempty"`
	ScoreMultiplierListItems            float64 `json:"scoreMultiplierListItems,omitempty" yaml:"scoreMultiplierListItems,omitempty"`
	ThresholdMinNonWhitespace           int     `json:"thresholdMinNonWhitespace,omitempty" yaml:"thresholdMinNonWhitespace,omitempty"`
	ThresholdMinHeadings                int     `json:"thresholdMinHeadings,omitempty" yaml:"thresholdMinHeadings,omitempty"`
	ThresholdMinParagraphsOrCode        int     `json:"thresholdMinParagraphsOrCode,omitempty" yaml:"thresholdMinParagraphsOrCode,omitempty"`
	ThresholdMaxLinkDensity             float64 `json:"thresholdMaxLinkDensity,omitempty" yaml:"thresholdMaxLinkDensity,omitempty"`
	KeywordExtractionEnabled            bool    `json:"keywordExtractionEnabled,omitempty" yaml:"keywordExtractionEnabled,omitempty"`
	TableExtractionEnabled              bool    `json:"tableExtractionEnabled,omitempty" yaml:"tableExtractionEnabled,omitempty"`
	ImageExtractionEnabled              bool    `json:"imageExtractionEnabled,omitempty" yaml:"imageExtractionEnabled,omitempty"`
	MarkdownExtractionEnabled           bool    `json:"markdownExtractionEnabled,omitempty" yaml:"markdownExtractionEnabled,omitempty"`
	PdfExtractionEnabled                bool    `json:"pdfExtractionEnabled,omitempty" yaml:"pdfExtractionEnabled,omitempty"`
}

func newConfigFromDTO(dto configDTO) (Config, error) {
	cfg, err := WithDefault(dto.SeedURLs).Build()
	if err != nil {
		return Config{}, err
	}

	if len(dto.AllowedHosts) > 0 {
		cfg.allowedHosts = dto.AllowedHosts
	}
	cfg.allowedPathPrefix = dto.AllowedPathPrefix
	cfg.internalOnly = dto.InternalOnly
	cfg.samePathOnly = dto.SamePathOnly

	if dto.MaxDepth != 0 {
		cfg.maxDepth = dto.MaxDepth
	}
	if dto.MaxPages != 0 {
		cfg.maxPages = dto.MaxPages
	}
	if dto.MaxBytes != 0 {
		cfg.maxBytes = dto.MaxBytes
	}
	if dto.MaxDuration != 0 {
		cfg.maxDuration = dto.MaxDuration
	}
	if dto.MaxFileBytes != 0 {
		cfg.maxFileBytes = dto.MaxFileBytes
	}
	if dto.MaxQueueSize != 0 {
		cfg.maxQueueSize = dto.MaxQueueSize
	}
	if dto.Concurrency != 0 {
		cfg.concurrency = dto.Concurrency
	}
	if dto.BaseDelay != 0 {
		cfg.baseDelay = dto.BaseDelay
	}
	if dto.Jitter != 0 {
		cfg.jitter = dto.Jitter
	}
	if dto.RandomSeed != 0 {
		cfg.randomSeed = dto.RandomSeed
	}
	if dto.MaxAttempt != 0 {
		cfg.maxAttempt = dto.MaxAttempt
	}
	if dto.BackoffInitialDuration != 0 {
		cfg.backoffInitialDuration = dto.BackoffInitialDuration
	}
	if dto.BackoffMultiplier != 0 {
		cfg.backoffMultiplier = dto.BackoffMultiplier
	}
	if dto.BackoffMaxDuration != 0 {
		cfg.backoffMaxDuration = dto.BackoffMaxDuration
	}
	cfg.respectRobots = dto.RespectRobots
	cfg.dynamicRateAdjustment = dto.DynamicRateAdjustment

	if dto.Timeout != 0 {
		cfg.timeout = dto.Timeout
	}
	if dto.UserAgent != "" {
		cfg.userAgent = dto.UserAgent
	}

	cfg.cacheEnabled = dto.CacheEnabled
	if dto.CacheDir != "" {
		cfg.cacheDir = dto.CacheDir
	}
	if dto.CacheTTL != 0 {
		cfg.cacheTTL = dto.CacheTTL
	}

	cfg.dedupEnabled = dto.DedupEnabled
	if dto.DedupMinContentLen != 0 {
		cfg.dedupMinContentLen = dto.DedupMinContentLen
	}
	cfg.dedupNormalizeText = dto.DedupNormalizeText
	if dto.DedupHashAlgo != "" {
		cfg.dedupHashAlgo = dto.DedupHashAlgo
	}

	cfg.sitemapEnabled = dto.SitemapEnabled
	cfg.sitemapURLs = dto.SitemapURLs
	cfg.incrementalEnabled = dto.IncrementalEnabled

	cfg.allowURLPatterns = dto.AllowURLPatterns
	cfg.blockURLPatterns = dto.BlockURLPatterns
	cfg.allowExtensions = dto.AllowExtensions
	cfg.blockExtensions = dto.BlockExtensions
	cfg.allowQueryParams = dto.AllowQueryParams
	cfg.blockQueryParams = dto.BlockQueryParams

	if dto.SchedulingModel != "" {
		cfg.schedulingModel = dto.SchedulingModel
	}
	if dto.CheckpointPath != "" {
		cfg.checkpointPath = dto.CheckpointPath
	}
	if dto.OutputDir != "" {
		cfg.outputDir = dto.OutputDir
	}
	cfg.dryRun = dto.DryRun

	if dto.BodySpecificityBias != 0 {
		cfg.bodySpecificityBias = dto.BodySpecificityBias
	}
	if dto.LinkDensityThreshold != 0 {
		cfg.linkDensityThreshold = dto.LinkDensityThreshold
	}
	if dto.ScoreMultiplierNonWhitespaceDivisor != 0 {
		cfg.scoreMultiplierNonWhitespaceDivisor = dto.ScoreMultiplierNonWhitespaceDivisor
	}
	if dto.ScoreMultiplierParagraphs != 0 {
		cfg.scoreMultiplierParagraphs = dto.ScoreMultiplierParagraphs
	}
	if dto.ScoreMultiplierHeadings != 0 {
		cfg.scoreMultiplierHeadings = dto.ScoreMultiplierHeadings
	}
	if dto.ScoreMultiplierCodeBlocks != 0 {
		cfg.scoreMultiplierCodeBlocks = dto.ScoreMultiplierCodeBlocks
	}
	if dto.ScoreMultiplierListItems != 0 {
		cfg.scoreMultiplierListItems = dto.ScoreMultiplierListItems
	}
	if dto.ThresholdMinNonWhitespace != 0 {
		cfg.thresholdMinNonWhitespace = dto.ThresholdMinNonWhitespace
	}
	cfg.thresholdMinHeadings = dto.ThresholdMinHeadings
	if dto.ThresholdMinParagraphsOrCode != 0 {
		cfg.thresholdMinParagraphsOrCode = dto.ThresholdMinParagraphsOrCode
	}
	if dto.ThresholdMaxLinkDensity != 0 {
		cfg.thresholdMaxLinkDensity = dto.ThresholdMaxLinkDensity
	}
	cfg.keywordExtractionEnabled = dto.KeywordExtractionEnabled
	cfg.tableExtractionEnabled = dto.TableExtractionEnabled
	cfg.imageExtractionEnabled = dto.ImageExtractionEnabled
	cfg.markdownExtractionEnabled = dto.MarkdownExtractionEnabled
	cfg.pdfExtractionEnabled = dto.PdfExtractionEnabled

	return cfg, nil
}

// WithConfigFile loads a config document, sniffing YAML vs JSON by extension
// (".yaml"/".yml" vs everything else), and layers it over the defaults.
func WithConfigFile(path string) (Config, error) {
	_, err := os.Stat(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrFileDoesNotExist, err.Error())
	}
	configContent, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrReadConfigFail, err.Error())
	}
	// Prefill the fields whose defaults are not zero values, so a key absent
	// from the document keeps its default: Unmarshal leaves absent keys
	// untouched, and newConfigFromDTO copies these fields unconditionally.
	def := WithDefault(nil)
	cfgDTO := configDTO{
		AllowedPathPrefix:        def.allowedPathPrefix,
		InternalOnly:             def.internalOnly,
		RespectRobots:            def.respectRobots,
		DedupEnabled:             def.dedupEnabled,
		DedupNormalizeText:       def.dedupNormalizeText,
		KeywordExtractionEnabled: def.keywordExtractionEnabled,
		TableExtractionEnabled:   def.tableExtractionEnabled,
		ImageExtractionEnabled:   def.imageExtractionEnabled,
	}

	if isYAMLPath(path) {
		if err := yaml.Unmarshal(configContent, &cfgDTO); err != nil {
			return Config{}, fmt.Errorf("%w: %s", ErrConfigParsingFail, err.Error())
		}
	} else if err := json.Unmarshal(configContent, &cfgDTO); err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrConfigParsingFail, err.Error())
	}

	cfg, err := newConfigFromDTO(cfgDTO)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func isYAMLPath(path string) bool {
	n := len(path)
	return (n >= 5 && path[n-5:] == ".yaml") || (n >= 4 && path[n-4:] == ".yml")
}

// WithEnv returns a default Config with no seed URLs, overriding MAX_DEPTH,
// MAX_PAGES, CONCURRENCY, USER_AGENT and OUTPUT_DIR from environment
// variables named prefix + that name (e.g. CRAWLER_MAX_DEPTH).
func WithEnv(prefix string) *Config {
	cfg := WithDefault(nil)
	if v := os.Getenv(prefix + "MAX_DEPTH"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.maxDepth)
	}
	if v := os.Getenv(prefix + "MAX_PAGES"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.maxPages)
	}
	if v := os.Getenv(prefix + "CONCURRENCY"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.concurrency)
	}
	if v := os.Getenv(prefix + "USER_AGENT"); v != "" {
		cfg.userAgent = v
	}
	if v := os.Getenv(prefix + "OUTPUT_DIR"); v != "" {
		cfg.outputDir = v
	}
	return cfg
}

// WithDefault creates a new Config with the provided seed URLs and default values for all other fields.
// seedUrls is mandatory and must not be empty - Build returns an error if it is.
func WithDefault(seedUrls []url.URL) *Config {
	defaultConfig := Config{
		seedURLs:     seedUrls,
		allowedHosts: map[string]struct{}{},
		allowedPathPrefix: []string{
			"/",
		},
		internalOnly:                        true,
		samePathOnly:                        false,
		maxDepth:                            3,
		maxPages:                            100,
		maxBytes:                            0,
		maxDuration:                         0,
		maxFileBytes:                        50 * 1024 * 1024,
		maxQueueSize:                        0,
		concurrency:                         10,
		baseDelay:                           time.Second,
		jitter:                              time.Millisecond * 500,
		randomSeed:                          time.Now().UnixNano(),
		maxAttempt:                          10,
		backoffInitialDuration:              100 * time.Millisecond,
		backoffMultiplier:                   2.0,
		backoffMaxDuration:                  10 * time.Second,
		respectRobots:                       true,
		dynamicRateAdjustment:               false,
		timeout:                             time.Second * 10,
		userAgent:                           "docs-crawler/1.0",
		cacheEnabled:                        false,
		cacheDir:                            ".crawler-cache",
		cacheTTL:                            0,
		dedupEnabled:                        true,
		dedupMinContentLen:                  256,
		dedupNormalizeText:                  true,
		dedupHashAlgo:                       "sha256",
		sitemapEnabled:                      false,
		incrementalEnabled:                  false,
		schedulingModel:                     "sync-multi",
		checkpointPath:                      "",
		outputDir:                           "output",
		dryRun:                              false,
		bodySpecificityBias:                 0.75,
		linkDensityThreshold:                0.80,
		scoreMultiplierNonWhitespaceDivisor: 50.0,
		scoreMultiplierParagraphs:           5.0,
		scoreMultiplierHeadings:             10.0,
		scoreMultiplierCodeBlocks:           15.0,
		scoreMultiplierListItems:            2.0,
		thresholdMinNonWhitespace:           50,
		thresholdMinHeadings:                0,
		thresholdMinParagraphsOrCode:        1,
		thresholdMaxLinkDensity:             0.8,
		keywordExtractionEnabled:            true,
		tableExtractionEnabled:              true,
		imageExtractionEnabled:              true,
		markdownExtractionEnabled:           false,
		pdfExtractionEnabled:                false,
	}
	return &defaultConfig
}

func (c *Config) WithSeedUrls(urls []url.URL) *Config {
	c.seedURLs = urls
	return c
}

func (c *Config) WithAllowedHosts(hosts map[string]struct{}) *Config {
	c.allowedHosts = hosts
	return c
}

func (c *Config) WithAllowedPathPrefix(prefixes []string) *Config {
	c.allowedPathPrefix = prefixes
	return c
}

func (c *Config) WithInternalOnly(v bool) *Config {
	c.internalOnly = v
	return c
}

func (c *Config) WithSamePathOnly(v bool) *Config {
	c.samePathOnly = v
	return c
}

func (c *Config) WithMaxDepth(depth int) *Config {
	c.maxDepth = depth
	return c
}

func (c *Config) WithMaxPages(pages int) *Config {
	c.maxPages = pages
	return c
}

func (c *Config) WithMaxBytes(v int64) *Config {
	c.maxBytes = v
	return c
}

func (c *Config) WithMaxDuration(v time.Duration) *Config {
	c.maxDuration = v
	return c
}

func (c *Config) WithMaxFileBytes(v int64) *Config {
	c.maxFileBytes = v
	return c
}

func (c *Config) WithMaxQueueSize(v int) *Config {
	c.maxQueueSize = v
	return c
}

func (c *Config) WithConcurrency(concurrency int) *Config {
	c.concurrency = concurrency
	return c
}

func (c *Config) WithBaseDelay(delay time.Duration) *Config {
	c.baseDelay = delay
	return c
}

func (c *Config) WithJitter(jitter time.Duration) *Config {
	c.jitter = jitter
	return c
}

func (c *Config) WithRandomSeed(seed int64) *Config {
	c.randomSeed = seed
	return c
}

func (c *Config) WithMaxAttempt(attempts int) *Config {
	c.maxAttempt = attempts
	return c
}

func (c *Config) WithBackoffInitialDuration(duration time.Duration) *Config {
	c.backoffInitialDuration = duration
	return c
}

func (c *Config) WithBackoffMultiplier(multiplier float64) *Config {
	c.backoffMultiplier = multiplier
	return c
}

func (c *Config) WithBackoffMaxDuration(duration time.Duration) *Config {
	c.backoffMaxDuration = duration
	return c
}

func (c *Config) WithRespectRobots(v bool) *Config {
	c.respectRobots = v
	return c
}

func (c *Config) WithDynamicRateAdjustment(v bool) *Config {
	c.dynamicRateAdjustment = v
	return c
}

func (c *Config) WithTimeout(timeout time.Duration) *Config {
	c.timeout = timeout
	return c
}

func (c *Config) WithUserAgent(agent string) *Config {
	c.userAgent = agent
	return c
}

func (c *Config) WithCacheEnabled(v bool) *Config {
	c.cacheEnabled = v
	return c
}

func (c *Config) WithCacheDir(v string) *Config {
	c.cacheDir = v
	return c
}

func (c *Config) WithCacheTTL(v time.Duration) *Config {
	c.cacheTTL = v
	return c
}

func (c *Config) WithDedupEnabled(v bool) *Config {
	c.dedupEnabled = v
	return c
}

func (c *Config) WithDedupMinContentLen(v int) *Config {
	c.dedupMinContentLen = v
	return c
}

func (c *Config) WithDedupNormalizeText(v bool) *Config {
	c.dedupNormalizeText = v
	return c
}

func (c *Config) WithDedupHashAlgo(v string) *Config {
	c.dedupHashAlgo = v
	return c
}

func (c *Config) WithSitemapEnabled(v bool) *Config {
	c.sitemapEnabled = v
	return c
}

func (c *Config) WithSitemapURLs(urls []url.URL) *Config {
	c.sitemapURLs = urls
	return c
}

func (c *Config) WithIncrementalEnabled(v bool) *Config {
	c.incrementalEnabled = v
	return c
}

func (c *Config) WithAllowURLPatterns(v []string) *Config {
	c.allowURLPatterns = v
	return c
}

func (c *Config) WithBlockURLPatterns(v []string) *Config {
	c.blockURLPatterns = v
	return c
}

func (c *Config) WithAllowExtensions(v []string) *Config {
	c.allowExtensions = v
	return c
}

func (c *Config) WithBlockExtensions(v []string) *Config {
	c.blockExtensions = v
	return c
}

func (c *Config) WithAllowQueryParams(v []string) *Config {
	c.allowQueryParams = v
	return c
}

func (c *Config) WithBlockQueryParams(v []string) *Config {
	c.blockQueryParams = v
	return c
}

func (c *Config) WithSchedulingModel(v string) *Config {
	c.schedulingModel = v
	return c
}

func (c *Config) WithCheckpointPath(v string) *Config {
	c.checkpointPath = v
	return c
}

func (c *Config) WithOutputDir(outputDir string) *Config {
	c.outputDir = outputDir
	return c
}

func (c *Config) WithDryRun(dryRun bool) *Config {
	c.dryRun = dryRun
	return c
}

func (c *Config) WithBodySpecificityBias(bias float64) *Config {
	c.bodySpecificityBias = bias
	return c
}

func (c *Config) WithLinkDensityThreshold(threshold float64) *Config {
	c.linkDensityThreshold = threshold
	return c
}

func (c *Config) WithScoreMultiplierNonWhitespaceDivisor(divisor float64) *Config {
	c.scoreMultiplierNonWhitespaceDivisor = divisor
	return c
}

func (c *Config) WithScoreMultiplierParagraphs(multiplier float64) *Config {
	c.scoreMultiplierParagraphs = multiplier
	return c
}

func (c *Config) WithScoreMultiplierHeadings(multiplier float64) *Config {
	c.scoreMultiplierHeadings = multiplier
	return c
}

func (c *Config) WithScoreMultiplierCodeBlocks(multiplier float64) *Config {
	c.scoreMultiplierCodeBlocks = multiplier
	return c
}

func (c *Config) WithScoreMultiplierListItems(multiplier float64) *Config {
	c.scoreMultiplierListItems = multiplier
	return c
}

func (c *Config) WithThresholdMinNonWhitespace(min int) *Config {
	c.thresholdMinNonWhitespace = min
	return c
}

func (c *Config) WithThresholdMinHeadings(min int) *Config {
	c.thresholdMinHeadings = min
	return c
}

func (c *Config) WithThresholdMinParagraphsOrCode(min int) *Config {
	c.thresholdMinParagraphsOrCode = min
	return c
}

func (c *Config) WithThresholdMaxLinkDensity(max float64) *Config {
	c.thresholdMaxLinkDensity = max
	return c
}

func (c *Config) WithKeywordExtractionEnabled(v bool) *Config {
	c.keywordExtractionEnabled = v
	return c
}

func (c *Config) WithTableExtractionEnabled(v bool) *Config {
	c.tableExtractionEnabled = v
	return c
}

func (c *Config) WithImageExtractionEnabled(v bool) *Config {
	c.imageExtractionEnabled = v
	return c
}

func (c *Config) WithMarkdownExtractionEnabled(v bool) *Config {
	c.markdownExtractionEnabled = v
	return c
}

func (c *Config) WithPdfExtractionEnabled(v bool) *Config {
	c.pdfExtractionEnabled = v
	return c
}

// Build validates the config and fills in scope defaults. Seed URL scheme must
// be http/https (spec boundary: non-http(s) seeds are rejected at construction),
// and budget limits must not be negative.
func (c *Config) Build() (Config, error) {
	if len(c.seedURLs) == 0 {
		return Config{}, fmt.Errorf("%w: seedUrls cannot be empty", ErrInvalidConfig)
	}
	for _, u := range c.seedURLs {
		if u.Scheme != "http" && u.Scheme != "https" {
			return Config{}, fmt.Errorf("%w: seed url %q has unsupported scheme %q", ErrInvalidConfig, u.String(), u.Scheme)
		}
	}
	if c.maxBytes < 0 || c.maxDuration < 0 || c.maxFileBytes < 0 || c.maxPages < 0 || c.maxQueueSize < 0 {
		return Config{}, fmt.Errorf("%w: budget/queue limits cannot be negative", ErrInvalidConfig)
	}
	for _, pattern := range append(append([]string{}, c.allowURLPatterns...), c.blockURLPatterns...) {
		if _, err := regexp.Compile(pattern); err != nil {
			return Config{}, fmt.Errorf("%w: invalid filter regex %q: %s", ErrInvalidConfig, pattern, err.Error())
		}
	}

	if len(c.allowedHosts) == 0 {
		c.allowedHosts = make(map[string]struct{})
		for _, u := range c.seedURLs {
			if u.Host != "" {
				c.allowedHosts[u.Host] = struct{}{}
			}
		}
	}

	return *c, nil
}

func (c Config) SeedURLs() []url.URL {
	urls := make([]url.URL, len(c.seedURLs))
	copy(urls, c.seedURLs)
	return urls
}

func (c Config) AllowedHosts() map[string]struct{} {
	hosts := make(map[string]struct{})
	for k, v := range c.allowedHosts {
		hosts[k] = v
	}
	return hosts
}

func (c Config) AllowedPathPrefix() []string {
	prefixes := make([]string, len(c.allowedPathPrefix))
	copy(prefixes, c.allowedPathPrefix)
	return prefixes
}

func (c Config) InternalOnly() bool { return c.internalOnly }
func (c Config) SamePathOnly() bool { return c.samePathOnly }

func (c Config) MaxDepth() int              { return c.maxDepth }
func (c Config) MaxPages() int              { return c.maxPages }
func (c Config) MaxBytes() int64            { return c.maxBytes }
func (c Config) MaxDuration() time.Duration { return c.maxDuration }
func (c Config) MaxFileBytes() int64        { return c.maxFileBytes }
func (c Config) MaxQueueSize() int          { return c.maxQueueSize }

func (c Config) Concurrency() int            { return c.concurrency }
func (c Config) BaseDelay() time.Duration    { return c.baseDelay }
func (c Config) Jitter() time.Duration       { return c.jitter }
func (c Config) RandomSeed() int64           { return c.randomSeed }
func (c Config) RespectRobots() bool         { return c.respectRobots }
func (c Config) DynamicRateAdjustment() bool { return c.dynamicRateAdjustment }

func (c Config) Timeout() time.Duration { return c.timeout }
func (c Config) UserAgent() string      { return c.userAgent }

func (c Config) CacheEnabled() bool      { return c.cacheEnabled }
func (c Config) CacheDir() string        { return c.cacheDir }
func (c Config) CacheTTL() time.Duration { return c.cacheTTL }

func (c Config) DedupEnabled() bool       { return c.dedupEnabled }
func (c Config) DedupMinContentLen() int  { return c.dedupMinContentLen }
func (c Config) DedupNormalizeText() bool { return c.dedupNormalizeText }
func (c Config) DedupHashAlgo() string    { return c.dedupHashAlgo }

func (c Config) SitemapEnabled() bool { return c.sitemapEnabled }
func (c Config) SitemapURLs() []url.URL {
	urls := make([]url.URL, len(c.sitemapURLs))
	copy(urls, c.sitemapURLs)
	return urls
}

func (c Config) IncrementalEnabled() bool { return c.incrementalEnabled }

func (c Config) AllowURLPatterns() []string { return append([]string{}, c.allowURLPatterns...) }
func (c Config) BlockURLPatterns() []string { return append([]string{}, c.blockURLPatterns...) }
func (c Config) AllowExtensions() []string  { return append([]string{}, c.allowExtensions...) }
func (c Config) BlockExtensions() []string  { return append([]string{}, c.blockExtensions...) }
func (c Config) AllowQueryParams() []string { return append([]string{}, c.allowQueryParams...) }
func (c Config) BlockQueryParams() []string { return append([]string{}, c.blockQueryParams...) }

func (c Config) SchedulingModel() string { return c.schedulingModel }
func (c Config) CheckpointPath() string  { return c.checkpointPath }

func (c Config) OutputDir() string { return c.outputDir }
func (c Config) DryRun() bool      { return c.dryRun }

func (c Config) MaxAttempt() int                       { return c.maxAttempt }
func (c Config) BackoffInitialDuration() time.Duration { return c.backoffInitialDuration }
func (c Config) BackoffMultiplier() float64            { return c.backoffMultiplier }
func (c Config) BackoffMaxDuration() time.Duration     { return c.backoffMaxDuration }

func (c Config) BodySpecificityBias() float64  { return c.bodySpecificityBias }
func (c Config) LinkDensityThreshold() float64 { return c.linkDensityThreshold }

func (c Config) ScoreMultiplierNonWhitespaceDivisor() float64 {
	return c.scoreMultiplierNonWhitespaceDivisor
}
func (c Config) ScoreMultiplierParagraphs() float64 { return c.scoreMultiplierParagraphs }
func (c Config) ScoreMultiplierHeadings() float64   { return c.scoreMultiplierHeadings }
func (c Config) ScoreMultiplierCodeBlocks() float64 { return c.scoreMultiplierCodeBlocks }
func (c Config) ScoreMultiplierListItems() float64  { return c.scoreMultiplierListItems }

func (c Config) ThresholdMinNonWhitespace() int    { return c.thresholdMinNonWhitespace }
func (c Config) ThresholdMinHeadings() int         { return c.thresholdMinHeadings }
func (c Config) ThresholdMinParagraphsOrCode() int { return c.thresholdMinParagraphsOrCode }
func (c Config) ThresholdMaxLinkDensity() float64  { return c.thresholdMaxLinkDensity }

func (c Config) KeywordExtractionEnabled() bool  { return c.keywordExtractionEnabled }
func (c Config) TableExtractionEnabled() bool    { return c.tableExtractionEnabled }
func (c Config) ImageExtractionEnabled() bool    { return c.imageExtractionEnabled }
func (c Config) MarkdownExtractionEnabled() bool { return c.markdownExtractionEnabled }
func (c Config) PdfExtractionEnabled() bool      { return c.pdfExtractionEnabled }
