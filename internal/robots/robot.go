package robots

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rohmanhakim/docs-crawler/internal/metadata"
	"github.com/rohmanhakim/docs-crawler/internal/robots/cache"
)

/*
Responsibilities

- Fetch robots.txt per host
- Cache rules for crawl duration
- Enforce allow/disallow rules before enqueue

Robots checks occur before a URL enters the frontier.
*/

// CachedRobot is a Robot that memoizes per-host ruleSets for the lifetime of
// a crawl, backed by a pluggable cache.Cache so the same robots.txt is never
// fetched twice for a given host.
type CachedRobot struct {
	fetcher   *RobotsFetcher
	userAgent string
	sink      metadata.MetadataSink

	mu       sync.Mutex
	ruleSets map[string]ruleSet
}

// NewCachedRobot constructs a Robot that reports to sink. Init or
// InitWithCache must be called before Decide.
func NewCachedRobot(sink metadata.MetadataSink) CachedRobot {
	return CachedRobot{
		sink:     sink,
		ruleSets: make(map[string]ruleSet),
	}
}

// Init binds the robot to a user agent using an in-memory cache.
func (r *CachedRobot) Init(userAgent string) {
	r.InitWithCache(userAgent, cache.NewMemoryCache())
}

// InitWithCache binds the robot to a user agent using the given cache
// implementation for robots.txt fetch results.
func (r *CachedRobot) InitWithCache(userAgent string, c cache.Cache) {
	r.userAgent = userAgent
	r.fetcher = NewRobotsFetcher(r.sink, userAgent, c)
	if r.ruleSets == nil {
		r.ruleSets = make(map[string]ruleSet)
	}
}

// Decide reports whether target may be crawled under the per-host robots.txt,
// per RFC 9309 precedence: the longest matching rule wins; ties favor Allow.
func (r *CachedRobot) Decide(target url.URL) (Decision, error) {
	host := target.Host
	scheme := target.Scheme
	if scheme == "" {
		scheme = "https"
	}

	rs, err := r.ruleSetFor(scheme, host)
	if err != nil {
		r.sink.RecordError(time.Now(), "robots", "fetch", mapRobotsErrorToMetadataCause(err), err.Error(), []metadata.Attribute{
			metadata.NewAttr(metadata.AttrHost, host),
			metadata.NewAttr(metadata.AttrURL, target.String()),
		})
		return Decision{}, err
	}

	if !rs.hasGroups {
		return Decision{Url: target, Allowed: true, Reason: EmptyRuleSet}, nil
	}
	if !rs.matchedGroup {
		return Decision{Url: target, Allowed: true, Reason: UserAgentNotMatched}, nil
	}

	path := target.Path
	if path == "" {
		path = "/"
	}

	allowed, matched := evaluatePath(path, rs.allowRules, rs.disallowRules)
	reason := NoMatchingRules
	if matched {
		if allowed {
			reason = AllowedByRobots
		} else {
			reason = DisallowedByRobots
		}
	}

	var delay time.Duration
	if rs.crawlDelay != nil {
		delay = *rs.crawlDelay
	}

	return Decision{
		Url:        target,
		Allowed:    allowed,
		Reason:     reason,
		CrawlDelay: delay,
	}, nil
}

func (r *CachedRobot) ruleSetFor(scheme, host string) (ruleSet, *RobotsError) {
	result, err := r.fetcher.Fetch(context.Background(), scheme, host)
	if err != nil {
		return ruleSet{}, err
	}
	rs := MapResponseToRuleSet(result.Response, r.userAgent, result.FetchedAt)

	r.mu.Lock()
	r.ruleSets[host] = rs
	r.mu.Unlock()

	return rs, nil
}

// evaluatePath finds the longest matching allow/disallow rule for path. Ties
// (equal-length matches) favor Allow. matched is false when no rule applies.
func evaluatePath(path string, allows, disallows []pathRule) (allowed bool, matched bool) {
	bestLen := -1
	bestAllowed := true

	consider := func(rule pathRule, isAllow bool) {
		if !matchesRobotsPattern(path, rule.prefix) {
			return
		}
		specificity := len(strings.TrimSuffix(strings.ReplaceAll(rule.prefix, "*", ""), "$"))
		if specificity > bestLen || (specificity == bestLen && isAllow) {
			bestLen = specificity
			bestAllowed = isAllow
			matched = true
		}
	}

	for _, rule := range allows {
		consider(rule, true)
	}
	for _, rule := range disallows {
		consider(rule, false)
	}

	return bestAllowed, matched
}

// matchesRobotsPattern implements RFC 9309 path matching: '*' matches any
// sequence of characters, and a trailing '$' anchors the match to the end
// of the path. The pattern always anchors at the start of path.
func matchesRobotsPattern(path, pattern string) bool {
	if pattern == "" {
		return false
	}
	anchored := strings.HasSuffix(pattern, "$")
	if anchored {
		pattern = pattern[:len(pattern)-1]
	}

	segments := strings.Split(pattern, "*")
	if len(segments) == 0 {
		return true
	}

	if !strings.HasPrefix(path, segments[0]) {
		return false
	}
	remainder := path[len(segments[0]):]

	for _, seg := range segments[1:] {
		if seg == "" {
			continue
		}
		idx := strings.Index(remainder, seg)
		if idx == -1 {
			return false
		}
		remainder = remainder[idx+len(seg):]
	}

	if anchored {
		return remainder == ""
	}
	return true
}
