package filter

import (
	"net/url"
	"path"
	"regexp"
	"strings"
)

/*
Responsibilities

- Decide whether a discovered URL is eligible to enter the frontier,
  independent of depth/budget/robots/visited checks
- Compose allow/block regex lists, allow/block extension lists, allow/
  block query-parameter-name lists, and an optional user callback (§6,
  grounded on crawlit's utils/url_filter.py)

Precedence, matching crawlit: an explicit block (regex, extension, or
query parameter) always wins over an allow; when an allow-list is
non-empty, a URL must match it to pass; the user callback runs last and
can veto a URL the structural rules would otherwise admit.
*/

// Callback is a user-supplied veto hook; returning false rejects the URL
// regardless of every other rule.
type Callback func(u url.URL) bool

// Filter reports whether a candidate URL is allowed to be crawled.
type Filter interface {
	IsAllowed(u url.URL) bool
}

// CompositeFilter implements Filter by combining several independent
// rule sets. A zero-value CompositeFilter allows everything.
type CompositeFilter struct {
	allowRegex    []*regexp.Regexp
	blockRegex    []*regexp.Regexp
	allowExt      map[string]struct{}
	blockExt      map[string]struct{}
	allowQueryKey map[string]struct{}
	blockQueryKey map[string]struct{}
	callback      Callback
}

// New constructs a CompositeFilter. Every slice/map argument may be nil;
// an empty allow-list for a dimension means "no restriction" for that
// dimension (everything passes it), matching crawlit's default behavior.
func New(allowRegex, blockRegex []string, allowExt, blockExt, allowQueryKey, blockQueryKey []string, callback Callback) (*CompositeFilter, error) {
	f := &CompositeFilter{
		allowExt:      toSet(allowExt),
		blockExt:      toSet(blockExt),
		allowQueryKey: toSet(allowQueryKey),
		blockQueryKey: toSet(blockQueryKey),
		callback:      callback,
	}

	var err error
	if f.allowRegex, err = compileAll(allowRegex); err != nil {
		return nil, err
	}
	if f.blockRegex, err = compileAll(blockRegex); err != nil {
		return nil, err
	}
	return f, nil
}

// IsAllowed reports whether u passes every configured rule.
func (f *CompositeFilter) IsAllowed(u url.URL) bool {
	urlStr := u.String()

	for _, re := range f.blockRegex {
		if re.MatchString(urlStr) {
			return false
		}
	}
	if len(f.allowRegex) > 0 {
		matched := false
		for _, re := range f.allowRegex {
			if re.MatchString(urlStr) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	ext := strings.ToLower(strings.TrimPrefix(path.Ext(u.Path), "."))
	if ext != "" {
		if _, blocked := f.blockExt[ext]; blocked {
			return false
		}
		if len(f.allowExt) > 0 {
			if _, allowed := f.allowExt[ext]; !allowed {
				return false
			}
		}
	}

	for key := range u.Query() {
		lowerKey := strings.ToLower(key)
		if _, blocked := f.blockQueryKey[lowerKey]; blocked {
			return false
		}
	}
	if len(f.allowQueryKey) > 0 {
		for key := range u.Query() {
			if _, allowed := f.allowQueryKey[strings.ToLower(key)]; !allowed {
				return false
			}
		}
	}

	if f.callback != nil && !f.callback(u) {
		return false
	}

	return true
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[strings.ToLower(v)] = struct{}{}
	}
	return set
}
