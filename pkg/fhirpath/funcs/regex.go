package funcs

import (
	"container/list"
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// RegexCache compiles and caches regex patterns with LRU eviction and a
// complexity guard. The cache is shared by matches() and replaceMatches().
type RegexCache struct {
	mu      sync.Mutex
	cache   map[string]*regexCacheEntry
	lruList *list.List
	limit   int
	maxLen  int
}

type regexCacheEntry struct {
	re      *regexp.Regexp
	element *list.Element
	key     string
}

// NewRegexCache creates a cache holding up to limit compiled patterns of
// at most maxLen bytes each.
func NewRegexCache(limit, maxLen int) *RegexCache {
	return &RegexCache{
		cache:   make(map[string]*regexCacheEntry),
		lruList: list.New(),
		limit:   limit,
		maxLen:  maxLen,
	}
}

// globalRegexCache backs the string matching functions.
var globalRegexCache = NewRegexCache(256, 1024)

// Compile returns a cached compiled pattern, compiling and caching on
// miss.
func (c *RegexCache) Compile(pattern string) (*regexp.Regexp, error) {
	if err := c.validate(pattern); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.cache[pattern]; ok {
		c.lruList.MoveToFront(entry.element)
		return entry.re, nil
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}

	entry := &regexCacheEntry{re: re, key: pattern}
	entry.element = c.lruList.PushFront(entry)
	c.cache[pattern] = entry

	if c.limit > 0 && c.lruList.Len() > c.limit {
		oldest := c.lruList.Back()
		if oldest != nil {
			c.lruList.Remove(oldest)
			delete(c.cache, oldest.Value.(*regexCacheEntry).key)
		}
	}
	return re, nil
}

// Match tests a string against a pattern, honouring context cancellation.
func (c *RegexCache) Match(ctx context.Context, pattern, s string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	re, err := c.Compile(pattern)
	if err != nil {
		return false, err
	}
	return re.MatchString(s), nil
}

// Replace substitutes pattern matches in a string.
func (c *RegexCache) Replace(ctx context.Context, pattern, s, replacement string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	re, err := c.Compile(pattern)
	if err != nil {
		return "", err
	}
	return re.ReplaceAllString(s, replacement), nil
}

// Size returns the number of cached patterns.
func (c *RegexCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lruList.Len()
}

// validate rejects patterns whose length or nesting suggests runaway
// complexity before they reach the compiler.
func (c *RegexCache) validate(pattern string) error {
	if c.maxLen > 0 && len(pattern) > c.maxLen {
		return fmt.Errorf("pattern exceeds maximum length %d", c.maxLen)
	}
	if strings.Count(pattern, "(") > 50 {
		return fmt.Errorf("pattern has too many groups")
	}
	return nil
}
