package access

import (
	"regexp"
	"strings"
	"sync"
)

// globToRegexp translates the small glob dialect spec.md §4.3 defines:
//   - "*"  matches any run of non-"/" characters (one path segment)
//   - "**" matches any characters, including "/" (zero or more segments)
//   - every other regexp metacharacter is escaped literally
//
// There is no third-party glob library in the retrieved pack that implements
// this exact two-star semantic (rclone's indirect gitignore dependency
// wasn't imported by rclone's own code, so it isn't grounded); translating
// to regexp.Regexp via the stdlib is the direct, auditable implementation
// of the rule as spec.md states it.
func globToRegexp(pattern string) (*regexp.Regexp, error) {
	pattern = normalizeGlobPath(pattern)
	var b strings.Builder
	b.WriteString("^")
	runes := []rune(pattern)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch c {
		case '*':
			if i+1 < len(runes) && runes[i+1] == '*' {
				b.WriteString("[\\s\\S]*")
				i++
			} else {
				b.WriteString("[^/]*")
			}
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	b.WriteString("$")
	return regexp.Compile(b.String())
}

func normalizeGlobPath(p string) string {
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

// globCache memoizes compiled patterns: policy checks run on every access,
// often against the same handful of globs.
type globCache struct {
	mu    sync.Mutex
	cache map[string]*regexp.Regexp
}

func newGlobCache() *globCache {
	return &globCache{cache: make(map[string]*regexp.Regexp)}
}

var defaultGlobCache = newGlobCache()

// MatchGlob matches path against pattern using the exact two-star dialect
// CheckAccess uses; exported so other components (the overlay importer's
// excludePatterns) share one implementation of spec.md §4.3's glob rules.
func MatchGlob(pattern, path string) bool { return defaultGlobCache.match(pattern, path) }

func (g *globCache) match(pattern, path string) bool {
	g.mu.Lock()
	re, ok := g.cache[pattern]
	if !ok {
		var err error
		re, err = globToRegexp(pattern)
		if err != nil {
			g.mu.Unlock()
			return false
		}
		g.cache[pattern] = re
	}
	g.mu.Unlock()
	return re.MatchString(normalizeGlobPath(path))
}
