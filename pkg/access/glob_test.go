package access

import "testing"

func TestMatchGlobSingleStar(t *testing.T) {
	cases := []struct {
		pattern, path string
		want          bool
	}{
		{"/workspace/*", "/workspace/file.txt", true},
		{"/workspace/*", "/workspace/sub/file.txt", false},
		{"/workspace/*.go", "/workspace/main.go", true},
		{"/workspace/*.go", "/workspace/main.py", false},
	}
	for _, c := range cases {
		if got := MatchGlob(c.pattern, c.path); got != c.want {
			t.Errorf("MatchGlob(%q, %q) = %v, want %v", c.pattern, c.path, got, c.want)
		}
	}
}

func TestMatchGlobDoubleStar(t *testing.T) {
	cases := []struct {
		pattern, path string
		want          bool
	}{
		{"/workspace/**", "/workspace/sub/deep/file.txt", true},
		{"/workspace/**", "/workspace", false},
		{"/workspace/**/*.go", "/workspace/a/b/c.go", true},
		{"**/node_modules/**", "/workspace/pkg/node_modules/lib/index.js", true},
	}
	for _, c := range cases {
		if got := MatchGlob(c.pattern, c.path); got != c.want {
			t.Errorf("MatchGlob(%q, %q) = %v, want %v", c.pattern, c.path, got, c.want)
		}
	}
}

func TestMatchGlobCachesCompiledPattern(t *testing.T) {
	c := newGlobCache()
	if !c.match("/a/*", "/a/b") {
		t.Fatal("expected match")
	}
	if _, ok := c.cache["/a/*"]; !ok {
		t.Fatal("expected pattern to be cached after first match")
	}
}
