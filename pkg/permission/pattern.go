package permission

import (
	"fmt"
	"regexp"
)

// matchAllSource is the pattern substituted for an absent pods/refs key.
const matchAllSource = ".*"

// Pattern is a regular expression kept together with its source text. All
// patterns are compiled eagerly at load time so evaluation can never fail.
type Pattern struct {
	source string
	re     *regexp.Regexp
}

func CompilePattern(source string) (Pattern, error) {
	re, err := regexp.Compile(source)
	if err != nil {
		return Pattern{}, fmt.Errorf("invalid pattern %q: %w", source, err)
	}
	return Pattern{source: source, re: re}, nil
}

// MustCompilePattern is for tests and static defaults; it panics on a bad source.
func MustCompilePattern(source string) Pattern {
	p, err := CompilePattern(source)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Pattern) MatchString(s string) bool {
	return p.re != nil && p.re.MatchString(s)
}

func (p Pattern) Source() string { return p.source }

func (p Pattern) String() string { return p.source }

// compilePatterns applies the absent-vs-empty rule: a nil source list compiles
// to the single match-all pattern, an explicitly empty list stays empty and
// therefore matches nothing.
func compilePatterns(sources *[]string) ([]Pattern, error) {
	if sources == nil {
		return []Pattern{MustCompilePattern(matchAllSource)}, nil
	}
	out := make([]Pattern, 0, len(*sources))
	for _, s := range *sources {
		p, err := CompilePattern(s)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func anyPatternMatches(patterns []Pattern, value string) bool {
	for _, p := range patterns {
		if p.MatchString(value) {
			return true
		}
	}
	return false
}
