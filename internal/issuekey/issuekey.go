// Package issuekey extracts issue tracker keys from free-form text such as
// branch names and commit messages.
package issuekey

import (
	"fmt"
	"regexp"
	"strings"
)

// Extractor finds issue keys matching a fixed project prefix, e.g. "MSIGN-123".
// The zero value is not usable; construct with New. An Extractor holds no scan
// state between calls and is safe for concurrent use.
type Extractor struct {
	pattern *regexp.Regexp
}

// New creates an Extractor for the given project prefix.
// Matching is case-sensitive.
func New(prefix string) (*Extractor, error) {
	if prefix == "" {
		return nil, fmt.Errorf("issue key prefix must not be empty")
	}
	pattern, err := regexp.Compile(regexp.QuoteMeta(prefix) + `-\d+`)
	if err != nil {
		return nil, fmt.Errorf("failed to compile issue key pattern: %w", err)
	}
	return &Extractor{pattern: pattern}, nil
}

// First returns the first issue key found in text, trimmed of surrounding
// whitespace. The second return value is false when text contains no key.
func (e *Extractor) First(text string) (string, bool) {
	match := strings.TrimSpace(e.pattern.FindString(text))
	if match == "" {
		return "", false
	}
	return match, true
}

// All returns every issue key found across the given texts, de-duplicated by
// exact value, in first-seen order. Returns an empty slice when nothing
// matches.
func (e *Extractor) All(texts ...string) []string {
	keys := []string{}
	seen := map[string]bool{}
	for _, text := range texts {
		for _, match := range e.pattern.FindAllString(text, -1) {
			key := strings.TrimSpace(match)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			keys = append(keys, key)
		}
	}
	return keys
}
