// Package normalize turns raw article submissions into their canonical stored form.
//
// Every function here is total: bad input degrades to a default instead of
// failing, and applying a function to its own output returns that output
// unchanged, so the update path can re-normalize a stored record safely.
package normalize

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/quillpost/quillpost-server/internal/domain"
)

// Field limits, in characters.
const (
	MaxCategoryLength     = 80
	MaxTagLength          = 40
	MaxTags               = 12
	MaxSourceDetailLength = 500
)

var (
	// Spaces (Unicode space separators included) and underscores become a single dash.
	wordSeparatorRe = regexp.MustCompile(`[\s\p{Zs}\x{FEFF}_]+`)
	// Anything outside the slug alphabet is dropped.
	nonSlugRe = regexp.MustCompile(`[^a-z0-9-]`)
	// Runs of dashes collapse to one.
	multipleDashRe = regexp.MustCompile(`-+`)
	// Tag lists typed as text are split on commas (ASCII or full-width) and newlines.
	tagSeparatorRe = regexp.MustCompile("[,，\n]")
)

// Slug converts text to a URL-safe slug.
//
// Examples:
//
//	"Hello World"     → "hello-world"
//	"snake_case_name" → "snake-case-name"
//	"--Go 1.26!--"    → "go-126"
//	"你好"             → ""
func Slug(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))
	s = wordSeparatorRe.ReplaceAllString(s, "-")
	s = nonSlugRe.ReplaceAllString(s, "")
	s = multipleDashRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// FallbackSlug is the synthetic slug used when nothing slug-worthy survives.
func FallbackSlug(now time.Time) string {
	return fmt.Sprintf("article-%d", now.UnixMilli())
}

// ResolveSlug picks the explicit slug when given, otherwise the title, and
// falls back to a time-based slug when the result would be empty.
func ResolveSlug(explicit, title string, now time.Time) string {
	source := strings.TrimSpace(explicit)
	if source == "" {
		source = title
	}
	if s := Slug(source); s != "" {
		return s
	}
	return FallbackSlug(now)
}

// Category trims and clamps a category, defaulting to domain.DefaultCategory.
func Category(value string) string {
	if c := clamp(value, MaxCategoryLength); c != "" {
		return c
	}
	return domain.DefaultCategory
}

// Tags trims each tag, clamps it, drops empties and duplicates (first
// occurrence wins) and keeps at most MaxTags entries.
// Tags are compared after Unicode NFC composition so visually identical
// tags typed on different keyboards collapse together.
func Tags(values []string) []string {
	out := make([]string, 0, min(len(values), MaxTags))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		tag := clamp(norm.NFC.String(v), MaxTagLength)
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
		if len(out) == MaxTags {
			break
		}
	}
	return out
}

// TagsFromAny accepts the loosely typed tags field of a submission: a JSON
// array (non-string entries are ignored) or a delimited string.
func TagsFromAny(value any) []string {
	switch v := value.(type) {
	case nil:
		return []string{}
	case string:
		return Tags(tagSeparatorRe.Split(v, -1))
	case []string:
		return Tags(v)
	case []any:
		raw := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				raw = append(raw, s)
			}
		}
		return Tags(raw)
	default:
		return []string{}
	}
}

// SourceType uppercases value and falls back to ORIGINAL when unrecognized.
func SourceType(value string) domain.SourceType {
	t := domain.SourceType(strings.ToUpper(strings.TrimSpace(value)))
	if t.Valid() {
		return t
	}
	return domain.SourceOriginal
}

// SourceDetail trims and clamps value. Empty input yields nil.
func SourceDetail(value string) *string {
	d := clamp(value, MaxSourceDetailLength)
	if d == "" {
		return nil
	}
	return &d
}

// clamp trims s and cuts it to limit characters. The second trim keeps the
// result stable when the cut lands just after whitespace.
func clamp(s string, limit int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:limit]))
}
