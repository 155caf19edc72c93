package storage

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	defaultBase = "image"
	defaultExt  = ".png"
)

var (
	unsafeKeyRe = regexp.MustCompile(`[^a-z0-9-]`)
	hyphenRunRe = regexp.MustCompile(`-+`)
)

// KeyBuilder derives object keys of the form
// uploads/{yyyy}/{MM}/{unixMillis}-{base}-{suffix}{ext}.
type KeyBuilder struct {
	now    func() time.Time
	suffix func() string
}

// NewKeyBuilder returns a builder using the wall clock and random suffixes.
func NewKeyBuilder() *KeyBuilder {
	return &KeyBuilder{
		now:    time.Now,
		suffix: randomSuffix,
	}
}

// Build returns a fresh key for an upload named filename.
func (b *KeyBuilder) Build(filename string) string {
	now := b.now()
	base, ext := splitFilename(filename)
	return fmt.Sprintf("uploads/%04d/%02d/%d-%s-%s%s",
		now.Year(), int(now.Month()), now.UnixMilli(), base, b.suffix(), ext)
}

func splitFilename(filename string) (string, string) {
	name := path.Base(strings.ReplaceAll(filename, `\`, "/"))
	if name == "." || name == "/" {
		name = ""
	}

	ext := strings.ToLower(path.Ext(name))
	base := strings.ToLower(strings.TrimSuffix(name, path.Ext(name)))
	base = unsafeKeyRe.ReplaceAllString(base, "-")
	base = strings.Trim(hyphenRunRe.ReplaceAllString(base, "-"), "-")

	if base == "" {
		base = defaultBase
	}
	if ext == "" || unsafeKeyRe.MatchString(ext[1:]) {
		ext = defaultExt
	}
	return base, ext
}

func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
