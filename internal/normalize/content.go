package normalize

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

// Content formats accepted on article submission.
const (
	FormatMarkdown = "markdown"
	FormatHTML     = "html"
)

// wordsPerMinute is the reading speed used by ReadTime.
const wordsPerMinute = 220

var (
	markdownPunctRe = regexp.MustCompile("[#*_`>\\-\\[\\]()!]")
	cjkRe           = regexp.MustCompile(`[\x{4e00}-\x{9fa5}]`)
)

// Content returns body as Markdown. HTML input is converted; anything else
// is stored as given.
func Content(body, format string) (string, error) {
	if !strings.EqualFold(strings.TrimSpace(format), FormatHTML) {
		return body, nil
	}
	md, err := htmltomarkdown.ConvertString(body)
	if err != nil {
		return "", fmt.Errorf("convert html: %w", err)
	}
	return strings.TrimSpace(md), nil
}

// ReadTime estimates reading time in whole minutes, never less than 3.
// Each CJK ideograph counts as one word; other text is split on whitespace.
func ReadTime(content string) int {
	plain := markdownPunctRe.ReplaceAllString(content, " ")
	cjk := len(cjkRe.FindAllStringIndex(plain, -1))
	latin := len(strings.Fields(cjkRe.ReplaceAllString(plain, " ")))

	minutes := int(math.Round(float64(cjk+latin) / wordsPerMinute))
	return max(3, minutes)
}
