package images

import (
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Sniff returns the media type detected from data's magic bytes, without parameters.
func Sniff(data []byte) string {
	return mimetype.Detect(data).String()
}

// Matches reports whether data really is of the declared media type.
// image/jpg is accepted as an alias of image/jpeg.
func Matches(data []byte, declared string) bool {
	declared = strings.ToLower(strings.TrimSpace(declared))
	if declared == "image/jpg" {
		declared = "image/jpeg"
	}
	return mimetype.Detect(data).Is(declared)
}
