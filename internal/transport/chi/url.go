package chi

import (
	"regexp"
	"strings"
)

// imageURLPattern matches http(s) URLs pointing at common image formats,
// including URLs with query strings after the extension.
var imageURLPattern = regexp.MustCompile(
	`(?i)https?://[^\s<>"']+(?:\.(?:jpg|jpeg|png|gif|webp|bmp))[^\s<>"']*`,
)

// ExtractImageURLs pulls image URLs out of free text. It returns the text
// with the URLs removed and inner whitespace collapsed, plus the URLs in
// order of appearance.
func ExtractImageURLs(text string) (string, []string) {
	urls := imageURLPattern.FindAllString(text, -1)
	if len(urls) == 0 {
		return text, nil
	}

	cleaned := imageURLPattern.ReplaceAllString(text, "")
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	return cleaned, urls
}
