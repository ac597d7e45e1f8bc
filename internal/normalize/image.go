package normalize

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// skipImageHints mark images that are chrome rather than content.
var skipImageHints = []string{
	"icon", "logo", "tracking", "track", "pixel", "spacer", "beacon", "1x1", "blank.gif", "open.gif",
}

var imageURL = regexp.MustCompile(`(?i)https?://[^\s"'<>()]+?\.(?:jpe?g|png|gif|webp)(?:\?[^\s"'<>()]*)?`)

// FirstImage returns the first content image referenced by the HTML
// body, skipping icons, logos, tracking pixels and inline data URIs.
// Without a usable <img> it falls back to the first image URL found in
// either body.
func FirstImage(htmlBody, textBody string) string {
	if strings.TrimSpace(htmlBody) != "" {
		if src := scanImgTags(htmlBody); src != "" {
			return src
		}
	}
	for _, body := range []string{htmlBody, textBody} {
		for _, u := range imageURL.FindAllString(body, -1) {
			if !isChrome(u) {
				return u
			}
		}
	}
	return ""
}

func scanImgTags(htmlBody string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlBody))
	if err != nil {
		return ""
	}

	var found string
	doc.Find("img").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		src := strings.TrimSpace(s.AttrOr("src", ""))
		if src == "" {
			src = strings.TrimSpace(s.AttrOr("data-src", ""))
		}
		if src == "" || strings.HasPrefix(strings.ToLower(src), "data:") {
			return true
		}
		if tiny(s.AttrOr("width", "")) || tiny(s.AttrOr("height", "")) {
			return true
		}
		hints := src + " " + s.AttrOr("alt", "") + " " + s.AttrOr("class", "") + " " + s.AttrOr("id", "")
		if isChrome(hints) {
			return true
		}
		if strings.HasPrefix(src, "//") {
			src = "https:" + src
		}
		found = src
		return false
	})
	return found
}

func isChrome(s string) bool {
	s = strings.ToLower(s)
	for _, hint := range skipImageHints {
		if strings.Contains(s, hint) {
			return true
		}
	}
	return false
}

func tiny(dim string) bool {
	dim = strings.TrimSuffix(strings.TrimSpace(dim), "px")
	return dim == "0" || dim == "1"
}
