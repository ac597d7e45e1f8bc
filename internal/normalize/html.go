package normalize

import (
	"regexp"
	"strings"
)

var (
	// htmlTagPattern matches HTML tags for stripping.
	htmlTagPattern = regexp.MustCompile(`<[^>]*>`)

	// invisibleBlocks matches elements whose content is never shown.
	invisibleBlocks = regexp.MustCompile(`(?is)<(style|script|head|title)\b[^>]*>.*?</(style|script|head|title)>`)

	htmlComments = regexp.MustCompile(`(?s)<!--.*?-->`)
)

// stripHTML removes HTML tags from a string and decodes common
// entities, providing a basic plain-text rendering.
func stripHTML(html string) string {
	if html == "" {
		return ""
	}

	result := htmlComments.ReplaceAllString(html, "")
	result = invisibleBlocks.ReplaceAllString(result, "")
	for _, tag := range []string{
		"<br>", "<br/>", "<br />", "</p>", "</div>", "</li>", "</td>", "</h1>", "</h2>", "</h3>",
	} {
		result = strings.ReplaceAll(result, tag, "\n")
	}

	result = htmlTagPattern.ReplaceAllString(result, "")

	replacer := strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
		"&#x27;", "'",
		"&nbsp;", " ",
		"&zwnj;", "",
		"&#8204;", "",
		"\u200c", "",
		"\u034f", "",
	)
	result = replacer.Replace(result)

	for strings.Contains(result, "\n\n\n") {
		result = strings.ReplaceAll(result, "\n\n\n", "\n\n")
	}

	return strings.TrimSpace(result)
}
