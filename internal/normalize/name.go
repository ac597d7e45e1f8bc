package normalize

import (
	"net/mail"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	bracketedAddr = regexp.MustCompile(`\s*<[^>]*>\s*`)
	boilerplate   = regexp.MustCompile(`(?i)^(?:newsletters?|no[-_ ]?reply|do[-_ ]?not[-_ ]?reply|mailer)(?:\s*[-:|]\s*|\s+from\s+|\s+|$)`)
	localPart     = regexp.MustCompile(`(?i)^(?:newsletters?|no[-_ ]?reply|do[-_ ]?not[-_ ]?reply|mailer|bounces?|news|hello|info|team|mail|updates?)(?:\s+|$)`)
	wordSeps      = regexp.MustCompile(`[._\-+]+`)
)

// senderAddress extracts the lowercased address from a sender string
// such as `"Morning Brew" <crew@morningbrew.com>`.
func senderAddress(sender string) string {
	if sender == "" {
		return ""
	}
	if a, err := mail.ParseAddress(sender); err == nil {
		return strings.ToLower(a.Address)
	}
	if i, j := strings.LastIndex(sender, "<"), strings.LastIndex(sender, ">"); i >= 0 && j > i {
		return strings.ToLower(strings.TrimSpace(sender[i+1 : j]))
	}
	if strings.Contains(sender, "@") && !strings.ContainsAny(sender, " \t") {
		return strings.ToLower(sender)
	}
	return ""
}

// ExtractName derives a human-readable newsletter name from a raw sender
// string: the bracketed address is dropped, boilerplate prefixes such as
// "newsletter" or "noreply" are removed, and the rest is title-cased.
// A bare address falls back to its local part, then its domain.
func ExtractName(sender string) string {
	sender = strings.TrimSpace(sender)
	if sender == "" {
		return ""
	}

	name := sender
	if a, err := mail.ParseAddress(sender); err == nil {
		name = a.Name
	} else {
		name = bracketedAddr.ReplaceAllString(sender, " ")
	}
	name = strings.Trim(strings.TrimSpace(name), `"'`)

	if name == "" || strings.Contains(name, "@") {
		return nameFromAddress(senderAddress(sender))
	}

	name = stripBoilerplate(name, boilerplate)
	if name == "" {
		return nameFromAddress(senderAddress(sender))
	}
	return titleCase(collapseSpace(name))
}

func nameFromAddress(addr string) string {
	local, domain, ok := strings.Cut(addr, "@")
	if !ok {
		return ""
	}

	if n := stripBoilerplate(wordSeps.ReplaceAllString(local, " "), localPart); n != "" {
		return titleCase(collapseSpace(n))
	}

	// news.example.co.uk -> example
	labels := strings.Split(domain, ".")
	label := labels[0]
	if len(labels) >= 2 {
		label = labels[len(labels)-2]
		if len(labels) >= 3 && len(label) <= 3 {
			label = labels[len(labels)-3]
		}
	}
	return titleCase(wordSeps.ReplaceAllString(label, " "))
}

// stripBoilerplate removes leading matches of re repeatedly.
func stripBoilerplate(s string, re *regexp.Regexp) string {
	for {
		next := strings.TrimSpace(re.ReplaceAllString(s, ""))
		if next == s {
			return s
		}
		s = next
	}
}

// titleCase upper-cases the first letter of each word and leaves the
// rest alone. Casers are stateful and not shared.
func titleCase(s string) string {
	return cases.Title(language.English, cases.NoLower).String(s)
}
