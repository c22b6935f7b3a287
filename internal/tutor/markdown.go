package tutor

import "regexp"

// Model output arrives in loose markdown that Telegram's parser rejects more
// often than not. SanitizeMarkdown strips the risky constructs and sends
// plain text instead.
var (
	boldRe   = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	italicRe = regexp.MustCompile(`\*([^*]+)\*`)
	fenceRe  = regexp.MustCompile("```[^`]*```")
	codeRe   = regexp.MustCompile("`([^`]+)`")
	linkRe   = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
)

func SanitizeMarkdown(s string) string {
	s = boldRe.ReplaceAllString(s, "$1")
	s = italicRe.ReplaceAllString(s, "$1")
	s = fenceRe.ReplaceAllString(s, "[code block]")
	s = codeRe.ReplaceAllString(s, `"$1"`)
	s = linkRe.ReplaceAllString(s, "$1")
	return s
}
