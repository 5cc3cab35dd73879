package llm

import (
	"regexp"
	"strings"
)

var (
	headerRe     = regexp.MustCompile(`#+\s*`)
	emphasisRe   = regexp.MustCompile(`\*\*|\*|__|_`)
	fencedRe     = regexp.MustCompile("(?s)```.*?```")
	inlineCodeRe = regexp.MustCompile("`.*?`")
	newlinesRe   = regexp.MustCompile(`\n{3,}`)
	spacesRe     = regexp.MustCompile(` +`)
)

// CleanResponse strips markdown artifacts from model output. The
// assistant persona is plain text only. The transform is idempotent.
func CleanResponse(text string) string {
	text = headerRe.ReplaceAllString(text, "")
	text = emphasisRe.ReplaceAllString(text, "")
	text = fencedRe.ReplaceAllString(text, "")
	text = inlineCodeRe.ReplaceAllString(text, "")
	text = newlinesRe.ReplaceAllString(text, "\n\n")
	text = spacesRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
