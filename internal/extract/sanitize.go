package extract

import (
	"strings"

	"github.com/wasilibs/go-re2"
	"golang.org/x/text/unicode/norm"
)

var (
	spaceRuns = re2.MustCompile(`[ \t]+`)
	blankRuns = re2.MustCompile(`\n{3,}`)
	controls  = re2.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]`)
)

// Sanitize normalizes extracted content before it is fed to the prompt:
// NFC unicode normalization, control characters stripped, horizontal
// whitespace runs collapsed and excess blank lines squeezed.
func Sanitize(content string) string {
	content = norm.NFC.String(content)
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = controls.ReplaceAllString(content, "")
	content = spaceRuns.ReplaceAllString(content, " ")
	content = blankRuns.ReplaceAllString(content, "\n\n")

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
