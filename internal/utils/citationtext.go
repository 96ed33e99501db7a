package utils

import "regexp"

var (
	betweenWordsRe = regexp.MustCompile(`(\S)\[\d+\](\S)`)
	inlineCiteRe   = regexp.MustCompile(`\[\d+\]`)
	doubleSpaceRe  = regexp.MustCompile(`\s{2,}`)
	punctSpaceRe   = regexp.MustCompile(`\s+([,.;:!?])`)
)

// RemoveInlineCitations strips [n] style citation markers from text while
// keeping word spacing and punctuation intact.
func RemoveInlineCitations(text string) string {
	if text == "" {
		return text
	}
	result := betweenWordsRe.ReplaceAllString(text, "$1 $2")
	result = inlineCiteRe.ReplaceAllString(result, "")
	result = doubleSpaceRe.ReplaceAllString(result, " ")
	result = punctSpaceRe.ReplaceAllString(result, "$1")
	return result
}
