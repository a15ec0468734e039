package indexer

import (
	"strings"
	"unicode"

	"github.com/hyperjump/vidlens/pkg/utils"
)

// Preprocess normalizes a transcript for chunking. Runs of spaces collapse and
// control characters are dropped, but line and paragraph breaks are kept so the
// splitter can cut on them.
func Preprocess(text string) string {
	text = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' || !unicode.IsControl(r) {
			return r
		}
		return -1
	}, text)
	return utils.CleanText(text)
}
