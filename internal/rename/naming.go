package rename

import (
	"strings"
	"time"

	"vaultnorm/internal/rules"
	"vaultnorm/pkg/types"
)

// StripDuplicateSuffix removes a trailing space followed by ASCII digits,
// the counter hosts append to duplicates ("Untitled 2" -> "Untitled").
func StripDuplicateSuffix(stem string) string {
	i := strings.LastIndexByte(stem, ' ')
	if i < 0 || i == len(stem)-1 {
		return stem
	}
	for _, r := range stem[i+1:] {
		if r < '0' || r > '9' {
			return stem
		}
	}
	return stem[:i]
}

// fileName standardizes a file name: the stem goes through the rules with
// the creation time as reference, the extension is only lower-cased.
func fileName(p *rules.Pipeline, stripDuplicates bool, name string, created time.Time) string {
	stem, ext := types.SplitExt(name)
	if stripDuplicates {
		stem = StripDuplicateSuffix(stem)
	}
	return p.Apply(stem, created) + strings.ToLower(ext)
}
