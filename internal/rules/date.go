package rules

import (
	"time"

	"github.com/nleeper/goment"
)

// FormatDate renders t using a moment.js layout such as "YYYY-MM-DD".
// Text inside square brackets is copied literally.
func FormatDate(t time.Time, layout string) string {
	g, err := goment.New(t)
	if err != nil {
		return t.Format(time.DateOnly)
	}
	return g.Format(layout)
}
