// Package e2e contains end-to-end tests exercising the full annotation
// flow over real flat-file storage.
package e2e

import (
	"fmt"
	"strings"
)

// feedbackRows is a small corpus of support-ticket texts used across the
// end-to-end tests.
var feedbackRows = []string{
	"the delivery was very slow this time",
	"package arrived two weeks late",
	"great product, works as advertised",
	"refund still not processed after a month",
	"love the new design of the app",
	"customer support never answered my emails",
	"shipping took forever and the box was damaged",
	"five stars, would order again",
}

// feedbackCSV renders the corpus as an uploadable CSV with a single text
// column.
func feedbackCSV() []byte {
	var b strings.Builder
	b.WriteString("text\n")
	for _, row := range feedbackRows {
		// Rows may contain commas; quote every cell.
		fmt.Fprintf(&b, "%q\n", row)
	}
	return []byte(b.String())
}
