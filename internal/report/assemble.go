// Package report turns walk decisions and classification results into the
// rows, summaries and tables operators read.
package report

import (
	"buildtriage/internal/catalog"
	"buildtriage/internal/ci"
	"buildtriage/internal/selector"
)

// Row is one report line, ready for display.
type Row struct {
	Job         string    `json:"job"`
	Number      int       `json:"number"`
	Status      ci.Result `json:"status"`
	Causes      []string  `json:"causes"`
	BugURLs     []string  `json:"bugUrls"`
	BuildURL    string    `json:"buildUrl"`
	DisplayName string    `json:"displayName"`
}

// Assemble turns the walk's included decisions into rows, preserving visit
// order. BugURLs is slot-aligned with Causes; a cause with no tracked bug
// takes an empty string so the two columns stay in step.
func Assemble(decisions []selector.Decision, classifications map[ci.BuildKey][]string, cat *catalog.Catalog) []Row {
	rows := make([]Row, 0, len(decisions))
	for _, d := range decisions {
		if !d.Included {
			continue
		}
		causes := classifications[d.Build.Key()]
		bugURLs := make([]string, len(causes))
		for i, cause := range causes {
			if sig, ok := cat.Lookup(cause); ok && sig.Bug != nil {
				bugURLs[i] = sig.Bug.URL
			}
		}
		rows = append(rows, Row{
			Job:         d.Build.Job,
			Number:      d.Build.Number,
			Status:      d.Build.Result,
			Causes:      causes,
			BugURLs:     bugURLs,
			BuildURL:    d.Build.URL,
			DisplayName: d.Build.DisplayName,
		})
	}
	return rows
}
