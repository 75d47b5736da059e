package report

import (
	"sort"

	"buildtriage/internal/catalog"
	"buildtriage/internal/ci"
)

// CauseCount is one aggregated cause in a run summary.
type CauseCount struct {
	Name   string `json:"name"`
	Count  int    `json:"count"`
	BugURL string `json:"bugUrl,omitempty"`
}

// Summary aggregates one run's rows by cause.
type Summary struct {
	Rows         int          `json:"rows"`
	Unclassified int          `json:"unclassified"`
	Causes       []CauseCount `json:"causes,omitempty"`
}

// Summarize counts cause frequencies across the rows. Causes come back in
// descending count order, name ascending on ties. A reported non-success
// build with no matched cause counts as unclassified.
func Summarize(rows []Row, cat *catalog.Catalog) Summary {
	sum := Summary{Rows: len(rows)}
	counts := make(map[string]int)
	for _, row := range rows {
		if len(row.Causes) == 0 && row.Status != ci.ResultSuccess {
			sum.Unclassified++
		}
		for _, cause := range row.Causes {
			counts[cause]++
		}
	}

	for name, count := range counts {
		cc := CauseCount{Name: name, Count: count}
		if sig, ok := cat.Lookup(name); ok && sig.Bug != nil {
			cc.BugURL = sig.Bug.URL
		}
		sum.Causes = append(sum.Causes, cc)
	}
	sort.Slice(sum.Causes, func(i, j int) bool {
		if sum.Causes[i].Count != sum.Causes[j].Count {
			return sum.Causes[i].Count > sum.Causes[j].Count
		}
		return sum.Causes[i].Name < sum.Causes[j].Name
	})
	return sum
}
