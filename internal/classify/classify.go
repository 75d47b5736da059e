// Package classify matches console logs against the failure-signature
// catalog.
package classify

import (
	"buildtriage/internal/catalog"
)

// Classifier scans console text for known failure signatures. It holds only
// an immutable catalog, so one classifier is safe for concurrent use.
type Classifier struct {
	catalog *catalog.Catalog
}

// New constructs a classifier over a loaded catalog.
func New(cat *catalog.Catalog) *Classifier {
	return &Classifier{catalog: cat}
}

// Classify returns the names of the signatures whose rules fire on the log
// text, in catalog order and free of duplicates. Callers treat the result as
// a set; an empty result is an unrecognised failure, not an error. The
// classifier never looks at build status, only at text.
func (c *Classifier) Classify(log string) []string {
	var matched []string
	for _, sig := range c.catalog.Signatures() {
		if sig.Matches(log) {
			matched = append(matched, sig.Name)
		}
	}
	return matched
}
