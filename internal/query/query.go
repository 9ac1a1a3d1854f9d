// Package query filters a merged catalog by free text and type.
package query

import (
	"strings"

	"github.com/lehigh-university-libraries/gallery/internal/catalog"
	"github.com/lehigh-university-libraries/gallery/internal/models"
)

// Options are the user controlled filters
type Options struct {
	Text string
	Type models.FileType
}

// Normalize trims and lowercases a query.
func Normalize(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}

// Haystack is the searchable text of an entry.
func Haystack(e models.Entry) string {
	parts := make([]string, 0, 3+len(e.Tags))
	for _, p := range append([]string{e.Title, e.Filename()}, e.Tags...) {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if e.AltText != "" {
		parts = append(parts, e.AltText)
	}
	return strings.ToLower(strings.Join(parts, " "))
}

// Matches reports whether the entry contains the query as a substring.
// A blank query matches everything.
func Matches(e models.Entry, q string) bool {
	s := Normalize(q)
	if s == "" {
		return true
	}
	return strings.Contains(Haystack(e), s)
}

// Filter returns the entries of the snapshot that satisfy both the text and type predicates.
func Filter(snap catalog.Snapshot, opts Options) []models.Entry {
	q := Normalize(opts.Text)
	out := make([]models.Entry, 0, snap.Len())
	for i := 0; i < snap.Len(); i++ {
		e := snap.At(i)
		if !catalog.MatchesType(e, opts.Type) {
			continue
		}
		if q != "" && !strings.Contains(Haystack(e), q) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Run merges the inputs and filters the result in one step.
func Run(in catalog.Inputs, opts Options) []models.Entry {
	return Filter(catalog.Merge(in, opts.Type), opts)
}
