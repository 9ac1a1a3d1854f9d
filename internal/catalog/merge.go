package catalog

import "github.com/lehigh-university-libraries/gallery/internal/models"

// Source names one of the input collections of a merge
type Source string

const (
	SourceStatic    Source = "static"
	SourceUploads   Source = "uploads"
	SourceTickets   Source = "tickets"
	SourceDocuments Source = "documents"
	SourceLinks     Source = "links"
)

// Sources lists every source in merge order.
var Sources = []Source{SourceStatic, SourceUploads, SourceTickets, SourceDocuments, SourceLinks}

// AuxiliaryType is the filter that activates an auxiliary source. Static and
// upload sources are always active and return "".
func AuxiliaryType(s Source) models.FileType {
	switch s {
	case SourceTickets:
		return models.TypeTickets
	case SourceDocuments:
		return models.TypeDocuments
	case SourceLinks:
		return models.TypeLinks
	}
	return ""
}

// Active reports whether a source has to be loaded for the given filter.
func Active(s Source, filter models.FileType) bool {
	aux := AuxiliaryType(s)
	if aux == "" {
		return true
	}
	return filter == models.TypeAll || filter == "" || filter == aux
}

// Inputs are the named collections a merge runs over
type Inputs struct {
	Static    []models.Entry
	Uploads   []models.Entry
	Tickets   []models.Entry
	Documents []models.Entry
	Links     []models.Entry
}

func (in Inputs) get(s Source) []models.Entry {
	switch s {
	case SourceStatic:
		return in.Static
	case SourceUploads:
		return in.Uploads
	case SourceTickets:
		return in.Tickets
	case SourceDocuments:
		return in.Documents
	case SourceLinks:
		return in.Links
	}
	return nil
}

// with returns a copy of the inputs with one collection replaced.
func (in Inputs) with(s Source, entries []models.Entry) Inputs {
	switch s {
	case SourceStatic:
		in.Static = entries
	case SourceUploads:
		in.Uploads = entries
	case SourceTickets:
		in.Tickets = entries
	case SourceDocuments:
		in.Documents = entries
	case SourceLinks:
		in.Links = entries
	}
	return in
}

// Merge concatenates every loaded source in fixed order, keeps discovery
// order within each source and applies the type filter last. A locator seen
// twice keeps the slot of its first occurrence and the content of its last
// regardless of the filter.
func Merge(in Inputs, filter models.FileType) Snapshot {
	index := make(map[string]int)
	merged := make([]models.Entry, 0, len(in.Static)+len(in.Uploads))

	for _, src := range Sources {
		for _, e := range in.get(src) {
			if e.Locator == "" {
				continue
			}
			if i, ok := index[e.Locator]; ok {
				merged[i] = e
				continue
			}
			index[e.Locator] = len(merged)
			merged = append(merged, e)
		}
	}

	visible := make([]models.Entry, 0, len(merged))
	for _, e := range merged {
		if MatchesType(e, filter) {
			visible = append(visible, e)
		}
	}
	return Snapshot{filter: filter, entries: visible}
}

// Snapshot is an immutable merged catalog.
type Snapshot struct {
	filter  models.FileType
	entries []models.Entry
}

func (s Snapshot) Filter() models.FileType {
	return s.filter
}

func (s Snapshot) Len() int {
	return len(s.entries)
}

func (s Snapshot) At(i int) models.Entry {
	return s.entries[i]
}

// Entries returns a copy of the snapshot's entries.
func (s Snapshot) Entries() []models.Entry {
	out := make([]models.Entry, len(s.entries))
	copy(out, s.entries)
	return out
}
