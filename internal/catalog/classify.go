package catalog

import "github.com/lehigh-university-libraries/gallery/internal/models"

// Classify returns the type label of an entry. It depends only on the
// entry's origin and the extension of its locator.
func Classify(e models.Entry) models.FileType {
	switch e.Origin() {
	case models.OriginExternalLink:
		return models.TypeLinks
	case models.OriginHTMLDocument:
		return models.TypeTickets
	case models.OriginPDFDocument:
		return models.TypeDocuments
	case models.OriginStatic, models.OriginUserUpload:
		return ByExtension(e.Locator)
	}
	return ByExtension(e.Locator)
}

// ByExtension derives a type from the locator's extension, case-insensitively.
// Unknown or missing extensions are images.
func ByExtension(locator string) models.FileType {
	switch models.Extension(locator) {
	case "gif":
		return models.TypeGIFs
	case "mp4", "mov", "avi", "webm", "mkv":
		return models.TypeVideos
	case "html", "htm":
		return models.TypeTickets
	case "pdf":
		return models.TypeDocuments
	case "json":
		return models.TypeLinks
	}
	return models.TypeImages
}

// MatchesType reports whether an entry is visible under the type filter.
func MatchesType(e models.Entry, filter models.FileType) bool {
	if filter == models.TypeAll || filter == "" {
		return true
	}
	return Classify(e) == filter
}
