package uploads

import (
	"regexp"
	"strings"

	"github.com/lehigh-university-libraries/gallery/internal/models"
	"github.com/lehigh-university-libraries/gallery/internal/storage"
)

var (
	allowedExt    = regexp.MustCompile(`(?i)\.(png|jpe?g|gif|svg)$`)
	numericPrefix = regexp.MustCompile(`^\d+-`)
	extSuffix     = regexp.MustCompile(`\.[^.]+$`)
	separators    = regexp.MustCompile(`[\-_]+`)
)

// Allowed reports whether an object name is an image upload that belongs in the
// catalog: it has an allow-listed extension and no hidden path segment.
func Allowed(name string) bool {
	if name == "" || !allowedExt.MatchString(name) {
		return false
	}
	for _, seg := range strings.Split(name, "/") {
		if strings.HasPrefix(seg, ".") {
			return false
		}
	}
	return true
}

// Title turns an uploaded filename into a display label.
func Title(filename string) string {
	t := numericPrefix.ReplaceAllString(filename, "")
	t = extSuffix.ReplaceAllString(t, "")
	return separators.ReplaceAllString(t, " ")
}

// Uploader is the first path segment of an object name.
func Uploader(name string) string {
	first, _, _ := strings.Cut(name, "/")
	if first == "" {
		return "unknown"
	}
	return first
}

// ToEntries converts a namespace listing into catalog entries, keeping the
// listing order. publicURL resolves a bucket path to its address.
func ToEntries(objects []storage.Object, namespace string, publicURL func(string) string) []models.Entry {
	entries := make([]models.Entry, 0, len(objects))
	for _, obj := range objects {
		if !Allowed(obj.Name) {
			continue
		}
		e, err := models.NewEntry(models.OriginUserUpload, publicURL(namespace+"/"+obj.Name))
		if err != nil {
			continue
		}
		uploader := Uploader(obj.Name)
		e.Title = Title(models.Filename(obj.Name))
		e.AltText = "Upload by " + uploader
		e.Tags = []string{"user-upload", strings.ToLower(uploader)}
		e.Uploader = uploader
		entries = append(entries, e)
	}
	return entries
}
