package query

import (
	"testing"

	"github.com/lehigh-university-libraries/gallery/internal/catalog"
	"github.com/lehigh-university-libraries/gallery/internal/models"
)

func mustEntry(t *testing.T, origin models.Origin, locator string) models.Entry {
	t.Helper()
	e, err := models.NewEntry(origin, locator)
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func TestMatches(t *testing.T) {
	e := mustEntry(t, models.OriginStatic, "/cdn/animals/Cat_Photo.png")
	e.Title = "Cat Photo"
	e.Tags = []string{"animals", "cat_photo.png"}
	e.AltText = "A sleepy tabby"

	tests := []struct {
		name     string
		query    string
		expected bool
	}{
		{"empty", "", true},
		{"whitespace", "   \t", true},
		{"title", "cat", true},
		{"case insensitive", "  PHOTO ", true},
		{"filename", "cat_photo.png", true},
		{"tag", "animals", true},
		{"alt text", "tabby", true},
		{"not tokenized", "sleepy tab", true},
		{"absent", "dog", false},
		{"not fuzzy", "ct", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Matches(e, tt.query); got != tt.expected {
				t.Errorf("Matches(%q) = %v, want %v", tt.query, got, tt.expected)
			}
		})
	}
}

func TestNonEmptyQueryNeverAddsResults(t *testing.T) {
	in := catalog.Inputs{
		Static: []models.Entry{
			mustEntry(t, models.OriginStatic, "/cdn/a.png"),
			mustEntry(t, models.OriginStatic, "/cdn/b.gif"),
			mustEntry(t, models.OriginStatic, "/cdn/clip.mp4"),
		},
	}
	for _, ft := range models.FileTypes {
		base := Run(in, Options{Type: ft})
		seen := make(map[string]bool, len(base))
		for _, e := range base {
			seen[e.Locator] = true
		}
		for _, q := range []string{"a", "gif", "cdn", "zzz", "clip"} {
			for _, e := range Run(in, Options{Text: q, Type: ft}) {
				if !seen[e.Locator] {
					t.Errorf("query %q type %s added %s", q, ft, e.Locator)
				}
			}
		}
	}
}

func TestEndToEndUploadByUploader(t *testing.T) {
	static := mustEntry(t, models.OriginStatic, "/cdn/a.png")
	static.Title = "A"
	static.Tags = []string{"a.png"}

	upload := mustEntry(t, models.OriginUserUpload, "https://store/users/alice/b.gif")
	upload.Title = "b"
	upload.Uploader = "alice"
	upload.Tags = []string{"user-upload", "alice"}

	got := Run(catalog.Inputs{
		Static:  []models.Entry{static},
		Uploads: []models.Entry{upload},
	}, Options{Text: "alice", Type: models.TypeGIFs})

	if len(got) != 1 || got[0].Locator != upload.Locator {
		t.Fatalf("Expected only the upload entry, got %+v", got)
	}
}
