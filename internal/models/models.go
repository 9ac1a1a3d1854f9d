package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
)

// ErrEmptyLocator is returned when an entry is constructed without a locator.
var ErrEmptyLocator = errors.New("entry locator is empty")

// Origin is the provenance category of an entry
type Origin string

const (
	OriginStatic       Origin = "static"
	OriginUserUpload   Origin = "user-upload"
	OriginHTMLDocument Origin = "html-document"
	OriginPDFDocument  Origin = "pdf-document"
	OriginExternalLink Origin = "external-link"
)

// Origins lists every origin in merge order.
var Origins = []Origin{OriginStatic, OriginUserUpload, OriginHTMLDocument, OriginPDFDocument, OriginExternalLink}

func (o Origin) Valid() bool {
	switch o {
	case OriginStatic, OriginUserUpload, OriginHTMLDocument, OriginPDFDocument, OriginExternalLink:
		return true
	}
	return false
}

// FileType is the type label used by the gallery tabs
type FileType string

const (
	TypeAll       FileType = "all"
	TypeImages    FileType = "images"
	TypeGIFs      FileType = "gifs"
	TypeVideos    FileType = "videos"
	TypeTickets   FileType = "tickets"
	TypeDocuments FileType = "documents"
	TypeLinks     FileType = "links"
)

// FileTypes lists the filters in tab order.
var FileTypes = []FileType{TypeAll, TypeImages, TypeGIFs, TypeVideos, TypeTickets, TypeDocuments, TypeLinks}

// ParseFileType maps a user supplied filter to a FileType. The empty string is "all".
func ParseFileType(s string) (FileType, error) {
	if s == "" {
		return TypeAll, nil
	}
	for _, t := range FileTypes {
		if strings.EqualFold(s, string(t)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown file type %q", s)
}

// Dimensions are layout hints for an entry's media
type Dimensions struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// Entry is one addressable media or link item in the catalog.
// The origin is fixed at construction.
type Entry struct {
	Locator    string
	Title      string
	AltText    string
	Tags       []string
	Dimensions *Dimensions
	Uploader   string

	origin Origin
}

// NewEntry returns an entry with the given origin and locator.
func NewEntry(origin Origin, locator string) (Entry, error) {
	if locator == "" {
		return Entry{}, ErrEmptyLocator
	}
	if !origin.Valid() {
		return Entry{}, fmt.Errorf("invalid origin %q", origin)
	}
	return Entry{Locator: locator, origin: origin}, nil
}

func (e Entry) Origin() Origin {
	return e.origin
}

// Filename is the last path component of the locator, ignoring any query or fragment.
func (e Entry) Filename() string {
	return Filename(e.Locator)
}

// IsUserUpload reports whether the entry came from the live upload feed
func (e Entry) IsUserUpload() bool {
	return e.origin == OriginUserUpload
}

// Filename returns the last path component of a path or URL.
func Filename(locator string) string {
	p := locator
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[i+1:]
	}
	return p
}

// Extension returns the lowercase extension of the locator's filename without the dot.
func Extension(locator string) string {
	ext := path.Ext(Filename(locator))
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

type entryJSON struct {
	Locator    string      `json:"locator"`
	Title      string      `json:"title"`
	AltText    string      `json:"alt_text,omitempty"`
	Tags       []string    `json:"tags"`
	Dimensions *Dimensions `json:"dimensions,omitempty"`
	Origin     Origin      `json:"origin"`
	Uploader   string      `json:"uploader,omitempty"`
}

func (e Entry) MarshalJSON() ([]byte, error) {
	tags := e.Tags
	if tags == nil {
		tags = []string{}
	}
	return json.Marshal(entryJSON{
		Locator:    e.Locator,
		Title:      e.Title,
		AltText:    e.AltText,
		Tags:       tags,
		Dimensions: e.Dimensions,
		Origin:     e.origin,
		Uploader:   e.Uploader,
	})
}

func (e *Entry) UnmarshalJSON(data []byte) error {
	var raw entryJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	entry, err := NewEntry(raw.Origin, raw.Locator)
	if err != nil {
		return err
	}
	entry.Title = raw.Title
	entry.AltText = raw.AltText
	entry.Tags = raw.Tags
	entry.Dimensions = raw.Dimensions
	if raw.Origin == OriginUserUpload {
		entry.Uploader = raw.Uploader
	}
	*e = entry
	return nil
}
