// Package manifest enumerates the media bundled under the content root and
// turns file paths into catalog entries.
package manifest

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"log/slog"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/lehigh-university-libraries/gallery/internal/models"
)

// StaticExtensions are the media types bundled into the static catalog.
var StaticExtensions = map[string]bool{
	"png": true, "jpg": true, "jpeg": true, "gif": true, "svg": true, "mp4": true, "mov": true,
}

var (
	separators = regexp.MustCompile(`[\-_]+`)
	wordStart  = regexp.MustCompile(`\b\w`)
)

// TitleFromPath derives a Title Cased label from a file path.
func TitleFromPath(p string) string {
	base := path.Base(p)
	name := strings.TrimSuffix(base, path.Ext(base))
	name = separators.ReplaceAllString(name, " ")
	return wordStart.ReplaceAllStringFunc(name, strings.ToUpper)
}

// TagsFromPath returns the lowercase path segments, skipping the static prefix.
func TagsFromPath(p, prefix string) []string {
	var tags []string
	for _, seg := range strings.Split(p, "/") {
		if seg == "" || strings.EqualFold(seg, prefix) {
			continue
		}
		tags = append(tags, strings.ToLower(seg))
	}
	return tags
}

// Builder synthesizes entries from the files of a content root
type Builder struct {
	fsys   fs.FS
	prefix string
}

// NewBuilder returns a builder over fsys. Static media is read from the prefix directory.
func NewBuilder(fsys fs.FS, prefix string) *Builder {
	return &Builder{fsys: fsys, prefix: strings.Trim(prefix, "/")}
}

// Static enumerates bundled media under the prefix, sorted by path.
func (b *Builder) Static() ([]models.Entry, error) {
	paths, err := b.glob(b.prefix, func(ext string) bool { return StaticExtensions[ext] })
	if err != nil {
		return nil, err
	}

	entries := make([]models.Entry, 0, len(paths))
	for _, p := range paths {
		e, err := models.NewEntry(models.OriginStatic, "/"+p)
		if err != nil {
			return nil, err
		}
		e.Title = TitleFromPath(p)
		e.AltText = e.Title + " image"
		e.Tags = TagsFromPath(p, b.prefix)
		e.Dimensions = b.dimensions(p)
		entries = append(entries, e)
	}
	return entries, nil
}

// Documents enumerates every PDF under the content root.
func (b *Builder) Documents() ([]models.Entry, error) {
	paths, err := b.glob(".", func(ext string) bool { return ext == "pdf" })
	if err != nil {
		return nil, err
	}

	entries := make([]models.Entry, 0, len(paths))
	for _, p := range paths {
		e, err := models.NewEntry(models.OriginPDFDocument, "/"+p)
		if err != nil {
			return nil, err
		}
		e.Title = TitleFromPath(p)
		e.AltText = e.Title + " PDF document"
		e.Tags = append([]string{"document", "pdf"}, TagsFromPath(p, b.prefix)...)
		e.Dimensions = &models.Dimensions{Width: 800, Height: 600}
		entries = append(entries, e)
	}
	return entries, nil
}

func (b *Builder) glob(root string, want func(ext string) bool) ([]string, error) {
	if root == "" {
		root = "."
	}
	var paths []string
	err := fs.WalkDir(b.fsys, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == root && errors.Is(err, fs.ErrNotExist) {
				return fs.SkipDir
			}
			return err
		}
		if d.IsDir() {
			if p != root && strings.HasPrefix(d.Name(), ".") {
				return fs.SkipDir
			}
			return nil
		}
		if want(models.Extension(p)) {
			paths = append(paths, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate %s: %w", root, err)
	}
	sort.Strings(paths)
	return paths, nil
}

func (b *Builder) dimensions(p string) *models.Dimensions {
	switch models.Extension(p) {
	case "png", "jpg", "jpeg", "gif":
	default:
		return nil
	}

	file, err := b.fsys.Open(p)
	if err != nil {
		slog.Warn("Failed to open media for dimensions", "path", p, "err", err)
		return nil
	}
	defer file.Close()

	cfg, _, err := image.DecodeConfig(file)
	if err != nil {
		slog.Warn("Failed to get image dimensions", "path", p, "err", err)
		return nil
	}
	return &models.Dimensions{Width: cfg.Width, Height: cfg.Height}
}
