package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/gallery/internal/models"
	"gopkg.in/yaml.v3"
)

// Record is the on-disk form of an entry
type Record struct {
	Locator    string             `json:"locator" yaml:"locator"`
	Title      string             `json:"title" yaml:"title"`
	AltText    string             `json:"alt_text,omitempty" yaml:"alt_text,omitempty"`
	Tags       []string           `json:"tags,omitempty" yaml:"tags,omitempty"`
	Dimensions *models.Dimensions `json:"dimensions,omitempty" yaml:"dimensions,omitempty"`
}

// Manifest is the build output: static media and bundled documents
type Manifest struct {
	Generated time.Time `json:"generated" yaml:"generated"`
	Static    []Record  `json:"static" yaml:"static"`
	Documents []Record  `json:"documents" yaml:"documents"`
}

func toRecords(entries []models.Entry) []Record {
	out := make([]Record, 0, len(entries))
	for _, e := range entries {
		out = append(out, Record{
			Locator:    e.Locator,
			Title:      e.Title,
			AltText:    e.AltText,
			Tags:       e.Tags,
			Dimensions: e.Dimensions,
		})
	}
	return out
}

func toEntries(records []Record, origin models.Origin) ([]models.Entry, error) {
	out := make([]models.Entry, 0, len(records))
	for i, r := range records {
		e, err := models.NewEntry(origin, r.Locator)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		e.Title = r.Title
		e.AltText = r.AltText
		e.Tags = r.Tags
		e.Dimensions = r.Dimensions
		out = append(out, e)
	}
	return out, nil
}

// New builds a manifest from static and document entries.
func New(static, documents []models.Entry) Manifest {
	return Manifest{
		Generated: time.Now().UTC(),
		Static:    toRecords(static),
		Documents: toRecords(documents),
	}
}

// Build enumerates the content root into a manifest.
func (b *Builder) Build() (Manifest, error) {
	static, err := b.Static()
	if err != nil {
		return Manifest{}, err
	}
	docs, err := b.Documents()
	if err != nil {
		return Manifest{}, err
	}
	return New(static, docs), nil
}

func (m Manifest) StaticEntries() ([]models.Entry, error) {
	return toEntries(m.Static, models.OriginStatic)
}

func (m Manifest) DocumentEntries() ([]models.Entry, error) {
	return toEntries(m.Documents, models.OriginPDFDocument)
}

// Save writes the manifest as JSON or YAML depending on the file extension.
func (m Manifest) Save(path string) error {
	var (
		data []byte
		err  error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		data, err = json.MarshalIndent(m, "", "  ")
	case ".yaml", ".yml":
		data, err = yaml.Marshal(m)
	default:
		return fmt.Errorf("unsupported manifest format: %s (supported: .json, .yaml)", ext)
	}
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create manifest directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// Load reads a manifest written by Save.
func Load(path string) (Manifest, error) {
	var m Manifest
	data, err := os.ReadFile(path)
	if err != nil {
		return m, fmt.Errorf("failed to read manifest: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = json.Unmarshal(data, &m)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &m)
	default:
		return m, fmt.Errorf("unsupported manifest format: %s (supported: .json, .yaml)", ext)
	}
	if err != nil {
		return m, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return m, nil
}
