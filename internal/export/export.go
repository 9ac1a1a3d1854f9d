// Package export writes a catalog snapshot to Parquet or JSON Lines.
package export

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/lehigh-university-libraries/gallery/internal/catalog"
	"github.com/lehigh-university-libraries/gallery/internal/models"
	"github.com/parquet-go/parquet-go"
)

// Row is the flat export record of one entry
type Row struct {
	Locator  string   `parquet:"locator" json:"locator"`
	Title    string   `parquet:"title" json:"title"`
	AltText  string   `parquet:"alt_text" json:"alt_text"`
	Tags     []string `parquet:"tags,list" json:"tags"`
	Origin   string   `parquet:"origin" json:"origin"`
	Type     string   `parquet:"type" json:"type"`
	Uploader string   `parquet:"uploader" json:"uploader,omitempty"`
	Width    int32    `parquet:"width" json:"width,omitempty"`
	Height   int32    `parquet:"height" json:"height,omitempty"`
}

// Format is an export file format
type Format int

const (
	FormatJSONL Format = iota
	FormatJSONLZstd
	FormatParquet
)

// DetectFormat picks the format from the file extension. compress selects
// zstd for JSON Lines.
func DetectFormat(path string, compress bool) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".parquet":
		if compress {
			slog.Debug("Parquet pages are already compressed, ignoring --compress")
		}
		return FormatParquet, nil
	case ".jsonl", ".ndjson":
		if compress {
			return FormatJSONLZstd, nil
		}
		return FormatJSONL, nil
	case ".zst":
		return FormatJSONLZstd, nil
	default:
		return 0, fmt.Errorf("unsupported export format: %s (use .parquet, .jsonl or .jsonl.zst)", ext)
	}
}

// Rows flattens entries in order.
func Rows(entries []models.Entry) []Row {
	rows := make([]Row, len(entries))
	for i, e := range entries {
		rows[i] = Row{
			Locator:  e.Locator,
			Title:    e.Title,
			AltText:  e.AltText,
			Tags:     e.Tags,
			Origin:   string(e.Origin()),
			Type:     string(catalog.Classify(e)),
			Uploader: e.Uploader,
		}
		if e.Dimensions != nil {
			rows[i].Width = int32(e.Dimensions.Width)
			rows[i].Height = int32(e.Dimensions.Height)
		}
	}
	return rows
}

// WriteFile exports entries to path.
func WriteFile(path string, entries []models.Entry, compress bool) error {
	format, err := DetectFormat(path, compress)
	if err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}

	rows := Rows(entries)
	switch format {
	case FormatParquet:
		err = WriteParquet(file, rows)
	case FormatJSONLZstd:
		err = writeJSONLZstd(file, rows)
	default:
		err = WriteJSONL(file, rows)
	}
	if err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close export file: %w", err)
	}

	slog.Info("Exported catalog", "path", path, "rows", len(rows))
	return nil
}

// WriteParquet writes rows as a single Parquet file.
func WriteParquet(w io.Writer, rows []Row) error {
	writer := parquet.NewGenericWriter[Row](w)
	if _, err := writer.Write(rows); err != nil {
		writer.Close()
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finish parquet file: %w", err)
	}
	return nil
}

// WriteJSONL writes one JSON object per line.
func WriteJSONL(w io.Writer, rows []Row) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			return fmt.Errorf("failed to encode row %s: %w", row.Locator, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to flush rows: %w", err)
	}
	return nil
}

func writeJSONLZstd(w io.Writer, rows []Row) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return fmt.Errorf("failed to create zstd writer: %w", err)
	}
	if err := WriteJSONL(enc, rows); err != nil {
		enc.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to finish zstd stream: %w", err)
	}
	return nil
}

// ReadFile loads an export written by WriteFile. Compressed JSON Lines are
// recognized by the .zst extension.
func ReadFile(path string) ([]Row, error) {
	format, err := DetectFormat(path, false)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open export file: %w", err)
	}
	defer file.Close()

	switch format {
	case FormatParquet:
		info, err := file.Stat()
		if err != nil {
			return nil, fmt.Errorf("failed to stat file: %w", err)
		}
		return readParquet(file, info.Size())
	case FormatJSONLZstd:
		dec, err := zstd.NewReader(file)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd reader: %w", err)
		}
		defer dec.Close()
		return readJSONL(dec)
	default:
		return readJSONL(file)
	}
}

func readParquet(r io.ReaderAt, size int64) ([]Row, error) {
	pf, err := parquet.OpenFile(r, size)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	reader := parquet.NewGenericReader[Row](pf)
	defer reader.Close()

	var rows []Row
	batch := make([]Row, 128)
	for {
		n, err := reader.Read(batch)
		rows = append(rows, batch[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read parquet rows: %w", err)
		}
	}
	return rows, nil
}

func readJSONL(r io.Reader) ([]Row, error) {
	var rows []Row
	dec := json.NewDecoder(r)
	for {
		var row Row
		if err := dec.Decode(&row); err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("failed to decode row %d: %w", len(rows)+1, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
