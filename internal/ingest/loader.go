// Package ingest reads grading tables from disk or a stream into raw rows
// for the validator. It knows file formats, not column semantics.
package ingest

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/gradelens/internal/model"
)

// Format is a supported input encoding
type Format string

const (
	FormatCSV  Format = "csv"
	FormatTSV  Format = "tsv"
	FormatJSON Format = "json"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// FileFormatError reports input that cannot be parsed as a table at all.
// It is distinct from schema and validation failures.
type FileFormatError struct {
	Source string
	Format Format
	Err    error
}

func (e *FileFormatError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("unreadable %s input: %v", e.Format, e.Err)
	}
	return fmt.Sprintf("unreadable %s file %s: %v", e.Format, e.Source, e.Err)
}

func (e *FileFormatError) Unwrap() error {
	return e.Err
}

// DetectFormat picks a format from a file extension. Unknown extensions
// are read as CSV.
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tsv", ".tab":
		return FormatTSV
	case ".json":
		return FormatJSON
	default:
		return FormatCSV
	}
}

// ParseFormat maps a name or MIME type onto a Format.
func ParseFormat(s string) (Format, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if i := strings.IndexByte(s, ';'); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	switch s {
	case "", "csv", "text/csv", "text/plain":
		return FormatCSV, true
	case "tsv", "text/tab-separated-values":
		return FormatTSV, true
	case "json", "application/json":
		return FormatJSON, true
	}
	return "", false
}

// LoadFile reads a table from path, choosing the format by extension.
func LoadFile(path string) ([]string, []model.Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	header, rows, err := Read(f, DetectFormat(path))
	if err != nil {
		var ffe *FileFormatError
		if errors.As(err, &ffe) {
			ffe.Source = path
		}
		return nil, nil, err
	}
	return header, rows, nil
}

// Read parses one table from r. For JSON input the header is the union of
// object keys in first-appearance order, or nil for an empty array since
// no columns were seen.
func Read(r io.Reader, format Format) ([]string, []model.Row, error) {
	switch format {
	case FormatCSV:
		return readDelimited(r, ',', format)
	case FormatTSV:
		return readDelimited(r, '\t', format)
	case FormatJSON:
		return readJSON(r)
	default:
		return nil, nil, &FileFormatError{Format: format, Err: fmt.Errorf("unsupported format %q", format)}
	}
}

func readDelimited(r io.Reader, comma rune, format Format) ([]string, []model.Row, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	cr.Comma = comma
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil, &FileFormatError{Format: format, Err: errors.New("empty input: no header row")}
	}
	if err != nil {
		return nil, nil, &FileFormatError{Format: format, Err: err}
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	rows := []model.Row{}
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, &FileFormatError{Format: format, Err: err}
		}
		// blank lines are dropped and do not take a row index
		if blank(rec) {
			continue
		}
		row := make(model.Row, len(header))
		for i, col := range header {
			row[col] = strings.TrimSpace(rec[i])
		}
		rows = append(rows, row)
	}
	return header, rows, nil
}

func blank(rec []string) bool {
	for _, cell := range rec {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// readJSON accepts an array of objects or {"records": [...]}.
func readJSON(r io.Reader) ([]string, []model.Row, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, &FileFormatError{Format: FormatJSON, Err: err}
	}
	data = bytes.TrimPrefix(bytes.TrimSpace(data), utf8BOM)
	if len(data) == 0 {
		return nil, nil, &FileFormatError{Format: FormatJSON, Err: errors.New("empty input")}
	}

	if data[0] == '{' {
		var wrapped struct {
			Records json.RawMessage `json:"records"`
		}
		if err := decode(data, &wrapped); err != nil {
			return nil, nil, &FileFormatError{Format: FormatJSON, Err: err}
		}
		if len(wrapped.Records) == 0 {
			return nil, nil, &FileFormatError{Format: FormatJSON, Err: errors.New(`object input needs a "records" array`)}
		}
		data = wrapped.Records
	}

	var raw []json.RawMessage
	if err := decode(data, &raw); err != nil {
		return nil, nil, &FileFormatError{Format: FormatJSON, Err: err}
	}
	if len(raw) == 0 {
		return nil, []model.Row{}, nil
	}

	var header []string
	seen := make(map[string]bool)
	rows := make([]model.Row, len(raw))
	for i, obj := range raw {
		var row map[string]any
		if err := decode(obj, &row); err != nil {
			return nil, nil, &FileFormatError{Format: FormatJSON, Err: fmt.Errorf("record %d: %w", i, err)}
		}
		keys, err := objectKeys(obj)
		if err != nil {
			return nil, nil, &FileFormatError{Format: FormatJSON, Err: fmt.Errorf("record %d: %w", i, err)}
		}
		for _, k := range keys {
			if !seen[k] {
				seen[k] = true
				header = append(header, k)
			}
		}
		rows[i] = model.Row(row)
	}
	if header == nil {
		header = []string{}
	}
	return header, rows, nil
}

// objectKeys lists the keys of one JSON object in document order
func objectKeys(obj json.RawMessage) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(obj))
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		if key, ok := tok.(string); ok {
			keys = append(keys, key)
		}
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

func decode(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}
