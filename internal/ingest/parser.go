package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/iancoleman/strcase"
	"golang.org/x/text/encoding/charmap"
)

// CSV encodings accepted by NewParser
const (
	EncodingUTF8        = "utf-8"
	EncodingWindows1251 = "windows-1251"
)

// Header key styles accepted in CSVOptions.HeaderCase
const (
	HeaderAsIs  = "as-is"
	HeaderCamel = "camel"
	HeaderSnake = "snake"
)

// ErrEmptyHeader is returned when the CSV file has no header row
var ErrEmptyHeader = errors.New("csv header is empty")

// CSVOptions configures CSV parsing
type CSVOptions struct {
	Encoding  string `json:"encoding" validate:"omitempty,oneof=utf-8 windows-1251"` // "utf-8" or "windows-1251"
	Delimiter string `json:"delimiter" validate:"omitempty,oneof=; 0x2C"`            // ";" or ","
	// HeaderCase rewrites header names into record keys; empty keeps them as-is
	HeaderCase string `json:"headerCase" validate:"omitempty,oneof=as-is camel snake"`
}

// Parser reads records from a CSV file whose first row holds field names
type Parser struct {
	file   *os.File
	reader *csv.Reader
	header []string
	rowNo  int64
}

// NewParser opens inputPath (which must resolve inside allowedBaseDir) and reads its header
func NewParser(inputPath, allowedBaseDir string, opts CSVOptions) (*Parser, error) {
	// Validate and resolve input path (with symlink resolution)
	resolvedPath, err := ValidatePath(inputPath, allowedBaseDir)
	if err != nil {
		return nil, err
	}

	if err := ValidatePathExists(resolvedPath); err != nil {
		return nil, err
	}

	file, err := os.Open(resolvedPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	p, err := newParser(file, opts)
	if err != nil {
		file.Close()
		return nil, err
	}
	p.file = file
	return p, nil
}

func newParser(r io.Reader, opts CSVOptions) (*Parser, error) {
	switch opts.Encoding {
	case "", EncodingUTF8:
	case EncodingWindows1251:
		r = charmap.Windows1251.NewDecoder().Reader(r)
	default:
		return nil, fmt.Errorf("unsupported encoding: %s", opts.Encoding)
	}

	csvReader := csv.NewReader(r)
	csvReader.Comma = ','
	if opts.Delimiter != "" {
		csvReader.Comma = rune(opts.Delimiter[0])
	}
	csvReader.LazyQuotes = true
	csvReader.TrimLeadingSpace = true
	csvReader.FieldsPerRecord = -1

	header, err := csvReader.Read()
	if err == io.EOF {
		return nil, ErrEmptyHeader
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	names := make([]string, len(header))
	for i, name := range header {
		names[i], err = headerKey(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")), opts.HeaderCase)
		if err != nil {
			return nil, err
		}
	}
	if len(names) == 0 || (len(names) == 1 && names[0] == "") {
		return nil, ErrEmptyHeader
	}

	return &Parser{reader: csvReader, header: names}, nil
}

func headerKey(name, style string) (string, error) {
	switch style {
	case "", HeaderAsIs:
		return name, nil
	case HeaderCamel:
		return strcase.ToLowerCamel(name), nil
	case HeaderSnake:
		return strcase.ToSnake(name), nil
	default:
		return "", fmt.Errorf("unsupported header case: %s", style)
	}
}

// Close closes the underlying file
func (p *Parser) Close() error {
	if p.file != nil {
		return p.file.Close()
	}
	return nil
}

// Header returns the field names read from the first row
func (p *Parser) Header() []string {
	return p.header
}

// ReadRecord reads the next data row as a Record.
// Missing trailing cells become empty strings; extra cells are ignored.
func (p *Parser) ReadRecord(ctx context.Context) (Record, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	row, err := p.reader.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, fmt.Errorf("csv read error: %w", err)
	}
	p.rowNo++

	rec := make(Record, len(p.header))
	for i, name := range p.header {
		if i < len(row) {
			rec[name] = row[i]
		} else {
			rec[name] = ""
		}
	}
	return rec, nil
}

// GetRowNo returns current row number (data rows only)
func (p *Parser) GetRowNo() int64 {
	return p.rowNo
}

// ReadCSV reads every record of the CSV file at inputPath
func ReadCSV(ctx context.Context, inputPath, allowedBaseDir string, opts CSVOptions) ([]Record, error) {
	p, err := NewParser(inputPath, allowedBaseDir, opts)
	if err != nil {
		return nil, err
	}
	defer p.Close()

	return readAll(ctx, p)
}

func readAll(ctx context.Context, p *Parser) ([]Record, error) {
	var records []Record
	for {
		rec, err := p.ReadRecord(ctx)
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", p.GetRowNo()+1, err)
		}
		records = append(records, rec)
	}
}
