package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Encodings reported in Result.Encoding.
const (
	EncodingUTF8   = "utf-8"
	EncodingLatin1 = "latin-1"
)

// sniffSize is how much of the file is inspected for the separator.
const sniffSize = 1024

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Row is one data line of a CSV file.
type Row struct {
	Line   int // 1-based line number in the file
	Fields []string
}

// sheet is a decoded CSV file: header plus data rows.
type sheet struct {
	encoding  string
	delimiter rune
	header    []string
	rows      []Row
}

// readSheet decodes path and splits it into header and rows. UTF-8 (with or
// without BOM) is tried first; anything else is read as Latin-1 with a
// semicolon separator.
func readSheet(path string) (*sheet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	s := &sheet{encoding: EncodingUTF8}
	if utf8.Valid(data) {
		data = bytes.TrimPrefix(data, utf8BOM)
		s.delimiter = sniffDelimiter(data)
	} else {
		decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
		if err != nil {
			return nil, fmt.Errorf("decoding %s as latin-1: %w", path, err)
		}
		data = decoded
		s.encoding = EncodingLatin1
		s.delimiter = ';'
	}

	if err := s.parse(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return s, nil
}

// sniffDelimiter prefers ';' when it appears in the first kilobyte.
func sniffDelimiter(data []byte) rune {
	sample := data[:min(len(data), sniffSize)]
	if bytes.IndexByte(sample, ';') >= 0 {
		return ';'
	}
	return ','
}

func (s *sheet) parse(r io.Reader) error {
	cr := csv.NewReader(r)
	cr.Comma = s.delimiter
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("header: %w", err)
	}
	s.header = trimHeader(header)

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		line, _ := cr.FieldPos(0)
		s.rows = append(s.rows, Row{Line: line, Fields: rec})
	}
}

// trimHeader drops a header that holds only blank names.
func trimHeader(header []string) []string {
	for _, h := range header {
		if strings.TrimSpace(h) != "" {
			return header
		}
	}
	return nil
}
