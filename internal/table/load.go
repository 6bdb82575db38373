package table

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// LoadError reports a CSV that could not be read or parsed. It is terminal
// for a pipeline run.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("Failed to load CSV: %v", e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// ErrNoColumns is returned for an empty input file.
var ErrNoColumns = errors.New("no columns to parse from file")

// nullTokens are the cell values read as missing.
var nullTokens = map[string]struct{}{
	"": {}, "#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {}, "N/A": {},
	"NA": {}, "NULL": {}, "NaN": {}, "None": {}, "n/a": {}, "nan": {}, "null": {},
}

// IsNullToken reports whether a raw cell value is read as missing.
func IsNullToken(s string) bool {
	_, ok := nullTokens[s]
	return ok
}

// Load reads a comma separated file with a header row. The content is decoded
// as UTF-8; if it is not valid UTF-8 it is decoded once more as Latin-1.
func Load(path string) (*Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(raw) {
		dec, derr := charmap.ISO8859_1.NewDecoder().Bytes(raw)
		if derr != nil {
			return nil, &LoadError{Path: path, Err: fmt.Errorf("decode latin-1: %w", derr)}
		}
		raw = dec
	}
	t, err := Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	return t, nil
}

// Parse reads decoded CSV text into a Table. Short rows are padded with
// missing cells; rows longer than the header are an error.
func Parse(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoColumns
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	names := headerNames(header)
	cells := make([][]string, len(names))
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse csv: %w", err)
		}
		line++
		if len(rec) > len(names) {
			return nil, fmt.Errorf("error tokenizing data: expected %d fields in line %d, saw %d", len(names), line, len(rec))
		}
		for i := range names {
			if i < len(rec) {
				cells[i] = append(cells[i], rec[i])
			} else {
				cells[i] = append(cells[i], "")
			}
		}
	}
	t := &Table{Columns: make([]*Column, len(names))}
	for i, name := range names {
		t.Columns[i] = buildColumn(name, cells[i])
	}
	return t, nil
}

// headerNames fills blank header cells and suffixes repeated names with .1, .2, ...
func headerNames(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		name := h
		if strings.TrimSpace(name) == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		if n, ok := seen[name]; ok {
			base := name
			for {
				n++
				name = fmt.Sprintf("%s.%d", base, n)
				if _, dup := seen[name]; !dup {
					break
				}
			}
			seen[base] = n
		}
		seen[name] = 0
		out[i] = name
	}
	return out
}

// buildColumn infers the column kind. A column is numeric when it has at
// least one non-missing cell and every non-missing cell parses as a number.
func buildColumn(name string, raw []string) *Column {
	nums := make([]float64, len(raw))
	null := make([]bool, len(raw))
	numeric := false
	integral := true
	for i, s := range raw {
		if IsNullToken(s) {
			null[i] = true
			integral = false
			continue
		}
		v, ok := parseNumber(s)
		if !ok {
			numeric = false
			break
		}
		numeric = true
		nums[i] = v
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			integral = false
		}
	}
	if numeric {
		return &Column{Name: name, Kind: Numeric, Integral: integral, Nums: nums, Null: null}
	}
	c := &Column{Name: name, Kind: Text, Strs: make([]string, len(raw)), Null: make([]bool, len(raw))}
	for i, s := range raw {
		if IsNullToken(s) {
			c.Null[i] = true
			continue
		}
		c.Strs[i] = s
	}
	return c
}

func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if strings.ContainsAny(s, "xX_") {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
