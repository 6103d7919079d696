// Package assumptions loads and validates a project's economic and technical
// parameters from its code,value CSV.
package assumptions

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Table maps assumption codes to their non-negative values.
type Table map[string]float64

// Value returns the value for a code. Codes in Required are guaranteed present
// after a successful Load.
func (t Table) Value(code string) float64 {
	return t[code]
}

// Get returns the value for a code and whether it was defined.
func (t Table) Get(code string) (float64, bool) {
	v, ok := t[code]
	return v, ok
}

// RowError describes one offending CSV row.
type RowError struct {
	Line   int    `json:"line"`
	Code   string `json:"code"`
	Value  string `json:"value"`
	Reason string `json:"reason"`
}

func (r RowError) String() string {
	return fmt.Sprintf("line %d: %s=%q (%s)", r.Line, r.Code, r.Value, r.Reason)
}

// ValidationError lists every problem found in an assumptions file.
type ValidationError struct {
	Missing   []string   `json:"missing,omitempty"`
	Negative  []RowError `json:"negative,omitempty"`
	Malformed []RowError `json:"malformed,omitempty"`
	Zero      []string   `json:"zero,omitempty"`
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing keys: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Negative) > 0 {
		rows := make([]string, len(e.Negative))
		for i, r := range e.Negative {
			rows[i] = r.String()
		}
		parts = append(parts, "negative values: "+strings.Join(rows, "; "))
	}
	if len(e.Malformed) > 0 {
		rows := make([]string, len(e.Malformed))
		for i, r := range e.Malformed {
			rows[i] = r.String()
		}
		parts = append(parts, "malformed rows: "+strings.Join(rows, "; "))
	}
	if len(e.Zero) > 0 {
		parts = append(parts, "must be non-zero: "+strings.Join(e.Zero, ", "))
	}
	return "assumptions: invalid input: " + strings.Join(parts, "; ")
}

func (e *ValidationError) empty() bool {
	return len(e.Missing) == 0 && len(e.Negative) == 0 && len(e.Malformed) == 0 && len(e.Zero) == 0
}

// Load reads and validates the assumptions CSV at path.
func Load(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "assumptions: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	t, err := Parse(f)
	if err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			return nil, err
		}
		return nil, eris.Wrapf(err, "assumptions: parse %s", path)
	}
	return t, nil
}

// Parse reads a code,value CSV. A leading UTF-8 or UTF-16 BOM is honoured.
// Either every required code is present with a finite value >= 0 (and every
// divisor non-zero), or a
// *ValidationError naming every offending key and row is returned.
func Parse(r io.Reader) (Table, error) {
	reader := csv.NewReader(transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, &ValidationError{Missing: append([]string(nil), Required...)}
	}
	if err != nil {
		return nil, eris.Wrap(err, "assumptions: read header")
	}

	codeIdx, valueIdx := -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "code":
			codeIdx = i
		case "value":
			valueIdx = i
		}
	}
	if codeIdx < 0 || valueIdx < 0 {
		return nil, eris.Errorf("assumptions: header must contain code and value columns, got %v", header)
	}

	table := make(Table)
	verr := &ValidationError{}
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, eris.Wrapf(err, "assumptions: read line %d", line)
		}
		if len(record) <= codeIdx || len(record) <= valueIdx {
			verr.Malformed = append(verr.Malformed, RowError{Line: line, Reason: "too few columns"})
			continue
		}

		code := strings.TrimSpace(record[codeIdx])
		raw := strings.TrimSpace(record[valueIdx])
		if code == "" {
			if raw == "" {
				continue
			}
			verr.Malformed = append(verr.Malformed, RowError{Line: line, Value: raw, Reason: "empty code"})
			continue
		}
		if _, dup := table[code]; dup {
			verr.Malformed = append(verr.Malformed, RowError{Line: line, Code: code, Value: raw, Reason: "duplicate code"})
			continue
		}

		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			verr.Malformed = append(verr.Malformed, RowError{Line: line, Code: code, Value: raw, Reason: "not a finite number"})
			continue
		}
		if v < 0 {
			verr.Negative = append(verr.Negative, RowError{Line: line, Code: code, Value: raw, Reason: "must be >= 0"})
			continue
		}
		table[code] = v
	}

	malformed := make(map[string]bool)
	for _, m := range verr.Malformed {
		malformed[m.Code] = true
	}
	for _, n := range verr.Negative {
		malformed[n.Code] = true
	}
	for _, code := range Required {
		if _, ok := table[code]; !ok && !malformed[code] {
			verr.Missing = append(verr.Missing, code)
		}
	}
	sort.Strings(verr.Missing)

	for _, code := range Divisors {
		if v, ok := table[code]; ok && v == 0 {
			verr.Zero = append(verr.Zero, code)
		}
	}

	if !verr.empty() {
		return nil, verr
	}
	return table, nil
}
