// Package export writes a project's scenario rows and indicator bounds to
// XLSX workbooks or CSV files.
package export

import (
	"context"
	"encoding/csv"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/urban-performance/internal/model"
)

// Sheet names of an exported workbook.
const (
	SheetScenarios = "scenarios"
	SheetBounds    = "bounds"
)

// RowSource streams a project's persisted rows.
type RowSource interface {
	EachRow(ctx context.Context, projectID string, fn func(model.IndicatorRow) error) error
}

// Header returns the exported column names: the scenario axes followed by
// every indicator.
func Header() []string {
	return model.ResultColumns()[1:]
}

// IsCSV reports whether path names a CSV file.
func IsCSV(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".csv")
}

func rowValues(r *model.IndicatorRow) []any {
	out := r.Scenario.Values()
	for _, v := range r.Indicators.Values() {
		out = append(out, v)
	}
	return out
}

func formatValue(v any) string {
	switch t := v.(type) {
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case string:
		return t
	default:
		return ""
	}
}

// WriteXLSX writes the project's rows to a "scenarios" sheet and, when the
// project has bounds, the indicator ranges to a "bounds" sheet. It returns
// the number of rows written.
func WriteXLSX(ctx context.Context, src RowSource, project *model.Project, path string) (int, error) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(SheetScenarios)
	if err != nil {
		return 0, eris.Wrap(err, "export: add scenarios sheet")
	}

	header := sheet.AddRow()
	for _, col := range Header() {
		header.AddCell().SetString(col)
	}

	n := 0
	err = src.EachRow(ctx, project.ID, func(r model.IndicatorRow) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		row := sheet.AddRow()
		for _, v := range rowValues(&r) {
			cell := row.AddCell()
			switch t := v.(type) {
			case float64:
				cell.SetFloat(t)
			case string:
				cell.SetString(t)
			}
		}
		n++
		return nil
	})
	if err != nil {
		return n, eris.Wrapf(err, "export: read rows of %s", project.ID)
	}

	if len(project.Bounds) > 0 {
		if err := addBoundsSheet(f, project.Bounds); err != nil {
			return n, err
		}
	}

	if err := f.Save(path); err != nil {
		return n, eris.Wrapf(err, "export: save %s", path)
	}
	return n, nil
}

func addBoundsSheet(f *xlsx.File, bounds model.Bounds) error {
	sheet, err := f.AddSheet(SheetBounds)
	if err != nil {
		return eris.Wrap(err, "export: add bounds sheet")
	}
	header := sheet.AddRow()
	for _, col := range []string{"indicator", "min", "max"} {
		header.AddCell().SetString(col)
	}
	for _, col := range model.IndicatorColumns {
		rng, ok := bounds[col]
		if !ok {
			continue
		}
		row := sheet.AddRow()
		row.AddCell().SetString(col)
		row.AddCell().SetFloat(rng.Min)
		row.AddCell().SetFloat(rng.Max)
	}
	return nil
}

// WriteCSV writes a header line and one line per row of projectID to w.
func WriteCSV(ctx context.Context, src RowSource, projectID string, w io.Writer) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header()); err != nil {
		return 0, eris.Wrap(err, "export: write csv header")
	}

	n := 0
	record := make([]string, len(Header()))
	err := src.EachRow(ctx, projectID, func(r model.IndicatorRow) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		for i, v := range rowValues(&r) {
			record[i] = formatValue(v)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
		n++
		return nil
	})
	if err != nil {
		return n, eris.Wrapf(err, "export: write csv rows of %s", projectID)
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return n, eris.Wrap(err, "export: flush csv")
	}
	return n, nil
}
