package store

import (
	"fmt"
	"strings"

	"github.com/sells-group/urban-performance/internal/model"
)

// ResultsTable holds one row per (project, scenario).
const ResultsTable = "scenario_results"

// dialect holds the type names that differ between backends.
type dialect struct {
	text, float, integer, json, blob, timestamp, now string
}

var (
	postgresDialect = dialect{
		text: "TEXT", float: "DOUBLE PRECISION", integer: "INTEGER",
		json: "JSONB", blob: "BYTEA", timestamp: "TIMESTAMPTZ", now: "now()",
	}
	sqliteDialect = dialect{
		text: "TEXT", float: "REAL", integer: "INTEGER",
		json: "TEXT", blob: "BLOB", timestamp: "DATETIME", now: "(datetime('now'))",
	}
)

var levelColumns = map[string]bool{
	"energy_efficiency": true,
	"solar_energy":      true,
	"rwh":               true,
}

func migration(d dialect) string {
	var b strings.Builder
	fmt.Fprintf(&b, `
CREATE TABLE IF NOT EXISTS projects (
	id              %[1]s PRIMARY KEY,
	name            %[1]s NOT NULL DEFAULT '',
	status          %[1]s NOT NULL DEFAULT 'processing',
	progress        %[2]s NOT NULL DEFAULT 0,
	generation      %[1]s NOT NULL,
	error           %[1]s NOT NULL DEFAULT '',
	bounds          %[3]s,
	partial_results %[4]s,
	updated_at      %[5]s NOT NULL DEFAULT %[6]s
);

CREATE INDEX IF NOT EXISTS idx_projects_status ON projects(status);
`, d.text, d.integer, d.json, d.blob, d.timestamp, d.now)

	cols := make([]string, 0, len(model.ResultColumns()))
	for _, c := range model.ResultColumns() {
		typ := d.float
		if c == "project_id" || (isScenarioColumn(c) && !levelColumns[c]) {
			typ = d.text
		}
		cols = append(cols, fmt.Sprintf("\t%s %s NOT NULL", quoteIdent(c), typ))
	}
	fmt.Fprintf(&b, "\nCREATE TABLE IF NOT EXISTS %s (\n%s\n);\n", ResultsTable, strings.Join(cols, ",\n"))

	keys := make([]string, 0, len(model.ConflictColumns()))
	for _, c := range model.ConflictColumns() {
		keys = append(keys, quoteIdent(c))
	}
	fmt.Fprintf(&b, "\nCREATE UNIQUE INDEX IF NOT EXISTS idx_%s_scenario ON %s (%s);\n",
		ResultsTable, ResultsTable, strings.Join(keys, ", "))
	return b.String()
}

func isScenarioColumn(c string) bool {
	for _, s := range model.ScenarioColumns {
		if s == c {
			return true
		}
	}
	return false
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func quotedColumns(cols []string) string {
	q := make([]string, len(cols))
	for i, c := range cols {
		q[i] = quoteIdent(c)
	}
	return strings.Join(q, ", ")
}

// boundsSelect builds one query returning the row count followed by min and
// max of every indicator column.
func boundsSelect(placeholder string) string {
	parts := make([]string, 0, 1+2*len(model.IndicatorColumns))
	parts = append(parts, "COUNT(*)")
	for _, c := range model.IndicatorColumns {
		q := quoteIdent(c)
		parts = append(parts, "MIN("+q+")", "MAX("+q+")")
	}
	return fmt.Sprintf("SELECT %s FROM %s WHERE project_id = %s",
		strings.Join(parts, ", "), ResultsTable, placeholder)
}

func rowsSelect(placeholder string) string {
	return fmt.Sprintf("SELECT %s FROM %s WHERE project_id = %s ORDER BY %s",
		quotedColumns(model.ResultColumns()), ResultsTable, placeholder, quotedColumns(model.ScenarioColumns))
}

// boundsFromScan turns nullable min/max pairs into Bounds.
func boundsFromScan(count int64, vals []*float64) model.Bounds {
	out := make(model.Bounds, len(model.IndicatorColumns))
	if count == 0 {
		return out
	}
	for i, c := range model.IndicatorColumns {
		lo, hi := vals[2*i], vals[2*i+1]
		if lo == nil || hi == nil {
			continue
		}
		out[c] = model.Range{Min: *lo, Max: *hi}
	}
	return out
}

// rowTargets returns scan targets for one results row in ResultColumns order.
func rowTargets(r *model.IndicatorRow) []any {
	targets := make([]any, 0, len(model.ResultColumns()))
	targets = append(targets, &r.ProjectID)
	targets = append(targets, r.Scenario.Pointers()...)
	for _, p := range r.Indicators.Pointers() {
		targets = append(targets, p)
	}
	return targets
}
