package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/urban-performance/internal/assumptions"
	"github.com/sells-group/urban-performance/internal/catalog"
	"github.com/sells-group/urban-performance/internal/model"
	"github.com/sells-group/urban-performance/internal/pipeline"
	"github.com/sells-group/urban-performance/internal/scenario"
)

var planCmd = &cobra.Command{
	Use:   "plan <project-id>",
	Short: "Show the scenario space of a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		constants, err := model.DefaultConstants()
		if err != nil {
			return err
		}
		return writePlan(cmd.OutOrStdout(), newCatalog(), constants, args[0], cfg.Pipeline.ChunkSize)
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate <project-id>",
	Short: "Check a project's assumptions and base layers",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return validateProject(cmd.OutOrStdout(), newCatalog(), args[0])
	},
}

// writePlan prints one line per axis and the resulting scenario and chunk
// counts.
func writePlan(w io.Writer, cat *catalog.Catalog, constants *model.Constants, projectID string, chunkSize int) error {
	snap, err := cat.Snapshot(projectID)
	if err != nil {
		return err
	}
	space := scenario.NewSpace(snap, constants)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "AXIS\tVALUES\tENTRIES") //nolint:errcheck
	for _, a := range space.Axes() {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", a.Name, a.Len(), axisEntries(a)) //nolint:errcheck
	}
	if err := tw.Flush(); err != nil {
		return eris.Wrap(err, "plan: write axes")
	}

	if chunkSize < 1 {
		chunkSize = pipeline.DefaultOptions().ChunkSize
	}
	_, err = fmt.Fprintf(w, "\nscenarios: %d\nchunks: %d (size %d)\n",
		space.Size(), len(space.Chunks(chunkSize)), chunkSize)
	return err
}

func axisEntries(a scenario.Axis) string {
	if a.Levels == nil {
		return strings.Join(a.Variants, ", ")
	}
	levels := make([]string, len(a.Levels))
	for i, l := range a.Levels {
		levels[i] = strconv.FormatFloat(l, 'f', -1, 64) + "%"
	}
	return strings.Join(levels, ", ")
}

// validateProject reports every input problem a run would reject the
// project for.
func validateProject(w io.Writer, cat *catalog.Catalog, projectID string) error {
	var problems []string

	if missing := cat.MissingBaseLayers(projectID); len(missing) > 0 {
		problems = append(problems, (&pipeline.MissingLayersError{ProjectID: projectID, Layers: missing}).Error())
	}
	if _, err := assumptions.Load(cat.AssumptionsPath(projectID)); err != nil {
		problems = append(problems, err.Error())
	}

	if len(problems) > 0 {
		for _, p := range problems {
			fmt.Fprintln(w, "FAIL", p) //nolint:errcheck
		}
		return eris.Errorf("validate: project %s has %d problem(s)", projectID, len(problems))
	}
	_, err := fmt.Fprintf(w, "OK %s\n", projectID)
	return err
}

func init() {
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(validateCmd)
}
