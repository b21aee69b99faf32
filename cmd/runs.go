package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/afriplan/takeoff-cli/internal/model"
	"github.com/afriplan/takeoff-cli/internal/store"
)

var (
	runsStatus  string
	runsProject string
	runsLimit   int
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect persisted takeoff runs",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List runs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		runs, err := st.ListRuns(ctx, store.RunFilter{
			Status:  model.RunStatus(runsStatus),
			Project: runsProject,
			Limit:   runsLimit,
		})
		if err != nil {
			return eris.Wrap(err, "list runs")
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tPROJECT\tSTATUS\tTOTAL\tCREATED")
		for _, r := range runs {
			total := ""
			if r.Result != nil && r.Result.Success {
				total = fmt.Sprintf("R%.2f", r.Result.Pricing.GrandTotal)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				r.ID, r.Project, r.Status, total, r.CreatedAt.Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

var runsGetCmd = &cobra.Command{
	Use:   "get <run-id>",
	Short: "Print one run's full result as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "get run")
		}

		data, err := json.MarshalIndent(run, "", "  ")
		if err != nil {
			return eris.Wrap(err, "marshal run")
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

var correctOldValue string

var runsCorrectCmd = &cobra.Command{
	Use:   "correct <run-id> <field-path> <new-value>",
	Short: "Append a manual correction to a run's audit log",
	Long:  "Records that an estimator corrected an extracted value, e.g. `runs correct <id> 'blocks[0].boards[0].main_breaker_a' 63`. Corrections are append-only and feed offline accuracy tracking.",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		// The run must exist before a correction is logged against it.
		if _, err := st.GetRun(ctx, args[0]); err != nil {
			return eris.Wrap(err, "get run")
		}

		c, err := st.AppendCorrection(ctx, model.Correction{
			RunID:     args[0],
			FieldPath: args[1],
			OldValue:  correctOldValue,
			NewValue:  args[2],
		})
		if err != nil {
			return eris.Wrap(err, "append correction")
		}

		fmt.Fprintf(cmd.OutOrStdout(), "correction %s recorded\n", c.ID)
		return nil
	},
}

var runsCorrectionsCmd = &cobra.Command{
	Use:   "corrections <run-id>",
	Short: "List the corrections logged against a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		corrections, err := st.ListCorrections(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "list corrections")
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "FIELD\tOLD\tNEW\tWHEN")
		for _, c := range corrections {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				c.FieldPath, c.OldValue, c.NewValue, c.CreatedAt.Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

func init() {
	runsListCmd.Flags().StringVar(&runsStatus, "status", "", "filter by status")
	runsListCmd.Flags().StringVar(&runsProject, "project", "", "filter by project name")
	runsListCmd.Flags().IntVar(&runsLimit, "limit", 20, "maximum runs to list")
	runsCorrectCmd.Flags().StringVar(&correctOldValue, "old", "", "the value being replaced")

	runsCmd.AddCommand(runsListCmd, runsGetCmd, runsCorrectCmd, runsCorrectionsCmd)
	rootCmd.AddCommand(runsCmd)
}
