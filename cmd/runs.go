package cmd

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/KaramelBytes/segmenta-cli/internal/report"
	"github.com/KaramelBytes/segmenta-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	runsShowFormat string
	runsCluster    int
	runsOutput     string
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List, show and export stored clustering runs",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored runs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := runStore()
		if err != nil {
			return err
		}
		runs, err := store.List()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(runs) == 0 {
			fmt.Fprintln(out, "(no runs)")
			return nil
		}
		for _, r := range runs {
			fmt.Fprintf(out, "- %s  %s  %s  k=%d  silhouette=%.3f\n",
				r.ShortID(), r.CreatedAt.Format("2006-01-02 15:04"), r.Name, r.K, r.Metrics.Silhouette)
		}
		return nil
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show the report of a stored run (id or unique prefix)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := runStore()
		if err != nil {
			return err
		}
		run, err := store.Load(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if err := report.Write(out, run.Result(), runsShowFormat); err != nil {
			return err
		}
		if f := strings.ToLower(runsShowFormat); f == report.FormatText || f == "" {
			fmt.Fprintf(out, "Run %s from %s (%s)\n", run.ShortID(), run.Source, run.CreatedAt.Format("2006-01-02 15:04:05"))
			for _, c := range run.Charts {
				fmt.Fprintf(out, "Chart: %s\n", c)
			}
		}
		return nil
	},
}

var runsExportCmd = &cobra.Command{
	Use:   "export <id>",
	Short: "Export the clustered rows of a stored run as CSV",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := runStore()
		if err != nil {
			return err
		}
		run, err := store.Load(args[0])
		if err != nil {
			return err
		}
		var cluster *int
		if cmd.Flags().Changed("cluster") {
			cluster = &runsCluster
		}
		if runsOutput == "" {
			return run.ExportCSV(cmd.OutOrStdout(), cluster)
		}
		var buf bytes.Buffer
		if err := run.ExportCSV(&buf, cluster); err != nil {
			return err
		}
		if err := utils.SafeWriteFile(runsOutput, buf.Bytes()); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Exported run %s to %s\n", run.ShortID(), runsOutput)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsListCmd, runsShowCmd, runsExportCmd)
	runsShowCmd.Flags().StringVar(&runsShowFormat, "format", report.FormatText, "output format: "+strings.Join(report.Formats(), "|"))
	runsExportCmd.Flags().IntVar(&runsCluster, "cluster", 0, "export only this cluster")
	runsExportCmd.Flags().StringVarP(&runsOutput, "output", "o", "", "write CSV to this path instead of stdout")
}
