package cmd

import (
	"fmt"

	"github.com/KaramelBytes/segmenta-cli/internal/analysis"
	"github.com/KaramelBytes/segmenta-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	prTable      tableFlags
	prOutputPath string
	prSampleRows int
	prGroupBy    []string
	prCorr       bool
	prOutliers   bool
	prOutlierThr float64
)

var profileCmd = &cobra.Command{
	Use:   "profile <file>",
	Short: "Summarize a table's columns before clustering it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		raw, err := prTable.load(path)
		if err != nil {
			return err
		}
		opt := analysis.DefaultOptions()
		po := pipelineOptions()
		opt.MinRows, opt.Concepts = po.MinRows, po.Concepts
		if opt.Number, err = prTable.numberFormat(); err != nil {
			return err
		}
		if cmd.Flags().Changed("sample-rows") {
			opt.SampleRows = prSampleRows
		}
		opt.GroupBy = prGroupBy
		opt.Correlations = prCorr
		if cmd.Flags().Changed("outliers") {
			opt.Outliers = prOutliers
		}
		if prOutlierThr > 0 {
			opt.OutlierThreshold = prOutlierThr
		}
		rep := analysis.Profile(raw, opt)

		md := rep.Markdown()
		if prOutputPath != "" {
			if err := utils.SafeWriteFile(prOutputPath, []byte(md)); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote profile to %s\n", prOutputPath)
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), md)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(profileCmd)
	f := profileCmd.Flags()
	addTableFlags(profileCmd, &prTable)
	f.StringVarP(&prOutputPath, "output", "o", "", "optional path to write the profile (Markdown)")
	f.IntVar(&prSampleRows, "sample-rows", 5, "number of sample rows to include")
	f.StringSliceVar(&prGroupBy, "group-by", nil, "comma-separated column names to group by (repeatable)")
	f.BoolVar(&prCorr, "correlations", false, "compute Pearson correlations among numeric columns")
	f.BoolVar(&prOutliers, "outliers", true, "compute robust outlier counts (MAD)")
	f.Float64Var(&prOutlierThr, "outlier-threshold", 3.5, "robust |z| threshold for outliers (MAD-based)")
}
