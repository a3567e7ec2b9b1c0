package cmd

import (
	"fmt"
	"strconv"
	"strings"

	cfgpkg "github.com/KaramelBytes/segmenta-cli/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set Segmenta configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if cfg == nil {
			fmt.Fprintln(out, "No config loaded")
			return nil
		}
		fmt.Fprintf(out, "runs_dir: %s\n", cfg.RunsDir)
		fmt.Fprintf(out, "max_k: %d\n", cfg.MaxK)
		fmt.Fprintf(out, "seed: %d\n", cfg.Seed)
		fmt.Fprintf(out, "min_rows: %d\n", cfg.MinRows)
		fmt.Fprintf(out, "select_inits: %d\n", cfg.SelectInits)
		fmt.Fprintf(out, "silhouette_inits: %d\n", cfg.SilhouetteInits)
		fmt.Fprintf(out, "fit_inits: %d\n", cfg.FitInits)
		fmt.Fprintf(out, "max_iter: %d\n", cfg.MaxIter)
		fmt.Fprintf(out, "tolerance: %g\n", cfg.Tolerance)
		fmt.Fprintf(out, "refit_inertia: %t\n", cfg.RefitInertia)
		fmt.Fprintf(out, "price_keywords: %s\n", strings.Join(cfg.PriceKeywords, ","))
		fmt.Fprintf(out, "sold_keywords: %s\n", strings.Join(cfg.SoldKeywords, ","))
		fmt.Fprintf(out, "rating_keywords: %s\n", strings.Join(cfg.RatingKeywords, ","))
		fmt.Fprintf(out, "charts: %t\n", cfg.Charts)
		fmt.Fprintf(out, "log_level: %s\n", cfg.LogLevel)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		if err := setConfigKey(cfg, key, val); err != nil {
			return err
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func setConfigKey(c *cfgpkg.Global, key, val string) error {
	positive := func() (int, error) {
		i, err := strconv.Atoi(val)
		if err != nil || i <= 0 {
			return 0, fmt.Errorf("invalid int for %s: %v", key, val)
		}
		return i, nil
	}
	var err error
	switch key {
	case "runs_dir":
		c.RunsDir = val
	case "max_k":
		c.MaxK, err = positive()
	case "seed":
		s, perr := strconv.ParseInt(val, 10, 64)
		if perr != nil {
			return fmt.Errorf("invalid int for seed: %w", perr)
		}
		c.Seed = s
	case "min_rows":
		c.MinRows, err = positive()
	case "select_inits":
		c.SelectInits, err = positive()
	case "silhouette_inits":
		c.SilhouetteInits, err = positive()
	case "fit_inits":
		c.FitInits, err = positive()
	case "max_iter":
		c.MaxIter, err = positive()
	case "tolerance":
		f, perr := strconv.ParseFloat(val, 64)
		if perr != nil || f <= 0 {
			return fmt.Errorf("invalid float for tolerance: %v", val)
		}
		c.Tolerance = f
	case "refit_inertia", "charts":
		b, perr := strconv.ParseBool(val)
		if perr != nil {
			return fmt.Errorf("invalid bool for %s: %v", key, val)
		}
		if key == "charts" {
			c.Charts = b
		} else {
			c.RefitInertia = b
		}
	case "price_keywords":
		c.PriceKeywords = splitList(val)
	case "sold_keywords":
		c.SoldKeywords = splitList(val)
	case "rating_keywords":
		c.RatingKeywords = splitList(val)
	case "log_level":
		switch strings.ToLower(val) {
		case "debug", "info", "warn", "error":
			c.LogLevel = strings.ToLower(val)
		default:
			return fmt.Errorf("invalid log_level: %s (use debug|info|warn|error)", val)
		}
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return err
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
