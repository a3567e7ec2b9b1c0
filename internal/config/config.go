package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/KaramelBytes/segmenta-cli/internal/insights"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment override, e.g. SEGMENTA_MAX_K.
const EnvPrefix = "SEGMENTA"

// Global configuration structure.
type Global struct {
	RunsDir string `mapstructure:"runs_dir" yaml:"runs_dir"`

	// K search and fitting
	MaxK            int     `mapstructure:"max_k" yaml:"max_k"`
	Seed            int64   `mapstructure:"seed" yaml:"seed"`
	MinRows         int     `mapstructure:"min_rows" yaml:"min_rows"`
	SelectInits     int     `mapstructure:"select_inits" yaml:"select_inits"`
	SilhouetteInits int     `mapstructure:"silhouette_inits" yaml:"silhouette_inits"`
	FitInits        int     `mapstructure:"fit_inits" yaml:"fit_inits"`
	MaxIter         int     `mapstructure:"max_iter" yaml:"max_iter"`
	Tolerance       float64 `mapstructure:"tolerance" yaml:"tolerance"`
	RefitInertia    bool    `mapstructure:"refit_inertia" yaml:"refit_inertia"`

	// Column keywords used to find the price/sold/rating concepts
	PriceKeywords  []string `mapstructure:"price_keywords" yaml:"price_keywords"`
	SoldKeywords   []string `mapstructure:"sold_keywords" yaml:"sold_keywords"`
	RatingKeywords []string `mapstructure:"rating_keywords" yaml:"rating_keywords"`

	Charts   bool   `mapstructure:"charts" yaml:"charts"`
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
}

// Dir returns ~/.segmenta.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".segmenta"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.segmenta/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	var path string
	if cfgFile != "" {
		path = cfgFile
	} else {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults. A .env file in the working
// directory is read first so its values act as environment overrides.
func Load(cfgFile string) (*Global, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, fmt.Errorf("load .env: %w", err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	concepts := insights.DefaultConcepts()
	v.SetDefault("runs_dir", "")
	v.SetDefault("max_k", 10)
	v.SetDefault("seed", 42)
	v.SetDefault("min_rows", 10)
	v.SetDefault("select_inits", 10)
	v.SetDefault("silhouette_inits", 20)
	v.SetDefault("fit_inits", 20)
	v.SetDefault("max_iter", 300)
	v.SetDefault("tolerance", 1e-4)
	v.SetDefault("refit_inertia", false)
	v.SetDefault("price_keywords", concepts.Price)
	v.SetDefault("sold_keywords", concepts.Sold)
	v.SetDefault("rating_keywords", concepts.Rating)
	v.SetDefault("charts", false)
	v.SetDefault("log_level", "warn")

	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		_ = os.MkdirAll(dir, 0o755)
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read
	_ = v.ReadInConfig()

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.RunsDir == "" {
		c.RunsDir = filepath.Join(dir, "runs")
	}
	return &c, nil
}

// Concepts returns the keyword lists as insight concepts.
func (c *Global) Concepts() insights.Concepts {
	return insights.Concepts{Price: c.PriceKeywords, Sold: c.SoldKeywords, Rating: c.RatingKeywords}
}
