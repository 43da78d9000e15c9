package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/meysamhadeli/verilite/constants/lipgloss"
	"github.com/meysamhadeli/verilite/digest_engine"
	"github.com/meysamhadeli/verilite/integrity_checker"
	"github.com/meysamhadeli/verilite/logger"
	"github.com/meysamhadeli/verilite/utils"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config represents the structure of the configuration file
type Config struct {
	Algorithm     string   `mapstructure:"algorithm"`
	Baseline      string   `mapstructure:"baseline"`
	SnapshotDir   string   `mapstructure:"snapshot_dir"`
	ChunkLines    int      `mapstructure:"chunk_lines"`
	Workers       int      `mapstructure:"workers"`
	Exclude       []string `mapstructure:"exclude"`
	EventLog      string   `mapstructure:"event_log"`
	LogLevel      string   `mapstructure:"log_level"`
	LogJSON       bool     `mapstructure:"log_json"`
	Theme         string   `mapstructure:"theme"`
	ReportFormat  string   `mapstructure:"report_format"`
	WatchSchedule string   `mapstructure:"watch_schedule"`
}

// DefaultConfig values
var DefaultConfig = Config{
	Algorithm:     "sha256",
	Baseline:      "baseline.json",
	SnapshotDir:   "",
	ChunkLines:    20,
	Workers:       runtime.NumCPU(),
	Exclude:       []string{},
	EventLog:      "",
	LogLevel:      "info",
	LogJSON:       false,
	Theme:         "dracula",
	ReportFormat:  "text",
	WatchSchedule: "@every 5m",
}

// ConfigName is the base name searched for in the working directory.
const ConfigName = "verilite-config"

// EnvPrefix prefixes every environment variable the tool reads.
const EnvPrefix = "VERILITE"

// cfgFile holds the path to the configuration file (set via CLI)
var cfgFile string

// LoadConfigs initializes the configuration from file, flags, and environment variables, and returns the final config.
func LoadConfigs(rootCmd *cobra.Command, cwd string) *Config {
	config, err := Load(viper.GetViper(), rootCmd.PersistentFlags(), cwd, cfgFile)
	if err != nil {
		fmt.Println(lipgloss.Red.Render(err.Error()))
		os.Exit(4)
	}
	return config
}

// Load resolves defaults, an optional config file, environment variables and
// flags, in increasing order of precedence.
func Load(v *viper.Viper, flags *pflag.FlagSet, cwd string, configFile string) (*Config, error) {
	setDefaults(v)
	bindEnv(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	} else {
		v.SetConfigName(ConfigName)
		v.AddConfigPath(cwd)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	if flags != nil {
		bindFlags(v, flags)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	config.Algorithm = digest_engine.NormalizeName(config.Algorithm)
	config.ReportFormat = strings.ToLower(strings.TrimSpace(config.ReportFormat))
	if config.Workers == 0 {
		config.Workers = runtime.NumCPU()
	}
	config.Baseline = resolvePath(cwd, config.Baseline)
	config.SnapshotDir = resolvePath(cwd, config.SnapshotDir)
	config.EventLog = resolvePath(cwd, config.EventLog)

	return &config, nil
}

// Validate reports the first setting the tool cannot run with.
func (c *Config) Validate() error {
	if !digest_engine.IsSupported(c.Algorithm) {
		return fmt.Errorf("unsupported algorithm %q (available: %s)", c.Algorithm, strings.Join(digest_engine.Algorithms(), ", "))
	}
	if c.Baseline == "" {
		return errors.New("baseline path must not be empty")
	}
	if err := integrity_checker.ValidateBaselinePath(c.Baseline); err != nil {
		return err
	}
	if c.ChunkLines <= 0 {
		return fmt.Errorf("chunk_lines must be positive, got %d", c.ChunkLines)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	if c.ReportFormat != "text" && c.ReportFormat != "json" {
		return fmt.Errorf("report_format must be 'text' or 'json', got %q", c.ReportFormat)
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if _, err := cron.ParseStandard(c.WatchSchedule); err != nil {
		return fmt.Errorf("invalid watch_schedule %q: %w", c.WatchSchedule, err)
	}
	if err := utils.ValidatePatterns(c.Exclude); err != nil {
		return err
	}
	return nil
}

// setDefaults sets all default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("algorithm", DefaultConfig.Algorithm)
	v.SetDefault("baseline", DefaultConfig.Baseline)
	v.SetDefault("snapshot_dir", DefaultConfig.SnapshotDir)
	v.SetDefault("chunk_lines", DefaultConfig.ChunkLines)
	v.SetDefault("workers", DefaultConfig.Workers)
	v.SetDefault("exclude", DefaultConfig.Exclude)
	v.SetDefault("event_log", DefaultConfig.EventLog)
	v.SetDefault("log_level", DefaultConfig.LogLevel)
	v.SetDefault("log_json", DefaultConfig.LogJSON)
	v.SetDefault("theme", DefaultConfig.Theme)
	v.SetDefault("report_format", DefaultConfig.ReportFormat)
	v.SetDefault("watch_schedule", DefaultConfig.WatchSchedule)
}

// bindEnv explicitly binds environment variables to configuration keys
func bindEnv(v *viper.Viper) {
	for _, key := range []string{
		"algorithm", "baseline", "snapshot_dir", "chunk_lines", "workers", "exclude",
		"event_log", "log_level", "log_json", "theme", "report_format", "watch_schedule",
	} {
		_ = v.BindEnv(key, EnvPrefix+"_"+strings.ToUpper(key))
	}
}

// bindFlags binds the CLI flags to configuration values.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	for _, key := range []string{
		"algorithm", "baseline", "snapshot_dir", "chunk_lines", "workers", "exclude",
		"event_log", "log_level", "log_json", "theme", "report_format", "watch_schedule",
	} {
		if flag := flags.Lookup(key); flag != nil {
			_ = v.BindPFlag(key, flag)
		}
	}
}

// InitFlags initializes the flags for the root command.
func InitFlags(rootCmd *cobra.Command) {
	// Use PersistentFlags so that these flags are available in all subcommands
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Specifies the path to a configuration file (JSON or YAML) that contains all the settings for the application.")

	rootCmd.PersistentFlags().StringP("algorithm", "a", DefaultConfig.Algorithm, fmt.Sprintf("Digest algorithm (%s)", strings.Join(digest_engine.Algorithms(), ", ")))
	rootCmd.PersistentFlags().StringP("baseline", "b", DefaultConfig.Baseline, "Path of the baseline file; its signature is stored next to it with a .sig extension")
	rootCmd.PersistentFlags().String("snapshot_dir", DefaultConfig.SnapshotDir, "Directory for normalized text snapshots (default: <baseline>.snapshots)")
	rootCmd.PersistentFlags().Int("chunk_lines", DefaultConfig.ChunkLines, "Number of normalized text lines hashed per chunk")
	rootCmd.PersistentFlags().Int("workers", DefaultConfig.Workers, "Number of files hashed in parallel")
	rootCmd.PersistentFlags().StringSlice("exclude", DefaultConfig.Exclude, "Glob patterns of paths to leave out of the baseline (e.g., '*.log', 'build/')")
	rootCmd.PersistentFlags().String("event_log", DefaultConfig.EventLog, "Append timestamped events to this file")
	rootCmd.PersistentFlags().String("log_level", DefaultConfig.LogLevel, "Console log level: 'debug', 'info', 'warn' or 'error'")
	rootCmd.PersistentFlags().Bool("log_json", DefaultConfig.LogJSON, "Write console logs as JSON")
	rootCmd.PersistentFlags().String("theme", DefaultConfig.Theme, "Highlighting theme for JSON reports (e.g., 'dracula', 'monokai', 'github')")
	rootCmd.PersistentFlags().String("report_format", DefaultConfig.ReportFormat, "Verification report format: 'text' or 'json'")
	rootCmd.PersistentFlags().String("watch_schedule", DefaultConfig.WatchSchedule, "Cron schedule for the watch command (e.g., '@every 10m', '0 * * * *')")

	// Version flag
	rootCmd.Flags().BoolP("version", "v", false, "Specifies the version of the application.")
}

func resolvePath(cwd string, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(cwd, path)
}
