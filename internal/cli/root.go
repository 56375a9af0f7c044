package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ppiankov/kgrepair/internal/logging"
	"github.com/ppiankov/kgrepair/internal/model"
)

const version = "kgrepair v0.1.0"

var (
	cfgFile string
	verbose bool

	// populated by the root PersistentPreRunE
	cfg    *model.Config
	logger = zap.NewNop()
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "kgrepair",
	Short: "kgrepair - iterative knowledge-graph repair",
	Long: `kgrepair builds an RDF graph from extracted person facts, checks it
against a conformance schema, and repairs it in a bounded loop.

Each iteration builds a graph, checks it, interprets the report as a set
of issues and decides whether to stop, accept with notes, or rebuild with
repairs for those issues. Every graph and the final run record are kept
under the output directory for audit.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := loadConfig()
		if err != nil {
			return err
		}
		l, err := logging.New(loaded.Log, verbose)
		if err != nil {
			return err
		}
		cfg, logger = loaded, l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: $HOME/.kgrepair/config.yaml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	flags.String("output-dir", "", "directory for run artifacts")
	flags.String("checker", "", "conformance checker: mangle, command or http")
	flags.Duration("check-timeout", 0, "timeout for a single conformance check")
	flags.Bool("allow-warnings", false, "accept reports that only contain warnings")
	flags.Bool("cache", false, "cache check results by graph and schema content")
	flags.String("metrics-textfile", "", "write Prometheus metrics to this file after the run")
	flags.String("log-format", "", "log encoding: console or json")

	// Bind flags to viper
	bindings := map[string]string{
		"verbose":                  "verbose",
		"run.output_dir":           "output-dir",
		"checker.kind":             "checker",
		"checker.timeout":          "check-timeout",
		"interpret.allow_warnings": "allow-warnings",
		"cache.enabled":            "cache",
		"metrics.textfile":         "metrics-textfile",
		"log.format":               "log-format",
	}
	for key, name := range bindings {
		_ = viper.BindPFlag(key, flags.Lookup(name))
	}

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	setDefaults(model.DefaultConfig())

	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}
		viper.AddConfigPath(filepath.Join(home, ".kgrepair"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// KGREPAIR_CHECKER_KIND overrides checker.kind, and so on
	viper.SetEnvPrefix("KGREPAIR")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// setDefaults registers every key so environment variables can reach it.
func setDefaults(d *model.Config) {
	viper.SetDefault("run.max_iterations", d.Run.MaxIterations)
	viper.SetDefault("run.output_dir", d.Run.OutputDir)
	viper.SetDefault("run.run_id", d.Run.RunID)
	viper.SetDefault("checker.kind", d.Checker.Kind)
	viper.SetDefault("checker.timeout", d.Checker.Timeout)
	viper.SetDefault("checker.command", d.Checker.Command)
	viper.SetDefault("checker.endpoint", d.Checker.Endpoint)
	viper.SetDefault("checker.retries", d.Checker.Retries)
	viper.SetDefault("checker.requests_per_second", d.Checker.RequestsPerSecond)
	viper.SetDefault("checker.burst", d.Checker.Burst)
	viper.SetDefault("checker.http_proxy", d.Checker.HTTPProxy)
	viper.SetDefault("checker.https_proxy", d.Checker.HTTPSProxy)
	viper.SetDefault("interpret.allow_warnings", d.Interpret.AllowWarnings)
	viper.SetDefault("cache.enabled", d.Cache.Enabled)
	viper.SetDefault("cache.dir", d.Cache.Dir)
	viper.SetDefault("cache.memory_ttl", d.Cache.MemoryTTL)
	viper.SetDefault("cache.disk_ttl", d.Cache.DiskTTL)
	viper.SetDefault("metrics.textfile", d.Metrics.Textfile)
	viper.SetDefault("batch.workers", d.Batch.Workers)
	viper.SetDefault("log.level", d.Log.Level)
	viper.SetDefault("log.format", d.Log.Format)
}

// loadConfig merges defaults, config file, environment and flags.
func loadConfig() (*model.Config, error) {
	c := model.DefaultConfig()
	if err := viper.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return c, nil
}
