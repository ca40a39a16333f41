/*
	Copyright 2023 Markus Papenbrock
*/

package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/mpapenbr/racetiming-analytics/log"
	analyzeCmd "github.com/mpapenbr/racetiming-analytics/pkg/cmd/analyze"
	downloadCmd "github.com/mpapenbr/racetiming-analytics/pkg/cmd/download"
	exportCmd "github.com/mpapenbr/racetiming-analytics/pkg/cmd/export"
	migrateCmd "github.com/mpapenbr/racetiming-analytics/pkg/cmd/migrate"
	parseCmd "github.com/mpapenbr/racetiming-analytics/pkg/cmd/parse"
	"github.com/mpapenbr/racetiming-analytics/pkg/config"
	"github.com/mpapenbr/racetiming-analytics/version"
)

const envPrefix = "RTA"

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "rta",
	Short:   "Race timing analytics from timing report PDFs",
	Long:    ``,
	Version: version.FullVersion,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogger()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is $HOME/.rta.yml)")

	rootCmd.PersistentFlags().StringVar(&config.BaseDir, "base-dir",
		".",
		"root directory for pdfs, raw and cleaned data")
	rootCmd.PersistentFlags().StringVar(&config.PDFDir, "pdf-dir",
		"",
		"directory with downloaded pdfs (default <base-dir>/pdfs)")
	rootCmd.PersistentFlags().StringVar(&config.RawDir, "raw-dir",
		"",
		"directory for the raw span cache (default <base-dir>/parsedraw)")
	rootCmd.PersistentFlags().StringVar(&config.CleanDir, "clean-dir",
		"",
		"directory for cleaned parquet files (default <base-dir>/cleandata)")
	rootCmd.PersistentFlags().StringVar(&config.DB, "db",
		"postgresql://DB_USERNAME:DB_USER_PASSWORD@DB_HOST:5432/racetiming",
		"Connection string for the database")
	rootCmd.PersistentFlags().StringVar(&config.NatsURL, "nats-url",
		"",
		"if set, cleaned documents are announced on this NATS server")
	rootCmd.PersistentFlags().StringVar(&config.WaitForServices,
		"wait-for-services",
		"15s",
		"Duration to wait for other services to be ready")
	rootCmd.PersistentFlags().StringVar(&config.LogLevel,
		"log-level",
		"info",
		"controls the log level (debug, info, warn, error, fatal)")
	rootCmd.PersistentFlags().StringVar(&config.SQLLogLevel,
		"sql-log-level",
		"info",
		"controls the log level for sql methods")
	rootCmd.PersistentFlags().StringVar(&config.LogFormat,
		"log-format",
		"text",
		"controls the log output format (json, text)")
	rootCmd.PersistentFlags().StringVar(&config.LogFilter,
		"log-filter",
		"",
		"per logger level rules, for example \"debug+:pipeline.* info+:*\"")
	rootCmd.PersistentFlags().BoolVar(&config.EnableTelemetry,
		"enable-telemetry",
		false,
		"enables telemetry")
	rootCmd.PersistentFlags().StringVar(&config.TelemetryEndpoint,
		"telemetry-endpoint",
		"localhost:4317",
		"Endpoint that receives open telemetry data (use stdout for local output)")

	// add commands here
	rootCmd.AddCommand(downloadCmd.NewDownloadCmd())
	rootCmd.AddCommand(parseCmd.NewParseCmd())
	rootCmd.AddCommand(analyzeCmd.NewAnalyzeCmd())
	rootCmd.AddCommand(exportCmd.NewExportCmd())
	rootCmd.AddCommand(migrateCmd.NewMigrateCmd())
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".rta" (without extension).
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".rta")
	}

	viper.SetEnvPrefix(envPrefix)
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}

	bindFlags(rootCmd, viper.GetViper())
	visitCommands(rootCmd, func(cmd *cobra.Command) {
		bindFlags(cmd, viper.GetViper())
	})
}

func visitCommands(cmd *cobra.Command, f func(*cobra.Command)) {
	for _, sub := range cmd.Commands() {
		f(sub)
		visitCommands(sub, f)
	}
}

// Bind each cobra flag to its associated viper configuration
// (config file and environment variable)
func bindFlags(cmd *cobra.Command, v *viper.Viper) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		// Environment variables can't have dashes in them, so bind them to their
		// equivalent keys with underscores, e.g. --base-dir to RTA_BASE_DIR
		if strings.Contains(f.Name, "-") {
			envVarSuffix := strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))
			if err := v.BindEnv(f.Name,
				fmt.Sprintf("%s_%s", envPrefix, envVarSuffix)); err != nil {
				fmt.Fprintf(os.Stderr, "Could not bind env var %s: %v", f.Name, err)
			}
		}
		// Apply the viper config value to the flag when the flag is not set and viper
		// has a value
		if !f.Changed && v.IsSet(f.Name) {
			val := v.Get(f.Name)
			if err := cmd.Flags().Set(f.Name, fmt.Sprintf("%v", val)); err != nil {
				fmt.Fprintf(os.Stderr, "Could set flag value for %s: %v", f.Name, err)
			}
		}
	})
}

func parseLogLevel(l string, defaultVal log.Level) log.Level {
	level, err := log.ParseLevel(l)
	if err != nil {
		return defaultVal
	}
	return level
}

func setupLogger() error {
	opts := []log.Option{log.WithCaller(true), log.AddCallerSkip(1)}
	level := parseLogLevel(config.LogLevel, log.InfoLevel)
	if config.LogFilter != "" {
		filter, err := log.WithFilter(config.LogFilter)
		if err != nil {
			return fmt.Errorf("invalid log filter: %w", err)
		}
		opts = append(opts, filter)
		level = log.DebugLevel // the rules decide
	}
	var logger *log.Logger
	switch config.LogFormat {
	case "json":
		logger = log.New(os.Stderr, level, opts...)
	default:
		logger = log.DevLogger(os.Stderr, level, opts...)
	}
	log.ResetDefault(logger)
	return nil
}
