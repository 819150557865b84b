package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/lucasew/dircache/internal/errutil"
	"github.com/lucasew/dircache/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	cfgFile   string
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "dircache",
	Short: "A caching directory lister",
	Long: `dircache lists table and partition directories and caches complete listings
in memory, serving repeated listings of the same directory without touching
the file system.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cmd.Flags().VisitAll(func(f *pflag.Flag) {
			mustBindPFlag(f.Name, f)
		})
		closer, err := logging.Setup(logging.Config{
			Level:      viper.GetString("log-level"),
			Format:     viper.GetString("log-format"),
			File:       viper.GetString("log-file"),
			MaxSizeMB:  viper.GetInt("log-max-size"),
			MaxBackups: viper.GetInt("log-max-backups"),
			MaxAgeDays: viper.GetInt("log-max-age"),
		})
		if err != nil {
			return err
		}
		logCloser = closer
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			errutil.LogMsg(logCloser.Close(), "Failed to close log file")
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if _, printErr := fmt.Fprintln(os.Stderr, err); printErr != nil {
			errutil.ReportError(printErr, "Failed to print error to stderr")
		}
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "Config file (yaml, toml or json)")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.String("log-format", "text", "Log format (text, json)")
	flags.String("log-file", "", "Also write logs to this file, rotated")
	flags.Int("log-max-size", 100, "Max log file size in MB before rotation")
	flags.Int("log-max-backups", 3, "Rotated log files to keep")
	flags.Int("log-max-age", 28, "Days to keep rotated log files")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			errutil.ReportError(err, "Failed to read config file", "path", cfgFile)
			os.Exit(1)
		}
	}
	configureEnv(viper.GetViper())
}

func configureEnv(v *viper.Viper) {
	v.SetEnvPrefix("DIRCACHE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
}

// mustBindPFlag binds a flag to viper. Flags are bound for the running
// command only, so subcommands can share flag names.
func mustBindPFlag(key string, flag *pflag.Flag) {
	if err := viper.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("failed to bind flag %s: %v", key, err))
	}
}
