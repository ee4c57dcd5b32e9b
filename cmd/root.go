// Package cmd provides the command-line interface of the signalscore server.
package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"signalscore/internal/application/common/logging"
	"signalscore/internal/application/common/slogger"
	"signalscore/internal/config"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable override, e.g. SIGNALSCORE_API_PORT.
const EnvPrefix = "SIGNALSCORE"

var (
	cfgFile string
	cfg     *config.Config
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "signalscore",
		Short: "AI adoption scoring service",
		Long: `SignalScore scores how far a company has adopted AI, based on the signals
published on its careers page.

The server provides:
- A REST API to submit a careers URL and poll for the company score
- A websocket relay that drives submit-and-poll sessions server-side
- Score persistence in memory or PostgreSQL
- Session event publishing over NATS JetStream`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initConfig(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./configs/config.yaml)")
	cmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("log-format", "json", "Log format (json, text)")
	return cmd
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func initConfig(cmd *cobra.Command) error {
	v := viper.New()
	for flag, key := range map[string]string{"log-level": "log.level", "log-format": "log.format"} {
		if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
			if err := v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("failed to bind %s flag: %w", flag, err)
			}
		}
	}

	loaded, err := loadConfig(v, cfgFile)
	if err != nil {
		return err
	}

	if err := slogger.Configure(logging.Config{
		Level:  loaded.Log.Level,
		Format: loaded.Log.Format,
		Output: logging.OutputStdout,
	}); err != nil {
		return fmt.Errorf("failed to configure logging: %w", err)
	}

	cfg = loaded
	return nil
}

// loadConfig layers defaults, the config file and SIGNALSCORE_* environment variables on v.
// A missing config file is not an error unless path names it explicitly.
func loadConfig(v *viper.Viper, path string) (*config.Config, error) {
	config.SetDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return config.Load(v)
}

// GetConfig returns the loaded configuration.
func GetConfig() *config.Config {
	return cfg
}

func init() { //nolint:gochecknoinits // Standard Cobra CLI pattern for command registration
	rootCmd.AddCommand(newServeCmd(), newMigrateCmd(), newVersionCmd())
}
