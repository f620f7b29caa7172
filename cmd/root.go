// Package cmd provides the command-line interface for isle.
//
// Configuration is read, from highest to lowest priority, from command-line
// flags, ISLE_* environment variables (a .env file in the working directory
// is loaded first), and the config file: --config, then ISLE_CONFIG_FILE,
// then isle.yml in the working directory.
package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/isle/internal/config"
	"github.com/conneroisu/isle/internal/errors"
	"github.com/conneroisu/isle/internal/logging"
	"github.com/conneroisu/isle/internal/registry"
)

var (
	cfgFile string
	// configErr holds a config file that exists but could not be read.
	configErr error
)

var rootCmd = &cobra.Command{
	Use:   "isle",
	Short: "A static site generator with interactive islands",
	Long: `isle builds static sites from markdown documents and page templates.
Interactive components ("islands") are bundled per island and hydrated only
on the pages that use them.

Quick Start:
  isle dev        Start the dev server and rebuild on change
  isle serve      Start the dev server without the supervisor
  isle build      Write the static site to the output directory`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is isle.yml, can also use ISLE_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")
	_ = viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log-format", rootCmd.PersistentFlags().Lookup("log-format"))
}

func initConfig() {
	configErr = readConfig(viper.GetViper(), cfgFile)
}

// readConfig points v at the config file and environment. A missing default
// config file is not an error.
func readConfig(v *viper.Viper, file string) error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return errors.WrapConfig(err, errors.ErrCodeConfigInvalid, "failed to load .env file")
	}

	explicit := true
	switch {
	case file != "":
		v.SetConfigFile(file)
	case os.Getenv("ISLE_CONFIG_FILE") != "":
		v.SetConfigFile(os.Getenv("ISLE_CONFIG_FILE"))
	default:
		explicit = false
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName("isle")
	}

	v.SetEnvPrefix("ISLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !explicit && errors.As(err, &notFound) {
			return nil
		}
		return errors.WrapConfig(err, errors.ErrCodeConfigInvalid, "failed to read config file").
			WithFile(v.ConfigFileUsed())
	}
	return nil
}

// loadConfig applies flag overrides and returns the validated configuration.
func loadConfig(cmd *cobra.Command, flags *StandardFlags) (*config.Config, error) {
	if configErr != nil {
		return nil, configErr
	}
	v := viper.GetViper()
	if flags != nil {
		flags.Apply(cmd, v)
	}
	cfg, err := config.LoadFrom(v)
	if err != nil {
		return nil, errors.WrapConfig(err, errors.ErrCodeConfigInvalid, "invalid configuration")
	}
	return cfg, nil
}

func loadIslands(cfg *config.Config) (*registry.Registry, error) {
	reg, err := registry.New(cfg.Islands)
	if err != nil {
		return nil, errors.WrapConfig(err, errors.ErrCodeConfigInvalid, "invalid island registry")
	}
	return reg, nil
}

func newLogger(out io.Writer) logging.Logger {
	return logging.NewLogger(&logging.LoggerConfig{
		Level:  logging.ParseLevel(viper.GetString("log-level")),
		Format: viper.GetString("log-format"),
		Output: out,
	})
}

// logFlags re-creates the logging and config flags for a child process.
func logFlags() []string {
	args := []string{
		"--log-level", viper.GetString("log-level"),
		"--log-format", viper.GetString("log-format"),
	}
	if cfgFile != "" {
		args = append(args, "--config", cfgFile)
	}
	return args
}

func printf(cmd *cobra.Command, format string, args ...interface{}) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
