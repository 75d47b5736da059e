package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"buildtriage/internal/config"
	"buildtriage/internal/jenkins"
	"buildtriage/internal/utils"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	configPath string
}

var rootCmd = &cobra.Command{
	Use:   "buildtriage",
	Short: "Classify Jenkins build failures against a signature catalog",
	Long: "buildtriage walks a Jenkins job's recent builds, matches their console\n" +
		"logs against a catalog of known failure signatures and reports the likely\n" +
		"cause of every failure, with bug links where the catalog has them.",
	SilenceUsage:  true,
	SilenceErrors: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootFlags.configPath, "config", "", "Path to settings file (default $HOME/.buildtriage.yaml)")
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(jobsCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		var settingsErr *config.SettingsError
		if errors.As(err, &settingsErr) {
			fmt.Fprintln(os.Stderr)
			fmt.Fprintln(os.Stderr, settingsErr.Guidance())
		}
		os.Exit(1)
	}
}

func loadSettings() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(rootFlags.configPath)
	if err != nil {
		return nil, nil, err
	}

	format := "text"
	if cfg.Logging.JSON {
		format = "json"
	}
	logger := utils.NewLogger(cfg.Logging.Level, format, os.Stderr)
	return cfg, logger, nil
}

func newJenkinsClient(cfg *config.Config, logger *slog.Logger) (*jenkins.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return jenkins.New(cfg.Jenkins.URL, cfg.Jenkins.Username, cfg.Jenkins.APIToken, cfg.Jenkins.Timeout, logger)
}
