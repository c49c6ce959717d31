package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/azargarov/parproc/internal/config"
)

type commandContext struct {
	configPath string
	logLevel   string
	logFormat  string
}

// load reads the config file (if any), then the environment, then
// applies the persistent flags.
func (c *commandContext) load() (config.Config, error) {
	cfg := config.Default()
	if path := strings.TrimSpace(c.configPath); path != "" {
		loaded, err := config.LoadFile(path)
		if err != nil {
			return cfg, usageError{err}
		}
		cfg = loaded
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return cfg, usageError{err}
	}
	return cfg.Merge(config.Config{
		Log: config.LogConfig{Level: c.logLevel, Format: c.logFormat},
	}), nil
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "parproc",
		Short:         "Process work lists in parallel with retries and progress reporting",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&ctx.configPath, "config", "c", "", "Configuration file path (.yaml, .toml or .json)")
	flags.StringVar(&ctx.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flags.StringVar(&ctx.logFormat, "log-format", "", "Log format: auto, console, json")

	rootCmd.AddCommand(newDownloadCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}
