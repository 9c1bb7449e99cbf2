package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kbukum/npuflow/config"
)

const envPrefix = "NPUFLOW"

type rootOptions struct {
	configFile string
	envFile    string
}

// newRootCommand wires the subcommands. Configuration is read from the
// config file, then the env file, then NPUFLOW_ prefixed variables.
func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   serviceName,
		Short: "Asynchronous accelerator inference scheduler",
		Long: `npuflow keeps a bounded window of inference requests in flight on an
accelerator and returns results in input order.

Use "run" for a single benchmark batch and "serve" for the HTTP API.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "config file (default ./cmd/npuflow/config.yml or ./config.yml)")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", "", "dotenv file loaded before reading the environment")

	root.AddCommand(
		newRunCommand(opts),
		newServeCommand(opts),
		newVersionCommand(),
	)
	return root
}

func (o *rootOptions) load() (*AppConfig, error) {
	loaderOpts := []config.LoaderOption{config.WithEnvPrefix(envPrefix)}
	if o.configFile != "" {
		loaderOpts = append(loaderOpts, config.WithConfigFile(o.configFile))
	}
	if o.envFile != "" {
		loaderOpts = append(loaderOpts, config.WithEnvFile(o.envFile))
	}

	cfg := &AppConfig{}
	if err := config.LoadConfig(serviceName, cfg, loaderOpts...); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
