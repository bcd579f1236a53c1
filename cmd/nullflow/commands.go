package main

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/malphas-lang/nullflow/internal/config"
)

type rootOptions struct {
	configPath string
	cfg        config.Config
	logger     *slog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "nullflow",
		Short:         "Nullable flow analysis and pattern exhaustiveness checks",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default ./"+config.ConfigFileName+" when present)")

	root.AddCommand(newCheckCmd(opts), newDagCmd(opts))
	return root
}

// load reads the config and builds the logger.
func (o *rootOptions) load(cmd *cobra.Command) error {
	path := o.configPath
	if path == "" {
		if _, err := os.Stat(config.ConfigFileName); err == nil {
			path = config.ConfigFileName
		} else if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	o.cfg = config.Default()
	if path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return err
		}
		o.cfg = cfg
	}
	level, err := o.cfg.SlogLevel()
	if err != nil {
		return err
	}
	o.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	return nil
}
