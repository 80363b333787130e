package main

import (
	"io"
	"log/slog"

	"github.com/sanonone/genomemap/internal/config"
	"github.com/spf13/cobra"
)

// globalOptions holds the persistent flags and the configuration they resolve to.
type globalOptions struct {
	configPath string
	logLevel   string
	logFormat  string

	cfg config.Config
}

// load reads the configuration file, applies the logging flags and installs
// the default logger on stderr.
func (o *globalOptions) load(stderr io.Writer) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	if o.logFormat != "" {
		cfg.Logging.Format = o.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger, err := cfg.Logging.NewLogger(stderr)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	o.cfg = cfg
	return nil
}

// newRootCmd creates the root genomemap command with all subcommands attached.
func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "genomemap",
		Short: "Self-organizing maps over the movie tag genome",
		Long: "genomemap trains a Kohonen self-organizing map on movie tag relevance vectors\n" +
			"and serves movie and tag searches against the trained map.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd.ErrOrStderr())
		},
	}

	cmd.SetVersionTemplate("genomemap {{.Version}}\n")

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to a YAML configuration file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn or error")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "log format: text or json")

	cmd.AddCommand(
		newTrainCmd(opts),
		newConvertCmd(),
		newServeCmd(opts),
		newMCPCmd(opts),
		newQueryCmd(opts),
		newInspectCmd(),
		newDemoCmd(),
	)

	return cmd
}
