package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-signup/internal/config"
	"github.com/goliatone/go-signup/pkg/signup"
)

type app struct {
	configPath string
	cfg        config.Config
	logger     *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "signup",
		Short:         "Sign-up form with live validation and a simulated backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to a YAML config file")

	root.AddCommand(newPromptCmd(a), newServeCmd(a))
	return root
}

func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	logger, err := cfg.Log.Logger(cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

func (a *app) newController(opts ...signup.Option) *signup.Controller {
	opts = append([]signup.Option{signup.WithLogger(a.logger)}, opts...)
	return signup.New(a.cfg.Submitter(), opts...)
}
