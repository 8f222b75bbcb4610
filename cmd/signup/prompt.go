package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-signup/pkg/renderers/tui"
)

func newPromptCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "prompt",
		Short: "Fill in the sign-up form interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runPrompt(ctx, a, cmd, tui.OutputFormat(format))
		},
	}
	cmd.Flags().StringVar(&format, "format", string(tui.OutputFormatJSON), "summary format: json or pretty")
	return cmd
}

func runPrompt(ctx context.Context, a *app, cmd *cobra.Command, format tui.OutputFormat) error {
	switch format {
	case tui.OutputFormatJSON, tui.OutputFormatPrettyText:
	default:
		return fmt.Errorf("unknown format %q", format)
	}

	session, err := tui.NewSession(
		a.newController(),
		tui.WithOutput(cmd.OutOrStdout()),
		tui.WithOutputFormat(format),
		tui.WithLogger(a.logger),
	)
	if err != nil {
		return err
	}

	if _, err := session.Run(ctx); err != nil {
		if errors.Is(err, tui.ErrAborted) || errors.Is(err, tui.ErrDeclined) {
			a.logger.Info("signup: prompt ended", "reason", err.Error())
			return nil
		}
		return err
	}
	return nil
}
