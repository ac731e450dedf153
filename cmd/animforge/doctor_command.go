package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"animforge/internal/logging"
	"animforge/internal/notifications"
	"animforge/internal/preflight"
	"animforge/internal/repair"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var skipOracle bool
	var testNotify bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check external tools, directories and the repair oracle",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			problems := 0

			for _, line := range renderSectionHeader("Dependencies", colorize) {
				fmt.Fprintln(out, line)
			}
			for _, status := range preflight.CheckSystemDeps(cmd.Context(), cfg, nil) {
				switch {
				case status.Available:
					detail := status.Path
					if status.Version != "" {
						detail = fmt.Sprintf("%s (%s)", status.Path, status.Version)
					}
					fmt.Fprintln(out, renderStatusLine(status.Name, statusOK, detail, colorize))
				case status.Optional:
					fmt.Fprintln(out, renderStatusLine(status.Name, statusWarn, status.Detail+" (optional)", colorize))
				default:
					problems++
					fmt.Fprintln(out, renderStatusLine(status.Name, statusError, status.Detail, colorize))
				}
			}

			var client *repair.Client
			if !skipOracle {
				client = repair.New(cmd.Context(), cfg.Repair, logging.NewNop())
			}

			fmt.Fprintln(out)
			for _, line := range renderSectionHeader("Environment", colorize) {
				fmt.Fprintln(out, line)
			}
			for _, result := range preflight.RunAll(cmd.Context(), cfg, client) {
				kind := statusOK
				if !result.Passed {
					if result.Name == "Repair oracle" {
						kind = statusWarn
					} else {
						kind = statusError
						problems++
					}
				}
				fmt.Fprintln(out, renderStatusLine(result.Name, kind, result.Detail, colorize))
			}

			notifier := notifications.NewService(cfg.Notifications)
			switch {
			case !notifier.Enabled():
				fmt.Fprintln(out, renderStatusLine("Notifications", statusInfo, "disabled", colorize))
			case testNotify:
				if err := notifier.TestNotification(cmd.Context()); err != nil {
					fmt.Fprintln(out, renderStatusLine("Notifications", statusWarn, err.Error(), colorize))
				} else {
					fmt.Fprintln(out, renderStatusLine("Notifications", statusOK, "test message sent", colorize))
				}
			default:
				fmt.Fprintln(out, renderStatusLine("Notifications", statusOK, cfg.Notifications.NtfyTopic, colorize))
			}

			if problems > 0 {
				logger.Debug("doctor found problems", logging.Args(logging.Int("problems", problems))...)
				return fmt.Errorf("doctor found %d problem(s)", problems)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipOracle, "skip-oracle", false, "Skip the repair oracle reachability check")
	cmd.Flags().BoolVar(&testNotify, "test-notify", false, "Send a test ntfy message")
	return cmd
}
