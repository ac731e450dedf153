package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"animforge/internal/fileutil"
	"animforge/internal/textutil"
	"animforge/internal/validate"
)

const errorColumnWidth = 72

func newValidateCommand(ctx *commandContext) *cobra.Command {
	var write bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "validate <script.py>",
		Short: "Run the compile-and-repair loop without rendering",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scriptPath, source, err := readScript(args[0])
			if err != nil {
				return err
			}

			s, err := ctx.buildStack(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer s.Close()

			result := s.validator.Validate(cmd.Context(), source)

			if jsonOutput {
				if err := writeJSON(cmd, result); err != nil {
					return err
				}
			} else {
				printValidation(cmd, result, s.repair.Backend())
			}

			if write && result.Valid && result.Source != source {
				if err := fileutil.WriteFileAtomic(scriptPath, []byte(result.Source), 0o644); err != nil {
					return fmt.Errorf("write repaired script: %w", err)
				}
				if !jsonOutput {
					fmt.Fprintf(cmd.OutOrStdout(), "Wrote repaired script to %s\n", scriptPath)
				}
			}

			if !result.Valid {
				return errors.New("validation failed: the script still does not compile")
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&write, "write", "w", false, "Overwrite the script with the repaired source when it validates")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the validation result as JSON")
	return cmd
}

func printValidation(cmd *cobra.Command, result validate.Result, backend string) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	kind, message := statusOK, "compiles"
	if !result.Valid {
		kind, message = statusError, "does not compile"
	}
	fmt.Fprintln(out, renderStatusLine("Validation", kind, message, colorize))
	fmt.Fprintln(out, renderStatusLine("Attempts", statusInfo, strconv.Itoa(result.Attempts()), colorize))
	fmt.Fprintln(out, renderStatusLine("Repair oracle", statusInfo, backend, colorize))

	if len(result.History) == 0 {
		return
	}
	rows := make([][]string, 0, len(result.History))
	for _, record := range result.History {
		rows = append(rows, []string{
			strconv.Itoa(record.Attempt),
			textutil.Truncate(textutil.FirstLine(record.Error), errorColumnWidth),
		})
	}
	fmt.Fprintln(out, renderTable(out, []string{"Attempt", "Error"}, rows, []columnAlignment{alignRight, alignLeft}))
}
