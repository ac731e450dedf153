package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"animforge/internal/scene"
)

func newSceneCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "scene <script.py>",
		Short:       "List scene classes declared in a script",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			_, source, err := readScript(args[0])
			if err != nil {
				return err
			}
			names := scene.ExtractAll(source)
			if len(names) == 0 {
				return errors.New("no scene class found")
			}
			out := cmd.OutOrStdout()
			for i, name := range names {
				marker := " "
				if i == 0 {
					marker = "*"
				}
				fmt.Fprintf(out, "%s %s\n", marker, name)
			}
			return nil
		},
	}
}
