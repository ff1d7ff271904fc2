package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pders01/folio/internal/config"
	"github.com/pders01/folio/internal/validation"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "config",
		Short:   "Manage the configuration file",
		GroupID: "system",
		// No config is loaded for these subcommands.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	}

	var path string
	generate := &cobra.Command{
		Use:   "generate",
		Short: "Write the default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			target := config.DefaultPath()
			if path != "" {
				var err error
				if target, err = validation.ExpandPath(path); err != nil {
					return err
				}
			}
			if err := config.GenerateDefaultConfig(target); err != nil {
				return fmt.Errorf("failed to generate config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Generated default configuration at: %s\n", target)
			return nil
		},
	}
	generate.Flags().StringVarP(&path, "output", "o", "", "where to write the file")

	cmd.AddCommand(generate)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "version",
		Short:   "Show version information",
		GroupID: "system",
		Args:    cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "folio %s\n", Version)
			fmt.Fprintln(out, "Articles & Chapters browser")
			fmt.Fprintln(out, "github.com/pders01/folio")
		},
	}
}
