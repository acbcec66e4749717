package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danmuck/dicewire/internal/config"
)

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Write or check TOML config files",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:       "init <client|leaderboard> <path>",
		Short:     "Write a commented template",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"client", "leaderboard"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.WriteTemplate(args[1], args[0], force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s config to %s\n", args[0], args[1])
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	validate := &cobra.Command{
		Use:   "validate <client|leaderboard> <path>",
		Short: "Load a config file and report the first problem",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Validate(args[1], args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s config %s is valid\n", args[0], args[1])
			return nil
		},
	}

	cfg.AddCommand(initCmd, validate)
	return cfg
}
