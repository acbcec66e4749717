package main

import (
	"github.com/spf13/cobra"

	"github.com/danmuck/dicewire/command"
)

func (a *app) rawCmd() *cobra.Command {
	return positionalsFirst(&cobra.Command{
		Use:   "raw <op> [arg]...",
		Short: "Send any command and print whatever payload comes back",
		Example: `  dicectl raw SET greeting "hello world"
  dicectl raw GET greeting`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(a, cmd, command.RawArgs(args[0], args[1:]...))
		},
	})
}
