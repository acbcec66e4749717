package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danmuck/dicewire/command"
	"github.com/danmuck/dicewire/proto"
)

func (a *app) hashCommands() []*cobra.Command {
	hset := &cobra.Command{
		Use:   "hset <key> <field> <value> [field value]...",
		Short: "Set hash fields",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) < 3 || len(args)%2 == 0 {
				return fmt.Errorf("want a key followed by field/value pairs, got %d args", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			fields := make([]proto.HElement, 0, (len(args)-1)/2)
			for i := 1; i < len(args); i += 2 {
				fields = append(fields, proto.HElement{Key: args[i], Value: args[i+1]})
			}
			return run(a, cmd, command.HSet(args[0], fields...))
		},
	}

	hget := &cobra.Command{
		Use:   "hget <key> <field>",
		Short: "Read one hash field",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(a, cmd, command.HGet(args[0], args[1]))
		},
	}

	hgetall := &cobra.Command{
		Use:   "hgetall <key>",
		Short: "Read every field of a hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(a, cmd, command.HGetAll(args[0]))
		},
	}

	return []*cobra.Command{hset, hget, hgetall}
}
