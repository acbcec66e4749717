package main

import (
	"github.com/spf13/cobra"

	"github.com/danmuck/dicewire/client"
	"github.com/danmuck/dicewire/command"
	"github.com/danmuck/dicewire/proto"
)

// stream prints updates until count is reached, the stream ends, or the command
// context is cancelled. An interrupt is a clean exit.
func stream[U proto.Response](a *app, cmd *cobra.Command, wc command.WatchCommand[U], count int) error {
	cl, err := a.connect(cmd)
	if err != nil {
		return err
	}
	defer a.disconnect()
	ctx := cmd.Context()
	sub, err := client.Watch(ctx, cl, wc)
	if err != nil {
		return err
	}
	defer sub.Close()

	seen := 0
	for update := range sub.All(ctx) {
		a.print(cmd, update)
		seen++
		if count > 0 && seen >= count {
			return nil
		}
	}
	if ctx.Err() != nil {
		return nil
	}
	return sub.Err()
}

func (a *app) watchCmd() *cobra.Command {
	var count int
	watch := &cobra.Command{
		Use:   "watch",
		Short: "Stream a query's result every time it changes",
	}
	watch.PersistentFlags().IntVarP(&count, "count", "n", 0, "stop after this many updates; 0 streams until interrupted")

	var byScore bool
	zrange := &cobra.Command{
		Use:   "zrange [flags] <key> <start> <stop>",
		Short: "Watch a sorted-set range",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := parseInt("start", args[1])
			if err != nil {
				return err
			}
			stop, err := parseInt("stop", args[2])
			if err != nil {
				return err
			}
			return stream(a, cmd, command.ZRangeWatch(args[0], start, stop, rangeMode(byScore)), count)
		},
	}
	zrange.Flags().BoolVar(&byScore, "by-score", false, "treat start and stop as scores")

	watch.AddCommand(
		&cobra.Command{
			Use:   "get <key>",
			Short: "Watch a string value",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return stream(a, cmd, command.GetWatch(args[0]), count)
			},
		},
		&cobra.Command{
			Use:   "hget <key> <field>",
			Short: "Watch one hash field",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return stream(a, cmd, command.HGetWatch(args[0], args[1]), count)
			},
		},
		&cobra.Command{
			Use:   "hgetall <key>",
			Short: "Watch a whole hash",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return stream(a, cmd, command.HGetAllWatch(args[0]), count)
			},
		},
		positionalsFirst(zrange),
		positionalsFirst(&cobra.Command{
			Use:   "zcount <key> <min> <max>",
			Short: "Watch how many members score in [min, max]",
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				return stream(a, cmd, command.ZCountWatch(args[0], args[1], args[2]), count)
			},
		}),
		&cobra.Command{
			Use:   "zcard <key>",
			Short: "Watch a sorted set's size",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return stream(a, cmd, command.ZCardWatch(args[0]), count)
			},
		},
		&cobra.Command{
			Use:   "zrank <key> <member>",
			Short: "Watch a member's rank",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return stream(a, cmd, command.ZRankWatch(args[0], args[1]), count)
			},
		},
	)
	return watch
}
