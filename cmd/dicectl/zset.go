package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/danmuck/dicewire/command"
)

func parseInt(name, raw string) (int64, error) {
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return v, nil
}

// positionalsFirst stops flag parsing at the first positional argument so values
// such as "-1" reach the command instead of being read as shorthand flags. Local
// flags then have to come before the positionals.
func positionalsFirst(cmd *cobra.Command) *cobra.Command {
	cmd.Flags().SetInterspersed(false)
	return cmd
}

func rangeMode(byScore bool) command.ZRangeMode {
	if byScore {
		return command.ByScore
	}
	return command.ByRank
}

func (a *app) zsetCommands() []*cobra.Command {
	var nx, xx, ch, incr bool
	zadd := &cobra.Command{
		Use:   "zadd [flags] <key> <score> <member> [score member]...",
		Short: "Add members to a sorted set",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) < 3 || len(args)%2 == 0 {
				return fmt.Errorf("want a key followed by score/member pairs, got %d args", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			members := make([]command.ZMember, 0, (len(args)-1)/2)
			for i := 1; i < len(args); i += 2 {
				score, err := parseInt("score", args[i])
				if err != nil {
					return err
				}
				members = append(members, command.ZMember{Score: score, Member: args[i+1]})
			}
			var flags []command.ZAddFlag
			for _, f := range []struct {
				on   bool
				flag command.ZAddFlag
			}{{nx, command.ZAddNX}, {xx, command.ZAddXX}, {ch, command.ZAddCH}, {incr, command.ZAddIncr}} {
				if f.on {
					flags = append(flags, f.flag)
				}
			}
			return run(a, cmd, command.ZAdd(args[0], members, flags...))
		},
	}
	zadd.Flags().BoolVar(&nx, "nx", false, "only add new members")
	zadd.Flags().BoolVar(&xx, "xx", false, "only update existing members")
	zadd.Flags().BoolVar(&ch, "ch", false, "count changed members, not just added ones")
	zadd.Flags().BoolVar(&incr, "incr", false, "increment the score instead of setting it")

	var byScore bool
	zrange := &cobra.Command{
		Use:   "zrange [flags] <key> <start> <stop>",
		Short: "List members by rank, or by score with --by-score",
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
			return run(a, cmd, command.ZRange(args[0], start, stop, rangeMode(byScore)))
		},
	}
	zrange.Flags().BoolVar(&byScore, "by-score", false, "treat start and stop as scores")

	zcard := &cobra.Command{
		Use:   "zcard <key>",
		Short: "Count the members of a sorted set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(a, cmd, command.ZCard(args[0]))
		},
	}

	zcount := &cobra.Command{
		Use:   "zcount <key> <min> <max>",
		Short: "Count members with a score in [min, max]",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(a, cmd, command.ZCount(args[0], args[1], args[2]))
		},
	}

	zrank := &cobra.Command{
		Use:   "zrank <key> <member>",
		Short: "Show a member's rank and score",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(a, cmd, command.ZRank(args[0], args[1]))
		},
	}

	zrem := &cobra.Command{
		Use:   "zrem <key> <member>...",
		Short: "Remove members from a sorted set",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(a, cmd, command.ZRem(args[0], args[1:]...))
		},
	}

	var popCount int64
	zpopmax := &cobra.Command{
		Use:   "zpopmax <key>",
		Short: "Remove and return the highest scored members",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if popCount > 1 {
				return run(a, cmd, command.ZPopMaxN(args[0], popCount))
			}
			return run(a, cmd, command.ZPopMax(args[0]))
		},
	}
	zpopmax.Flags().Int64Var(&popCount, "count", 1, "members to pop")

	var popMinCount int64
	zpopmin := &cobra.Command{
		Use:   "zpopmin <key>",
		Short: "Remove and return the lowest scored members",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if popMinCount > 1 {
				return run(a, cmd, command.ZPopMinN(args[0], popMinCount))
			}
			return run(a, cmd, command.ZPopMin(args[0]))
		},
	}
	zpopmin.Flags().Int64Var(&popMinCount, "count", 1, "members to pop")

	return []*cobra.Command{positionalsFirst(zadd), positionalsFirst(zrange), zcard, positionalsFirst(zcount), zrank, zrem, zpopmax, zpopmin}
}
