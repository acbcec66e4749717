package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/danmuck/dicewire/command"
)

func (a *app) kvCommands() []*cobra.Command {
	ping := &cobra.Command{
		Use:   "ping [message]",
		Short: "Check the server is answering",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(a, cmd, command.Ping(args...))
		},
	}

	echo := &cobra.Command{
		Use:   "echo <message>",
		Short: "Have the server repeat a message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(a, cmd, command.Echo(args[0]))
		},
	}

	get := &cobra.Command{
		Use:   "get <key>",
		Short: "Read a string value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(a, cmd, command.Get(args[0]))
		},
	}

	var (
		setNX, setXX, keepTTL bool
		ttl                   time.Duration
	)
	set := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Write a string value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := command.SetOptions{KeepTTL: keepTTL}
			switch {
			case setNX && setXX:
				return fmt.Errorf("--nx and --xx are mutually exclusive")
			case setNX:
				opts.Condition = command.IfNotExists
			case setXX:
				opts.Condition = command.IfExists
			}
			if ttl > 0 {
				if keepTTL {
					return fmt.Errorf("--ttl and --keepttl are mutually exclusive")
				}
				opts.Expiry = command.In(ttl)
			}
			return run(a, cmd, command.SetWith(args[0], args[1], opts))
		},
	}
	set.Flags().BoolVar(&setNX, "nx", false, "only set if the key does not exist")
	set.Flags().BoolVar(&setXX, "xx", false, "only set if the key exists")
	set.Flags().BoolVar(&keepTTL, "keepttl", false, "keep the key's existing expiry")
	set.Flags().DurationVar(&ttl, "ttl", 0, "expire the key after this long")

	del := &cobra.Command{
		Use:   "del <key>...",
		Short: "Delete keys",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(a, cmd, command.Del(args...))
		},
	}

	exists := &cobra.Command{
		Use:   "exists <key>...",
		Short: "Count how many of the keys exist",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(a, cmd, command.Exists(args...))
		},
	}

	keys := &cobra.Command{
		Use:   "keys <pattern>",
		Short: "List keys matching a glob pattern",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(a, cmd, command.Keys(args[0]))
		},
	}

	typ := &cobra.Command{
		Use:   "type <key>",
		Short: "Show the type stored at a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(a, cmd, command.Type(args[0]))
		},
	}

	var by int64
	incr := &cobra.Command{
		Use:   "incr <key>",
		Short: "Increment an integer value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if by == 1 {
				return run(a, cmd, command.Incr(args[0]))
			}
			return run(a, cmd, command.IncrBy(args[0], by))
		},
	}
	incr.Flags().Int64Var(&by, "by", 1, "amount to add")

	var decrBy int64
	decr := &cobra.Command{
		Use:   "decr <key>",
		Short: "Decrement an integer value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if decrBy == 1 {
				return run(a, cmd, command.Decr(args[0]))
			}
			return run(a, cmd, command.DecrBy(args[0], decrBy))
		},
	}
	decr.Flags().Int64Var(&decrBy, "by", 1, "amount to subtract")

	ttlCmd := &cobra.Command{
		Use:   "ttl <key>",
		Short: "Seconds until a key expires (-1 no expiry, -2 missing)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(a, cmd, command.TTL(args[0]))
		},
	}

	expire := &cobra.Command{
		Use:   "expire <key> <seconds>",
		Short: "Set a key's time to live",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			secs, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("seconds: %w", err)
			}
			return run(a, cmd, command.Expire(args[0], secs))
		},
	}

	getdel := &cobra.Command{
		Use:   "getdel <key>",
		Short: "Read a string value and delete the key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(a, cmd, command.GetDel(args[0]))
		},
	}

	flush := &cobra.Command{
		Use:   "flushdb",
		Short: "Delete every key in the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(a, cmd, command.FlushDB())
		},
	}

	return []*cobra.Command{ping, echo, get, set, del, exists, keys, typ, incr, decr, ttlCmd, positionalsFirst(expire), getdel, flush}
}
