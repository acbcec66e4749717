package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/danmuck/dicewire/client"
	"github.com/danmuck/dicewire/command"
	"github.com/danmuck/dicewire/internal/config"
	"github.com/danmuck/dicewire/internal/logging"
	"github.com/danmuck/dicewire/internal/output"
	"github.com/danmuck/dicewire/proto"
)

// app is the state shared by every subcommand of one invocation.
type app struct {
	profile  string
	addr     string
	clientID string
	format   string
	timeout  time.Duration
	verbose  bool

	formatter output.Formatter
	client    *client.Client
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "dicectl",
		Short:         "Talk to a DiceDB server over its binary protocol",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logging.ConfigureCLI("dicectl")
			if a.verbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
			f, err := output.NewFormatter(a.format)
			if err != nil {
				return err
			}
			a.formatter = f
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.profile, "profile", "", "client profile (TOML)")
	flags.StringVar(&a.addr, "addr", "", "server address host:port (overrides the profile; default localhost:7379)")
	flags.StringVar(&a.clientID, "client-id", "", "client id sent in the handshake (default random)")
	flags.StringVarP(&a.format, "output", "o", "text", "output format: text, json, yaml")
	flags.DurationVar(&a.timeout, "timeout", 10*time.Second, "deadline for one command; 0 disables")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "debug logging on stderr")

	root.AddCommand(a.kvCommands()...)
	root.AddCommand(a.hashCommands()...)
	root.AddCommand(a.zsetCommands()...)
	root.AddCommand(a.watchCmd(), a.rawCmd(), configCmd())
	return root
}

func (a *app) clientConfig() (client.Config, error) {
	cfg := client.DefaultConfig()
	if a.profile != "" {
		var err error
		if cfg, err = config.LoadClientProfile(a.profile); err != nil {
			return client.Config{}, err
		}
	}
	if a.addr != "" {
		cfg.Addr = a.addr
	}
	if cfg.Addr == "" {
		cfg.Addr = "localhost:7379"
	}
	if a.clientID != "" {
		cfg.ClientID = a.clientID
	}
	return cfg, nil
}

// connect dials the server. Every caller defers disconnect.
func (a *app) connect(cmd *cobra.Command) (*client.Client, error) {
	if a.client != nil {
		return a.client, nil
	}
	cfg, err := a.clientConfig()
	if err != nil {
		return nil, err
	}
	c, err := client.New(cmd.Context(), cfg)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.Addr, err)
	}
	a.client = c
	return c, nil
}

func (a *app) disconnect() {
	if a.client != nil {
		a.client.Close()
		a.client = nil
	}
}

func run[R proto.Response](a *app, cmd *cobra.Command, c command.Command[R]) error {
	cl, err := a.connect(cmd)
	if err != nil {
		return err
	}
	defer a.disconnect()
	ctx := cmd.Context()
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	res, err := client.Fire(ctx, cl, c)
	if err != nil {
		return err
	}
	a.print(cmd, res)
	return nil
}

func (a *app) print(cmd *cobra.Command, res proto.Response) {
	fmt.Fprint(cmd.OutOrStdout(), a.formatter.Format(output.View(res)))
}
