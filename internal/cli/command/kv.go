package command

import (
	"context"
	"fmt"
	"strconv"

	"github.com/urfave/cli/v2"
)

// PingCommand returns the ping command.
func PingCommand() *cli.Command {
	return &cli.Command{
		Name:      "ping",
		Usage:     "Check the server is reachable",
		ArgsUsage: "[MESSAGE]",
		Action: func(c *cli.Context) error {
			if c.NArg() > 1 {
				return usageError(c, "at most one message")
			}
			return run(c, append([]string{"PING"}, c.Args().Slice()...)...)
		},
	}
}

// EchoCommand returns the echo command.
func EchoCommand() *cli.Command {
	return &cli.Command{
		Name:      "echo",
		Usage:     "Echo a message back from the server",
		ArgsUsage: "MESSAGE",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return usageError(c, "exactly one message")
			}
			return run(c, "ECHO", c.Args().First())
		},
	}
}

// GetCommand returns the get command.
func GetCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Get the value of a key",
		ArgsUsage: "KEY",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return usageError(c, "exactly one key")
			}
			return run(c, "GET", c.Args().First())
		},
	}
}

// SetCommand returns the set command.
func SetCommand() *cli.Command {
	return &cli.Command{
		Name:      "set",
		Usage:     "Set a key to a value, optionally expiring after --px milliseconds",
		ArgsUsage: "KEY VALUE",
		Flags: []cli.Flag{
			&cli.Int64Flag{
				Name:  "px",
				Usage: "Expire after this many milliseconds",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return usageError(c, "a key and a value")
			}
			args := []string{"SET", c.Args().Get(0), c.Args().Get(1)}
			if c.IsSet("px") {
				args = append(args, "PX", strconv.FormatInt(c.Int64("px"), 10))
			}
			return run(c, args...)
		},
	}
}

// DelCommand returns the del command.
func DelCommand() *cli.Command {
	return &cli.Command{
		Name:      "del",
		Usage:     "Delete keys and print how many were removed",
		ArgsUsage: "KEY [KEY...]",
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return usageError(c, "at least one key")
			}
			return run(c, append([]string{"DEL"}, c.Args().Slice()...)...)
		},
	}
}

// ExistsCommand returns the exists command.
func ExistsCommand() *cli.Command {
	return &cli.Command{
		Name:      "exists",
		Usage:     "Count how many of the keys exist",
		ArgsUsage: "KEY [KEY...]",
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return usageError(c, "at least one key")
			}
			return run(c, append([]string{"EXISTS"}, c.Args().Slice()...)...)
		},
	}
}

// PTTLCommand returns the pttl command.
func PTTLCommand() *cli.Command {
	return &cli.Command{
		Name:      "pttl",
		Usage:     "Remaining time to live of a key in milliseconds (-1 no expiry, -2 missing)",
		ArgsUsage: "KEY",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return usageError(c, "exactly one key")
			}
			return run(c, "PTTL", c.Args().First())
		},
	}
}

// ExecCommand returns the exec command, which sends its arguments verbatim.
func ExecCommand() *cli.Command {
	return &cli.Command{
		Name:      "exec",
		Usage:     "Send a raw command",
		ArgsUsage: "COMMAND [ARG...]",
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return usageError(c, "a command")
			}
			return run(c, c.Args().Slice()...)
		},
	}
}

// run sends one command and prints the reply. An error reply is printed and
// turned into exit status 1.
func run(c *cli.Context, args ...string) error {
	failed, err := do(c.Context, c, args)
	if err != nil {
		return err
	}
	if failed {
		return cli.Exit("", 1)
	}
	return nil
}

// do executes args and prints the reply. It reports whether the server
// answered with an error frame.
func do(ctx context.Context, c *cli.Context, args []string) (bool, error) {
	mgr := GetConnectionManager(c)
	if mgr == nil {
		return false, fmt.Errorf("connection manager not initialized")
	}

	reply, err := mgr.Do(ctx, args...)
	if err != nil {
		return false, err
	}
	if err := formatter(c).Format(writer(c), reply); err != nil {
		return false, err
	}
	return reply.IsError(), nil
}

func usageError(c *cli.Context, want string) error {
	return fmt.Errorf("%s: expected %s (usage: %s %s)", c.Command.Name, want, c.Command.Name, c.Command.ArgsUsage)
}
