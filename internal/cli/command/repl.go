package command

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/jetkv/internal/cli/repl"
	"github.com/yndnr/jetkv/internal/server/redisserver"
)

// ReplCommand returns the interactive mode command.
func ReplCommand() *cli.Command {
	return &cli.Command{
		Name:   "repl",
		Usage:  "Start an interactive session",
		Action: replAction,
	}
}

func replAction(c *cli.Context) error {
	cfg := GetConfig(c)

	r := repl.New(func(ctx context.Context, args []string) error {
		_, err := do(ctx, c, args)
		return err
	}, redisserver.Commands())
	r.SetIO(c.App.Reader, c.App.Writer)
	r.SetPrompt(fmt.Sprintf("%s> ", cfg.Server))

	if cfg.HistoryFile != "" {
		r.SetHistory(repl.NewHistoryFile(cfg.HistoryFile))
	}
	history := r.History()
	if err := history.Load(); err != nil {
		PrintError(c, "load history: %v", err)
	}
	defer func() {
		if err := history.Save(); err != nil {
			PrintError(c, "save history: %v", err)
		}
	}()

	return r.Run(c.Context)
}
