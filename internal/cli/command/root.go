package command

import (
	"fmt"
	"io"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/jetkv/internal/cli/config"
	"github.com/yndnr/jetkv/internal/cli/connection"
	"github.com/yndnr/jetkv/internal/cli/output"
	"github.com/yndnr/jetkv/internal/infra/buildinfo"
)

const (
	metaConnMgr = "connMgr"
	metaConfig  = "config"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "jetkv-cli",
		Usage:   "jetkv command-line client",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			PingCommand(),
			EchoCommand(),
			GetCommand(),
			SetCommand(),
			DelCommand(),
			ExistsCommand(),
			PTTLCommand(),
			ExecCommand(),
			ReplCommand(),
		},
		Before: before,
		After: func(c *cli.Context) error {
			if mgr := GetConnectionManager(c); mgr != nil {
				mgr.Disconnect()
			}
			return nil
		},
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "jetkv server address (host:port)",
			EnvVars: []string{"JETKV_SERVER"},
			Value:   config.DefaultServer,
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: text, json, yaml",
			EnvVars: []string{"JETKV_OUTPUT"},
			Value:   config.DefaultOutput,
		},
		&cli.DurationFlag{
			Name:    "timeout",
			Aliases: []string{"t"},
			Usage:   "Dial and reply timeout",
			EnvVars: []string{"JETKV_TIMEOUT"},
			Value:   config.DefaultTimeout,
		},
		&cli.StringFlag{
			Name:  "config",
			Usage: "CLI config file",
			Value: config.DefaultConfigPath(),
		},
	}
}

// before resolves settings (flags and env over the config file) and
// installs the connection manager.
func before(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if c.IsSet("server") {
		cfg.Server = c.String("server")
	}
	if c.IsSet("output") {
		cfg.Output = c.String("output")
	}
	if c.IsSet("timeout") {
		cfg.Timeout = c.Duration("timeout")
	}
	if _, err := output.ParseFormat(cfg.Output); err != nil {
		return err
	}

	if c.App.Metadata == nil {
		c.App.Metadata = make(map[string]any)
	}
	c.App.Metadata[metaConfig] = cfg
	c.App.Metadata[metaConnMgr] = connection.NewManager(cfg.Server, cfg.Timeout)
	return nil
}

// GetConnectionManager retrieves the connection manager from context.
func GetConnectionManager(c *cli.Context) *connection.Manager {
	if mgr, ok := c.App.Metadata[metaConnMgr].(*connection.Manager); ok {
		return mgr
	}
	return nil
}

// GetConfig retrieves the resolved CLI configuration from context.
func GetConfig(c *cli.Context) *config.CLIConfig {
	if cfg, ok := c.App.Metadata[metaConfig].(*config.CLIConfig); ok {
		return cfg
	}
	return config.Default()
}

func formatter(c *cli.Context) output.Formatter {
	f, _ := output.ParseFormat(GetConfig(c).Output)
	return output.NewFormatter(f)
}

func writer(c *cli.Context) io.Writer {
	return c.App.Writer
}

// PrintError prints an error message to the app's error writer.
func PrintError(c *cli.Context, format string, args ...any) {
	fmt.Fprintf(c.App.ErrWriter, "error: "+format+"\n", args...)
}
