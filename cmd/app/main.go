package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/taskcollector/internal"
	"github.com/starford/taskcollector/internal/index"
	"github.com/starford/taskcollector/internal/tasks"
	pkgconfig "github.com/starford/taskcollector/pkg/config"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if _, err := pkgconfig.LoadOptional(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func options(cmd *cli.Command) ([]internal.Option, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return []internal.Option{
		internal.WithConfig(cfg),
		internal.WithVersion(version),
	}, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx, opts...)
}

func listTasks(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	q := index.TaskQuery{
		State: cmd.String("state"),
		Text:  cmd.String("q"),
		Path:  cmd.String("path"),
		Tag:   cmd.String("tag"),
	}
	return internal.QueryTasks(ctx, q, opts...)
}

// operation builds the action of a whole-file command.
func operation(op tasks.Operation) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		file := cmd.Args().First()
		if file == "" {
			return errors.New("missing FILE argument")
		}
		req := tasks.Request{Op: op, Mark: cmd.String("mark")}
		if op == tasks.OpMark {
			sel, err := tasks.ParseLines(cmd.String("lines"))
			if err != nil {
				return err
			}
			req.Selection = sel
		}
		opts, err := options(cmd)
		if err != nil {
			return err
		}
		return internal.RunOperation(ctx, file, req, cmd.Bool("stdout"), opts...)
	}
}

func fileCommand(name, usage string, op tasks.Operation, extra ...cli.Flag) *cli.Command {
	flags := append([]cli.Flag{
		&cli.BoolFlag{
			Name:  "stdout",
			Usage: "Print the result instead of rewriting the file",
		},
	}, extra...)
	return &cli.Command{
		Name:      name,
		Usage:     usage,
		ArgsUsage: "FILE",
		Action:    operation(op),
		Flags:     flags,
	}
}

func markFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "mark",
		Usage: "Mark character (Backspace removes the checkbox)",
		Value: tasks.DefaultMark,
	}
}

func main() {
	cmd := &cli.Command{
		Name:    "taskcollector",
		Usage:   "Collect, complete and archive Markdown tasks in a vault",
		Version: version,
		Action:  serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API, SSE events and the vault watcher",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools over stdio",
				Action: serveMCP,
			},
			fileCommand("complete-all", "Complete every incomplete task in FILE", tasks.OpCompleteAll, markFlag()),
			fileCommand("reset-all", "Reopen completed tasks outside the log section of FILE", tasks.OpResetAll),
			fileCommand("move", "Move completed tasks of FILE into its log section", tasks.OpMoveCompleted),
			fileCommand("mark", "Apply a mark to a span of lines in FILE", tasks.OpMark, markFlag(),
				&cli.StringFlag{
					Name:     "lines",
					Usage:    "Zero-based line or span, e.g. 3 or 3-5",
					Required: true,
				}),
			{
				Name:   "tasks",
				Usage:  "Query the task index",
				Action: listTasks,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "state", Usage: "incomplete, complete, canceled or unrecognized"},
					&cli.StringFlag{Name: "q", Usage: "Words that must appear in the task text"},
					&cli.StringFlag{Name: "path", Usage: "Restrict to one document"},
					&cli.StringFlag{Name: "tag", Usage: "Restrict to a #tag"},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
