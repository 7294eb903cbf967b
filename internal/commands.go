package internal

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"text/tabwriter"

	"golang.org/x/sync/errgroup"

	"github.com/starford/taskcollector/internal/index"
	"github.com/starford/taskcollector/internal/mcpserver"
	"github.com/starford/taskcollector/internal/storage"
	"github.com/starford/taskcollector/internal/tasks"
)

// RunMCP serves the MCP tools on stdin/stdout until the client disconnects.
// The vault watcher keeps the task index current meanwhile. Logs go to
// stderr since stdout carries the protocol.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := newLogger(cfg.App.LogLevel, os.Stderr)

	c, err := setup(cfg, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return index.NewWatcher(c.db, c.store, c.engine, c.store.Root(), logger, nil).Run(gCtx)
	})
	g.Go(func() error {
		defer cancel()
		logger.Info("MCP server starting", slog.String("version", app.version))
		return mcpserver.New(c.svc, app.version).ServeStdio()
	})
	return g.Wait()
}

// RunOperation applies req to a Markdown file anywhere on disk. With
// toStdout the result is printed and the file is left alone; otherwise the
// file is rewritten atomically when the operation changed it.
func RunOperation(_ context.Context, file string, req tasks.Request, toStdout bool, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := newLogger(app.config.App.LogLevel, os.Stderr)

	engine, err := tasks.NewEngine(app.config.Tasks.Settings(), tasks.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("compile task settings: %w", err)
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("read %s: %w", file, err)
	}
	res, err := engine.Apply(string(data), req)
	if err != nil {
		return err
	}

	if toStdout {
		_, err := fmt.Fprint(app.out, res.Document)
		return err
	}
	if !res.Changed {
		_, err := fmt.Fprintf(app.out, "%s: unchanged\n", file)
		return err
	}

	abs, err := filepath.Abs(file)
	if err != nil {
		return err
	}
	store, err := storage.NewFS(filepath.Dir(abs))
	if err != nil {
		return err
	}
	if err := store.Write(filepath.Base(abs), []byte(res.Document)); err != nil {
		return err
	}
	logger.Debug("operation applied", slog.String("file", file), slog.String("op", string(req.Op)))
	_, err = fmt.Fprintf(app.out, "%s: updated\n", file)
	return err
}

// QueryTasks syncs the index with the vault and prints matching tasks as a
// table.
func QueryTasks(ctx context.Context, q index.TaskQuery, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := newLogger(app.config.App.LogLevel, os.Stderr)

	c, err := setup(app.config, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	list, err := c.svc.ListTasks(ctx, q)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(app.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tLINE\tSTATE\tTEXT")
	for _, t := range list {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", t.Path, t.Line, t.State, t.Text)
	}
	return tw.Flush()
}
