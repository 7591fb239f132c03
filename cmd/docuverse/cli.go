package main

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"

	"github.com/hpungsan/docuverse/internal/config"
	"github.com/hpungsan/docuverse/internal/db"
	"github.com/hpungsan/docuverse/internal/errors"
	"github.com/hpungsan/docuverse/internal/fetch"
	"github.com/hpungsan/docuverse/internal/mcp"
	"github.com/hpungsan/docuverse/internal/metrics"
	"github.com/hpungsan/docuverse/internal/ops"
	"github.com/hpungsan/docuverse/internal/web"
)

// runtime is everything a command needs once config and storage are open.
type runtime struct {
	deps     *ops.Deps
	registry *prometheus.Registry
	closer   io.Closer
}

// opener builds a runtime from global flags.
type opener func(c *cli.Context) (*runtime, error)

// cliApp opens the runtime lazily so help and version never touch the database.
type cliApp struct {
	open opener
	rt   *runtime
}

// newCLIApp creates the CLI application with all commands.
func newCLIApp(open opener) *cli.App {
	a := &cliApp{open: open}
	app := &cli.App{
		Name:    "docuverse",
		Usage:   "Outline-driven static site generator",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "base-dir", Value: "~/.docuverse", Usage: "Config, secrets and store directory", EnvVars: []string{"DOCUVERSE_HOME"}},
			&cli.StringFlag{Name: "log-level", Value: "info", Usage: "debug|info|warn|error"},
		},
		Commands: []*cli.Command{
			a.publishCmd(),
			a.watchCmd(),
			a.feedCmd(),
			a.outlineCmd(),
			a.browseCmd(),
			a.elaborateCmd(),
			a.historyCmd(),
			a.serveCmd(),
			a.mcpCmd(),
		},
		After: func(*cli.Context) error {
			if a.rt != nil && a.rt.closer != nil {
				return a.rt.closer.Close()
			}
			return nil
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// load returns the shared runtime, opening it on first use.
func (a *cliApp) load(c *cli.Context) (*runtime, error) {
	if a.rt != nil {
		return a.rt, nil
	}
	rt, err := a.open(c)
	if err != nil {
		return nil, err
	}
	a.rt = rt
	return rt, nil
}

// deps is a shorthand for commands that only need ops dependencies.
func (a *cliApp) deps(c *cli.Context) (*ops.Deps, error) {
	rt, err := a.load(c)
	if err != nil {
		return nil, err
	}
	return rt.deps, nil
}

// openRuntime loads config and secrets, opens the store and wires metrics.
func openRuntime(c *cli.Context) (*runtime, error) {
	logger, err := newLogger(c.App.ErrWriter, c.String("log-level"))
	if err != nil {
		return nil, err
	}

	baseDir, err := config.ExpandHome(c.String("base-dir"))
	if err != nil {
		return nil, fmt.Errorf("could not determine home directory: %w", err)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("could not determine working directory: %w", err)
	}
	cfg, err := config.LoadWithRepo(baseDir, cwd)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.LoadSecrets(cfg, baseDir); err != nil {
		return nil, fmt.Errorf("failed to load secrets: %w", err)
	}
	if unknown := mcp.ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		logger.Warn("unknown tools in disabled_tools", "tools", strings.Join(unknown, ","),
			"valid", strings.Join(mcp.AllToolNames(), ","))
	}

	database, err := db.Init(baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	db.ConfigurePool(database, cfg)

	reg := prometheus.NewRegistry()
	deps := ops.NewDeps(cfg, database, ops.NewGenerator(cfg), logger, metrics.NewPrometheusRecorder(reg))

	return &runtime{deps: deps, registry: reg, closer: database}, nil
}

// newLogger builds the stderr text logger for the given level name.
func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	if w == nil {
		w = os.Stderr
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       lvl,
		ReplaceAttr: fetch.ReplaceLevel,
	})), nil
}

// sourceFlags select the content root for tree commands.
func sourceFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "Markdown file root"},
		&cli.StringFlag{Name: "manifest", Aliases: []string{"m"}, Usage: "Category manifest root (default: config manifest_path)"},
		&cli.StringFlag{Name: "feed-user", Usage: "Feed timeline root"},
		&cli.IntFlag{Name: "feed-offset", Usage: "Timeline paging offset"},
		&cli.StringFlag{Name: "post", Usage: "Single feed post root"},
		&cli.StringFlag{Name: "updated-at", Usage: "Post updatedAt value; a new value refetches the post"},
	}
}

// sourceFrom reads sourceFlags into an ops.Source.
func sourceFrom(c *cli.Context) ops.Source {
	src := ops.Source{File: c.String("file"), Manifest: c.String("manifest")}
	if c.IsSet("feed-user") || c.IsSet("feed-offset") || c.IsSet("post") {
		src.Feed = &ops.FeedInput{
			User:      c.String("feed-user"),
			Offset:    c.Int("feed-offset"),
			PostID:    c.String("post"),
			UpdatedAt: c.String("updated-at"),
		}
	}
	return src
}

// publishCmd creates the publish command.
func (a *cliApp) publishCmd() *cli.Command {
	return &cli.Command{
		Name:  "publish",
		Usage: "Materialize a content tree and export it as a static site",
		Flags: append(sourceFlags(),
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Export directory (default: config output_dir)"},
		),
		Action: func(c *cli.Context) error {
			deps, err := a.deps(c)
			if err != nil {
				return outputError(err)
			}
			return publish(c, deps, sourceFrom(c))
		},
	}
}

// feedCmd creates the feed command, a publish rooted at a feed timeline or post.
func (a *cliApp) feedCmd() *cli.Command {
	return &cli.Command{
		Name:      "feed",
		Usage:     "Publish a feed timeline (or one post) as a static site",
		ArgsUsage: "[user]",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "offset", Usage: "Timeline paging offset"},
			&cli.StringFlag{Name: "post", Usage: "Publish a single post instead of the timeline"},
			&cli.StringFlag{Name: "updated-at", Usage: "Post updatedAt value; a new value refetches the post"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Export directory (default: config output_dir)"},
		},
		Action: func(c *cli.Context) error {
			deps, err := a.deps(c)
			if err != nil {
				return outputError(err)
			}
			return publish(c, deps, ops.Source{Feed: &ops.FeedInput{
				User:      c.Args().First(),
				Offset:    c.Int("offset"),
				PostID:    c.String("post"),
				UpdatedAt: c.String("updated-at"),
			}})
		},
	}
}

func publish(c *cli.Context, deps *ops.Deps, src ops.Source) error {
	root, err := ops.Root(c.Context, deps, src)
	if err != nil {
		return outputError(err)
	}
	output, err := ops.Publish(c.Context, deps, ops.PublishInput{
		Root:      root,
		Source:    src.Label(deps.Config),
		OutputDir: c.String("output"),
	})
	if err != nil {
		return outputError(err)
	}
	return outputJSON(c, output)
}

// watchCmd creates the watch command.
func (a *cliApp) watchCmd() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Republish whenever the manifest or a listed markdown file changes",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "manifest", Aliases: []string{"m"}, Usage: "Category manifest (default: config manifest_path)"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Export directory (default: config output_dir)"},
		},
		Action: func(c *cli.Context) error {
			deps, err := a.deps(c)
			if err != nil {
				return outputError(err)
			}
			err = ops.Watch(c.Context, deps, ops.WatchInput{
				Manifest:  c.String("manifest"),
				OutputDir: c.String("output"),
				OnPublish: func(out *ops.PublishOutput, err error) {
					if err != nil {
						return // already logged
					}
					_ = outputJSONLine(c, out)
				},
			})
			if err != nil {
				return outputError(err)
			}
			return nil
		},
	}
}

// outlineCmd creates the outline command.
func (a *cliApp) outlineCmd() *cli.Command {
	return &cli.Command{
		Name:      "outline",
		Usage:     "Print the heading outline of a markdown file (or stdin)",
		ArgsUsage: "[path]",
		Action: func(c *cli.Context) error {
			input := ops.OutlineInput{Path: c.Args().First()}
			if input.Path == "" {
				if !stdinHasData() {
					return outputError(errors.NewInvalidRequest("pass a path or pipe markdown via stdin"))
				}
				text, err := readStdin()
				if err != nil {
					return outputError(errors.NewInternal(err))
				}
				input.Text = text
			}

			output, err := ops.Outline(input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// browseCmd creates the browse command.
func (a *cliApp) browseCmd() *cli.Command {
	return &cli.Command{
		Name:      "browse",
		Usage:     "Show a node of the content tree and list its children",
		ArgsUsage: "[index path, e.g. 0/2]",
		Flags: append(sourceFlags(),
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultChildrenLimit, Usage: "Max children listed"},
		),
		Action: func(c *cli.Context) error {
			deps, err := a.deps(c)
			if err != nil {
				return outputError(err)
			}
			output, err := ops.Browse(c.Context, deps, ops.BrowseInput{
				Source: sourceFrom(c),
				Path:   c.Args().First(),
				Limit:  c.Int("limit"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// elaborateCmd creates the elaborate command.
func (a *cliApp) elaborateCmd() *cli.Command {
	return &cli.Command{
		Name:      "elaborate",
		Usage:     "Expand a node along a directive using the AI",
		ArgsUsage: "[index path, e.g. 0/2]",
		Flags: append(sourceFlags(),
			&cli.StringFlag{Name: "directive", Aliases: []string{"d"}, Required: true, Usage: `What to elaborate; "$title" is the node's name`},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultChildrenLimit, Usage: "Max children listed"},
		),
		Action: func(c *cli.Context) error {
			deps, err := a.deps(c)
			if err != nil {
				return outputError(err)
			}
			output, err := ops.Elaborate(c.Context, deps, ops.ElaborateInput{
				Source:    sourceFrom(c),
				Path:      c.Args().First(),
				Directive: c.String("directive"),
				Limit:     c.Int("limit"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// historyCmd creates the history command.
func (a *cliApp) historyCmd() *cli.Command {
	return &cli.Command{
		Name:      "history",
		Usage:     "List recent publish runs, or show one by id",
		ArgsUsage: "[id]",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultHistoryLimit, Usage: "Max builds"},
		},
		Action: func(c *cli.Context) error {
			deps, err := a.deps(c)
			if err != nil {
				return outputError(err)
			}
			output, err := ops.History(c.Context, deps.DB, ops.HistoryInput{
				ID:    c.Args().First(),
				Limit: c.Int("limit"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// serveCmd creates the serve command.
func (a *cliApp) serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Preview the exported site with build history and /metrics",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dir", Usage: "Site directory (default: config output_dir)"},
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Bind address"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Value: 8733, Usage: "Port"},
		},
		Action: func(c *cli.Context) error {
			rt, err := a.load(c)
			if err != nil {
				return outputError(err)
			}
			dir, err := siteDir(c.String("dir"), rt.deps.Config)
			if err != nil {
				return outputError(err)
			}
			srv := web.NewServer(web.Options{
				Dir:      dir,
				DB:       rt.deps.DB,
				Registry: rt.registry,
				Version:  Version,
				Bind:     c.String("bind"),
				Port:     c.Int("port"),
				Logger:   rt.deps.Logger,
			})
			return web.Run(c.Context, srv, rt.deps.Logger)
		},
	}
}

// mcpCmd creates the mcp command.
func (a *cliApp) mcpCmd() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Run the MCP server over stdio",
		Action: func(c *cli.Context) error {
			deps, err := a.deps(c)
			if err != nil {
				return outputError(err)
			}
			return mcp.Run(deps, Version)
		},
	}
}

// Helper functions

// siteDir resolves the directory served by the preview server.
func siteDir(flag string, cfg *config.Config) (string, error) {
	dir := flag
	if dir == "" {
		dir = cfg.OutputDir
	}
	dir, err := config.ExpandHome(dir)
	if err != nil {
		return "", errors.NewInternal(err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return "", errors.NewFileNotFound(dir)
	}
	if !info.IsDir() {
		return "", errors.NewInvalidRequest(fmt.Sprintf("%s is not a directory", dir))
	}
	return filepath.Clean(dir), nil
}

// outputJSON marshals result to the app's writer as indented JSON.
func outputJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputJSONLine writes one compact JSON document per line, for streams.
func outputJSONLine(c *cli.Context, v any) error {
	return json.NewEncoder(c.App.Writer).Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	var dErr *errors.Error
	if stderrors.As(err, &dErr) {
		msg := dErr.Message
		if err != error(dErr) {
			msg = err.Error()
		}
		return cli.Exit(fmt.Sprintf("[%s] %s", dErr.Code, msg), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads all content from stdin.
func readStdin() (string, error) {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
