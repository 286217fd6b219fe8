package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/folio/internal"
	pkgconfig "github.com/starford/folio/pkg/config"
)

var version = "dev"

// loadConfig reads the --config file. A missing file is an error for serve
// and leaves the defaults in place for the one-shot commands.
func loadConfig(cmd *cli.Command, required bool) ([]internal.Option, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if required {
		if err := pkgconfig.Load(configPath, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	} else if _, err := pkgconfig.LoadOptional(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return []internal.Option{
		internal.WithConfig(cfg),
		internal.WithVersion(version),
	}, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadConfig(cmd, true)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func render(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadConfig(cmd, false)
	if err != nil {
		return err
	}
	doc := cmd.String("doc")
	if doc == "" && cmd.Args().Len() > 0 {
		doc = cmd.Args().First()
	}
	return internal.RunRender(ctx, internal.RenderOptions{
		Document: doc,
		Rules:    cmd.String("rules"),
		Site:     cmd.String("site"),
		Stats:    cmd.Bool("stats"),
		Out:      os.Stdout,
		Err:      os.Stderr,
	}, opts...)
}

func pull(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadConfig(cmd, false)
	if err != nil {
		return err
	}
	return internal.RunPull(ctx, internal.PullOptions{
		Dir: cmd.String("dir"),
		Out: os.Stdout,
	}, opts...)
}

func mcp(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadConfig(cmd, false)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx, opts...)
}

func main() {
	cmd := &cli.Command{
		Name:    "folio",
		Usage:   "Rich-text blog renderer with automatic internal linking",
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
				Usage:  "Run the HTTP API, content watcher and event stream",
				Action: serve,
			},
			{
				Name:      "render",
				Usage:     "Render a post or editor document to HTML with internal links",
				ArgsUsage: "[document]",
				Action:    render,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "doc",
						Aliases: []string{"d"},
						Usage:   "Post file (.md, .json) or editor JSON; - reads stdin",
					},
					&cli.StringFlag{
						Name:    "rules",
						Aliases: []string{"r"},
						Usage:   "YAML rule file (defaults to the configured rule source)",
					},
					&cli.StringFlag{
						Name:  "site",
						Usage: "Site whose rules apply",
					},
					&cli.BoolFlag{
						Name:  "stats",
						Usage: "Print link statistics as JSON to stderr",
					},
				},
			},
			{
				Name:   "pull",
				Usage:  "Copy posts from the CMS into the content directory",
				Action: pull,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "dir",
						Usage: "Content subdirectory for pulled posts",
						Value: "cms",
					},
				},
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools over stdio",
				Action: mcp,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
