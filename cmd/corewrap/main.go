// corewrap generates the instantiation of a processor core inside the bus
// test harness and orders HDL sources for compilation.
//
// Pipeline for one core:
//  1. extractor parses the module header into a signature
//  2. mapping holds the harness-signal to core-port assignment
//  3. wrapper classifies every port and renders the instance with its glue
//  4. validator checks the artifact against the CUE contract
//  5. policy runs the OPA wrapper checks over its fact tables
//
// The order command resolves a source set, builds the file dependency graph
// and writes the compile order back into the processor record.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"gitlab.com/tozd/go/errors"

	"github.com/robert-at-pretension-io/corewrap/internal/config"
	"github.com/robert-at-pretension-io/corewrap/internal/logging"
)

func main() {
	// a missing .env is fine
	_ = godotenv.Load()

	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "corewrap: %s\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "corewrap",
		Usage: "wrap processor cores for the bus harness and order their sources",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "configuration file (default: search ./corewrap.json, <root>, ~/.config/corewrap)",
				EnvVars: []string{"COREWRAP_CONFIG"},
			},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "debug logging"},
			&cli.BoolFlag{Name: "no-color", Usage: "plain log output"},
		},
		Before: func(c *cli.Context) error {
			level := slog.LevelInfo
			if c.Bool("verbose") {
				level = slog.LevelDebug
			}
			color := !c.Bool("no-color") && os.Getenv("NO_COLOR") == ""
			c.Context = logging.Setup(c.Context, os.Stderr, level, color)
			return nil
		},
		Commands: []*cli.Command{
			initCommand(),
			instanceCommand(),
			orderCommand(),
			checkCommand(),
		},
	}
}

func initCommand() *cli.Command {
	return &cli.Command{
		Name:      "init",
		Usage:     "write the default configuration",
		ArgsUsage: "[path]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "force", Aliases: []string{"f"}, Usage: "overwrite an existing file"},
		},
		Action: func(c *cli.Context) error {
			path := c.Args().First()
			if path == "" {
				path = "corewrap.json"
			}
			if _, err := os.Stat(path); err == nil && !c.Bool("force") {
				return errors.Errorf("config file %s already exists (use --force to overwrite)", path)
			}
			if err := config.DefaultConfig().Save(path); err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "Created %s\n", path)
			fmt.Fprintln(c.App.Writer, "\nEdit this file to configure:")
			fmt.Fprintln(c.App.Writer, "  - harness clock, reset and default signal tables")
			fmt.Fprintln(c.App.Writer, "  - package file patterns for ordering")
			fmt.Fprintln(c.App.Writer, "  - wrapper rule severities")
			return nil
		},
	}
}

// loadConfig reads --config when given, otherwise searches from root.
func loadConfig(c *cli.Context, root string) (*config.Config, error) {
	if path := c.String("config"); path != "" {
		return config.LoadFile(path)
	}
	cfg, err := config.Load(root)
	if err != nil {
		slog.WarnContext(c.Context, "could not load config, using defaults", "error", err)
		return config.DefaultConfig(), nil
	}
	return cfg, nil
}

// recordsDir picks the processor record directory: flag, then config, then
// $PROCESSOR_CI_PATH/config.
func recordsDir(c *cli.Context, cfg *config.Config) string {
	if dir := c.String("records-dir"); dir != "" {
		return dir
	}
	if cfg.RecordsDir != "" {
		return cfg.RecordsDir
	}
	if ci := os.Getenv("PROCESSOR_CI_PATH"); ci != "" {
		return filepath.Join(ci, "config")
	}
	return ""
}

func isStdout(path string) bool {
	return path == "" || path == "-"
}

// writeOutput writes data to path, or to the app writer for "" and "-".
func writeOutput(c *cli.Context, path string, data []byte) error {
	if isStdout(path) {
		_, err := c.App.Writer.Write(data)
		return errors.WithStack(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Errorf("writing %s: %w", path, err)
	}
	return nil
}
