package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"
	"gitlab.com/tozd/go/errors"

	"github.com/robert-at-pretension-io/corewrap/internal/config"
	"github.com/robert-at-pretension-io/corewrap/internal/facts"
	"github.com/robert-at-pretension-io/corewrap/internal/indexer"
	"github.com/robert-at-pretension-io/corewrap/internal/validator"
)

type orderOutput struct {
	Files []string              `json:"files"`
	Cycle *indexer.CycleWarning `json:"cycle,omitempty"`
}

func orderCommand() *cli.Command {
	return &cli.Command{
		Name:      "order",
		Usage:     "print HDL sources in compile order",
		ArgsUsage: "[files...]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "root", Value: ".", Usage: "repository root; file paths are relative to it"},
			&cli.StringFlag{Name: "processor", Aliases: []string{"p"}, Usage: "processor record to read files from"},
			&cli.StringFlag{Name: "records-dir", Usage: "directory of processor records", EnvVars: []string{"COREWRAP_RECORDS_DIR"}},
			&cli.BoolFlag{Name: "write", Aliases: []string{"w"}, Usage: "store the order back into the processor record"},
			&cli.BoolFlag{Name: "json", Usage: "print the order as JSON"},
			&cli.StringFlag{Name: "timing", Usage: "write phase timings as JSON lines to this file"},
			&cli.StringFlag{Name: "facts", Usage: "write the fact tables to this file"},
			&cli.StringFlag{Name: "delta-from", Usage: "previous fact tables to diff against"},
			&cli.StringFlag{Name: "delta-out", Usage: "where to write the fact delta (default stdout)"},
			&cli.StringFlag{Name: "impact", Usage: "report the files affected by a change to this file"},
		},
		Action: runOrder,
	}
}

func runOrder(c *cli.Context) error {
	ctx := c.Context
	root := c.String("root")
	cfg, err := loadConfig(c, root)
	if err != nil {
		return err
	}

	v, err := validator.New()
	if err != nil {
		return err
	}

	var (
		rec     *config.Record
		recPath string
	)
	if name := c.String("processor"); name != "" {
		dir := recordsDir(c, cfg)
		if dir == "" {
			return errors.New("--processor needs --records-dir, recordsDir in the config, or PROCESSOR_CI_PATH")
		}
		recPath = config.RecordPath(dir, name)
		if rec, err = config.LoadRecord(recPath); err != nil {
			return err
		}
	}

	files, err := orderInputs(c, cfg, rec)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return errors.New("no HDL files to order")
	}

	res, err := indexer.Order(ctx, files, indexer.OptionsFromConfig(root, cfg.Order))
	if err != nil {
		return err
	}
	if path := c.String("timing"); path != "" {
		if err := writeTimings(path, res); err != nil {
			return err
		}
	}
	if res.Cycle != nil {
		fmt.Fprintf(c.App.ErrWriter, "warning: %s\n", res.Cycle)
	}

	if c.Bool("write") {
		if rec == nil {
			return errors.New("--write needs --processor")
		}
		rec.Files = res.Files
		if err := v.Validate(validator.Record, rec); err != nil {
			return err
		}
		if err := rec.Save(recPath); err != nil {
			return err
		}
	}

	if err := writeFacts(c, v, res); err != nil {
		return err
	}

	// a delta printed on stdout keeps stdout to itself
	deltaOnStdout := c.String("delta-from") != "" && isStdout(c.String("delta-out"))
	if target := c.String("impact"); target != "" {
		w := c.App.Writer
		if deltaOnStdout {
			w = c.App.ErrWriter
		}
		_, err := fmt.Fprint(w, res.Graph.Impact(target).String())
		return errors.WithStack(err)
	}
	if deltaOnStdout {
		return nil
	}

	var data []byte
	if c.Bool("json") {
		data, err = json.MarshalIndent(orderOutput{Files: res.Files, Cycle: res.Cycle}, "", "  ")
		if err != nil {
			return errors.WithStack(err)
		}
		data = append(data, '\n')
	} else {
		data = []byte(strings.Join(res.Files, "\n") + "\n")
	}
	return writeOutput(c, "", data)
}

// orderInputs returns the files named on the command line, else the
// record's files plus its include directories, else the configured sources.
func orderInputs(c *cli.Context, cfg *config.Config, rec *config.Record) ([]string, error) {
	if c.Args().Len() > 0 {
		return c.Args().Slice(), nil
	}
	if rec != nil {
		seen := make(map[string]bool, len(rec.Files))
		var files []string
		for _, f := range append(append([]string{}, rec.Files...), config.IncludeDirFiles(c.String("root"), rec.IncludeDirs)...) {
			if !seen[f] {
				seen[f] = true
				files = append(files, f)
			}
		}
		return files, nil
	}
	return cfg.ResolveSources(c.String("root"), nil)
}

func writeFacts(c *cli.Context, v *validator.Validator, res *indexer.Result) error {
	factsPath, deltaFrom := c.String("facts"), c.String("delta-from")
	if factsPath == "" && deltaFrom == "" {
		return nil
	}
	tables := facts.BuildTables(res)
	if err := v.Validate(validator.FactTables, tables); err != nil {
		return err
	}

	if factsPath != "" {
		if err := writeJSON(c, factsPath, tables); err != nil {
			return err
		}
	}
	if deltaFrom == "" {
		return nil
	}

	raw, err := os.ReadFile(deltaFrom)
	if err != nil {
		return errors.Errorf("reading previous facts: %w", err)
	}
	if err := v.ValidateJSON(validator.FactTables, raw); err != nil {
		return err
	}
	var prev facts.Tables
	if err := json.Unmarshal(raw, &prev); err != nil {
		return errors.Errorf("parsing previous facts: %w", err)
	}

	delta := facts.ComputeDelta(prev, tables)
	if target := c.String("impact"); target != "" {
		impacted := map[string]bool{target: true}
		for _, f := range res.Graph.Impact(target).Files() {
			impacted[f] = true
		}
		delta = facts.FilterDeltaByFiles(delta, impacted)
	}
	return writeJSON(c, c.String("delta-out"), delta)
}

func writeJSON(c *cli.Context, path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errors.WithStack(err)
	}
	return writeOutput(c, path, append(data, '\n'))
}

func writeTimings(path string, res *indexer.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Errorf("timing file: %w", err)
	}
	if err := indexer.WriteTimings(f, res); err != nil {
		_ = f.Close()
		return err
	}
	return errors.WithStack(f.Close())
}
