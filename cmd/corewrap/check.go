package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"gitlab.com/tozd/go/errors"

	"github.com/robert-at-pretension-io/corewrap/internal/validator"
)

var checkKinds = map[string]string{
	"record":   validator.Record,
	"artifact": validator.Artifact,
	"config":   validator.Config,
	"facts":    validator.FactTables,
	"delta":    validator.FactDelta,
}

func checkCommand() *cli.Command {
	return &cli.Command{
		Name:      "check",
		Usage:     "validate JSON files against the corewrap contracts",
		ArgsUsage: "<file>...",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "kind", Value: "record", Usage: "record, artifact, config, facts or delta"},
		},
		Action: func(c *cli.Context) error {
			def, ok := checkKinds[c.String("kind")]
			if !ok {
				return errors.Errorf("unknown kind %q", c.String("kind"))
			}
			if c.Args().Len() == 0 {
				return errors.New("no files given")
			}
			v, err := validator.New()
			if err != nil {
				return err
			}
			failed := 0
			for _, path := range c.Args().Slice() {
				data, err := os.ReadFile(path)
				if err != nil {
					return errors.Errorf("reading %s: %w", path, err)
				}
				if problems := v.ValidationErrors(def, data); len(problems) > 0 {
					failed++
					for _, p := range problems {
						fmt.Fprintf(c.App.ErrWriter, "%s: %s\n", path, p)
					}
					continue
				}
				fmt.Fprintf(c.App.Writer, "%s: ok\n", path)
			}
			if failed > 0 {
				return errors.Errorf("%d of %d file(s) failed validation", failed, c.Args().Len())
			}
			return nil
		},
	}
}
