package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"gitlab.com/tozd/go/errors"

	"github.com/robert-at-pretension-io/corewrap/internal/config"
	"github.com/robert-at-pretension-io/corewrap/internal/facts"
	"github.com/robert-at-pretension-io/corewrap/internal/mapping"
	"github.com/robert-at-pretension-io/corewrap/internal/policy"
	"github.com/robert-at-pretension-io/corewrap/internal/validator"
	"github.com/robert-at-pretension-io/corewrap/internal/wrapper"
)

type instanceOutput struct {
	*wrapper.Artifact
	Lint *policy.Result `json:"lint,omitempty"`
}

func instanceCommand() *cli.Command {
	return &cli.Command{
		Name:  "instance",
		Usage: "generate the core instantiation from a module header and a signal mapping",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "header", Usage: "file holding the module header", Required: true},
			&cli.StringFlag{Name: "mapping", Usage: "flat JSON mapping of harness signals to core ports"},
			&cli.StringFlag{Name: "response", Usage: "model response containing a Connections: block"},
			&cli.StringFlag{Name: "interface", Usage: "model response classifying the bus and memory interface"},
			&cli.StringFlag{Name: "bus", Usage: "bus protocol: wishbone, ahb, axi, axi-lite, avalon"},
			&cli.BoolFlag{Name: "dual", Usage: "core has a separate data memory bus"},
			&cli.StringFlag{Name: "instance-name", Usage: "instance label (default from config)"},
			&cli.BoolFlag{Name: "json", Usage: "print the artifact as JSON"},
			&cli.BoolFlag{Name: "lint", Usage: "run the wrapper policy checks"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output file (default stdout)"},
		},
		Action: runInstance,
	}
}

func runInstance(c *cli.Context) error {
	ctx := c.Context
	cfg, err := loadConfig(c, ".")
	if err != nil {
		return err
	}

	headerPath := c.String("header")
	header, err := os.ReadFile(headerPath)
	if err != nil {
		return errors.Errorf("reading header: %w", err)
	}

	m, err := readMapping(c)
	if err != nil {
		return err
	}

	busName, dual := c.String("bus"), c.Bool("dual")
	if path := c.String("interface"); path != "" {
		text, err := os.ReadFile(path)
		if err != nil {
			return errors.Errorf("reading interface response: %w", err)
		}
		info, err := mapping.ParseInterfaceInfo(string(text))
		if err != nil {
			return err
		}
		if !c.IsSet("bus") {
			busName = info.BusType
		}
		if !c.IsSet("dual") {
			dual = info.Dual()
		}
	}
	bus := wrapper.Wishbone
	if busName != "" {
		if bus, err = wrapper.ParseBusType(busName); err != nil {
			return err
		}
	}

	instName := c.String("instance-name")
	if instName == "" {
		instName = cfg.Wrapper.InstanceName
	}

	art, err := wrapper.FromHeader(ctx, string(header), m, wrapper.Options{
		DualMemory:          dual,
		UsesExternalAdapter: bus.UsesExternalAdapter(),
		InstanceName:        instName,
		Tables:              wrapper.NewTables(cfg.Wrapper),
	})
	if err != nil {
		return err
	}

	v, err := validator.New()
	if err != nil {
		return err
	}
	if err := v.Validate(validator.Artifact, art); err != nil {
		return err
	}

	out := instanceOutput{Artifact: art}
	if c.Bool("lint") {
		res, err := lintArtifact(c, cfg, headerPath, art)
		if err != nil {
			return err
		}
		out.Lint = res
	}

	var data []byte
	if c.Bool("json") {
		data, err = json.MarshalIndent(out, "", "  ")
		if err != nil {
			return errors.WithStack(err)
		}
		data = append(data, '\n')
	} else {
		data = []byte(art.Text())
	}
	if err := writeOutput(c, c.String("out"), data); err != nil {
		return err
	}
	if out.Lint != nil && out.Lint.HasErrors() {
		return errors.Errorf("wrapper has %d policy error(s)", out.Lint.Summary.Errors)
	}
	return nil
}

func readMapping(c *cli.Context) (*mapping.Mapping, error) {
	switch {
	case c.String("mapping") != "":
		data, err := os.ReadFile(c.String("mapping"))
		if err != nil {
			return nil, errors.Errorf("reading mapping: %w", err)
		}
		return mapping.Parse(data)
	case c.String("response") != "":
		data, err := os.ReadFile(c.String("response"))
		if err != nil {
			return nil, errors.Errorf("reading response: %w", err)
		}
		return mapping.ParseResponse(string(data))
	default:
		return nil, errors.New("one of --mapping or --response is required")
	}
}

func lintArtifact(c *cli.Context, cfg *config.Config, file string, art *wrapper.Artifact) (*policy.Result, error) {
	engine, err := policy.New(c.Context, cfg)
	if err != nil {
		return nil, err
	}
	res, err := engine.Evaluate(c.Context, facts.ArtifactTables(file, art))
	if err != nil {
		return nil, err
	}
	for _, v := range res.Violations {
		fmt.Fprintf(c.App.ErrWriter, "%s: %s [%s] %s\n", v.Severity, v.Module, v.Rule, v.Message)
	}
	return res, nil
}
