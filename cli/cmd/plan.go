package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/justapithecus/strata/cli/render"
	"github.com/justapithecus/strata/rotation"
	"github.com/justapithecus/strata/uritemplate"
)

// PlanRow is one resolved chunk address in the plan output.
type PlanRow struct {
	Chunk   int    `json:"chunk"`
	Address string `json:"address"`
}

// PlanCommand returns the plan command: resolve and print the
// addresses the first N chunks would get, without opening any sink.
func PlanCommand() *cli.Command {
	flags := append(ReadOnlyFlags(), chunkFlags()...)
	flags = append(flags, &cli.IntFlag{
		Name:    "chunks",
		Aliases: []string{"n"},
		Usage:   "Number of chunk addresses to resolve",
		Value:   5,
	})

	return &cli.Command{
		Name:   "plan",
		Usage:  "Preview resolved chunk addresses for a template",
		Flags:  flags,
		Action: planAction,
	}
}

func planAction(c *cli.Context) error {
	cfg, err := resolveConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}
	if cfg.AddressTemplate == "" {
		return cli.Exit("plan requires an address template (--template or config)", exitConfigError)
	}

	tmpl, err := uritemplate.Compile(cfg.AddressTemplate, rotation.ParamNames())
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}

	rctx := rotation.NewContext(cfg.Meta(),
		rotation.WithTimestampLayout(cfg.TimestampLayout))

	count := c.Int("chunks")
	if count < 1 {
		count = 1
	}

	rows := make([]PlanRow, 0, count)
	for i := 0; i < count; i++ {
		address, err := tmpl.Resolve(rctx.Params())
		if err != nil {
			return cli.Exit(err.Error(), exitConfigError)
		}
		rows = append(rows, PlanRow{Chunk: rctx.ChunkNumber(), Address: address})
		rctx.Advance()
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}
	return r.Render(rows)
}
