// Package cmd provides CLI commands for the strata binary.
package cmd

import "github.com/urfave/cli/v2"

// Shared flags.
var (
	// ConfigFlag points at a strata.yaml config file. Flags always
	// override config values.
	ConfigFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to strata.yaml config file",
	}

	// FormatFlag selects output format for rendered results: json,
	// table, yaml.
	FormatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: json, table, yaml",
	}
)

// ReadOnlyFlags returns the shared flags for read-only commands.
func ReadOnlyFlags() []cli.Flag {
	return []cli.Flag{
		ConfigFlag,
		FormatFlag,
	}
}

// chunkFlags returns the flags shared by export and plan that shape
// chunk addressing.
func chunkFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "template",
			Aliases: []string{"t"},
			Usage:   "Chunk address template, e.g. exports/%(job_id)s/chunk_%(chunk_number)03d.jl",
		},
		&cli.StringFlag{
			Name:  "timestamp-layout",
			Usage: "Go time layout for the timestamp parameter",
		},
		&cli.StringFlag{
			Name:  "job-id",
			Usage: "Job identity for address parameters",
		},
		&cli.StringFlag{
			Name:  "project-id",
			Usage: "Project identity for address parameters",
		},
	}
}
