package config

import (
	"os"

	"github.com/justapithecus/strata/types"
)

// Environment variables consulted for run identity when the config
// file leaves job_id or project_id unset.
const (
	EnvJobID     = "STRATA_JOB"
	EnvProjectID = "STRATA_PROJECT_ID"
)

// Config represents a strata.yaml configuration file.
// All values are optional and act as defaults for strata export flags.
// CLI flags always override config values.
type Config struct {
	AddressTemplate string        `yaml:"address_template"`
	Format          string        `yaml:"format"`
	ItemsPerChunk   int           `yaml:"items_per_chunk"`
	TimestampLayout string        `yaml:"timestamp_layout"`
	JobID           string        `yaml:"job_id"`
	ProjectID       string        `yaml:"project_id"`
	Storage         StorageConfig `yaml:"storage"`
	Input           InputConfig   `yaml:"input"`
}

// StorageConfig holds storage defaults from the config file.
type StorageConfig struct {
	Backend     string `yaml:"backend"`
	Path        string `yaml:"path"`
	Region      string `yaml:"region"`
	Endpoint    string `yaml:"endpoint"`
	S3PathStyle bool   `yaml:"s3_path_style"`
}

// InputConfig holds record input defaults from the config file.
type InputConfig struct {
	Format string `yaml:"format"`
	Path   string `yaml:"path"`
}

// Meta resolves the run identity. Config file values win, then the
// STRATA_JOB / STRATA_PROJECT_ID environment variables, then the
// sentinel defaults.
func (c *Config) Meta() types.Meta {
	m := types.Meta{JobID: c.JobID, ProjectID: c.ProjectID}
	if m.JobID == "" {
		m.JobID = os.Getenv(EnvJobID)
	}
	if m.ProjectID == "" {
		m.ProjectID = os.Getenv(EnvProjectID)
	}
	return m.WithDefaults()
}
