package types

// Default identity values used when no job or project identity is
// configured. These match the sentinel values emitted by upstream
// schedulers when a run is launched outside a managed job.
const (
	DefaultJobID     = "nojob"
	DefaultProjectID = "noprojectid"
)

// Meta carries the immutable identity of one export run.
// Resolved once by the configuration layer and injected; the core never
// reads the process environment.
type Meta struct {
	// JobID identifies the producing job. Defaults to DefaultJobID.
	JobID string `json:"job_id"`
	// ProjectID identifies the owning project. Defaults to DefaultProjectID.
	ProjectID string `json:"project_id"`
}

// WithDefaults returns a copy with sentinel values filled in for any
// missing identity field.
func (m Meta) WithDefaults() Meta {
	if m.JobID == "" {
		m.JobID = DefaultJobID
	}
	if m.ProjectID == "" {
		m.ProjectID = DefaultProjectID
	}
	return m
}
