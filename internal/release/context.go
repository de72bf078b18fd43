package release

import (
	"sync"

	"releasekit/internal/diff"
	"releasekit/internal/repository"
	"releasekit/internal/services"
	"releasekit/internal/workspace"
)

// ErrorRecord is one failure reported during a run. Headers and Rows hold an
// optional detail table.
type ErrorRecord struct {
	Phase   Phase
	Module  string
	Version string
	Message string
	Headers []string
	Rows    [][]string
}

// HasTable reports whether the record carries a detail table.
func (e ErrorRecord) HasTable() bool {
	return len(e.Headers) > 0 || len(e.Rows) > 0
}

// Context is the state of one release run. Writers run on the orchestrator
// goroutine; the mutex lets other goroutines take snapshots.
type Context struct {
	project    *workspace.Project
	results    []diff.Result
	repository repository.Repository
	updateOnly bool
	runID      string

	mu         sync.Mutex
	phase      Phase
	status     Status
	released   []repository.Artifact
	errors     []ErrorRecord
	properties map[string]any
}

// NewContext builds a run context. repo may only be nil in update-only mode.
func NewContext(project *workspace.Project, results []diff.Result, repo repository.Repository, updateOnly bool) (*Context, error) {
	if project == nil {
		return nil, services.Wrap(services.ErrConfiguration, "", "release context", "project is required", nil)
	}
	if !updateOnly && repo == nil {
		return nil, services.Wrap(services.ErrConfiguration, "", "release context", "a repository is required unless updating versions only", nil)
	}
	owned := make([]diff.Result, len(results))
	for i, r := range results {
		owned[i] = r.Clone()
	}
	return &Context{
		project:    project,
		results:    owned,
		repository: repo,
		updateOnly: updateOnly,
		phase:      PhasePreUpdateVersions,
		properties: map[string]any{},
	}, nil
}

// Project returns the project being released.
func (c *Context) Project() *workspace.Project { return c.project }

// Repository returns the publish target; nil in update-only mode.
func (c *Context) Repository() repository.Repository { return c.repository }

// UpdateOnly reports whether the run stops after writing versions.
func (c *Context) UpdateOnly() bool { return c.updateOnly }

// RunID returns the run identifier, if one was assigned.
func (c *Context) RunID() string { return c.runID }

// SetRunID assigns the run identifier.
func (c *Context) SetRunID(id string) { c.runID = id }

// Results returns copies of the diff results in release order.
func (c *Context) Results() []diff.Result {
	out := make([]diff.Result, len(c.results))
	for i, r := range c.results {
		out[i] = r.Clone()
	}
	return out
}

// Result looks up the diff result for a module.
func (c *Context) Result(module string) (diff.Result, bool) {
	for _, r := range c.results {
		if r.Name == module {
			return r.Clone(), true
		}
	}
	return diff.Result{}, false
}

// Phase returns the active phase.
func (c *Context) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// SetPhase changes the active phase.
func (c *Context) SetPhase(phase Phase) {
	c.mu.Lock()
	c.phase = phase
	c.mu.Unlock()
}

// Status returns the final run status. It is empty until POST_RELEASE.
func (c *Context) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *Context) setStatus(status Status) {
	c.mu.Lock()
	c.status = status
	c.mu.Unlock()
}

// AddReleased appends a published, read-back artifact.
func (c *Context) AddReleased(artifact repository.Artifact) {
	c.mu.Lock()
	c.released = append(c.released, artifact)
	c.mu.Unlock()
}

// Released returns the released artifacts in publish order.
func (c *Context) Released() []repository.Artifact {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]repository.Artifact(nil), c.released...)
}

// AddError records a failure against the active phase.
func (c *Context) AddError(module, version, message string) {
	c.AddErrorTable(module, version, message, nil, nil)
}

// AddErrorTable records a failure with a detail table.
func (c *Context) AddErrorTable(module, version, message string, headers []string, rows [][]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	record := ErrorRecord{
		Phase:   c.phase,
		Module:  module,
		Version: version,
		Message: message,
		Headers: headers,
		Rows:    rows,
	}
	c.errors = append(c.errors, record.clone())
}

func (e ErrorRecord) clone() ErrorRecord {
	out := e
	out.Headers = append([]string(nil), e.Headers...)
	out.Rows = nil
	for _, row := range e.Rows {
		out.Rows = append(out.Rows, append([]string(nil), row...))
	}
	return out
}

// Errors returns the recorded failures in order.
func (c *Context) Errors() []ErrorRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ErrorRecord, len(c.errors))
	for i, record := range c.errors {
		out[i] = record.clone()
	}
	return out
}

// ErrorCount returns the number of recorded failures.
func (c *Context) ErrorCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.errors)
}

// SetProperty stores a value participants can share within the run.
func (c *Context) SetProperty(key string, value any) {
	c.mu.Lock()
	c.properties[key] = value
	c.mu.Unlock()
}

// Property returns a value stored with SetProperty.
func (c *Context) Property(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.properties[key]
	return v, ok
}
