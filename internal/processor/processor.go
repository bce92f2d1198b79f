// Package processor implements the Processor Registry (§4.6): a map from
// job_type to the processor that handles it, behind a uniform signature.
// Grounded on the original service's JobProcessor interface
// (app/worker/interfaces.py) and its per-type processor implementations
// (app/worker/processors.py).
package processor

import (
	"context"
	"fmt"

	"github.com/pipeworks/taskmesh/internal/model"
)

// Processor handles one job_type, taking the job's opaque payload and
// returning a results map to be stored on the job.
type Processor interface {
	Process(ctx context.Context, payload map[string]interface{}, jobID, traceID, owner string) (map[string]interface{}, error)
}

// Registry maps model.Type to the Processor that handles it.
type Registry struct {
	processors map[model.Type]Processor
}

// NewRegistry builds an empty Registry; call Register for each job type.
func NewRegistry() *Registry {
	return &Registry{processors: make(map[model.Type]Processor)}
}

// Register associates jobType with p, overwriting any prior registration.
func (r *Registry) Register(jobType model.Type, p Processor) {
	r.processors[jobType] = p
}

// ErrUnknownJobType is returned by Resolve for a job_type with no
// registered processor.
var ErrUnknownJobType = fmt.Errorf("processor: unknown job type")

// Resolve returns the processor registered for jobType.
func (r *Registry) Resolve(jobType model.Type) (Processor, error) {
	p, ok := r.processors[jobType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownJobType, jobType)
	}
	return p, nil
}
