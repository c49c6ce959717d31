package parproc

import (
	"fmt"

	"go.uber.org/zap"
)

// reportInternalError logs a pool failure that is not the job's own
// error (a worker that could not be pinned, a retry rejected by a
// closed pool) and hands it to Options.OnInternalError.
func (p *Pool[T]) reportInternalError(op string, err error) {
	p.log.Warn(op+" failed", zap.Error(err))
	if p.opts.OnInternalError != nil {
		p.opts.OnInternalError(fmt.Errorf("parproc: %s: %w", op, err))
	}
}

// reportJobError hands a failed attempt of item to Options.OnJobError.
// Panics arrive here already converted to errors.
func (p *Pool[T]) reportJobError(item string, attempt int, err error) {
	if p.opts.OnJobError != nil {
		p.opts.OnJobError(fmt.Errorf("parproc: %s attempt %d: %w", item, attempt, err))
	}
}
