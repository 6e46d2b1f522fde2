// Package syncworkflow provides a synchronous, in-process [domain.WorkflowEngine].
// Activities execute inline with no persistence or replay. It is the
// default engine: a host pipeline is short-lived and the job contract is
// single-attempt per stage.
package syncworkflow

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/sam30606/push-image-to-k8s/internal/domain"
)

var runCounter atomic.Int64

// Engine implements [domain.WorkflowEngine] with synchronous, in-process
// execution. No durable state is kept.
type Engine struct{}

func (e *Engine) HostRunner(wf *domain.HostWorkflow) (domain.HostRunner, error) {
	return &runner{wf: wf}, nil
}

type runner struct {
	wf *domain.HostWorkflow
}

func (r *runner) Run(ctx context.Context, host domain.Host) (domain.WorkflowHandle[domain.HostResult], error) {
	id := runCounter.Add(1)
	dr := &syncRunner{id: id, ctx: ctx}
	result, err := r.wf.Run(dr, host)
	return &handle{id: id, result: result, err: err}, nil
}

type syncRunner struct {
	id  int64
	ctx context.Context
}

func (r *syncRunner) ID() string               { return fmt.Sprintf("sync-%d", r.id) }
func (r *syncRunner) Context() context.Context { return r.ctx }
func (r *syncRunner) Run(activity domain.Activity[any, any], in any) (any, error) {
	return activity.Run(r.ctx, in)
}

type handle struct {
	id     int64
	result domain.HostResult
	err    error
}

func (h *handle) WorkflowID() string { return fmt.Sprintf("sync-%d", h.id) }
func (h *handle) AwaitResult(_ context.Context) (domain.HostResult, error) {
	return h.result, h.err
}
