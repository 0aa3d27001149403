// Package pipeline sequences the fixed stage order over one
// translation unit's Compilation Context — resolve, desugar-early, type
// check, ownership, borrow, closure-inline — and offers a bounded
// fan-out across independent units.
package pipeline

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"ember/internal/ast"
	"ember/internal/borrow"
	"ember/internal/closureinline"
	"ember/internal/cost"
	"ember/internal/desugar"
	"ember/internal/diag"
	"ember/internal/mono"
	"ember/internal/observ"
	"ember/internal/ownership"
	"ember/internal/resolver"
	"ember/internal/source"
	"ember/internal/typeck"
	"ember/internal/unit"
)

// Options configure one pipeline run.
type Options struct {
	// Imports is the host's module-resolution callback;
	// nil disables cross-file imports.
	Imports resolver.ImportCallback

	// AllowList suppresses matching diagnostic codes at emit.
	AllowList []diag.Code

	// Timings enables per-stage phase timing in the output.
	Timings bool
}

// Output bundles everything one unit's run produced.
type Output struct {
	Unit       *unit.Unit
	Resolution *resolver.Result
	Desugar    *desugar.Result
	Types      *typeck.Result
	Ownership  *ownership.Result
	Borrows    *borrow.Result
	Closures   *closureinline.Result
	Costs      []cost.Record
	Timing     *observ.Report
}

// Diagnostics returns the unit's diagnostics in source-position order, the
// within-unit ordering guarantee hosts rely on.
func (o *Output) Diagnostics() []diag.Diagnostic {
	if o == nil || o.Unit == nil {
		return nil
	}
	return o.Unit.Diags.Sorted()
}

// Check runs the full pipeline over one unit. The pipeline never aborts on
// source-level errors; a hard internal invariant violation surfaces as one
// InternalInvariant diagnostic and terminates only this unit.
func Check(u *unit.Unit, fileID ast.FileID, opts Options) (out *Output) {
	out = &Output{Unit: u}
	if len(opts.AllowList) > 0 {
		u.Diags.SetAllowList(opts.AllowList)
	}

	var timer *observ.Timer
	if opts.Timings {
		timer = observ.NewTimer()
	}
	stage := func(name string, fn func()) {
		if timer == nil {
			fn()
			return
		}
		idx := timer.Begin(name)
		fn()
		timer.End(idx, "")
	}

	defer func() {
		if r := recover(); r != nil {
			u.Diags.Add(diag.NewError(diag.InternalInvariant, source.Span{},
				fmt.Sprintf("internal invariant violated: %v", r)))
		}
		if timer != nil {
			report := timer.Report()
			out.Timing = &report
		}
	}()

	stage("resolve", func() {
		out.Resolution = resolver.Run(u.Builder, u.Symbols, u.Diags, fileID, opts.Imports)
	})
	stage("desugar", func() {
		out.Desugar = desugar.Run(u.Builder, out.Resolution, fileID)
	})
	stage("typecheck", func() {
		rec := mono.NewInstantiationMapRecorder(u.Mono)
		out.Types = typeck.Run(u, out.Resolution, out.Desugar, fileID, rec)
	})
	stage("ownership", func() {
		out.Ownership = ownership.Run(u, out.Resolution, out.Types, fileID)
	})
	stage("borrow", func() {
		out.Borrows = borrow.Run(u, out.Resolution, out.Types, fileID)
	})
	stage("closure-inline", func() {
		out.Closures = closureinline.Run(u, out.Resolution, out.Types, out.Ownership, fileID)
	})
	stage("costs", func() {
		out.Costs = cost.Run(u, out.Resolution, out.Types, fileID)
	})
	return out
}

// FileJob is one independent translation unit for RunFiles.
type FileJob struct {
	Path   string
	FileID ast.FileID
	Unit   *unit.Unit
}

// RunFiles checks independent units with bounded concurrency. Each unit
// owns its Compilation Context; nothing is shared but the (concurrency-
// safe) string interner, so no locking is needed inside the core.
func RunFiles(ctx context.Context, jobs []FileJob, opts Options, workers int) ([]*Output, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	outputs := make([]*Output, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(workers, max(len(jobs), 1)))

	for i, job := range jobs {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			outputs[i] = Check(job.Unit, job.FileID, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	return outputs, nil
}
