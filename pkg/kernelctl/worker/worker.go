// Package worker runs kernel package transactions on a dedicated goroutine.
// The UI requests an application and receives the outcome on a results
// channel; at most one transaction runs at a time.
package worker

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/scxtools/kernelctl/pkg/kernelctl/catalog"
	"github.com/scxtools/kernelctl/pkg/kernelctl/changeset"
	"github.com/scxtools/kernelctl/pkg/kernelctl/logging"
	"github.com/scxtools/kernelctl/pkg/kernelctl/types"
)

// Worker applies the pending change set against the catalog. Start launches
// the loop; Request hands off one application; Results delivers outcomes.
type Worker struct {
	catalog catalog.Catalog
	changes *changeset.ChangeSet

	requests chan struct{}
	results  chan types.ApplyResult
	done     chan struct{}
	busy     atomic.Bool

	// record, when set, is called with each completed result. The history
	// store hooks in here.
	record func(types.ApplyResult)
}

// Option customizes a Worker.
type Option func(*Worker)

// WithRecorder registers a callback invoked with every completed result.
func WithRecorder(fn func(types.ApplyResult)) Option {
	return func(w *Worker) { w.record = fn }
}

// New creates a worker over the given catalog and change set.
func New(cat catalog.Catalog, changes *changeset.ChangeSet, opts ...Option) *Worker {
	w := &Worker{
		catalog:  cat,
		changes:  changes,
		requests: make(chan struct{}, 1),
		results:  make(chan types.ApplyResult, 1),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start launches the worker loop. The loop exits when ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	go w.loop(ctx)
}

// Request asks the worker to apply the current change set. It returns false
// without queuing when a transaction is already in flight.
func (w *Worker) Request() bool {
	if !w.busy.CompareAndSwap(false, true) {
		return false
	}
	w.requests <- struct{}{}
	return true
}

// Busy reports whether a transaction is in flight.
func (w *Worker) Busy() bool {
	return w.busy.Load()
}

// Results returns the channel delivering completed transaction outcomes.
func (w *Worker) Results() <-chan types.ApplyResult {
	return w.results
}

// Done is closed when the worker loop has exited.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

func (w *Worker) loop(ctx context.Context) {
	defer close(w.done)
	log := logging.Get("worker")

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.requests:
		}

		result := w.apply(ctx)
		w.busy.Store(false)

		if w.record != nil {
			w.record(result)
		}
		log.Info("transaction finished",
			"id", result.ID,
			"installed", len(result.Installed),
			"removed", len(result.Removed),
			"skipped", len(result.Skipped),
			"errors", len(result.Errors),
			"elapsed", result.Elapsed)

		select {
		case w.results <- result:
		case <-ctx.Done():
			return
		}
	}
}

// apply snapshots the change set, stages each entry against the catalog,
// commits once, and refreshes. An empty snapshot yields an empty result
// without touching the catalog. The change set is cleared afterwards
// whether or not the commit succeeded.
func (w *Worker) apply(ctx context.Context) types.ApplyResult {
	log := logging.Get("worker")
	result := types.ApplyResult{
		ID:      uuid.NewString(),
		Started: time.Now(),
	}

	snapshot := w.changes.Snapshot()
	log.Debug("applying change set", "id", result.ID, "changes", len(snapshot))

	if len(snapshot) == 0 {
		result.Elapsed = time.Since(result.Started)
		return result
	}

	for _, change := range snapshot {
		switch change.Kind {
		case types.ChangeInstall:
			if w.catalog.IsInstalled(change.Name) && !w.catalog.IsUpdateAvailable(change.Name) {
				result.Skipped = append(result.Skipped, change.Name)
				continue
			}
			if err := w.catalog.Install(change.Name); err != nil {
				result.Errors = append(result.Errors, types.ChangeError{
					Package: change.Name, Kind: change.Kind, Err: err,
				})
				continue
			}
			result.Installed = append(result.Installed, change.Name)

		case types.ChangeRemove:
			if !w.catalog.IsInstalled(change.Name) {
				result.Skipped = append(result.Skipped, change.Name)
				continue
			}
			if err := w.catalog.Remove(change.Name); err != nil {
				result.Errors = append(result.Errors, types.ChangeError{
					Package: change.Name, Kind: change.Kind, Err: err,
				})
				continue
			}
			result.Removed = append(result.Removed, change.Name)
		}
	}

	result.CommitErr = w.catalog.Commit(ctx)
	w.changes.Clear()

	if result.CommitErr == nil {
		if err := w.catalog.Refresh(ctx); err != nil {
			log.Warn("refresh after commit failed", "error", err)
		}
	}

	result.Elapsed = time.Since(result.Started)
	return result
}
