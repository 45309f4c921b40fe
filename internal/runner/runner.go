// Package runner supervises the two halves of the pipeline the way the
// original wrapper supervised its child processes: keep the extractor
// alive, and kick off an upload cycle at a fixed interval when the
// Grist server is reachable.
package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Runner drives the extractor and periodic uploads until its context
// is cancelled.
type Runner struct {
	// Extract runs the extractor until the context is cancelled. A
	// return before that counts as a crash and triggers a restart.
	Extract func(ctx context.Context) error

	// Ping checks Grist reachability before an upload cycle.
	Ping func(ctx context.Context) error

	// Upload runs one upload cycle. It is expected to skip itself when
	// a previous cycle is still running.
	Upload func(ctx context.Context) error

	UploadInterval time.Duration
	SupervisePoll  time.Duration

	Log *zap.Logger

	// uploads tracks in-flight upload cycles so shutdown can wait for
	// them; exiting mid-cycle would lose the ledger record of a push
	// that already happened.
	uploads sync.WaitGroup
}

// Run blocks until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	if r.Extract == nil {
		return fmt.Errorf("runner: Extract is required")
	}
	if r.UploadInterval <= 0 {
		r.UploadInterval = 120 * time.Second
	}
	if r.SupervisePoll <= 0 {
		r.SupervisePoll = 5 * time.Second
	}

	r.Log.Info("starting supervisor",
		zap.Duration("upload_interval", r.UploadInterval))

	extractorDone := r.startExtractor(ctx)
	extractorDown := false

	uploadTick := time.NewTicker(r.UploadInterval)
	defer uploadTick.Stop()
	superviseTick := time.NewTicker(r.SupervisePoll)
	defer superviseTick.Stop()

	for {
		select {
		case <-ctx.Done():
			r.Log.Info("shutting down supervisor")
			if !extractorDown {
				<-extractorDone
			}
			r.uploads.Wait()
			return nil

		case err := <-extractorDone:
			if ctx.Err() != nil {
				extractorDown = true
				continue
			}
			r.Log.Warn("extractor exited unexpectedly", zap.Error(err))
			extractorDown = true

		case <-superviseTick.C:
			if extractorDown && ctx.Err() == nil {
				r.Log.Info("restarting extractor")
				extractorDone = r.startExtractor(ctx)
				extractorDown = false
			}

		case <-uploadTick.C:
			r.runUploadCycle(ctx)
		}
	}
}

// startExtractor launches the extractor goroutine with panic recovery;
// a panic is reported like any other crash so supervision restarts it.
func (r *Runner) startExtractor(ctx context.Context) <-chan error {
	done := make(chan error, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- fmt.Errorf("extractor panicked: %v", p)
			}
		}()
		done <- r.Extract(ctx)
	}()
	return done
}

func (r *Runner) runUploadCycle(ctx context.Context) {
	if r.Upload == nil || ctx.Err() != nil {
		return
	}
	if r.Ping != nil {
		if err := r.Ping(ctx); err != nil {
			r.Log.Warn("grist server not available, skipping this upload cycle", zap.Error(err))
			return
		}
	}

	r.uploads.Add(1)
	go func() {
		defer r.uploads.Done()
		if err := r.Upload(ctx); err != nil {
			r.Log.Error("upload cycle failed", zap.Error(err))
		}
	}()
}
