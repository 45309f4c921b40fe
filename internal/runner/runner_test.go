package runner

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestRunnerRestartsCrashedExtractor(t *testing.T) {
	var starts atomic.Int32

	r := &Runner{
		Extract: func(ctx context.Context) error {
			starts.Add(1)
			return errors.New("boom")
		},
		UploadInterval: time.Hour,
		SupervisePoll:  10 * time.Millisecond,
		Log:            zap.NewNop(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	if err := r.Run(ctx); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if n := starts.Load(); n < 2 {
		t.Errorf("expected extractor to be restarted, got %d starts", n)
	}
}

func TestRunnerRecoversFromPanic(t *testing.T) {
	var starts atomic.Int32

	r := &Runner{
		Extract: func(ctx context.Context) error {
			if starts.Add(1) == 1 {
				panic("extractor blew up")
			}
			<-ctx.Done()
			return nil
		},
		UploadInterval: time.Hour,
		SupervisePoll:  10 * time.Millisecond,
		Log:            zap.NewNop(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	if err := r.Run(ctx); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if n := starts.Load(); n < 2 {
		t.Errorf("expected restart after panic, got %d starts", n)
	}
}

func TestRunnerSkipsUploadWhenUnreachable(t *testing.T) {
	var uploads atomic.Int32

	r := &Runner{
		Extract: func(ctx context.Context) error {
			<-ctx.Done()
			return nil
		},
		Ping:           func(ctx context.Context) error { return errors.New("connection refused") },
		Upload:         func(ctx context.Context) error { uploads.Add(1); return nil },
		UploadInterval: 20 * time.Millisecond,
		SupervisePoll:  time.Hour,
		Log:            zap.NewNop(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if err := r.Run(ctx); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if uploads.Load() != 0 {
		t.Errorf("expected no uploads while unreachable, got %d", uploads.Load())
	}
}

func TestRunnerUploadsWhenReachable(t *testing.T) {
	var uploads atomic.Int32

	r := &Runner{
		Extract: func(ctx context.Context) error {
			<-ctx.Done()
			return nil
		},
		Ping:           func(ctx context.Context) error { return nil },
		Upload:         func(ctx context.Context) error { uploads.Add(1); return nil },
		UploadInterval: 20 * time.Millisecond,
		SupervisePoll:  time.Hour,
		Log:            zap.NewNop(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	if err := r.Run(ctx); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if uploads.Load() == 0 {
		t.Error("expected at least one upload cycle")
	}
}

func TestRunnerWaitsForInflightUpload(t *testing.T) {
	var started sync.Once
	uploadStarted := make(chan struct{})
	uploadRelease := make(chan struct{})
	var finished atomic.Int32

	r := &Runner{
		Extract: func(ctx context.Context) error {
			<-ctx.Done()
			return nil
		},
		Upload: func(ctx context.Context) error {
			started.Do(func() { close(uploadStarted) })
			<-uploadRelease
			finished.Add(1)
			return nil
		},
		UploadInterval: 20 * time.Millisecond,
		SupervisePoll:  time.Hour,
		Log:            zap.NewNop(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan struct{})
	go func() {
		if err := r.Run(ctx); err != nil {
			t.Errorf("Run failed: %v", err)
		}
		close(runDone)
	}()

	<-uploadStarted
	cancel()

	select {
	case <-runDone:
		t.Fatal("Run returned while an upload cycle was still in flight")
	case <-time.After(100 * time.Millisecond):
	}

	close(uploadRelease)
	select {
	case <-runDone:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after the upload cycle finished")
	}
	if finished.Load() == 0 {
		t.Error("upload cycle never completed")
	}
}

func TestRunnerRequiresExtract(t *testing.T) {
	r := &Runner{Log: zap.NewNop()}
	if err := r.Run(context.Background()); err == nil {
		t.Error("expected error without Extract")
	}
}
