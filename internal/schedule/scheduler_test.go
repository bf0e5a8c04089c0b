package schedule

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

type funcJob struct {
	name string
	run  func(ctx context.Context) error
}

func (f funcJob) Name() string { return f.name }

func (f funcJob) Run(ctx context.Context) error { return f.run(ctx) }

func TestAddJobRejectsBadSpecAndDuplicates(t *testing.T) {
	s := NewCronScheduler()
	job := funcJob{name: "document_index", run: func(ctx context.Context) error { return nil }}
	require.Error(t, s.AddJob(job, "not a spec"))
	require.NoError(t, s.AddJob(job, "*/5 * * * *"))
	require.Error(t, s.AddJob(job, "*/5 * * * *"))
	require.Equal(t, []string{"document_index"}, s.Jobs())
}

func TestWrapSkipsWhileRunning(t *testing.T) {
	s := NewCronScheduler()
	var runs int32
	release := make(chan struct{})
	started := make(chan struct{})
	fn := s.wrap(funcJob{name: "slow", run: func(ctx context.Context) error {
		atomic.AddInt32(&runs, 1)
		close(started)
		<-release
		return nil
	}}, "* * * * *")

	done := make(chan struct{})
	go func() {
		fn()
		close(done)
	}()
	<-started
	fn()
	close(release)
	<-done
	require.Equal(t, int32(1), atomic.LoadInt32(&runs))
}

func TestWrapRecoversPanic(t *testing.T) {
	s := NewCronScheduler()
	fn := s.wrap(funcJob{name: "boom", run: func(ctx context.Context) error {
		panic("boom")
	}}, "* * * * *")
	require.NotPanics(t, fn)
	require.NotPanics(t, fn)
}
