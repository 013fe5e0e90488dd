package job

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeTask struct {
	kind       string
	runs       atomic.Int32
	shouldFail bool
	onRun      func(rt *Runtime) error
}

func (f *fakeTask) Kind() string { return f.kind }

func (f *fakeTask) Run(ctx context.Context, rt *Runtime) error {
	f.runs.Add(1)

	if f.onRun != nil {
		return f.onRun(rt)
	}

	rt.Progress(1.0)

	if f.shouldFail {
		return errBoom
	}

	return nil
}

func (f *fakeTask) Checkpoint() ([]byte, error) { return []byte("checkpoint"), nil }

var errBoom = fmt.Errorf("boom")

func TestJobRunCompletesAllTasksInOrder(t *testing.T) {
	var order []string

	t1 := &fakeTask{kind: "a", onRun: func(rt *Runtime) error { order = append(order, "a"); rt.Progress(1); return nil }}
	t2 := &fakeTask{kind: "b", onRun: func(rt *Runtime) error { order = append(order, "b"); rt.Progress(1); return nil }}

	j := New("job-1", "test.kind", PriorityNormal, []Task{t1, t2}, 100)

	var checkpoints int

	err := j.Run(context.Background(), slog.New(slog.DiscardHandler), time.Hour,
		func(taskIndex int, progressPercent float64, taskState []byte) error {
			checkpoints++
			return nil
		},
		func() int64 { return 200 },
	)

	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, order)
	require.Equal(t, StatusCompleted, j.Status())
	require.InDelta(t, 100.0, j.Progress(), 0.001)
	require.GreaterOrEqual(t, checkpoints, 2)
}

func TestJobRunPropagatesTaskFailure(t *testing.T) {
	t1 := &fakeTask{kind: "a", shouldFail: true}

	j := New("job-2", "test.kind", PriorityNormal, []Task{t1}, 100)

	err := j.Run(context.Background(), slog.New(slog.DiscardHandler), time.Hour,
		func(int, float64, []byte) error { return nil },
		func() int64 { return 200 },
	)

	require.ErrorIs(t, err, errBoom)
	require.Equal(t, StatusFailed, j.Status())
	require.Equal(t, errBoom.Error(), j.ErrMessage())
}

func TestJobResumesFromCurrentTaskIndex(t *testing.T) {
	t1 := &fakeTask{kind: "a"}
	t2 := &fakeTask{kind: "b"}

	j := New("job-3", "test.kind", PriorityNormal, []Task{t1, t2}, 100)
	j.currentTaskIndex = 1 // simulate a resumed job that already finished task 0

	err := j.Run(context.Background(), slog.New(slog.DiscardHandler), time.Hour,
		func(int, float64, []byte) error { return nil },
		func() int64 { return 200 },
	)

	require.NoError(t, err)
	require.Equal(t, int32(0), t1.runs.Load())
	require.Equal(t, int32(1), t2.runs.Load())
}

func TestInterrupterPauseBlocksCheckPoint(t *testing.T) {
	in := NewInterrupter(context.Background())
	in.Pause()

	done := make(chan struct{})

	go func() {
		_ = in.CheckPoint()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("CheckPoint returned before Resume")
	case <-time.After(50 * time.Millisecond):
	}

	in.Resume()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("CheckPoint did not unblock after Resume")
	}
}

func TestInterrupterCancelReturnsContextError(t *testing.T) {
	in := NewInterrupter(context.Background())
	in.Cancel()

	require.ErrorIs(t, in.CheckPoint(), context.Canceled)
}
