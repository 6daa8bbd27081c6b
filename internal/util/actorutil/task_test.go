package actorutil

import (
	"errors"
	"testing"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type runTask struct {
	fn        func() error
	timeout   time.Duration
	recovered bool
}

type taskOutcome struct {
	err error
}

func spawnTaskRunner(t *testing.T) (*actor.ActorSystem, *actor.PID, <-chan taskOutcome) {
	as := NewActorSystemWithZapLogger(zap.NewNop())
	t.Cleanup(as.Shutdown)

	outcomes := make(chan taskOutcome, 4)
	pid := as.Root.Spawn(actor.PropsFromFunc(func(ctx actor.Context) {
		switch msg := ctx.Message().(type) {
		case runTask:
			task := MapBackgroundTask(NewBackgroundTaskErr(ctx, msg.fn), func(*Done) *taskOutcome {
				return &taskOutcome{}
			}).WithTimeout(msg.timeout)
			if msg.recovered {
				task = task.Recover(func(err error) taskOutcome { return taskOutcome{err: err} })
			}
			task.PipeTo(ctx.Self())
		case taskOutcome:
			outcomes <- msg
		}
	}))
	return as, pid, outcomes
}

func awaitOutcome(t *testing.T, outcomes <-chan taskOutcome) taskOutcome {
	select {
	case o := <-outcomes:
		return o
	case <-time.After(2 * time.Second):
		require.FailNow(t, "no task outcome delivered")
	}
	return taskOutcome{}
}

func TestBackgroundTaskDeliversResult(t *testing.T) {

	as, pid, outcomes := spawnTaskRunner(t)
	as.Root.Send(pid, runTask{fn: func() error { return nil }, timeout: time.Second, recovered: true})

	assert.NoError(t, awaitOutcome(t, outcomes).err)
}

func TestBackgroundTaskRecoversFailureAndTimeout(t *testing.T) {

	as, pid, outcomes := spawnTaskRunner(t)
	boom := errors.New("boom")

	as.Root.Send(pid, runTask{fn: func() error { return boom }, timeout: time.Second, recovered: true})
	assert.ErrorIs(t, awaitOutcome(t, outcomes).err, boom)

	as.Root.Send(pid, runTask{fn: func() error {
		time.Sleep(500 * time.Millisecond)
		return nil
	}, timeout: 50 * time.Millisecond, recovered: true})
	assert.Error(t, awaitOutcome(t, outcomes).err, "timeout is recovered as a failure")
}

func TestBackgroundTaskDropsUnrecoveredFailure(t *testing.T) {

	as, pid, outcomes := spawnTaskRunner(t)
	as.Root.Send(pid, runTask{fn: func() error { return errors.New("boom") }, timeout: time.Second})

	select {
	case o := <-outcomes:
		t.Fatalf("unexpected outcome %+v", o)
	case <-time.After(200 * time.Millisecond):
	}
}
