package actorutil

import (
	"testing"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type release struct{}

func TestStashRedeliversInOrder(t *testing.T) {

	as := NewActorSystemWithZapLogger(zap.NewNop())
	defer as.Shutdown()

	received := make(chan string, 8)
	stash := &Stash{}
	held := true

	pid := as.Root.Spawn(actor.PropsFromFunc(func(ctx actor.Context) {
		switch msg := ctx.Message().(type) {
		case release:
			held = false
			stash.UnstashAll(ctx)
		case string:
			if held {
				stash.Stash(ctx, msg)
				return
			}
			received <- msg
		}
	}))

	as.Root.Send(pid, "a")
	as.Root.Send(pid, "b")
	as.Root.Send(pid, "c")
	as.Root.Send(pid, release{})

	var got []string
	for len(got) < 3 {
		select {
		case msg := <-received:
			got = append(got, msg)
		case <-time.After(2 * time.Second):
			t.Fatalf("only received %v", got)
		}
	}
	assert.Equal(t, []string{"a", "b", "c"}, got)
	assert.Equal(t, 0, stash.Len())
}
