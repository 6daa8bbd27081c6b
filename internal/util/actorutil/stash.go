package actorutil

import (
	"github.com/asynkron/protoactor-go/actor"
	"github.com/emirpasic/gods/lists/singlylinkedlist"
)

// Stash holds messages an actor cannot handle in its current behavior.
// Unstashed messages go back to the actor's own mailbox with their original
// sender, oldest first. The zero value is ready to use.
type Stash struct {
	queue *singlylinkedlist.List
}

type stashed struct {
	msg    any
	sender *actor.PID
}

func (s *Stash) Stash(ctx actor.Context, msg any) {
	if s.queue == nil {
		s.queue = singlylinkedlist.New()
	}
	s.queue.Add(stashed{msg: msg, sender: ctx.Sender()})
}

func (s *Stash) Len() int {
	if s.queue == nil {
		return 0
	}
	return s.queue.Size()
}

func (s *Stash) UnstashAll(ctx actor.Context) {
	for s.Len() > 0 {
		s.UnstashOldest(ctx)
	}
}

func (s *Stash) UnstashOldest(ctx actor.Context) {
	if s.Len() == 0 {
		return
	}
	head, _ := s.queue.Get(0)
	s.queue.Remove(0)
	e := head.(stashed)
	ctx.RequestWithCustomSender(ctx.Self(), e.msg, e.sender)
}
