// Package ingest consumes driver notifications and folds them into the
// network state.
package ingest

import (
	"context"
	"sync/atomic"

	"github.com/berfenger/zwconsole/internal/core/domain"
	"github.com/berfenger/zwconsole/internal/core/state"
	"github.com/berfenger/zwconsole/pkg/zwave"

	"github.com/asynkron/protoactor-go/eventstream"
	"go.uber.org/zap"
)

// Ingestor is the single consumer of the notification channel. Delivery
// order is preserved because only one goroutine calls Apply.
type Ingestor struct {
	state  *state.NetworkState
	events *eventstream.EventStream
	logger *zap.Logger

	applied atomic.Uint64
	ignored atomic.Uint64
}

type Stats struct {
	Applied uint64
	Ignored uint64
}

// NewIngestor creates an ingestor. events may be nil, in which case no
// change events are published.
func NewIngestor(st *state.NetworkState, events *eventstream.EventStream, logger *zap.Logger) *Ingestor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ingestor{
		state:  st,
		events: events,
		logger: logger.With(zap.String("component", "ingestor")),
	}
}

// Run drains notifications until the channel is closed or ctx is done.
func (i *Ingestor) Run(ctx context.Context, notifications <-chan zwave.Notification) error {
	i.logger.Debug("ingestor started")
	for {
		select {
		case <-ctx.Done():
			i.logger.Debug("ingestor stopped", zap.Error(ctx.Err()))
			return ctx.Err()
		case n, ok := <-notifications:
			if !ok {
				i.logger.Debug("notification stream closed")
				return nil
			}
			i.Apply(n)
		}
	}
}

// Apply folds one notification into the state. It reports whether the
// notification kind mutates the state.
func (i *Ingestor) Apply(n zwave.Notification) bool {
	if n == nil {
		i.ignored.Add(1)
		return false
	}

	switch msg := n.(type) {
	case zwave.DriverReady:
		if i.state.AddController(msg.HomeID) {
			i.publish(domain.ControllerAddedEvent{
				StateChangeEventMixIn: domain.StateChangeEventMixIn{HomeID: msg.HomeID},
			})
		}
	case zwave.NodeAdded:
		i.state.AddNode(msg.Node)
		i.publish(domain.NodeAddedEvent{
			StateChangeEventMixIn: domain.StateChangeEventMixIn{HomeID: msg.Node.HomeID},
			Node:                  msg.Node,
		})
	case zwave.NodeRemoved:
		removed, cascaded := i.state.RemoveNode(msg.Key)
		if removed {
			for _, id := range cascaded {
				i.publish(domain.ValueRemovedEvent{
					StateChangeEventMixIn: domain.StateChangeEventMixIn{HomeID: id.HomeID},
					ID:                    id,
				})
			}
			i.publish(domain.NodeRemovedEvent{
				StateChangeEventMixIn: domain.StateChangeEventMixIn{HomeID: msg.Key.HomeID},
				Key:                   msg.Key,
			})
		}
	case zwave.ValueAdded:
		i.upsert(msg.Value)
	case zwave.ValueChanged:
		i.upsert(msg.Value)
	case zwave.ValueRemoved:
		if i.state.RemoveValue(msg.ID) {
			i.publish(domain.ValueRemovedEvent{
				StateChangeEventMixIn: domain.StateChangeEventMixIn{HomeID: msg.ID.HomeID},
				ID:                    msg.ID,
			})
		}
	case zwave.DriverFailed:
		i.logger.Warn("driver failed", zap.Stringer("home_id", msg.HomeID))
		i.ignored.Add(1)
		return false
	default:
		i.logger.Debug("notification ignored",
			zap.String("type", n.NotificationType()),
			zap.Stringer("home_id", n.Home()))
		i.ignored.Add(1)
		return false
	}

	i.applied.Add(1)
	return true
}

func (i *Ingestor) Stats() Stats {
	return Stats{
		Applied: i.applied.Load(),
		Ignored: i.ignored.Load(),
	}
}

func (i *Ingestor) upsert(v zwave.Value) {
	insert := i.state.UpsertValue(v)
	i.publish(domain.ValueUpdatedEvent{
		StateChangeEventMixIn: domain.StateChangeEventMixIn{HomeID: v.ID.HomeID},
		Value:                 v,
		Insert:                insert,
	})
}

// publish runs after the state lock has been released.
func (i *Ingestor) publish(ev domain.StateChangeEvent) {
	if i.events == nil {
		return
	}
	i.events.Publish(ev)
}
