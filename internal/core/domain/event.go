package domain

import (
	"github.com/berfenger/zwconsole/pkg/zwave"
)

// StateChangeEvent is published on the event stream after a mutation has
// been applied to the network state.
type StateChangeEvent interface {
	StateChangeEvent() string
	Home() zwave.HomeID
}

type StateChangeEventMixIn struct {
	HomeID zwave.HomeID
}

func (e StateChangeEventMixIn) Home() zwave.HomeID {
	return e.HomeID
}

type ControllerAddedEvent struct {
	StateChangeEventMixIn
}

type NodeAddedEvent struct {
	StateChangeEventMixIn
	Node zwave.Node
}

type NodeRemovedEvent struct {
	StateChangeEventMixIn
	Key zwave.NodeKey
}

type ValueUpdatedEvent struct {
	StateChangeEventMixIn
	Value  zwave.Value
	Insert bool
}

type ValueRemovedEvent struct {
	StateChangeEventMixIn
	ID zwave.ValueID
}

func (ControllerAddedEvent) StateChangeEvent() string { return "controller-added" }
func (NodeAddedEvent) StateChangeEvent() string       { return "node-added" }
func (NodeRemovedEvent) StateChangeEvent() string     { return "node-removed" }
func (ValueUpdatedEvent) StateChangeEvent() string    { return "value-updated" }
func (ValueRemovedEvent) StateChangeEvent() string    { return "value-removed" }
