package zwave

import "fmt"

// Notification is an immutable event emitted by a Driver on its
// notification channel.
type Notification interface {
	Home() HomeID
	NotificationType() string
}

type NotificationMixIn struct {
	HomeID HomeID
}

func (n NotificationMixIn) Home() HomeID {
	return n.HomeID
}

type DriverReady struct {
	NotificationMixIn
}

type DriverFailed struct {
	NotificationMixIn
}

type NodeAdded struct {
	NotificationMixIn
	Node Node
}

type NodeRemoved struct {
	NotificationMixIn
	Key NodeKey
}

type NodeEvent struct {
	NotificationMixIn
	Key   NodeKey
	Event uint8
}

type ValueAdded struct {
	NotificationMixIn
	Value Value
}

type ValueChanged struct {
	NotificationMixIn
	Value Value
}

type ValueRemoved struct {
	NotificationMixIn
	ID ValueID
}

type AwakeNodesQueried struct {
	NotificationMixIn
}

type AllNodesQueried struct {
	NotificationMixIn
}

// Other carries notification kinds this package does not model, such as
// controller command progress reports.
type Other struct {
	NotificationMixIn
	Type   string
	Detail string
}

func (DriverReady) NotificationType() string       { return "driver-ready" }
func (DriverFailed) NotificationType() string      { return "driver-failed" }
func (NodeAdded) NotificationType() string         { return "node-added" }
func (NodeRemoved) NotificationType() string       { return "node-removed" }
func (NodeEvent) NotificationType() string         { return "node-event" }
func (ValueAdded) NotificationType() string        { return "value-added" }
func (ValueChanged) NotificationType() string      { return "value-changed" }
func (ValueRemoved) NotificationType() string      { return "value-removed" }
func (AwakeNodesQueried) NotificationType() string { return "awake-nodes-queried" }
func (AllNodesQueried) NotificationType() string   { return "all-nodes-queried" }
func (n Other) NotificationType() string           { return fmt.Sprintf("other(%s)", n.Type) }

// ensure interface compliance
var (
	_ Notification = DriverReady{}
	_ Notification = DriverFailed{}
	_ Notification = NodeAdded{}
	_ Notification = NodeRemoved{}
	_ Notification = NodeEvent{}
	_ Notification = ValueAdded{}
	_ Notification = ValueChanged{}
	_ Notification = ValueRemoved{}
	_ Notification = AwakeNodesQueried{}
	_ Notification = AllNodesQueried{}
	_ Notification = Other{}
)
