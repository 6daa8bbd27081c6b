package port

import (
	"context"

	"github.com/berfenger/zwconsole/pkg/zwave"
)

// NetworkOperations issues operation requests to the driver. A nil error
// means the request was accepted; the outcome surfaces later through
// notifications.
type NetworkOperations interface {
	AddNode(ctx context.Context, home zwave.HomeID, secure bool) error
	RemoveNode(ctx context.Context, home zwave.HomeID) error
	SetValue(ctx context.Context, id zwave.ValueID, value string) error
	HealNetwork(ctx context.Context, home zwave.HomeID, returnRoutesOnly bool) error
	HealNode(ctx context.Context, home zwave.HomeID, node zwave.NodeID, returnRoutesOnly bool) error
	TestNetwork(ctx context.Context, home zwave.HomeID, count uint32) error
	TestNode(ctx context.Context, home zwave.HomeID, node zwave.NodeID, count uint32) error
	WriteConfigs(ctx context.Context) error
}
