package zwave

import (
	"context"
	"errors"
)

var (
	ErrNoDevice          = errors.New("no controller device found")
	ErrOperationRejected = errors.New("operation rejected")
	ErrUnknownController = errors.New("unknown controller")
	ErrDriverClosed      = errors.New("driver closed")
)

// Driver owns the physical network connection. Operation requests are
// accepted or rejected synchronously; their outcome is reported later on
// the notification channel.
type Driver interface {
	AddNode(home HomeID, secure bool) error
	RemoveNode(home HomeID) error
	SetValue(id ValueID, value string) error
	HealNetwork(home HomeID, returnRoutesOnly bool)
	HealNetworkNode(home HomeID, node NodeID, returnRoutesOnly bool)
	TestNetwork(home HomeID, count uint32)
	TestNetworkNode(home HomeID, node NodeID, count uint32)
	WriteConfigs()
	Close() error
}

type Options struct {
	// UserConfigPath is the directory holding per-network configuration.
	UserConfigPath string
	// Device is the selected controller device path or DeviceUSB.
	Device            string
	SaveConfiguration bool
	// NotificationBuffer is the capacity of the notification channel.
	NotificationBuffer int
}

// Opener initializes a driver. A failure is fatal for the caller.
type Opener func(ctx context.Context, opts Options) (Driver, <-chan Notification, error)
