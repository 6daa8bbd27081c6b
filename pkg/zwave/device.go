package zwave

import (
	"fmt"
	"os"
	"runtime"
)

// DeviceUSB selects the auto-detected USB HID controller.
const DeviceUSB = "usb"

// DefaultDevices returns the candidate controller paths for the platform,
// in probe order.
func DefaultDevices(goos string) []string {
	switch goos {
	case "windows":
		return []string{`\\.\COM6`, `\\.\COM3`}
	case "darwin":
		return []string{"/dev/cu.SLAB_USBtoUART", "/dev/cu.usbserial", "/dev/cu.usbmodem1411"}
	default:
		return []string{"/dev/ttyACM0", "/dev/ttyUSB0", "/dev/zwave"}
	}
}

// SelectDevice resolves the controller device. An explicit selection is
// returned as is; otherwise the first existing platform candidate wins.
func SelectDevice(explicit string, exists func(string) bool) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if exists == nil {
		exists = pathExists
	}
	candidates := DefaultDevices(runtime.GOOS)
	for _, c := range candidates {
		if exists(c) {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w (tried %v)", ErrNoDevice, candidates)
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
