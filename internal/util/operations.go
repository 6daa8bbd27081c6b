package util

import (
	"context"
	"fmt"
	"sync"

	"github.com/berfenger/zwconsole/internal/core/port"
	"github.com/berfenger/zwconsole/pkg/zwave"
)

// RecordingOperations is a NetworkOperations double that records every
// call. Err, when set, is returned by every operation.
type RecordingOperations struct {
	mu    sync.Mutex
	calls []string
	Err   error
}

func (r *RecordingOperations) record(format string, args ...any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, fmt.Sprintf(format, args...))
	return r.Err
}

func (r *RecordingOperations) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *RecordingOperations) AddNode(_ context.Context, home zwave.HomeID, secure bool) error {
	return r.record("add-node %s %t", home, secure)
}

func (r *RecordingOperations) RemoveNode(_ context.Context, home zwave.HomeID) error {
	return r.record("remove-node %s", home)
}

func (r *RecordingOperations) SetValue(_ context.Context, id zwave.ValueID, value string) error {
	return r.record("set %s %s", id, value)
}

func (r *RecordingOperations) HealNetwork(_ context.Context, home zwave.HomeID, returnRoutesOnly bool) error {
	return r.record("heal-network %s %t", home, returnRoutesOnly)
}

func (r *RecordingOperations) HealNode(_ context.Context, home zwave.HomeID, node zwave.NodeID, returnRoutesOnly bool) error {
	return r.record("heal-node %s %d %t", home, node, returnRoutesOnly)
}

func (r *RecordingOperations) TestNetwork(_ context.Context, home zwave.HomeID, count uint32) error {
	return r.record("test-network %s %d", home, count)
}

func (r *RecordingOperations) TestNode(_ context.Context, home zwave.HomeID, node zwave.NodeID, count uint32) error {
	return r.record("test-node %s %d %d", home, node, count)
}

func (r *RecordingOperations) WriteConfigs(_ context.Context) error {
	return r.record("write-configs")
}

// ensure interface compliance
var _ port.NetworkOperations = (*RecordingOperations)(nil)
