package zwave

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func openTestSimulator(t *testing.T, dir string) *Simulator {
	sim, err := OpenSimulator(context.Background(), Options{
		UserConfigPath: dir,
		Device:         SimulatorDevice,
	}, 0, zap.Must(zap.NewDevelopment()))
	require.NoError(t, err)
	t.Cleanup(func() { sim.Close() })
	return sim
}

// waitFor drains notifications until one matches or the timeout expires.
func waitFor(t *testing.T, ch <-chan Notification, match func(Notification) bool) Notification {
	timeout := time.After(2 * time.Second)
	for {
		select {
		case n, ok := <-ch:
			require.True(t, ok, "notification channel closed")
			if match(n) {
				return n
			}
		case <-timeout:
			t.Fatal("timed out waiting for notification")
			return nil
		}
	}
}

func TestSimulatorInitialDiscovery(t *testing.T) {

	assert := assert.New(t)

	sim := openTestSimulator(t, t.TempDir())

	n := waitFor(t, sim.Notifications(), func(n Notification) bool { return true })
	ready, ok := n.(DriverReady)
	assert.True(ok, "first notification is driver-ready")
	assert.Equal(DefaultSimulatedHomeID, ready.Home())

	nodes := 0
	values := 0
	for {
		n := waitFor(t, sim.Notifications(), func(Notification) bool { return true })
		switch n.(type) {
		case NodeAdded:
			nodes++
		case ValueAdded:
			values++
		}
		if _, done := n.(AllNodesQueried); done {
			break
		}
	}
	assert.Equal(3, nodes)
	assert.Equal(7, values)
}

func TestSimulatorRejectsUnknownController(t *testing.T) {

	sim := openTestSimulator(t, t.TempDir())

	err := sim.AddNode(0xdeadbeef, false)
	assert.ErrorIs(t, err, ErrOperationRejected)
	assert.ErrorIs(t, err, ErrUnknownController)

	err = sim.SetValue(ValueID{HomeID: DefaultSimulatedHomeID, ID: 0x0102030405060708}, "on")
	assert.ErrorIs(t, err, ErrOperationRejected)
}

func TestSimulatorAddAndRemoveNode(t *testing.T) {

	require := require.New(t)

	sim := openTestSimulator(t, t.TempDir())
	waitFor(t, sim.Notifications(), func(n Notification) bool { _, ok := n.(AllNodesQueried); return ok })

	require.NoError(sim.AddNode(DefaultSimulatedHomeID, true))
	require.ErrorIs(sim.RemoveNode(DefaultSimulatedHomeID), ErrOperationRejected, "one controller command at a time")

	n := waitFor(t, sim.Notifications(), func(n Notification) bool { _, ok := n.(NodeAdded); return ok })
	added := n.(NodeAdded)
	require.Equal(NodeID(4), added.Node.NodeID)
	require.Equal("Secure Binary Switch", added.Node.Product)
	waitFor(t, sim.Notifications(), func(n Notification) bool { o, ok := n.(Other); return ok && o.Detail == "completed" })

	require.NoError(sim.RemoveNode(DefaultSimulatedHomeID))
	n = waitFor(t, sim.Notifications(), func(n Notification) bool { _, ok := n.(NodeRemoved); return ok })
	require.Equal(NodeKey{DefaultSimulatedHomeID, 4}, n.(NodeRemoved).Key)
}

func TestSimulatorSetValue(t *testing.T) {

	require := require.New(t)

	sim := openTestSimulator(t, t.TempDir())
	waitFor(t, sim.Notifications(), func(n Notification) bool { _, ok := n.(AllNodesQueried); return ok })

	id := PackValueID(DefaultSimulatedHomeID, 2, GenreUser, 0x25, 1, 0, ValueTypeBool)
	require.Error(sim.SetValue(id, "maybe"))
	require.NoError(sim.SetValue(id, "on"))

	n := waitFor(t, sim.Notifications(), func(n Notification) bool { _, ok := n.(ValueChanged); return ok })
	changed := n.(ValueChanged)
	require.Equal(id, changed.Value.ID)
	require.Equal("true", changed.Value.Content)
}

func TestSimulatorWriteConfigsRoundTrip(t *testing.T) {

	require := require.New(t)
	dir := t.TempDir()

	sim := openTestSimulator(t, dir)
	sim.WriteConfigs()
	require.NoError(sim.Close())

	_, err := os.Stat(networkFileName(dir, DefaultSimulatedHomeID))
	require.NoError(err)

	networks, err := loadNetworkFiles(dir)
	require.NoError(err)
	require.Len(networks, 1)
	nw := networks[DefaultSimulatedHomeID]
	require.Len(nw.nodes, 3)
	require.Len(nw.values, 7)
	temp := PackValueID(DefaultSimulatedHomeID, 3, GenreUser, 0x31, 1, 1, ValueTypeDecimal)
	require.Equal("21.5", nw.values[temp].Content)
}

func TestSimulatorDeviceCheck(t *testing.T) {

	_, err := OpenSimulator(context.Background(), Options{Device: "/nonexistent/ttyZ"}, 0, nil)
	assert.Error(t, err)

	_, err = OpenSimulator(context.Background(), Options{}, 0, nil)
	assert.ErrorIs(t, err, ErrNoDevice)
}

func TestSimulatorCloseEndsStream(t *testing.T) {

	sim := openTestSimulator(t, t.TempDir())
	require.NoError(t, sim.Close())

	timeout := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-sim.Notifications():
			if !ok {
				assert.ErrorIs(t, sim.AddNode(DefaultSimulatedHomeID, false), ErrDriverClosed)
				return
			}
		case <-timeout:
			t.Fatal("channel not closed")
		}
	}
}

func TestSimulatorSetValueOnExcludedNode(t *testing.T) {

	sim, err := OpenSimulator(context.Background(), Options{
		UserConfigPath: t.TempDir(),
		Device:         SimulatorDevice,
	}, 100*time.Millisecond, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { sim.Close() })
	waitFor(t, sim.Notifications(), func(n Notification) bool { _, ok := n.(AllNodesQueried); return ok })

	id := PackValueID(DefaultSimulatedHomeID, 3, GenreUser, 0x31, 1, 1, ValueTypeDecimal)
	require.NoError(t, sim.SetValue(id, "22.0"))

	// exclusion completes before the pending set
	sim.mu.Lock()
	delete(sim.networks[DefaultSimulatedHomeID].values, id)
	sim.mu.Unlock()

	deadline := time.After(400 * time.Millisecond)
	for done := false; !done; {
		select {
		case n := <-sim.Notifications():
			if changed, ok := n.(ValueChanged); ok {
				assert.NotEqual(t, id, changed.Value.ID, "no change reported for a removed value")
			}
		case <-deadline:
			done = true
		}
	}

	sim.mu.Lock()
	_, resurrected := sim.networks[DefaultSimulatedHomeID].values[id]
	sim.mu.Unlock()
	assert.False(t, resurrected)
}
