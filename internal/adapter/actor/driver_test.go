package actor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/berfenger/zwconsole/internal/config"
	"github.com/berfenger/zwconsole/internal/core/domain"
	"github.com/berfenger/zwconsole/internal/util/actorutil"
	"github.com/berfenger/zwconsole/pkg/zwave"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// blockingDriver accepts every request but holds SetValue until released.
type blockingDriver struct {
	mu      sync.Mutex
	release chan struct{}
	// healDelay is how long HealNetwork takes
	healDelay time.Duration
	calls     []string
	closed    bool
}

func (d *blockingDriver) record(call string) {
	d.mu.Lock()
	d.calls = append(d.calls, call)
	d.mu.Unlock()
}

func (d *blockingDriver) Calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

func (d *blockingDriver) AddNode(zwave.HomeID, bool) error { d.record("add-node"); return nil }
func (d *blockingDriver) RemoveNode(zwave.HomeID) error    { d.record("remove-node"); return nil }
func (d *blockingDriver) SetValue(zwave.ValueID, string) error {
	<-d.release
	d.record("set")
	return nil
}
func (d *blockingDriver) HealNetwork(zwave.HomeID, bool) {
	time.Sleep(d.healDelay)
	d.record("heal-network")
}
func (d *blockingDriver) HealNetworkNode(zwave.HomeID, zwave.NodeID, bool) { d.record("heal-node") }
func (d *blockingDriver) TestNetwork(zwave.HomeID, uint32)                 { d.record("test-network") }
func (d *blockingDriver) TestNetworkNode(zwave.HomeID, zwave.NodeID, uint32) {
	d.record("test-node")
}
func (d *blockingDriver) WriteConfigs() { d.record("write-configs") }
func (d *blockingDriver) Close() error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	return nil
}

func spawnDriverActor(t *testing.T, driver zwave.Driver, timeout time.Duration) (*actor.ActorSystem, *actor.PID) {
	logger := zap.Must(zap.NewDevelopment())
	as := actorutil.NewActorSystemWithZapLogger(logger)
	props := actor.PropsFromProducer(func() actor.Actor { return NewDriverActor(driver, timeout, logger) })
	pid := as.Root.Spawn(props)
	t.Cleanup(func() {
		_ = as.Root.StopFuture(pid).Wait()
		as.Shutdown()
	})
	return as, pid
}

func openSimulator(t *testing.T) *zwave.Simulator {
	sim, err := zwave.OpenSimulator(context.Background(), zwave.Options{
		UserConfigPath: t.TempDir(),
		Device:         zwave.SimulatorDevice,
	}, 50*time.Millisecond, zap.NewNop())
	require.NoError(t, err)
	return sim
}

func TestDriverActorAcceptsOperation(t *testing.T) {

	assert := assert.New(t)

	sim := openSimulator(t)
	as, pid := spawnDriverActor(t, sim, 2*time.Second)

	msg := domain.AddNodeRequest{
		DriverRequestMixIn: actorutil.NewDriverRequestMixIn(),
		HomeID:             zwave.DefaultSimulatedHomeID,
	}
	result, err := as.Root.RequestFuture(pid, msg, 5*time.Second).Result()
	require.NoError(t, err)

	resp, ok := result.(domain.DriverOperationResponse)
	require.True(t, ok)
	assert.False(resp.HasResponseError())
	assert.Equal(msg.RequestId, resp.RequestId)
	assert.Contains(resp.Operation, "add-node")
}

func TestDriverClientReportsRejection(t *testing.T) {

	assert := assert.New(t)

	sim := openSimulator(t)
	as, pid := spawnDriverActor(t, sim, 2*time.Second)
	client := NewDriverClient(as.Root, pid, 5*time.Second, zap.NewNop())
	ctx := context.Background()

	err := client.AddNode(ctx, 0xdeadbeef, false)
	assert.ErrorIs(err, zwave.ErrOperationRejected)
	assert.ErrorIs(err, zwave.ErrUnknownController)

	assert.NoError(client.AddNode(ctx, zwave.DefaultSimulatedHomeID, true))
	assert.ErrorIs(client.RemoveNode(ctx, zwave.DefaultSimulatedHomeID), zwave.ErrOperationRejected,
		"controller command already in progress")

	assert.NoError(client.HealNetwork(ctx, zwave.DefaultSimulatedHomeID, true))
	assert.NoError(client.TestNode(ctx, zwave.DefaultSimulatedHomeID, 2, 3))
	assert.NoError(client.WriteConfigs(ctx))
}

func TestDriverActorSerializesRequests(t *testing.T) {

	assert := assert.New(t)

	driver := &blockingDriver{release: make(chan struct{})}
	as, pid := spawnDriverActor(t, driver, 5*time.Second)
	client := NewDriverClient(as.Root, pid, 5*time.Second, zap.NewNop())
	ctx := context.Background()

	setDone := make(chan error, 1)
	go func() {
		setDone <- client.SetValue(ctx, zwave.PackValueID(1, 2, zwave.GenreUser, 0x25, 1, 0, zwave.ValueTypeBool), "on")
	}()
	healDone := make(chan error, 1)
	go func() {
		time.Sleep(100 * time.Millisecond)
		healDone <- client.HealNetwork(ctx, 1, false)
	}()

	time.Sleep(300 * time.Millisecond)
	assert.Empty(driver.Calls(), "heal is stashed while set is in flight")

	close(driver.release)
	assert.NoError(<-setDone)
	assert.NoError(<-healDone)
	assert.Equal([]string{"set", "heal-network"}, driver.Calls())
}

func TestDriverActorTimeout(t *testing.T) {

	driver := &blockingDriver{release: make(chan struct{})}
	defer close(driver.release)
	as, pid := spawnDriverActor(t, driver, 200*time.Millisecond)
	client := NewDriverClient(as.Root, pid, 5*time.Second, zap.NewNop())

	err := client.SetValue(context.Background(), zwave.ValueID{HomeID: 1, ID: 1}, "on")
	assert.ErrorIs(t, err, zwave.ErrOperationRejected, "a stuck driver call is a rejection")

	// the actor is usable again once the timed out task has been recovered
	assert.NoError(t, client.WriteConfigs(context.Background()))
}

func TestDriverActorClosesDriverOnStop(t *testing.T) {

	driver := &blockingDriver{release: make(chan struct{})}
	logger := zap.NewNop()
	as := actorutil.NewActorSystemWithZapLogger(logger)
	pid := as.Root.Spawn(actor.PropsFromProducer(func() actor.Actor { return NewDriverActor(driver, time.Second, logger) }))

	require.NoError(t, as.Root.StopFuture(pid).Wait())
	as.Shutdown()

	driver.mu.Lock()
	defer driver.mu.Unlock()
	assert.True(t, driver.closed)
}

func TestDriverActorHealth(t *testing.T) {

	sim := openSimulator(t)
	as, pid := spawnDriverActor(t, sim, time.Second)

	result, err := as.Root.RequestFuture(pid, domain.ActorHealthRequest{}, 2*time.Second).Result()
	require.NoError(t, err)
	resp, ok := result.(domain.ActorHealthResponse)
	require.True(t, ok)
	assert.True(t, resp.Healthy)
	assert.Equal(t, domain.ACTOR_ID_DRIVER, resp.Id)
}

func TestDriverActorRepliesToNamedTarget(t *testing.T) {

	sim := openSimulator(t)
	as, pid := spawnDriverActor(t, sim, time.Second)

	replies := make(chan domain.DriverOperationResponse, 1)
	probe := as.Root.Spawn(actor.PropsFromFunc(func(ctx actor.Context) {
		if resp, ok := ctx.Message().(domain.DriverOperationResponse); ok {
			replies <- resp
		}
	}))

	as.Root.Send(pid, domain.WriteConfigsRequest{
		DriverRequestMixIn: domain.DriverRequestMixIn{
			ActorRequestMixIn: domain.ReplyVia(probe),
			RequestId:         "probe-1",
		},
	})

	select {
	case resp := <-replies:
		assert.False(t, resp.HasResponseError())
		assert.Equal(t, "probe-1", resp.RequestId)
	case <-time.After(2 * time.Second):
		t.Fatal("no reply at the named target")
	}
}

func TestDriverClientWaitsForStashedRequest(t *testing.T) {

	cfg := config.DriverConfig{RequestTimeoutMillis: 300}
	driver := &blockingDriver{release: make(chan struct{}), healDelay: 150 * time.Millisecond}
	defer close(driver.release)
	as, pid := spawnDriverActor(t, driver, cfg.RequestTimeout())
	client := NewDriverClient(as.Root, pid, cfg.ClientTimeout(), zap.NewNop())
	ctx := context.Background()

	setDone := make(chan error, 1)
	go func() {
		setDone <- client.SetValue(ctx, zwave.ValueID{HomeID: 1, ID: 1}, "on")
	}()
	time.Sleep(20 * time.Millisecond)

	// stashed until the stuck set times out, then runs to completion
	assert.NoError(t, client.HealNetwork(ctx, 1, true))
	assert.ErrorIs(t, <-setDone, zwave.ErrOperationRejected)
	assert.Equal(t, []string{"heal-network"}, driver.Calls())
}
