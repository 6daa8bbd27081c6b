package zwave

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
)

// SimulatorDevice is accepted by the simulator without touching the
// filesystem.
const SimulatorDevice = "sim"

const (
	DefaultSimulatedHomeID HomeID = 0x0184e1a0
	controllerNodeID       NodeID = 1
)

// Simulator is an in-process network emulator implementing Driver. It
// behaves like a controller with a handful of included nodes and reports
// every operation outcome asynchronously on its notification channel.
type Simulator struct {
	mu       sync.Mutex
	opts     Options
	delay    time.Duration
	networks map[HomeID]*simNetwork
	out      chan Notification
	done     chan struct{}
	wg       sync.WaitGroup
	closed   bool
	logger   *zap.Logger
}

type simNetwork struct {
	home      HomeID
	nodes     map[NodeID]Node
	values    map[ValueID]Value
	including bool
	excluding bool
}

// NewSimulatorOpener returns an Opener producing simulators whose operation
// outcomes are delayed by delay.
func NewSimulatorOpener(delay time.Duration, logger *zap.Logger) Opener {
	return func(ctx context.Context, opts Options) (Driver, <-chan Notification, error) {
		sim, err := OpenSimulator(ctx, opts, delay, logger)
		if err != nil {
			return nil, nil, err
		}
		return sim, sim.Notifications(), nil
	}
}

func OpenSimulator(ctx context.Context, opts Options, delay time.Duration, logger *zap.Logger) (*Simulator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := checkDevice(opts.Device); err != nil {
		return nil, err
	}
	if opts.NotificationBuffer <= 0 {
		opts.NotificationBuffer = 64
	}

	networks, err := loadNetworkFiles(opts.UserConfigPath)
	if err != nil {
		return nil, err
	}
	if len(networks) == 0 {
		def := defaultNetwork(DefaultSimulatedHomeID)
		networks[def.home] = def
	}

	sim := &Simulator{
		opts:     opts,
		delay:    delay,
		networks: networks,
		out:      make(chan Notification, opts.NotificationBuffer),
		done:     make(chan struct{}),
		logger:   logger.With(zap.String("component", "simulator")),
	}

	sim.logger.Info("simulated controller opened", zap.String("device", opts.Device), zap.Int("networks", len(networks)))

	// initial network discovery
	sim.async(func() {
		for _, home := range sim.homes() {
			sim.emit(DriverReady{NotificationMixIn{home}})
			for _, n := range sim.snapshotNetwork(home) {
				sim.emit(n)
			}
			sim.emit(AllNodesQueried{NotificationMixIn{home}})
		}
	})

	go func() {
		select {
		case <-ctx.Done():
			sim.Close()
		case <-sim.done:
		}
	}()

	return sim, nil
}

func checkDevice(device string) error {
	if device == SimulatorDevice || device == DeviceUSB {
		return nil
	}
	if device == "" {
		return ErrNoDevice
	}
	if _, err := os.Stat(device); err != nil {
		return fmt.Errorf("cannot open device %s: %w", device, err)
	}
	return nil
}

func (s *Simulator) Notifications() <-chan Notification {
	return s.out
}

func (s *Simulator) AddNode(home HomeID, secure bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	nw, err := s.network(home)
	if err != nil {
		return err
	}
	if nw.including || nw.excluding {
		return fmt.Errorf("%w: controller command already in progress", ErrOperationRejected)
	}
	nw.including = true
	s.logger.Debug("inclusion started", zap.Stringer("home_id", home), zap.Bool("secure", secure))

	s.async(func() {
		s.sleep()
		s.mu.Lock()
		nw.including = false
		id := nw.nextNodeID()
		if id == 0 {
			s.mu.Unlock()
			s.emit(Other{NotificationMixIn{home}, "controller-command", "failed: network full"})
			return
		}
		node := Node{
			HomeID:       home,
			NodeID:       id,
			Name:         fmt.Sprintf("Switch %d", id),
			Manufacturer: "Simulated",
			Product:      "Binary Switch",
			Type:         "Binary Power Switch",
		}
		if secure {
			node.Product = "Secure Binary Switch"
		}
		nw.nodes[id] = node
		values := binarySwitchValues(home, id)
		for _, v := range values {
			nw.values[v.ID] = v
		}
		s.mu.Unlock()

		s.emit(NodeAdded{NotificationMixIn{home}, node})
		for _, v := range values {
			s.emit(ValueAdded{NotificationMixIn{home}, v})
		}
		s.emit(Other{NotificationMixIn{home}, "controller-command", "completed"})
	})
	return nil
}

func (s *Simulator) RemoveNode(home HomeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	nw, err := s.network(home)
	if err != nil {
		return err
	}
	if nw.including || nw.excluding {
		return fmt.Errorf("%w: controller command already in progress", ErrOperationRejected)
	}
	nw.excluding = true

	s.async(func() {
		s.sleep()
		s.mu.Lock()
		nw.excluding = false
		id := nw.lastNodeID()
		if id == 0 {
			s.mu.Unlock()
			s.emit(Other{NotificationMixIn{home}, "controller-command", "failed: no node to exclude"})
			return
		}
		var removed []ValueID
		for vid := range nw.values {
			if vid.NodeID() == id {
				removed = append(removed, vid)
				delete(nw.values, vid)
			}
		}
		delete(nw.nodes, id)
		s.mu.Unlock()

		sort.Slice(removed, func(i, j int) bool { return removed[i].Compare(removed[j]) < 0 })
		for _, vid := range removed {
			s.emit(ValueRemoved{NotificationMixIn{home}, vid})
		}
		s.emit(NodeRemoved{NotificationMixIn{home}, NodeKey{home, id}})
		s.emit(Other{NotificationMixIn{home}, "controller-command", "completed"})
	})
	return nil
}

func (s *Simulator) SetValue(id ValueID, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	nw, err := s.network(id.HomeID)
	if err != nil {
		return err
	}
	if _, ok := nw.values[id]; !ok {
		return fmt.Errorf("%w: unknown value %s", ErrOperationRejected, id)
	}
	if id.Type() == ValueTypeBool {
		b, err := parseBool(value)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrOperationRejected, err)
		}
		value = strconv.FormatBool(b)
	}

	s.async(func() {
		s.sleep()
		s.mu.Lock()
		latest, ok := nw.values[id]
		if !ok {
			// the node was excluded meanwhile
			s.mu.Unlock()
			s.logger.Debug("set value dropped", zap.Stringer("value_id", id))
			return
		}
		latest.Content = value
		nw.values[id] = latest
		s.mu.Unlock()
		s.emit(ValueChanged{NotificationMixIn{id.HomeID}, latest})
	})
	return nil
}

func (s *Simulator) HealNetwork(home HomeID, returnRoutesOnly bool) {
	s.report(home, "heal-network", fmt.Sprintf("return_routes_only=%t", returnRoutesOnly))
}

func (s *Simulator) HealNetworkNode(home HomeID, node NodeID, returnRoutesOnly bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.network(home); err != nil {
		s.logger.Warn("heal request ignored", zap.Stringer("home_id", home), zap.Error(err))
		return
	}
	s.async(func() {
		s.sleep()
		s.emit(NodeEvent{NotificationMixIn{home}, NodeKey{home, node}, 0})
		s.emit(Other{NotificationMixIn{home}, "heal-node", fmt.Sprintf("node=%d return_routes_only=%t", node, returnRoutesOnly)})
	})
}

func (s *Simulator) TestNetwork(home HomeID, count uint32) {
	s.report(home, "test-network", fmt.Sprintf("messages=%d", count))
}

func (s *Simulator) TestNetworkNode(home HomeID, node NodeID, count uint32) {
	s.report(home, "test-node", fmt.Sprintf("node=%d messages=%d", node, count))
}

// WriteConfigs persists every simulated network to the user config path.
func (s *Simulator) WriteConfigs() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, nw := range s.networks {
		if err := writeNetworkFile(s.opts.UserConfigPath, nw); err != nil {
			s.logger.Error("could not write network config", zap.Stringer("home_id", nw.home), zap.Error(err))
		}
	}
}

func (s *Simulator) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.done)
	s.mu.Unlock()

	if s.opts.SaveConfiguration {
		s.WriteConfigs()
	}
	s.wg.Wait()
	close(s.out)
	s.logger.Info("simulated controller closed")
	return nil
}

func (s *Simulator) report(home HomeID, kind, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.network(home); err != nil {
		s.logger.Warn("request ignored", zap.String("request", kind), zap.Stringer("home_id", home), zap.Error(err))
		return
	}
	s.async(func() {
		s.sleep()
		s.emit(Other{NotificationMixIn{home}, kind, detail})
	})
}

// network must be called with s.mu held.
func (s *Simulator) network(home HomeID) (*simNetwork, error) {
	if s.closed {
		return nil, ErrDriverClosed
	}
	nw, ok := s.networks[home]
	if !ok {
		return nil, fmt.Errorf("%w: %w %s", ErrOperationRejected, ErrUnknownController, home)
	}
	return nw, nil
}

func (s *Simulator) homes() []HomeID {
	s.mu.Lock()
	defer s.mu.Unlock()
	homes := make([]HomeID, 0, len(s.networks))
	for h := range s.networks {
		homes = append(homes, h)
	}
	sort.Slice(homes, func(i, j int) bool { return homes[i] < homes[j] })
	return homes
}

func (s *Simulator) snapshotNetwork(home HomeID) []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	nw := s.networks[home]
	var out []Notification
	for _, id := range nw.sortedNodeIDs() {
		out = append(out, NodeAdded{NotificationMixIn{home}, nw.nodes[id]})
	}
	ids := make([]ValueID, 0, len(nw.values))
	for id := range nw.values {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Compare(ids[j]) < 0 })
	for _, id := range ids {
		out = append(out, ValueAdded{NotificationMixIn{home}, nw.values[id]})
	}
	return out
}

// async must be called with s.mu held once the simulator is running.
func (s *Simulator) async(fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
}

func (s *Simulator) sleep() {
	if s.delay <= 0 {
		return
	}
	select {
	case <-time.After(s.delay):
	case <-s.done:
	}
}

func (s *Simulator) emit(n Notification) {
	select {
	case <-s.done:
		return
	default:
	}
	select {
	case s.out <- n:
	case <-s.done:
	}
}

func (nw *simNetwork) sortedNodeIDs() []NodeID {
	ids := make([]NodeID, 0, len(nw.nodes))
	for id := range nw.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (nw *simNetwork) nextNodeID() NodeID {
	for id := controllerNodeID + 1; id <= 232; id++ {
		if _, ok := nw.nodes[id]; !ok {
			return id
		}
	}
	return 0
}

func (nw *simNetwork) lastNodeID() NodeID {
	ids := nw.sortedNodeIDs()
	for i := len(ids) - 1; i >= 0; i-- {
		if ids[i] != controllerNodeID {
			return ids[i]
		}
	}
	return 0
}

func defaultNetwork(home HomeID) *simNetwork {
	nw := &simNetwork{
		home:   home,
		nodes:  make(map[NodeID]Node),
		values: make(map[ValueID]Value),
	}
	nw.nodes[controllerNodeID] = Node{HomeID: home, NodeID: controllerNodeID, Name: "Controller",
		Manufacturer: "Simulated", Product: "Z-Stick", Type: "Static PC Controller"}
	nw.nodes[2] = Node{HomeID: home, NodeID: 2, Name: "Switch 2",
		Manufacturer: "Simulated", Product: "Binary Switch", Type: "Binary Power Switch"}
	nw.nodes[3] = Node{HomeID: home, NodeID: 3, Name: "Multisensor",
		Manufacturer: "Simulated", Product: "Multisensor 6", Type: "Routing Multilevel Sensor"}

	for _, v := range binarySwitchValues(home, 2) {
		nw.values[v.ID] = v
	}
	for _, v := range []Value{
		{ID: PackValueID(home, 3, GenreUser, 0x31, 1, 1, ValueTypeDecimal), Label: "Temperature", Units: "C", Content: "21.5"},
		{ID: PackValueID(home, 3, GenreUser, 0x31, 1, 5, ValueTypeByte), Label: "Relative Humidity", Units: "%", Content: "48"},
		{ID: PackValueID(home, 3, GenreUser, 0x80, 1, 0, ValueTypeByte), Label: "Battery Level", Units: "%", Content: "100"},
		{ID: PackValueID(home, 3, GenreConfig, 0x70, 1, 3, ValueTypeShort), Label: "PIR Timeout", Units: "s", Content: "240"},
		{ID: PackValueID(home, 3, GenreSystem, 0x84, 1, 0, ValueTypeInt), Label: "Wake-up Interval", Units: "s", Content: "3600"},
	} {
		nw.values[v.ID] = v
	}
	return nw
}

func binarySwitchValues(home HomeID, node NodeID) []Value {
	return []Value{
		{ID: PackValueID(home, node, GenreUser, 0x25, 1, 0, ValueTypeBool), Label: "Switch", Content: "false"},
		{ID: PackValueID(home, node, GenreSystem, 0x86, 1, 0, ValueTypeString), Label: "Library Version", Content: "3"},
	}
}

func parseBool(value string) (bool, error) {
	switch value {
	case "on":
		return true, nil
	case "off":
		return false, nil
	}
	return strconv.ParseBool(value)
}

func networkFileName(dir string, home HomeID) string {
	return filepath.Join(dir, fmt.Sprintf("zwcfg_0x%s.yaml", home))
}
