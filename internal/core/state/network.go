// Package state holds the in-memory aggregate of the mesh network:
// controllers, their nodes and every known node value.
//
// All operations on NetworkState are atomic with respect to each other. A
// mutation touching several indexes is applied under a single acquisition
// of the lock, so readers observe either the old or the new state. Readers
// only ever receive copies.
package state

import (
	"sync"

	"github.com/berfenger/zwconsole/pkg/zwave"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/emirpasic/gods/sets/treeset"
	"go.uber.org/zap"
)

type NetworkState struct {
	mu sync.RWMutex

	controllers  *treeset.Set                  // zwave.HomeID
	nodes        *treemap.Map                  // zwave.NodeKey -> zwave.Node
	byController map[zwave.HomeID]*treemap.Map // zwave.NodeKey -> zwave.Node
	values       *treemap.Map                  // zwave.ValueID -> zwave.Value

	logger *zap.Logger
}

type ControllerNodes struct {
	HomeID zwave.HomeID
	Nodes  []zwave.Node
}

// Snapshot is a consistent copy of every collection taken at one instant.
type Snapshot struct {
	Controllers       []zwave.HomeID
	Nodes             []zwave.Node
	NodesByController []ControllerNodes
	Values            []zwave.Value
}

type Stats struct {
	Controllers int
	Nodes       int
	Values      int
}

func NewNetworkState(logger *zap.Logger) *NetworkState {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NetworkState{
		controllers:  treeset.NewWith(homeIDComparator),
		nodes:        treemap.NewWith(nodeKeyComparator),
		byController: make(map[zwave.HomeID]*treemap.Map),
		values:       treemap.NewWith(valueIDComparator),
		logger:       logger.With(zap.String("component", "state")),
	}
}

// AddController registers a controller. It reports false if the controller
// was already known.
func (s *NetworkState) AddController(home zwave.HomeID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.controllers.Contains(home) {
		return false
	}
	s.controllers.Add(home)
	if _, ok := s.byController[home]; !ok {
		s.byController[home] = treemap.NewWith(nodeKeyComparator)
	}
	s.logger.Debug("controller added", zap.Stringer("home_id", home))
	return true
}

// AddNode inserts or overwrites a node in the global and per-controller
// indexes. The per-controller index is created on demand; an unknown
// controller is not added to the controller set. It reports true on insert.
func (s *NetworkState) AddNode(node zwave.Node) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := node.Key()
	_, existed := s.nodes.Get(key)
	s.nodes.Put(key, node)

	perController, ok := s.byController[node.HomeID]
	if !ok {
		perController = treemap.NewWith(nodeKeyComparator)
		s.byController[node.HomeID] = perController
	}
	perController.Put(key, node)

	s.logger.Debug("node added", zap.Stringer("node", key), zap.Bool("overwrite", existed))
	return !existed
}

// RemoveNode removes a node from both indexes together with every value
// belonging to it. Removing an unknown node is a no-op. It returns the ids
// of the values removed along with the node.
func (s *NetworkState) RemoveNode(key zwave.NodeKey) (bool, []zwave.ValueID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.nodes.Get(key); !ok {
		return false, nil
	}
	s.nodes.Remove(key)
	if perController, ok := s.byController[key.HomeID]; ok {
		perController.Remove(key)
		if perController.Empty() && !s.controllers.Contains(key.HomeID) {
			delete(s.byController, key.HomeID)
		}
	}

	var cascaded []zwave.ValueID
	it := s.values.Iterator()
	for it.Next() {
		id := it.Key().(zwave.ValueID)
		if id.NodeKey() == key {
			cascaded = append(cascaded, id)
		}
	}
	for _, id := range cascaded {
		s.values.Remove(id)
	}

	s.logger.Debug("node removed", zap.Stringer("node", key), zap.Int("values_removed", len(cascaded)))
	return true, cascaded
}

// UpsertValue inserts a value or replaces the content of an existing one
// with the same identity. It reports true on insert.
func (s *NetworkState) UpsertValue(value zwave.Value) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, existed := s.values.Get(value.ID)
	s.values.Put(value.ID, value)

	s.logger.Debug("value upserted",
		zap.Stringer("value_id", value.ID),
		zap.String("label", value.Label),
		zap.String("content", value.Content),
		zap.Bool("insert", !existed))
	return !existed
}

// RemoveValue removes a value. Removing an unknown value is a no-op.
func (s *NetworkState) RemoveValue(id zwave.ValueID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.values.Get(id); !ok {
		return false
	}
	s.values.Remove(id)
	s.logger.Debug("value removed", zap.Stringer("value_id", id))
	return true
}

func (s *NetworkState) Controllers() []zwave.HomeID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.controllersLocked()
}

func (s *NetworkState) Nodes() []zwave.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return nodeSlice(s.nodes)
}

// NodesByController lists every controller, plus any network that only has
// nodes, with its member nodes. Both levels are ordered.
func (s *NetworkState) NodesByController() []ControllerNodes {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nodesByControllerLocked()
}

func (s *NetworkState) Values() []zwave.Value {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return valueSlice(s.values)
}

func (s *NetworkState) Value(id zwave.ValueID) (zwave.Value, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values.Get(id)
	if !ok {
		return zwave.Value{}, false
	}
	return v.(zwave.Value), true
}

func (s *NetworkState) Node(key zwave.NodeKey) (zwave.Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes.Get(key)
	if !ok {
		return zwave.Node{}, false
	}
	return n.(zwave.Node), true
}

func (s *NetworkState) HasController(home zwave.HomeID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.controllers.Contains(home)
}

func (s *NetworkState) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Controllers:       s.controllersLocked(),
		Nodes:             nodeSlice(s.nodes),
		NodesByController: s.nodesByControllerLocked(),
		Values:            valueSlice(s.values),
	}
}

func (s *NetworkState) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{
		Controllers: s.controllers.Size(),
		Nodes:       s.nodes.Size(),
		Values:      s.values.Size(),
	}
}

func (s *NetworkState) controllersLocked() []zwave.HomeID {
	out := make([]zwave.HomeID, 0, s.controllers.Size())
	for _, h := range s.controllers.Values() {
		out = append(out, h.(zwave.HomeID))
	}
	return out
}

func (s *NetworkState) nodesByControllerLocked() []ControllerNodes {
	homes := treeset.NewWith(homeIDComparator)
	for h := range s.byController {
		homes.Add(h)
	}
	out := make([]ControllerNodes, 0, homes.Size())
	for _, h := range homes.Values() {
		home := h.(zwave.HomeID)
		out = append(out, ControllerNodes{
			HomeID: home,
			Nodes:  nodeSlice(s.byController[home]),
		})
	}
	return out
}

func nodeSlice(m *treemap.Map) []zwave.Node {
	out := make([]zwave.Node, 0, m.Size())
	it := m.Iterator()
	for it.Next() {
		out = append(out, it.Value().(zwave.Node))
	}
	return out
}

func valueSlice(m *treemap.Map) []zwave.Value {
	out := make([]zwave.Value, 0, m.Size())
	it := m.Iterator()
	for it.Next() {
		out = append(out, it.Value().(zwave.Value))
	}
	return out
}

func homeIDComparator(a, b interface{}) int {
	x, y := a.(zwave.HomeID), b.(zwave.HomeID)
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	}
	return 0
}

func nodeKeyComparator(a, b interface{}) int {
	return a.(zwave.NodeKey).Compare(b.(zwave.NodeKey))
}

func valueIDComparator(a, b interface{}) int {
	return a.(zwave.ValueID).Compare(b.(zwave.ValueID))
}
