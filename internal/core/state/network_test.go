package state

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/berfenger/zwconsole/pkg/zwave"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testHome zwave.HomeID = 0x0184e1a0

func node(home zwave.HomeID, id zwave.NodeID) zwave.Node {
	return zwave.Node{HomeID: home, NodeID: id, Name: "node"}
}

func value(home zwave.HomeID, n zwave.NodeID, genre zwave.Genre, index uint8, content string) zwave.Value {
	return zwave.Value{
		ID:      zwave.PackValueID(home, n, genre, 0x25, 1, index, zwave.ValueTypeBool),
		Label:   "Switch",
		Content: content,
	}
}

func newTestState() *NetworkState {
	return NewNetworkState(zap.Must(zap.NewDevelopment()))
}

// assertConsistent checks that the global node index is exactly the union
// of the per-controller indexes and that no key appears twice.
func assertConsistent(t *testing.T, snap Snapshot) {
	seen := make(map[zwave.NodeKey]int)
	total := 0
	for _, c := range snap.NodesByController {
		for _, n := range c.Nodes {
			assert.Equal(t, c.HomeID, n.HomeID, "node filed under its own controller")
			seen[n.Key()]++
			total++
		}
	}
	assert.Equal(t, len(snap.Nodes), total, "global count equals sum of per-controller counts")
	for _, n := range snap.Nodes {
		assert.Equal(t, 1, seen[n.Key()], "node %s in exactly one controller", n.Key())
	}
}

func TestAddControllerIdempotent(t *testing.T) {

	assert := assert.New(t)
	s := newTestState()

	assert.True(s.AddController(testHome))
	assert.False(s.AddController(testHome))

	assert.Equal([]zwave.HomeID{testHome}, s.Controllers())
	assert.Equal(1, s.Stats().Controllers)
}

func TestControllersOrdered(t *testing.T) {

	s := newTestState()
	s.AddController(3)
	s.AddController(1)
	s.AddController(2)

	assert.Equal(t, []zwave.HomeID{1, 2, 3}, s.Controllers())
}

func TestAddNodeUnknownControllerCreatesEntry(t *testing.T) {

	assert := assert.New(t)
	s := newTestState()

	assert.True(s.AddNode(node(testHome, 5)))
	assert.False(s.AddNode(node(testHome, 5)), "re-adding overwrites")

	snap := s.Snapshot()
	assert.Empty(snap.Controllers, "controller set only grows on driver-ready")
	require.Len(t, snap.NodesByController, 1)
	assert.Equal(testHome, snap.NodesByController[0].HomeID)
	assertConsistent(t, snap)
}

func TestNodesOrdered(t *testing.T) {

	s := newTestState()
	s.AddController(2)
	s.AddController(1)
	s.AddNode(node(2, 1))
	s.AddNode(node(1, 9))
	s.AddNode(node(1, 3))

	nodes := s.Nodes()
	require.Len(t, nodes, 3)
	assert.Equal(t, zwave.NodeKey{HomeID: 1, NodeID: 3}, nodes[0].Key())
	assert.Equal(t, zwave.NodeKey{HomeID: 1, NodeID: 9}, nodes[1].Key())
	assert.Equal(t, zwave.NodeKey{HomeID: 2, NodeID: 1}, nodes[2].Key())

	byController := s.NodesByController()
	require.Len(t, byController, 2)
	assert.Len(t, byController[0].Nodes, 2)
	assert.Len(t, byController[1].Nodes, 1)
}

func TestRemoveNode(t *testing.T) {

	assert := assert.New(t)
	s := newTestState()
	s.AddController(testHome)
	s.AddNode(node(testHome, 2))
	s.AddNode(node(testHome, 3))

	removed, _ := s.RemoveNode(zwave.NodeKey{HomeID: testHome, NodeID: 2})
	assert.True(removed)

	snap := s.Snapshot()
	assert.Len(snap.Nodes, 1)
	assertConsistent(t, snap)
	require.Len(t, snap.NodesByController, 1, "controller entry survives with remaining nodes")
}

func TestRemoveNodeCascadesValues(t *testing.T) {

	assert := assert.New(t)
	s := newTestState()
	s.AddController(testHome)
	s.AddNode(node(testHome, 2))
	s.AddNode(node(testHome, 3))
	s.UpsertValue(value(testHome, 2, zwave.GenreUser, 0, "on"))
	s.UpsertValue(value(testHome, 2, zwave.GenreSystem, 1, "3"))
	s.UpsertValue(value(testHome, 3, zwave.GenreUser, 0, "off"))

	removed, cascaded := s.RemoveNode(zwave.NodeKey{HomeID: testHome, NodeID: 2})
	assert.True(removed)
	assert.Len(cascaded, 2)

	values := s.Values()
	require.Len(t, values, 1)
	assert.Equal(zwave.NodeID(3), values[0].ID.NodeID())
}

func TestRemoveOnAbsentIsNoop(t *testing.T) {

	assert := assert.New(t)
	s := newTestState()
	s.AddController(testHome)
	s.AddNode(node(testHome, 2))
	s.UpsertValue(value(testHome, 2, zwave.GenreUser, 0, "on"))
	before := s.Stats()

	removed, cascaded := s.RemoveNode(zwave.NodeKey{HomeID: testHome, NodeID: 42})
	assert.False(removed)
	assert.Nil(cascaded)
	assert.False(s.RemoveValue(zwave.ValueID{HomeID: testHome, ID: 0x0102030405060708}))

	assert.Equal(before, s.Stats())
}

func TestRemoveLastNodeOfUnknownController(t *testing.T) {

	s := newTestState()
	s.AddNode(node(7, 2))
	s.RemoveNode(zwave.NodeKey{HomeID: 7, NodeID: 2})

	assert.Empty(t, s.NodesByController(), "on-demand entry dropped once empty")
}

func TestUpsertValueKeepsIdentity(t *testing.T) {

	assert := assert.New(t)
	s := newTestState()

	v := value(testHome, 2, zwave.GenreUser, 0, "off")
	assert.True(s.UpsertValue(v))

	changed := v
	changed.Content = "on"
	assert.False(s.UpsertValue(changed))

	values := s.Values()
	require.Len(t, values, 1)
	assert.Equal(v.ID, values[0].ID)
	assert.Equal("on", values[0].Content)

	got, ok := s.Value(v.ID)
	assert.True(ok)
	assert.Equal("on", got.Content)
}

func TestValuesOrdered(t *testing.T) {

	s := newTestState()
	s.UpsertValue(value(2, 1, zwave.GenreUser, 0, "a"))
	s.UpsertValue(value(1, 9, zwave.GenreUser, 0, "b"))
	s.UpsertValue(value(1, 3, zwave.GenreUser, 0, "c"))

	values := s.Values()
	require.Len(t, values, 3)
	assert.Equal(t, "c", values[0].Content)
	assert.Equal(t, "b", values[1].Content)
	assert.Equal(t, "a", values[2].Content)
}

func TestSnapshotIsACopy(t *testing.T) {

	s := newTestState()
	s.AddController(testHome)
	s.AddNode(node(testHome, 2))

	snap := s.Snapshot()
	snap.Nodes[0].Name = "mutated"
	snap.NodesByController[0].Nodes[0].Name = "mutated"

	n, ok := s.Node(zwave.NodeKey{HomeID: testHome, NodeID: 2})
	assert.True(t, ok)
	assert.Equal(t, "node", n.Name)
}

func TestRandomSequencesStayConsistent(t *testing.T) {

	s := newTestState()
	r := rand.New(rand.NewSource(1))
	homes := []zwave.HomeID{1, 2, 3}
	for _, h := range homes[:2] {
		s.AddController(h)
	}

	for i := 0; i < 2000; i++ {
		h := homes[r.Intn(len(homes))]
		id := zwave.NodeID(r.Intn(20) + 1)
		if r.Intn(2) == 0 {
			s.AddNode(node(h, id))
		} else {
			s.RemoveNode(zwave.NodeKey{HomeID: h, NodeID: id})
		}
		if i%100 == 0 {
			assertConsistent(t, s.Snapshot())
		}
	}
	assertConsistent(t, s.Snapshot())
}

func TestConcurrentAddsAndSnapshots(t *testing.T) {

	const (
		writers = 64
		readers = 16
		reads   = 200
	)

	s := newTestState()
	s.AddController(testHome)

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(id zwave.NodeID) {
			defer wg.Done()
			s.AddNode(node(testHome, id))
			s.UpsertValue(value(testHome, id, zwave.GenreUser, 0, "off"))
		}(zwave.NodeID(i + 1))
	}

	inconsistent := make(chan Snapshot, readers)
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < reads; j++ {
				snap := s.Snapshot()
				sum := 0
				for _, c := range snap.NodesByController {
					sum += len(c.Nodes)
				}
				if sum != len(snap.Nodes) {
					inconsistent <- snap
					return
				}
			}
		}()
	}
	wg.Wait()
	close(inconsistent)

	for snap := range inconsistent {
		t.Errorf("torn snapshot: %d global nodes", len(snap.Nodes))
	}
	assert.Equal(t, Stats{Controllers: 1, Nodes: writers, Values: writers}, s.Stats())
}
