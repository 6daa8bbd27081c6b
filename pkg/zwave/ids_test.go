package zwave

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackValueID(t *testing.T) {

	assert := assert.New(t)

	id := PackValueID(0x0184e1a0, 7, GenreConfig, 0x70, 2, 0x12, ValueTypeShort)

	assert.Equal(HomeID(0x0184e1a0), id.HomeID)
	assert.Equal(NodeID(7), id.NodeID(), "node id")
	assert.Equal(GenreConfig, id.Genre(), "genre")
	assert.Equal(uint8(0x70), id.CommandClass(), "command class")
	assert.Equal(uint8(2), id.Instance(), "instance")
	assert.Equal(uint8(0x12), id.Index(), "index")
	assert.Equal(ValueTypeShort, id.Type(), "type")
	assert.Equal(NodeKey{0x0184e1a0, 7}, id.NodeKey())
}

func TestValueIDOrdering(t *testing.T) {

	assert := assert.New(t)

	a := ValueID{HomeID: 1, ID: 0xff}
	b := ValueID{HomeID: 2, ID: 0x01}
	c := ValueID{HomeID: 2, ID: 0x02}

	assert.Equal(-1, a.Compare(b))
	assert.Equal(-1, b.Compare(c))
	assert.Equal(1, c.Compare(a))
	assert.Equal(0, c.Compare(c))
}

func TestNodeKeyOrdering(t *testing.T) {

	assert := assert.New(t)

	assert.Equal(-1, NodeKey{1, 9}.Compare(NodeKey{2, 1}))
	assert.Equal(-1, NodeKey{2, 1}.Compare(NodeKey{2, 3}))
	assert.Equal(0, NodeKey{2, 3}.Compare(NodeKey{2, 3}))
}

func TestParseIDs(t *testing.T) {

	require := require.New(t)

	home, err := ParseHomeID("0184e1a0")
	require.NoError(err)
	require.Equal(HomeID(0x0184e1a0), home)

	home, err = ParseHomeID("0x00000001")
	require.NoError(err)
	require.Equal(HomeID(1), home)

	_, err = ParseHomeID("zz")
	require.Error(err)

	_, err = ParseHomeID("1ffffffff")
	require.Error(err, "home id overflows 32 bits")

	node, err := ParseNodeID("0a")
	require.NoError(err)
	require.Equal(NodeID(10), node)

	packed, err := ParsePackedID("0102030405060708")
	require.NoError(err)
	require.Equal(uint64(0x0102030405060708), packed)
}

func TestSelectDevice(t *testing.T) {

	assert := assert.New(t)

	dev, err := SelectDevice("/dev/custom", nil)
	assert.NoError(err)
	assert.Equal("/dev/custom", dev, "explicit selection wins")

	dev, err = SelectDevice(DeviceUSB, nil)
	assert.NoError(err)
	assert.Equal(DeviceUSB, dev)

	_, err = SelectDevice("", func(string) bool { return false })
	assert.ErrorIs(err, ErrNoDevice)

	seen := 0
	dev, err = SelectDevice("", func(string) bool {
		seen++
		return seen == 2
	})
	assert.NoError(err)
	assert.NotEmpty(dev)
	assert.Equal(2, seen, "stops at the first existing candidate")
}
