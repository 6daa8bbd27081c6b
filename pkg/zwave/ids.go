package zwave

import (
	"fmt"
	"strconv"
	"strings"
)

// HomeID identifies the network of a single controller.
type HomeID uint32

func (h HomeID) String() string {
	return fmt.Sprintf("%08x", uint32(h))
}

type NodeID uint8

type NodeKey struct {
	HomeID HomeID
	NodeID NodeID
}

func (k NodeKey) String() string {
	return fmt.Sprintf("%s:%03d", k.HomeID, k.NodeID)
}

// Compare orders node keys by home id then node id.
func (k NodeKey) Compare(o NodeKey) int {
	switch {
	case k.HomeID < o.HomeID:
		return -1
	case k.HomeID > o.HomeID:
		return 1
	case k.NodeID < o.NodeID:
		return -1
	case k.NodeID > o.NodeID:
		return 1
	}
	return 0
}

type Genre uint8

const (
	GenreBasic Genre = iota
	GenreUser
	GenreConfig
	GenreSystem
)

func (g Genre) String() string {
	switch g {
	case GenreBasic:
		return "basic"
	case GenreUser:
		return "user"
	case GenreConfig:
		return "config"
	case GenreSystem:
		return "system"
	default:
		return "unknown"
	}
}

type ValueType uint8

const (
	ValueTypeBool ValueType = iota
	ValueTypeByte
	ValueTypeDecimal
	ValueTypeInt
	ValueTypeList
	ValueTypeSchedule
	ValueTypeShort
	ValueTypeString
	ValueTypeButton
	ValueTypeRaw
)

func (t ValueType) String() string {
	names := [...]string{"bool", "byte", "decimal", "int", "list", "schedule", "short", "string", "button", "raw"}
	if int(t) < len(names) {
		return names[t]
	}
	return "unknown"
}

// ValueID is the packed identity of a node attribute. ID layout:
//
//	bits 56-63 instance
//	bits 24-31 node id
//	bits 22-23 genre
//	bits 14-21 command class
//	bits  4-11 index
//	bits  0-3  value type
type ValueID struct {
	HomeID HomeID
	ID     uint64
}

func PackValueID(home HomeID, node NodeID, genre Genre, commandClass uint8, instance uint8, index uint8, valueType ValueType) ValueID {
	low := uint64(node)<<24 |
		uint64(genre&0x03)<<22 |
		uint64(commandClass)<<14 |
		uint64(index)<<4 |
		uint64(valueType&0x0f)
	return ValueID{
		HomeID: home,
		ID:     uint64(instance)<<56 | low,
	}
}

func (v ValueID) NodeID() NodeID {
	return NodeID(v.ID >> 24)
}

func (v ValueID) NodeKey() NodeKey {
	return NodeKey{HomeID: v.HomeID, NodeID: v.NodeID()}
}

func (v ValueID) Genre() Genre {
	return Genre((v.ID >> 22) & 0x03)
}

func (v ValueID) CommandClass() uint8 {
	return uint8(v.ID >> 14)
}

func (v ValueID) Instance() uint8 {
	return uint8(v.ID >> 56)
}

func (v ValueID) Index() uint8 {
	return uint8(v.ID >> 4)
}

func (v ValueID) Type() ValueType {
	return ValueType(v.ID & 0x0f)
}

func (v ValueID) String() string {
	return fmt.Sprintf("%s:%016x", v.HomeID, v.ID)
}

// Compare orders value ids by home id then packed id.
func (v ValueID) Compare(o ValueID) int {
	switch {
	case v.HomeID < o.HomeID:
		return -1
	case v.HomeID > o.HomeID:
		return 1
	case v.ID < o.ID:
		return -1
	case v.ID > o.ID:
		return 1
	}
	return 0
}

type Node struct {
	HomeID       HomeID
	NodeID       NodeID
	Name         string
	Manufacturer string
	Product      string
	Type         string
}

func (n Node) Key() NodeKey {
	return NodeKey{HomeID: n.HomeID, NodeID: n.NodeID}
}

type Value struct {
	ID      ValueID
	Label   string
	Units   string
	Content string
}

func (v Value) Genre() Genre {
	return v.ID.Genre()
}

// ParseHomeID parses a base-16 home id, with or without a 0x prefix.
func ParseHomeID(s string) (HomeID, error) {
	n, err := strconv.ParseUint(trimHex(s), 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid home id %q: %w", s, err)
	}
	return HomeID(n), nil
}

// ParseNodeID parses a base-16 node id.
func ParseNodeID(s string) (NodeID, error) {
	n, err := strconv.ParseUint(trimHex(s), 16, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid node id %q: %w", s, err)
	}
	return NodeID(n), nil
}

// ParsePackedID parses the base-16 packed part of a value id.
func ParsePackedID(s string) (uint64, error) {
	n, err := strconv.ParseUint(trimHex(s), 16, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value id %q: %w", s, err)
	}
	return n, nil
}

func trimHex(s string) string {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return s[2:]
	}
	return s
}
