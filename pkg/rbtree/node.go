package rbtree

import "math"

// NodeID addresses a node inside an [Allocator]. Callers keep their payload
// in their own storage under the same NodeID.
type NodeID uint32

// Nil is the null node reference. It is never allocated and counts as black.
const Nil NodeID = 0

// maxNodeID is reserved so that storage indices always fit a NodeID.
const maxNodeID = NodeID(math.MaxUint32)

// Color is the balancing tag of a node.
type Color uint8

// Node colors. DoubleBlack only exists while Delete runs.
const (
	Red Color = iota
	Black
	DoubleBlack
)

// String returns the color name.
func (c Color) String() string {
	switch c {
	case Red:
		return "red"
	case Black:
		return "black"
	case DoubleBlack:
		return "double-black"
	default:
		return "unknown"
	}
}

// Dir selects a child slot.
type Dir uint8

// Child slots.
const (
	Left Dir = iota
	Right
)

func (dir Dir) opposite() Dir {
	return dir ^ 1
}

// String returns the slot name.
func (dir Dir) String() string {
	if dir == Left {
		return "left"
	}

	return "right"
}

type node struct {
	parent, left, right NodeID
	color               Color
}

func (nd *node) child(dir Dir) NodeID {
	if dir == Left {
		return nd.left
	}

	return nd.right
}

func (nd *node) setChild(dir Dir, child NodeID) {
	if dir == Left {
		nd.left = child
	} else {
		nd.right = child
	}
}

// redirect rewrites every link of nd that points at from so that it points at to.
func (nd *node) redirect(from, to NodeID) {
	if nd.parent == from {
		nd.parent = to
	}

	if nd.left == from {
		nd.left = to
	}

	if nd.right == from {
		nd.right = to
	}
}

func (nd *node) isLeaf() bool {
	return nd.left == Nil && nd.right == Nil
}

func doAssert(condition bool) {
	if !condition {
		panic("rbtree internal assertion failed")
	}
}
