// Package rbtree implements the structural core of an intrusive red-black tree
// over an index arena.
//
// The tree never compares keys. A caller locates an empty slot with its own
// ordered search, links a freshly allocated node there and calls InsertFixup.
// To remove, the caller locates the node and calls Delete, then returns the
// NodeID to the Allocator. Payload lives in caller storage addressed by the
// same NodeID, so only link fields ever move.
//
// A Tree is not safe for concurrent use. Trees on distinct allocators are
// independent.
package rbtree

// Stats counts the structural work performed by a Tree.
type Stats struct {
	Links         uint64
	InsertFixups  uint64
	Deletes       uint64
	Rotations     uint64
	Swaps         uint64
	RedSibling    uint64
	BlackNephews  uint64
	NearRedNephew uint64
	FarRedNephew  uint64
}

// Sub returns the counters accumulated since prev.
func (stats Stats) Sub(prev Stats) Stats {
	return Stats{
		Links:         stats.Links - prev.Links,
		InsertFixups:  stats.InsertFixups - prev.InsertFixups,
		Deletes:       stats.Deletes - prev.Deletes,
		Rotations:     stats.Rotations - prev.Rotations,
		Swaps:         stats.Swaps - prev.Swaps,
		RedSibling:    stats.RedSibling - prev.RedSibling,
		BlackNephews:  stats.BlackNephews - prev.BlackNephews,
		NearRedNephew: stats.NearRedNephew - prev.NearRedNephew,
		FarRedNephew:  stats.FarRedNephew - prev.FarRedNephew,
	}
}

// Tree is the root handle of one red-black tree.
type Tree struct {
	allocator *Allocator
	root      NodeID
	count     int
	stats     Stats
}

// NewTree creates an empty tree whose nodes live in allocator.
func NewTree(allocator *Allocator) *Tree {
	return &Tree{allocator: allocator}
}

// CloneShallow binds a copy of the tree handle to another allocator, normally a Clone of the original.
func (tree *Tree) CloneShallow(allocator *Allocator) *Tree {
	return &Tree{
		allocator: allocator,
		root:      tree.root,
		count:     tree.count,
		stats:     tree.stats,
	}
}

// Allocator returns the arena backing the tree.
func (tree *Tree) Allocator() *Allocator {
	return tree.allocator
}

// Root returns the root node, Nil if the tree is empty.
func (tree *Tree) Root() NodeID {
	return tree.root
}

// Len returns the number of linked nodes.
func (tree *Tree) Len() int {
	return tree.count
}

// Stats returns the structural counters.
func (tree *Tree) Stats() Stats {
	return tree.stats
}

// Reset forgets every node without touching the allocator.
func (tree *Tree) Reset() {
	tree.root = Nil
	tree.count = 0
}

// Parent returns the parent of nodeIdx, Nil for the root.
func (tree *Tree) Parent(nodeIdx NodeID) NodeID {
	return tree.node(nodeIdx).parent
}

// Left returns the left child of nodeIdx.
func (tree *Tree) Left(nodeIdx NodeID) NodeID {
	return tree.node(nodeIdx).left
}

// Right returns the right child of nodeIdx.
func (tree *Tree) Right(nodeIdx NodeID) NodeID {
	return tree.node(nodeIdx).right
}

// Child returns the child of nodeIdx in the given slot.
func (tree *Tree) Child(nodeIdx NodeID, dir Dir) NodeID {
	return tree.node(nodeIdx).child(dir)
}

// Color returns the color of nodeIdx. Nil is black.
func (tree *Tree) Color(nodeIdx NodeID) Color {
	if nodeIdx == Nil {
		return Black
	}

	return tree.node(nodeIdx).color
}

// Link attaches nodeIdx as a leaf into the empty slot dir of parent, or into
// the root slot when parent is Nil. The color is left for InsertFixup.
func (tree *Tree) Link(nodeIdx, parent NodeID, dir Dir) {
	doAssert(nodeIdx != Nil)

	if parent == Nil {
		doAssert(tree.root == Nil)
		tree.root = nodeIdx
	} else {
		parentNode := tree.node(parent)
		doAssert(parentNode.child(dir) == Nil)
		parentNode.setChild(dir, nodeIdx)
	}

	nd := tree.node(nodeIdx)
	nd.parent = parent
	nd.left = Nil
	nd.right = Nil

	tree.count++
	tree.stats.Links++
}

func (tree *Tree) node(nodeIdx NodeID) *node {
	return &tree.allocator.storage[nodeIdx]
}

// sideOf returns the slot of its parent that nodeIdx occupies.
func (tree *Tree) sideOf(nodeIdx NodeID) Dir {
	parent := tree.node(nodeIdx).parent
	doAssert(parent != Nil)

	if tree.node(parent).left == nodeIdx {
		return Left
	}

	doAssert(tree.node(parent).right == nodeIdx)

	return Right
}

// replaceChild points the slot of parent holding old at replacement.
// Parent Nil stands for the root slot.
func (tree *Tree) replaceChild(parent, old, replacement NodeID) {
	if parent == Nil {
		doAssert(tree.root == old)
		tree.root = replacement

		return
	}

	parentNode := tree.node(parent)

	switch old {
	case parentNode.left:
		parentNode.left = replacement
	case parentNode.right:
		parentNode.right = replacement
	default:
		doAssert(false)
	}
}

// extreme descends from nodeIdx along dir until the slot is empty.
func (tree *Tree) extreme(nodeIdx NodeID, dir Dir) NodeID {
	for {
		next := tree.node(nodeIdx).child(dir)
		if next == Nil {
			return nodeIdx
		}

		nodeIdx = next
	}
}
