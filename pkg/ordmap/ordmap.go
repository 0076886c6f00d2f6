// Package ordmap is an ordered map built on the rbtree core. It owns the
// search that the core leaves to its callers and keeps keys and values in a
// slice addressed by the same NodeID as the link records.
package ordmap

import (
	"cmp"

	"github.com/Sumatoshi-tech/rbcore/pkg/rbtree"
)

type entry[K cmp.Ordered, V any] struct {
	key   K
	value V
}

// Map is an ordered map with unique keys. It is not safe for concurrent use.
type Map[K cmp.Ordered, V any] struct {
	tree    *rbtree.Tree
	entries []entry[K, V]
}

// New creates an empty map whose nodes live in allocator.
func New[K cmp.Ordered, V any](allocator *rbtree.Allocator) *Map[K, V] {
	return &Map[K, V]{tree: rbtree.NewTree(allocator)}
}

// Tree exposes the underlying tree for inspection.
func (m *Map[K, V]) Tree() *rbtree.Tree {
	return m.tree
}

// Len returns the number of keys.
func (m *Map[K, V]) Len() int {
	return m.tree.Len()
}

// Stats returns the structural counters of the underlying tree.
func (m *Map[K, V]) Stats() rbtree.Stats {
	return m.tree.Stats()
}

// Key returns the key stored under nodeIdx.
func (m *Map[K, V]) Key(nodeIdx rbtree.NodeID) K {
	return m.entries[nodeIdx].key
}

// Value returns the value stored under nodeIdx.
func (m *Map[K, V]) Value(nodeIdx rbtree.NodeID) V {
	return m.entries[nodeIdx].value
}

// search returns the node holding key. When the key is absent it returns Nil
// together with the empty slot where the key belongs.
func (m *Map[K, V]) search(key K) (found, parent rbtree.NodeID, dir rbtree.Dir) {
	current := m.tree.Root()

	for current != rbtree.Nil {
		switch cmp.Compare(key, m.entries[current].key) {
		case -1:
			parent, dir = current, rbtree.Left
		case 1:
			parent, dir = current, rbtree.Right
		default:
			return current, parent, dir
		}

		current = m.tree.Child(current, dir)
	}

	return rbtree.Nil, parent, dir
}

// Find returns the node holding key, Nil if absent.
func (m *Map[K, V]) Find(key K) rbtree.NodeID {
	found, _, _ := m.search(key)

	return found
}

// Insert adds key with value. It returns false and leaves the map unchanged
// when the key already exists.
func (m *Map[K, V]) Insert(key K, value V) bool {
	found, parent, dir := m.search(key)
	if found != rbtree.Nil {
		return false
	}

	nodeIdx := m.tree.Allocator().Alloc()
	if int(nodeIdx) >= len(m.entries) {
		m.entries = append(m.entries, make([]entry[K, V], int(nodeIdx)+1-len(m.entries))...)
	}

	m.entries[nodeIdx] = entry[K, V]{key: key, value: value}
	m.tree.Link(nodeIdx, parent, dir)
	m.tree.InsertFixup(nodeIdx)

	return true
}

// Get returns the value stored under key.
func (m *Map[K, V]) Get(key K) (V, bool) {
	found, _, _ := m.search(key)
	if found == rbtree.Nil {
		var zero V

		return zero, false
	}

	return m.entries[found].value, true
}

// Has reports whether key is present.
func (m *Map[K, V]) Has(key K) bool {
	return m.Find(key) != rbtree.Nil
}

// Delete removes key. It returns false and leaves the tree untouched when the key is absent.
func (m *Map[K, V]) Delete(key K) bool {
	found, _, _ := m.search(key)
	if found == rbtree.Nil {
		return false
	}

	m.tree.Delete(found)
	m.tree.Allocator().Free(found)
	m.entries[found] = entry[K, V]{}

	return true
}

// Clear removes every key and returns the nodes to the allocator.
func (m *Map[K, V]) Clear() {
	if m.tree.Root() == rbtree.Nil {
		return
	}

	allocator := m.tree.Allocator()
	stack := []rbtree.NodeID{m.tree.Root()}

	for len(stack) > 0 {
		nodeIdx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if left := m.tree.Left(nodeIdx); left != rbtree.Nil {
			stack = append(stack, left)
		}

		if right := m.tree.Right(nodeIdx); right != rbtree.Nil {
			stack = append(stack, right)
		}

		m.entries[nodeIdx] = entry[K, V]{}
		allocator.Free(nodeIdx)
	}

	m.tree.Reset()
}

// Clone returns an independent copy backed by a clone of the allocator.
func (m *Map[K, V]) Clone() *Map[K, V] {
	entries := make([]entry[K, V], len(m.entries))
	copy(entries, m.entries)

	return &Map[K, V]{
		tree:    m.tree.CloneShallow(m.tree.Allocator().Clone()),
		entries: entries,
	}
}
