package rbtree

import (
	"maps"
	"sync"

	"github.com/Sumatoshi-tech/rbcore/pkg/safeconv"
)

// growCapacityNumerator and growCapacityDenominator define the 3/2 growth factor applied on Boot.
const (
	growCapacityNumerator   = 3
	growCapacityDenominator = 2
)

// linkColumns is the number of deinterleaved columns kept by a hibernated allocator:
// parent, left, right and color.
const linkColumns = 4

// nodeBytes is the resident size of one link record.
const nodeBytes = 13

// Allocator is the arena that owns the link records of one or more trees.
//
// Slot 0 is reserved for Nil. Freed slots are recycled before the storage grows.
// The tree core never calls Alloc or Free: allocation happens before Link and
// reclamation after Delete, both on the caller's side.
type Allocator struct {
	storage              []node
	gaps                 map[NodeID]bool
	hibernatedData       [linkColumns + 1][]byte
	HibernationThreshold int
	hibernatedStorageLen int
	hibernatedGapsLen    int
}

// NewAllocator creates an empty arena.
func NewAllocator() *Allocator {
	return &Allocator{
		storage: []node{},
		gaps:    map[NodeID]bool{},
	}
}

// Size returns the number of slots ever handed out, including the reserved one.
func (allocator *Allocator) Size() int {
	return len(allocator.storage)
}

// Used returns the number of slots currently in use, including the reserved one.
func (allocator *Allocator) Used() int {
	if allocator.storage == nil {
		panic("hibernated allocators cannot be used")
	}

	return len(allocator.storage) - len(allocator.gaps)
}

// Bytes returns the resident size of the link records.
func (allocator *Allocator) Bytes() uint64 {
	return uint64(cap(allocator.storage)) * nodeBytes
}

// HibernatedBytes returns the size of the compressed columns, zero unless hibernated.
func (allocator *Allocator) HibernatedBytes() uint64 {
	var total uint64

	for _, column := range allocator.hibernatedData {
		total += uint64(len(column))
	}

	return total
}

// Hibernated reports whether the storage is currently compressed.
func (allocator *Allocator) Hibernated() bool {
	return allocator.storage == nil
}

// Clone copies an existing allocator. Trees bound to the original can be
// rebound to the clone with Tree.CloneShallow.
func (allocator *Allocator) Clone() *Allocator {
	if allocator.storage == nil {
		panic("cannot clone a hibernated allocator")
	}

	clone := &Allocator{
		HibernationThreshold: allocator.HibernationThreshold,
		storage:              make([]node, len(allocator.storage), cap(allocator.storage)),
		gaps:                 make(map[NodeID]bool, len(allocator.gaps)),
	}
	copy(clone.storage, allocator.storage)
	maps.Copy(clone.gaps, allocator.gaps)

	return clone
}

// Alloc returns a fresh zeroed slot. Its color reads as Red, i.e. unset.
func (allocator *Allocator) Alloc() NodeID {
	if allocator.storage == nil {
		panic("hibernated allocators cannot be used")
	}

	for nodeIdx := range allocator.gaps {
		delete(allocator.gaps, nodeIdx)

		return nodeIdx
	}

	if len(allocator.storage) == 0 {
		// Zero is reserved.
		allocator.storage = append(allocator.storage, node{})
	}

	nodeLen := len(allocator.storage)
	if NodeID(safeconv.MustIntToUint32(nodeLen)) == maxNodeID {
		panic("the node arena has reached the maximum value for uint32")
	}

	allocator.storage = append(allocator.storage, node{})

	return NodeID(safeconv.MustIntToUint32(nodeLen))
}

// Free returns a detached slot to the arena.
func (allocator *Allocator) Free(nodeIdx NodeID) {
	if allocator.storage == nil {
		panic("hibernated allocators cannot be used")
	}

	if nodeIdx == Nil {
		panic("node #0 is special and cannot be deallocated")
	}

	doAssert(!allocator.gaps[nodeIdx])

	allocator.storage[nodeIdx] = node{}
	allocator.gaps[nodeIdx] = true
}

// Hibernate compresses the link records. The allocator cannot be used until Boot.
// Arenas smaller than HibernationThreshold are left untouched.
func (allocator *Allocator) Hibernate() {
	if allocator.hibernatedStorageLen > 0 {
		panic("cannot hibernate an already hibernated Allocator")
	}

	if len(allocator.storage) < allocator.HibernationThreshold {
		return
	}

	allocator.hibernatedStorageLen = len(allocator.storage)
	if allocator.hibernatedStorageLen == 0 {
		allocator.storage = nil

		return
	}

	columns := [linkColumns][]uint32{}

	for idx := range columns {
		columns[idx] = make([]uint32, len(allocator.storage))
	}

	// Deinterleaving groups similar values and compresses better.
	for idx, nd := range allocator.storage {
		columns[0][idx] = uint32(nd.parent)
		columns[1][idx] = uint32(nd.left)
		columns[2][idx] = uint32(nd.right)
		columns[3][idx] = uint32(nd.color)
	}

	allocator.storage = nil

	wg := &sync.WaitGroup{}
	wg.Add(len(columns) + 1)

	for idx, column := range columns {
		go func(colIdx int, col []uint32) {
			defer wg.Done()

			allocator.hibernatedData[colIdx] = CompressUInt32Slice(col)
		}(idx, column)
	}

	go func() {
		defer wg.Done()

		if len(allocator.gaps) > 0 {
			allocator.hibernatedGapsLen = len(allocator.gaps)

			gapsBuffer := make([]uint32, 0, len(allocator.gaps))
			for nodeIdx := range allocator.gaps {
				gapsBuffer = append(gapsBuffer, uint32(nodeIdx))
			}

			allocator.hibernatedData[linkColumns] = CompressUInt32Slice(gapsBuffer)
		}

		allocator.gaps = nil
	}()

	wg.Wait()
}

// Boot reverses Hibernate.
func (allocator *Allocator) Boot() {
	if allocator.storage == nil && allocator.hibernatedStorageLen == 0 {
		allocator.storage = []node{}
		allocator.gaps = map[NodeID]bool{}

		return
	}

	if allocator.hibernatedStorageLen == 0 {
		// Not hibernated.
		return
	}

	allocator.gaps = map[NodeID]bool{}
	columns := [linkColumns][]uint32{}

	wg := &sync.WaitGroup{}
	wg.Add(len(columns) + 1)

	for idx := range columns {
		go func(colIdx int) {
			defer wg.Done()

			columns[colIdx] = make([]uint32, allocator.hibernatedStorageLen)
			doAssert(DecompressUInt32Slice(allocator.hibernatedData[colIdx], columns[colIdx]))
			allocator.hibernatedData[colIdx] = nil
		}(idx)
	}

	go func() {
		defer wg.Done()

		if allocator.hibernatedGapsLen == 0 {
			return
		}

		buffer := make([]uint32, allocator.hibernatedGapsLen)
		doAssert(DecompressUInt32Slice(allocator.hibernatedData[linkColumns], buffer))

		for _, nodeIdx := range buffer {
			allocator.gaps[NodeID(nodeIdx)] = true
		}

		allocator.hibernatedData[linkColumns] = nil
		allocator.hibernatedGapsLen = 0
	}()

	wg.Wait()

	capSize := (allocator.hibernatedStorageLen * growCapacityNumerator) / growCapacityDenominator
	allocator.storage = make([]node, allocator.hibernatedStorageLen, capSize)

	for idx := range allocator.storage {
		nd := &allocator.storage[idx]
		nd.parent = NodeID(columns[0][idx])
		nd.left = NodeID(columns[1][idx])
		nd.right = NodeID(columns[2][idx])
		nd.color = Color(columns[3][idx])
	}

	allocator.hibernatedStorageLen = 0
}
