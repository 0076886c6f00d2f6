package rbtree //nolint:testpackage // fixup cases and swap are unexported.

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	colors := []Color{Red, Black}

	for _, sibling := range colors {
		for _, near := range colors {
			for _, far := range colors {
				got := classify(sibling, near, far)

				switch {
				case sibling == Red:
					assert.Equal(t, caseRedSibling, got)
				case far == Red:
					assert.Equal(t, caseFarRedNephew, got)
				case near == Red:
					assert.Equal(t, caseNearRedNephew, got)
				default:
					assert.Equal(t, caseBlackNephews, got)
				}
			}
		}
	}

	assert.Equal(t, "near-red-nephew", caseNearRedNephew.String())
	assert.Equal(t, "unknown", fixupCase(9).String())
}

func TestDeleteFixupCases(t *testing.T) {
	t.Parallel()

	type mounted struct {
		key, parent int
		dir         Dir
		color       Color
	}

	tests := []struct {
		name   string
		nodes  []mounted
		target int
		want   Stats
		keys   []int
	}{
		{
			name: "far red nephew",
			nodes: []mounted{
				{20, 0, Left, Black}, {10, 20, Left, Black}, {30, 20, Right, Black}, {40, 30, Right, Red},
			},
			target: 10,
			want:   Stats{FarRedNephew: 1, Rotations: 1},
			keys:   []int{20, 30, 40},
		},
		{
			name: "near red nephew",
			nodes: []mounted{
				{20, 0, Left, Black}, {10, 20, Left, Black}, {30, 20, Right, Black}, {25, 30, Left, Red},
			},
			target: 10,
			want:   Stats{NearRedNephew: 1, FarRedNephew: 1, Rotations: 2},
			keys:   []int{20, 25, 30},
		},
		{
			name: "black nephews under red parent",
			nodes: []mounted{
				{20, 0, Left, Black},
				{10, 20, Left, Red}, {5, 10, Left, Black}, {15, 10, Right, Black},
				{30, 20, Right, Red}, {25, 30, Left, Black}, {35, 30, Right, Black},
			},
			target: 5,
			want:   Stats{BlackNephews: 1},
			keys:   []int{10, 15, 20, 25, 30, 35},
		},
		{
			name:   "black nephews propagate to root",
			nodes:  []mounted{{20, 0, Left, Black}, {10, 20, Left, Black}, {30, 20, Right, Black}},
			target: 10,
			want:   Stats{BlackNephews: 1},
			keys:   []int{20, 30},
		},
		{
			name: "red sibling",
			nodes: []mounted{
				{20, 0, Left, Black}, {10, 20, Left, Black},
				{30, 20, Right, Red}, {25, 30, Left, Black}, {35, 30, Right, Black},
			},
			target: 10,
			want:   Stats{RedSibling: 1, BlackNephews: 1, Rotations: 1},
			keys:   []int{20, 25, 30, 35},
		},
		{
			name:   "red leaf",
			nodes:  []mounted{{20, 0, Left, Black}, {10, 20, Left, Red}},
			target: 10,
			want:   Stats{},
			keys:   []int{20},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			set := newIntSet()
			for _, nd := range tt.nodes {
				set.mount(nd.key, nd.parent, nd.dir, nd.color)
			}

			require.NoError(t, set.tree.Verify())

			before := set.tree.Stats()

			require.True(t, set.remove(tt.target))
			require.NoError(t, set.tree.Verify())
			assert.Equal(t, tt.keys, set.inOrder())

			delta := set.tree.Stats().Sub(before)
			delta.Deletes = 0
			assert.Equal(t, tt.want, delta)
		})
	}
}

func TestDeletePropagationRecolorsRoot(t *testing.T) {
	t.Parallel()

	set := newIntSet()
	set.mount(20, 0, Left, Black)
	set.mount(10, 20, Left, Black)
	set.mount(30, 20, Right, Black)

	require.True(t, set.remove(10))

	root := set.tree.Root()
	assert.Equal(t, 20, set.keys[root])
	assert.Equal(t, Black, set.tree.Color(root))
	assert.Equal(t, Red, set.tree.Color(set.id(30)))
}

func TestSwapParentChild(t *testing.T) {
	t.Parallel()

	for _, order := range []string{"parent first", "child first"} {
		t.Run(order, func(t *testing.T) {
			t.Parallel()

			set := newIntSet()
			set.mount(20, 0, Left, Black)
			set.mount(10, 20, Left, Red)
			set.mount(30, 20, Right, Red)
			set.mount(5, 10, Left, Black)

			top, bottom := set.id(20), set.id(10)
			if order == "child first" {
				set.tree.swap(bottom, top)
			} else {
				set.tree.swap(top, bottom)
			}

			tree := set.tree
			assert.Equal(t, bottom, tree.Root())
			assert.Equal(t, Nil, tree.Parent(bottom))
			assert.Equal(t, top, tree.Left(bottom))
			assert.Equal(t, set.id(30), tree.Right(bottom))
			assert.Equal(t, bottom, tree.Parent(top))
			assert.Equal(t, set.id(5), tree.Left(top))
			assert.Equal(t, Nil, tree.Right(top))
			assert.Equal(t, top, tree.Parent(set.id(5)))
			assert.Equal(t, bottom, tree.Parent(set.id(30)))
			assert.Equal(t, Black, tree.Color(bottom))
			assert.Equal(t, Red, tree.Color(top))
			assert.Equal(t, uint64(1), tree.Stats().Swaps)
		})
	}
}

func TestSwapSiblings(t *testing.T) {
	t.Parallel()

	set := newIntSet()
	set.mount(20, 0, Left, Black)
	left := set.mount(10, 20, Left, Black)
	right := set.mount(30, 20, Right, Black)
	set.mount(35, 30, Right, Red)

	set.tree.swap(left, right)

	tree := set.tree
	root := tree.Root()
	assert.Equal(t, right, tree.Left(root))
	assert.Equal(t, left, tree.Right(root))
	assert.Equal(t, root, tree.Parent(left))
	assert.Equal(t, root, tree.Parent(right))
	assert.Equal(t, 35, set.keys[tree.Right(left)])
	assert.Equal(t, left, tree.Parent(tree.Right(left)))
	assert.Equal(t, Nil, tree.Right(right))
}

func TestSwapDistant(t *testing.T) {
	t.Parallel()

	set := newIntSet()
	for _, key := range []int{50, 25, 75, 10, 30, 60, 90, 27} {
		set.insert(key)
	}

	keysBefore := set.inOrder()
	a, b := set.id(10), set.id(90)
	parentA, parentB := set.tree.Parent(a), set.tree.Parent(b)
	colorA, colorB := set.tree.Color(a), set.tree.Color(b)

	set.tree.swap(a, b)
	// Swapping the keys as well restores the order, proving only positions moved.
	set.keys[a], set.keys[b] = set.keys[b], set.keys[a]

	assert.Equal(t, keysBefore, set.inOrder())
	assert.Equal(t, parentA, set.tree.Parent(b))
	assert.Equal(t, parentB, set.tree.Parent(a))
	assert.Equal(t, colorA, set.tree.Color(b))
	assert.Equal(t, colorB, set.tree.Color(a))
	require.NoError(t, set.tree.Verify())
}

func TestSwapSelf(t *testing.T) {
	t.Parallel()

	set := newIntSet()
	set.insert(1)

	root := set.tree.Root()
	set.tree.swap(root, root)
	assert.Equal(t, root, set.tree.Root())
	assert.Equal(t, uint64(0), set.tree.Stats().Swaps)
}
