package rbdebug_test

import (
	"bytes"
	"errors"
	"os"
	"strconv"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/rbcore/pkg/ordmap"
	"github.com/Sumatoshi-tech/rbcore/pkg/rbdebug"
	"github.com/Sumatoshi-tech/rbcore/pkg/rbtree"
)

func TestMain(m *testing.M) {
	color.NoColor = true //nolint:reassign // golden output is uncolored

	os.Exit(m.Run())
}

func sampleMap() *ordmap.Map[int, struct{}] {
	m := ordmap.New[int, struct{}](rbtree.NewAllocator())
	for _, key := range []int{10, 20, 30, 15, 25, 5, 1, 8, 7} {
		m.Insert(key, struct{}{})
	}

	return m
}

func labelOf(m *ordmap.Map[int, struct{}]) rbdebug.Label {
	return func(nodeIdx rbtree.NodeID) string {
		return strconv.Itoa(m.Key(nodeIdx))
	}
}

func TestTraversal(t *testing.T) {
	t.Parallel()

	m := sampleMap()
	tree := m.Tree()

	assert.Equal(t, []int{1, 5, 7, 8, 10, 15, 20, 25, 30}, rbdebug.Collect(tree, m.Key))
	assert.Equal(t, 1, m.Key(rbdebug.First(tree)))
	assert.Equal(t, 4, rbdebug.Height(tree))
	assert.Equal(t, 3, rbdebug.BlackHeight(tree))

	visited := []int{}
	rbdebug.InOrder(tree, func(nodeIdx rbtree.NodeID) bool {
		visited = append(visited, m.Key(nodeIdx))

		return len(visited) < 3
	})
	assert.Equal(t, []int{1, 5, 7}, visited)
}

func TestTraversalEmpty(t *testing.T) {
	t.Parallel()

	tree := rbtree.NewTree(rbtree.NewAllocator())
	assert.Equal(t, rbtree.Nil, rbdebug.First(tree))
	assert.Empty(t, rbdebug.Collect(tree, func(nodeIdx rbtree.NodeID) rbtree.NodeID { return nodeIdx }))
	assert.Zero(t, rbdebug.Height(tree))
	assert.Zero(t, rbdebug.BlackHeight(tree))
}

func TestHeightBound(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 0.0, rbdebug.HeightBound(0), 1e-9)
	assert.InDelta(t, 2.0, rbdebug.HeightBound(1), 1e-9)
	assert.InDelta(t, 6.0, rbdebug.HeightBound(7), 1e-9)
}

func TestFprint(t *testing.T) {
	t.Parallel()

	m := sampleMap()

	var buf bytes.Buffer
	require.NoError(t, rbdebug.Fprint(&buf, m.Tree(), labelOf(m)))

	want := `8 (BLACK)
├── 5 (BLACK)
│   ├── 1 (BLACK)
│   └── 7 (BLACK)
└── 20 (BLACK)
    ├── 10 (BLACK)
    │   └── 15 (RED)
    └── 30 (BLACK)
        └── 25 (RED)
`
	assert.Equal(t, want, buf.String())

	buf.Reset()
	require.NoError(t, rbdebug.Fprint(&buf, rbtree.NewTree(rbtree.NewAllocator()), labelOf(m)))
	assert.Equal(t, "<empty>\n", buf.String())
}

func TestOutline(t *testing.T) {
	t.Parallel()

	m := sampleMap()

	var buf bytes.Buffer
	require.NoError(t, rbdebug.Outline(&buf, m.Tree(), labelOf(m)))

	want := `    1 (BLACK)
  5 (BLACK)
    7 (BLACK)
8 (BLACK)
    10 (BLACK)
      15 (RED)
  20 (BLACK)
      25 (RED)
    30 (BLACK)
`
	assert.Equal(t, want, buf.String())
}

type failingWriter struct{}

var errWrite = errors.New("write failed")

func (failingWriter) Write([]byte) (int, error) {
	return 0, errWrite
}

func TestFprintWriteError(t *testing.T) {
	t.Parallel()

	m := sampleMap()
	require.ErrorIs(t, rbdebug.Fprint(failingWriter{}, m.Tree(), labelOf(m)), errWrite)
	require.ErrorIs(t, rbdebug.Outline(failingWriter{}, m.Tree(), labelOf(m)), errWrite)
}
