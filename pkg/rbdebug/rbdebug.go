// Package rbdebug walks and renders rbtree trees for diagnostics.
package rbdebug

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/fatih/color"

	"github.com/Sumatoshi-tech/rbcore/pkg/rbtree"
)

// Label renders the payload stored under a node.
type Label func(nodeIdx rbtree.NodeID) string

// First returns the leftmost node, Nil for an empty tree.
func First(tree *rbtree.Tree) rbtree.NodeID {
	nodeIdx := tree.Root()
	if nodeIdx == rbtree.Nil {
		return rbtree.Nil
	}

	for tree.Left(nodeIdx) != rbtree.Nil {
		nodeIdx = tree.Left(nodeIdx)
	}

	return nodeIdx
}

// Next returns the in-order successor of nodeIdx, Nil after the last node.
func Next(tree *rbtree.Tree, nodeIdx rbtree.NodeID) rbtree.NodeID {
	if right := tree.Right(nodeIdx); right != rbtree.Nil {
		nodeIdx = right
		for tree.Left(nodeIdx) != rbtree.Nil {
			nodeIdx = tree.Left(nodeIdx)
		}

		return nodeIdx
	}

	for {
		parent := tree.Parent(nodeIdx)
		if parent == rbtree.Nil || tree.Left(parent) == nodeIdx {
			return parent
		}

		nodeIdx = parent
	}
}

// InOrder calls visit for every node in ascending order until visit returns false.
func InOrder(tree *rbtree.Tree, visit func(nodeIdx rbtree.NodeID) bool) {
	for nodeIdx := First(tree); nodeIdx != rbtree.Nil; nodeIdx = Next(tree, nodeIdx) {
		if !visit(nodeIdx) {
			return
		}
	}
}

// Collect maps every node in ascending order through key.
func Collect[K any](tree *rbtree.Tree, key func(nodeIdx rbtree.NodeID) K) []K {
	result := make([]K, 0, tree.Len())

	InOrder(tree, func(nodeIdx rbtree.NodeID) bool {
		result = append(result, key(nodeIdx))

		return true
	})

	return result
}

// Height returns the number of nodes on the longest root-to-leaf path.
func Height(tree *rbtree.Tree) int {
	var depth func(rbtree.NodeID) int

	depth = func(nodeIdx rbtree.NodeID) int {
		if nodeIdx == rbtree.Nil {
			return 0
		}

		return 1 + max(depth(tree.Left(nodeIdx)), depth(tree.Right(nodeIdx)))
	}

	return depth(tree.Root())
}

// BlackHeight counts the black nodes on the leftmost path, root included.
// On a valid tree every path gives the same count.
func BlackHeight(tree *rbtree.Tree) int {
	count := 0

	for nodeIdx := tree.Root(); nodeIdx != rbtree.Nil; nodeIdx = tree.Left(nodeIdx) {
		if tree.Color(nodeIdx) == rbtree.Black {
			count++
		}
	}

	return count
}

// HeightBound is the worst-case height of a red-black tree with size nodes.
func HeightBound(size int) float64 {
	return 2 * math.Log2(float64(size+1))
}

var (
	redNode   = color.New(color.FgRed, color.Bold)
	blackNode = color.New(color.FgHiBlack, color.Bold)
	oddNode   = color.New(color.FgYellow, color.Bold)
)

func tag(tree *rbtree.Tree, nodeIdx rbtree.NodeID) string {
	switch nodeColor := tree.Color(nodeIdx); nodeColor {
	case rbtree.Red:
		return redNode.Sprint("RED")
	case rbtree.Black:
		return blackNode.Sprint("BLACK")
	default:
		return oddNode.Sprint(strings.ToUpper(nodeColor.String()))
	}
}

// Fprint draws the tree top-down, one node per line, left subtree first.
func Fprint(writer io.Writer, tree *rbtree.Tree, label Label) error {
	if tree.Root() == rbtree.Nil {
		_, err := fmt.Fprintln(writer, "<empty>")

		return err
	}

	return fprintNode(writer, tree, label, tree.Root(), "", "")
}

func fprintNode(writer io.Writer, tree *rbtree.Tree, label Label, nodeIdx rbtree.NodeID, branch, indent string) error {
	if _, err := fmt.Fprintf(writer, "%s%s (%s)\n", branch, label(nodeIdx), tag(tree, nodeIdx)); err != nil {
		return err
	}

	children := make([]rbtree.NodeID, 0, 2)

	for _, child := range []rbtree.NodeID{tree.Left(nodeIdx), tree.Right(nodeIdx)} {
		if child != rbtree.Nil {
			children = append(children, child)
		}
	}

	for idx, child := range children {
		nextBranch, nextIndent := "├── ", "│   "
		if idx == len(children)-1 {
			nextBranch, nextIndent = "└── ", "    "
		}

		if err := fprintNode(writer, tree, label, child, indent+nextBranch, indent+nextIndent); err != nil {
			return err
		}
	}

	return nil
}

// Outline prints the tree sideways: in-order, indented two spaces per level.
func Outline(writer io.Writer, tree *rbtree.Tree, label Label) error {
	var walk func(rbtree.NodeID, int) error

	walk = func(nodeIdx rbtree.NodeID, depth int) error {
		if nodeIdx == rbtree.Nil {
			return nil
		}

		if err := walk(tree.Left(nodeIdx), depth+1); err != nil {
			return err
		}

		_, err := fmt.Fprintf(writer, "%s%s (%s)\n", strings.Repeat("  ", depth), label(nodeIdx), tag(tree, nodeIdx))
		if err != nil {
			return err
		}

		return walk(tree.Right(nodeIdx), depth+1)
	}

	return walk(tree.Root(), 0)
}
