package rbtree

import (
	"errors"
	"fmt"
)

// Structural violations reported by Verify.
var (
	ErrRootHasParent    = errors.New("root has a parent")
	ErrBrokenParentLink = errors.New("child does not point back to its parent")
	ErrRedRed           = errors.New("red node has a red child")
	ErrBlackHeight      = errors.New("black height differs between subtrees")
	ErrDoubleBlack      = errors.New("double-black node outside of deletion")
	ErrCountMismatch    = errors.New("reachable nodes differ from the tree length")
)

// Verify walks the whole tree and checks the balancing rules and link consistency.
// It returns nil for a valid tree, otherwise the first violation found.
func (tree *Tree) Verify() error {
	if tree.root == Nil {
		if tree.count != 0 {
			return fmt.Errorf("empty root with %d nodes: %w", tree.count, ErrCountMismatch)
		}

		return nil
	}

	if parent := tree.node(tree.root).parent; parent != Nil {
		return fmt.Errorf("root %d has parent %d: %w", tree.root, parent, ErrRootHasParent)
	}

	walker := verifier{tree: tree}

	if _, err := walker.check(tree.root); err != nil {
		return err
	}

	if walker.visited != tree.count {
		return fmt.Errorf("reached %d nodes, expected %d: %w", walker.visited, tree.count, ErrCountMismatch)
	}

	return nil
}

type verifier struct {
	tree    *Tree
	visited int
}

// check returns the black height of the subtree rooted at nodeIdx.
// Every child must point back at its parent, so no node is entered twice.
func (v *verifier) check(nodeIdx NodeID) (int, error) {
	if nodeIdx == Nil {
		return 0, nil
	}

	v.visited++

	nd := v.tree.node(nodeIdx)
	if nd.color == DoubleBlack {
		return 0, fmt.Errorf("node %d: %w", nodeIdx, ErrDoubleBlack)
	}

	heights := [2]int{}

	for _, dir := range [2]Dir{Left, Right} {
		child := nd.child(dir)
		if child == Nil {
			continue
		}

		childNode := v.tree.node(child)
		if childNode.parent != nodeIdx {
			return 0, fmt.Errorf("node %d %s child %d points to %d: %w",
				nodeIdx, dir, child, childNode.parent, ErrBrokenParentLink)
		}

		if nd.color == Red && childNode.color == Red {
			return 0, fmt.Errorf("node %d %s child %d: %w", nodeIdx, dir, child, ErrRedRed)
		}

		height, err := v.check(child)
		if err != nil {
			return 0, err
		}

		heights[dir] = height
	}

	if heights[Left] != heights[Right] {
		return 0, fmt.Errorf("node %d left %d right %d: %w", nodeIdx, heights[Left], heights[Right], ErrBlackHeight)
	}

	if nd.color == Black {
		return heights[Left] + 1, nil
	}

	return heights[Left], nil
}
