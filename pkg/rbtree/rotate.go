package rbtree

// rotateUp promotes pivot over its parent. The pivot's inner child moves
// under the old parent, and the pivot takes the old parent's slot.
//
//	      gp                p
//	     /  \              / \
//	    p    c    ==>     a   gp
//	   / \                   /  \
//	  a   inner          inner   c
func (tree *Tree) rotateUp(pivot NodeID) {
	pivotNode := tree.node(pivot)
	grand := pivotNode.parent
	doAssert(grand != Nil)

	side := tree.sideOf(pivot)
	grandNode := tree.node(grand)
	inner := pivotNode.child(side.opposite())

	grandNode.setChild(side, inner)

	if inner != Nil {
		tree.node(inner).parent = grand
	}

	great := grandNode.parent
	tree.replaceChild(great, grand, pivot)
	pivotNode.parent = great
	pivotNode.setChild(side.opposite(), grand)
	grandNode.parent = pivot

	tree.stats.Rotations++
}

// rotateRight promotes the left child pivot over its parent.
func (tree *Tree) rotateRight(pivot NodeID) {
	doAssert(tree.sideOf(pivot) == Left)
	tree.rotateUp(pivot)
}

// rotateLeft promotes the right child pivot over its parent.
func (tree *Tree) rotateLeft(pivot NodeID) {
	doAssert(tree.sideOf(pivot) == Right)
	tree.rotateUp(pivot)
}
