package rbtree

// InsertFixup colors a freshly linked leaf red and restores the balancing
// rules on the path above it.
//
// A subject on the outer side of its red parent lifts the parent over the
// grandparent and turns black, and the lifted parent becomes the subject.
// A subject on the inner side lifts itself over the parent, which turns the
// neighborhood into the outer shape for the next round.
func (tree *Tree) InsertFixup(nodeIdx NodeID) {
	nd := tree.node(nodeIdx)
	doAssert(nd.isLeaf())

	nd.color = Red
	tree.stats.InsertFixups++

	subject := nodeIdx

	for {
		parent := tree.node(subject).parent
		if parent == Nil || tree.node(parent).color != Red {
			break
		}

		grand := tree.node(parent).parent
		doAssert(grand != Nil)

		if tree.sideOf(subject) == tree.sideOf(parent) {
			tree.rotateUp(parent)
			tree.node(subject).color = Black
			subject = parent

			continue
		}

		tree.rotateUp(subject)
		subject = parent
	}

	if tree.node(subject).parent == Nil {
		tree.node(subject).color = Black
	}
}
