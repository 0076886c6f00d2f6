package rbtree

// fixupCase names the shape of a double-black neighborhood.
type fixupCase uint8

const (
	// caseRedSibling lifts a red sibling so that the sibling turns black.
	caseRedSibling fixupCase = iota
	// caseBlackNephews pushes the deficiency to the parent.
	caseBlackNephews
	// caseNearRedNephew lifts the near nephew so that it becomes a far one.
	caseNearRedNephew
	// caseFarRedNephew lifts the sibling and absorbs the deficiency.
	caseFarRedNephew
)

func (fc fixupCase) String() string {
	switch fc {
	case caseRedSibling:
		return "red-sibling"
	case caseBlackNephews:
		return "black-nephews"
	case caseNearRedNephew:
		return "near-red-nephew"
	case caseFarRedNephew:
		return "far-red-nephew"
	default:
		return "unknown"
	}
}

// classify picks the fixup case from the colors around a double-black node.
// Every combination maps to exactly one case.
func classify(sibling, near, far Color) fixupCase {
	switch {
	case sibling == Red:
		return caseRedSibling
	case far == Red:
		return caseFarRedNephew
	case near == Red:
		return caseNearRedNephew
	default:
		return caseBlackNephews
	}
}

// neighborhood is the set of nodes a single fixup step reads.
type neighborhood struct {
	parent, sibling, near, far NodeID
	side                       Dir
}

func (tree *Tree) neighborhoodOf(current NodeID) neighborhood {
	side := tree.sideOf(current)
	parent := tree.node(current).parent
	sibling := tree.node(parent).child(side.opposite())
	// A double-black node always has a real sibling.
	doAssert(sibling != Nil)

	siblingNode := tree.node(sibling)

	return neighborhood{
		parent:  parent,
		sibling: sibling,
		near:    siblingNode.child(side),
		far:     siblingNode.child(side.opposite()),
		side:    side,
	}
}

// Delete detaches nodeIdx from the tree and rebalances the remainder.
// The node must be linked in this tree. Its link fields are garbage afterwards;
// the caller owns the slot and normally passes it to Allocator.Free.
func (tree *Tree) Delete(nodeIdx NodeID) {
	doAssert(nodeIdx != Nil)

	tree.stats.Deletes++

	for {
		nd := tree.node(nodeIdx)
		if nd.isLeaf() {
			break
		}

		if nd.right != Nil {
			tree.swap(nodeIdx, tree.extreme(nd.right, Left))
		} else {
			tree.swap(nodeIdx, tree.extreme(nd.left, Right))
		}
	}

	if tree.node(nodeIdx).color == Black {
		tree.node(nodeIdx).color = DoubleBlack

		current := nodeIdx
		for tree.node(current).color == DoubleBlack && tree.node(current).parent != Nil {
			current = tree.fixupStep(current)
		}

		if tree.node(current).parent == Nil {
			tree.node(current).color = Black
		}
	}

	tree.replaceChild(tree.node(nodeIdx).parent, nodeIdx, Nil)
	tree.count--
}

// fixupStep resolves one round of the double-black walk and returns the next current node.
func (tree *Tree) fixupStep(current NodeID) NodeID {
	hood := tree.neighborhoodOf(current)
	parentNode := tree.node(hood.parent)

	switch classify(tree.Color(hood.sibling), tree.Color(hood.near), tree.Color(hood.far)) {
	case caseRedSibling:
		tree.stats.RedSibling++
		parentNode.color = Red
		tree.node(hood.sibling).color = Black
		tree.rotateUp(hood.sibling)

		return current
	case caseBlackNephews:
		tree.stats.BlackNephews++
		tree.node(hood.sibling).color = Red
		// Red absorbs the deficiency, black passes it on.
		parentNode.color++
		tree.node(current).color = Black

		return hood.parent
	case caseNearRedNephew:
		tree.stats.NearRedNephew++
		tree.node(hood.near).color = Black
		tree.node(hood.sibling).color = Red
		tree.rotateUp(hood.near)
		hood.far = hood.sibling
		hood.sibling = hood.near

		fallthrough
	case caseFarRedNephew:
		tree.stats.FarRedNephew++
		tree.node(hood.sibling).color = parentNode.color
		parentNode.color = Black
		tree.node(hood.far).color = Black
		tree.rotateUp(hood.sibling)
		tree.node(current).color = Black

		return current
	}

	doAssert(false)

	return current
}

// swap exchanges the tree positions of a and b. Adjacent nodes are handled
// by redirecting the links that would otherwise point at themselves.
func (tree *Tree) swap(a, b NodeID) {
	if a == b {
		return
	}

	aNode, bNode := tree.node(a), tree.node(b)

	aSide, bSide := Left, Left
	if aNode.parent != Nil {
		aSide = tree.sideOf(a)
	}

	if bNode.parent != Nil {
		bSide = tree.sideOf(b)
	}

	*aNode, *bNode = *bNode, *aNode
	aNode.redirect(a, b)
	bNode.redirect(b, a)

	tree.attach(a, aNode.parent, bSide)
	tree.attach(b, bNode.parent, aSide)
	tree.adoptChildren(a)
	tree.adoptChildren(b)

	tree.stats.Swaps++
}

// attach writes nodeIdx into the slot dir of parent, or the root slot.
func (tree *Tree) attach(nodeIdx, parent NodeID, dir Dir) {
	if parent == Nil {
		tree.root = nodeIdx

		return
	}

	tree.node(parent).setChild(dir, nodeIdx)
}

func (tree *Tree) adoptChildren(nodeIdx NodeID) {
	nd := tree.node(nodeIdx)

	if nd.left != Nil {
		tree.node(nd.left).parent = nodeIdx
	}

	if nd.right != Nil {
		tree.node(nd.right).parent = nodeIdx
	}
}
