package scenario

// Builtin returns the demonstration script: a mixed build, deletions that hit
// every fixup case, absent and duplicate keys, and a drain down to the empty tree.
func Builtin() *Document {
	return &Document{
		Name:        "demo",
		Description: "insert, delete, re-insert and drain a small integer tree",
		Steps: []Step{
			{Op: OpInsert, Keys: []int{10, 20, 30, 15, 25, 5, 1, 8, 7}, Note: "initial build"},
			{Op: OpExpect, Keys: []int{1, 5, 7, 8, 10, 15, 20, 25, 30}},
			{Op: OpVerify},
			{Op: OpDump, Note: "after initial build"},
			{Op: OpDelete, Keys: []int{1, 7, 10, 20, 15}, Note: "leaves and inner nodes"},
			{Op: OpExpect, Keys: []int{5, 8, 25, 30}},
			{Op: OpVerify},
			{Op: OpDump, Note: "after first deletions"},
			{Op: OpInsert, Keys: []int{50, 40, 60, 55, 65, 35, 45}, Note: "regrow"},
			{Op: OpExpect, Keys: []int{5, 8, 25, 30, 35, 40, 45, 50, 55, 60, 65}},
			{Op: OpVerify},
			{Op: OpDelete, Keys: []int{50, 40}},
			{Op: OpExpect, Keys: []int{5, 8, 25, 30, 35, 45, 55, 60, 65}},
			{Op: OpDelete, Keys: []int{999}, Note: "absent key leaves the tree untouched"},
			{Op: OpExpect, Keys: []int{5, 8, 25, 30, 35, 45, 55, 60, 65}},
			{Op: OpInsert, Keys: []int{45, 55}, Note: "duplicates are rejected"},
			{Op: OpExpect, Keys: []int{5, 8, 25, 30, 35, 45, 55, 60, 65}},
			{Op: OpDelete, Keys: []int{45, 55}},
			{Op: OpExpect, Keys: []int{5, 8, 25, 30, 35, 60, 65}},
			{Op: OpVerify},
			{Op: OpDump, Note: "before drain"},
			{Op: OpDrain, Note: "delete the root until nothing is left"},
			{Op: OpEmpty},
		},
	}
}
