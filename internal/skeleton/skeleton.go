package skeleton

import "iter"

// Node is a joint in the skeleton tree. A parent exclusively owns its
// children; the tree is acyclic and single-rooted.
type Node struct {
	Name     string        `json:"name"`
	Offset   [3]float64    `json:"offset"`
	Channels []ChannelKind `json:"channels,omitempty"`
	Children []*Node       `json:"children,omitempty"`

	// EndSites are the terminal limb-tip markers declared under this joint.
	// They carry no channels and are deliberately not part of Children, so
	// traversal and channel accounting see joints only.
	EndSites []EndSite `json:"end_sites,omitempty"`
}

// EndSite marks the tip of a chain. Only its rest-pose offset survives
// parsing.
type EndSite struct {
	Offset [3]float64 `json:"offset"`
}

// All returns a restartable pre-order sequence over the subtree rooted at n:
// the node itself, then each child's subtree in declaration order.
func (n *Node) All() iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		n.walk(yield)
	}
}

func (n *Node) walk(yield func(*Node) bool) bool {
	if !yield(n) {
		return false
	}
	for _, c := range n.Children {
		if !c.walk(yield) {
			return false
		}
	}
	return true
}

// Find returns the first node in pre-order whose name matches, or nil.
func (n *Node) Find(name string) *Node {
	for node := range n.All() {
		if node.Name == name {
			return node
		}
	}
	return nil
}

// TotalChannels is the depth-first sum of channel counts over the subtree.
// It fixes the length and ordering of a document's flat curve array.
func (n *Node) TotalChannels() int {
	total := 0
	for node := range n.All() {
		total += len(node.Channels)
	}
	return total
}
