package protoarray

import "github.com/prysmaticlabs/protoarray/consensus-types/primitives"

// NonExistentNode is the sentinel index used for any of a node's parent,
// best-child, or best-descendant pointers when no such node exists. It is
// the maximum representable uint64 so that it can never collide with a
// legitimate arena index.
const NonExistentNode = ^uint64(0)

// Node is a single element of the proto-array arena. It is never mutated
// after insertion except for weight, depth, the two descendant cursors, and
// (during prune-driven renumbering only) parent. All cross-references are
// indices into the owning Store's nodes slice, never pointers: this keeps
// the tree copyable, free of reference cycles, and cheap to walk.
type Node struct {
	slot           primitives.Slot
	root           [32]byte
	parentRoot     [32]byte
	stateRoot      [32]byte
	justifiedEpoch primitives.Epoch
	finalizedEpoch primitives.Epoch
	weight         uint64

	parent         uint64
	bestChild      uint64
	bestDescendant uint64

	// depth is one more than the best child's depth, recorded whenever
	// updateBestChildAndDescendant sets or refreshes the best child (0 for a
	// node that never had one). It follows the best-child path, not the
	// longest descendant chain, and is left as is when the best child is
	// cleared. It is maintained as a diagnostic only; head lookup never
	// reads it.
	depth uint64
}

// viableForHead reports whether n's justified/finalized epoch view agrees
// with the store's, the rule that filters a node out of head consideration.
// Genesis is special-cased: while the store's finalized epoch is still 0,
// any node's finalized epoch is accepted (consensus-compatibility quirk
// mirrored from the source implementation).
func (n *Node) viableForHead(justifiedEpoch, finalizedEpoch primitives.Epoch) bool {
	justified := n.justifiedEpoch == justifiedEpoch
	finalized := finalizedEpoch == 0 || n.finalizedEpoch == finalizedEpoch
	return justified && finalized
}

// Slot returns the node's block slot.
func (n *Node) Slot() primitives.Slot { return n.slot }

// Root returns the node's block root.
func (n *Node) Root() [32]byte { return n.root }

// ParentRoot returns the node's parent block root.
func (n *Node) ParentRoot() [32]byte { return n.parentRoot }

// Weight returns the node's accumulated vote weight.
func (n *Node) Weight() uint64 { return n.weight }

// JustifiedEpoch returns the justified epoch recorded for this node.
func (n *Node) JustifiedEpoch() primitives.Epoch { return n.justifiedEpoch }

// FinalizedEpoch returns the finalized epoch recorded for this node.
func (n *Node) FinalizedEpoch() primitives.Epoch { return n.finalizedEpoch }

func copyNode(n *Node) *Node {
	if n == nil {
		return nil
	}
	copied := *n
	return &copied
}
