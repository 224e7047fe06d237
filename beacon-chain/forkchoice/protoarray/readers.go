package protoarray

import (
	"context"

	"github.com/pkg/errors"
	"github.com/prysmaticlabs/protoarray/beacon-chain/forkchoice/types"
	"github.com/prysmaticlabs/protoarray/consensus-types/primitives"
)

// HasNode returns true if the store holds a node for root.
func (s *Store) HasNode(root [32]byte) bool {
	s.nodesLock.RLock()
	defer s.nodesLock.RUnlock()
	_, ok := s.nodesIndices[root]
	return ok
}

// HasParent returns true if root is known to the store and its parent root
// is also known to the store.
func (s *Store) HasParent(root [32]byte) bool {
	s.nodesLock.RLock()
	defer s.nodesLock.RUnlock()
	index, ok := s.nodesIndices[root]
	if !ok {
		return false
	}
	return s.nodes[index].parent != NonExistentNode
}

// Node returns a defensive copy of the node stored for root, if any.
func (s *Store) Node(root [32]byte) *Node {
	s.nodesLock.RLock()
	defer s.nodesLock.RUnlock()
	index, ok := s.nodesIndices[root]
	if !ok {
		return nil
	}
	return copyNode(s.nodes[index])
}

// Nodes returns a defensive copy of every node currently held by the store,
// in arena order.
func (s *Store) Nodes() []*Node {
	s.nodesLock.RLock()
	defer s.nodesLock.RUnlock()
	cp := make([]*Node, len(s.nodes))
	for i, n := range s.nodes {
		cp[i] = copyNode(n)
	}
	return cp
}

// Weight returns the weight accumulated at root.
func (s *Store) Weight(root [32]byte) (uint64, error) {
	s.nodesLock.RLock()
	defer s.nodesLock.RUnlock()
	index, ok := s.nodesIndices[root]
	if !ok {
		return 0, errUnknownJustifiedRoot
	}
	return s.nodes[index].weight, nil
}

// NodeCount returns the number of nodes currently held by the arena.
func (s *Store) NodeCount() int {
	s.nodesLock.RLock()
	defer s.nodesLock.RUnlock()
	return len(s.nodes)
}

// AncestorRoot walks root's parent chain until it reaches slot, returning
// the root found there. It returns an error if root is unknown or the chain
// runs out (reaches genesis) before slot is reached.
func (s *Store) AncestorRoot(ctx context.Context, root [32]byte, slot primitives.Slot) ([32]byte, error) {
	s.nodesLock.RLock()
	defer s.nodesLock.RUnlock()

	index, ok := s.nodesIndices[root]
	if !ok {
		return [32]byte{}, errors.Wrap(errUnknownJustifiedRoot, "ancestor root")
	}

	n := s.nodes[index]
	for n.slot > slot {
		if ctx.Err() != nil {
			return [32]byte{}, ctx.Err()
		}
		if n.parent == NonExistentNode || n.parent >= uint64(len(s.nodes)) {
			return [32]byte{}, errInvalidNodeIndex
		}
		n = s.nodes[n.parent]
	}
	return n.root, nil
}

// CommonAncestor walks both roots' parent chains back, descending the
// deeper chain first, until the same index is reached.
func (s *Store) CommonAncestor(ctx context.Context, root1, root2 [32]byte) ([32]byte, primitives.Slot, error) {
	s.nodesLock.RLock()
	defer s.nodesLock.RUnlock()

	index1, ok := s.nodesIndices[root1]
	if !ok {
		return [32]byte{}, 0, errUnknownCommonAncestor
	}
	index2, ok := s.nodesIndices[root2]
	if !ok {
		return [32]byte{}, 0, errUnknownCommonAncestor
	}

	for index1 != index2 {
		if ctx.Err() != nil {
			return [32]byte{}, 0, ctx.Err()
		}
		if index1 >= uint64(len(s.nodes)) || index2 >= uint64(len(s.nodes)) {
			return [32]byte{}, 0, errUnknownCommonAncestor
		}
		n1 := s.nodes[index1]
		n2 := s.nodes[index2]
		if n1.slot > n2.slot {
			if n1.parent == NonExistentNode {
				return [32]byte{}, 0, errUnknownCommonAncestor
			}
			index1 = n1.parent
			continue
		}
		if n2.slot > n1.slot {
			if n2.parent == NonExistentNode {
				return [32]byte{}, 0, errUnknownCommonAncestor
			}
			index2 = n2.parent
			continue
		}
		if n1.parent == NonExistentNode || n2.parent == NonExistentNode {
			return [32]byte{}, 0, errUnknownCommonAncestor
		}
		index1 = n1.parent
		index2 = n2.parent
	}

	common := s.nodes[index1]
	return common.root, common.slot, nil
}

// JustifiedCheckpoint returns the store's current justified checkpoint.
func (s *Store) JustifiedCheckpoint() *types.Checkpoint {
	s.nodesLock.RLock()
	defer s.nodesLock.RUnlock()
	cp := *s.justifiedCheckpoint
	return &cp
}

// FinalizedCheckpoint returns the store's current finalized checkpoint.
func (s *Store) FinalizedCheckpoint() *types.Checkpoint {
	s.nodesLock.RLock()
	defer s.nodesLock.RUnlock()
	cp := *s.finalizedCheckpoint
	return &cp
}
