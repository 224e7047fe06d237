package protoarray

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/prysmaticlabs/protoarray/beacon-chain/forkchoice/types"
	"github.com/prysmaticlabs/protoarray/consensus-types/primitives"
	"go.opencensus.io/trace"
)

// defaultPruneThreshold is the minimal number of block nodes that must be
// shiftable before onFinalizedRoot actually compacts the arena.
const defaultPruneThreshold = 256

// Store is the node arena: a dense, append-only sequence of block nodes
// plus the root-to-index map that is its only other index structure. All
// parent/best-child/best-descendant cross-references inside the arena are
// small integers, never pointers, so the whole structure is trivially
// copyable and free of reference cycles.
type Store struct {
	nodesLock sync.RWMutex

	nodes        []*Node
	nodesIndices map[[32]byte]uint64

	justifiedCheckpoint *types.Checkpoint
	finalizedCheckpoint *types.Checkpoint

	pruneThreshold uint64

	// lastHeadRoot is used for reorg-detection metrics only: headLocked
	// compares against it and never relies on it for correctness. It lives
	// on the Store, not as a package var, so independent Store instances
	// (parallel tests, multiple chains in one process) never share it, and
	// it is only ever touched while the write lock is held.
	lastHeadRoot [32]byte
}

// newStore builds the arena with its single initial node: the finalized
// block the caller is bootstrapping from.
func newStore(justifiedEpoch, finalizedEpoch primitives.Epoch, finalizedRoot [32]byte, finalizedSlot primitives.Slot, stateRoot [32]byte) *Store {
	s := &Store{
		nodes:               make([]*Node, 0, 1),
		nodesIndices:        make(map[[32]byte]uint64),
		justifiedCheckpoint: &types.Checkpoint{Epoch: justifiedEpoch, Root: finalizedRoot},
		finalizedCheckpoint: &types.Checkpoint{Epoch: finalizedEpoch, Root: finalizedRoot},
		pruneThreshold:      defaultPruneThreshold,
	}
	s.nodes = append(s.nodes, &Node{
		slot:           finalizedSlot,
		root:           finalizedRoot,
		stateRoot:      stateRoot,
		justifiedEpoch: justifiedEpoch,
		finalizedEpoch: finalizedEpoch,
		parent:         NonExistentNode,
		bestChild:      NonExistentNode,
		bestDescendant: NonExistentNode,
	})
	s.nodesIndices[finalizedRoot] = 0
	nodeCount.Set(1)
	return s
}

// insert adds a new block node to the arena. Duplicate roots are silently
// absorbed: a second onBlock call for an already-known root is a no-op, not
// an error.
func (s *Store) insert(ctx context.Context, slot primitives.Slot, root, parentRoot, stateRoot [32]byte, justifiedEpoch, finalizedEpoch primitives.Epoch) error {
	ctx, span := trace.StartSpan(ctx, "protoArray.insert")
	defer span.End()

	s.nodesLock.Lock()
	defer s.nodesLock.Unlock()

	if _, ok := s.nodesIndices[root]; ok {
		return nil
	}

	index := uint64(len(s.nodes))
	parentIndex, hasParent := s.nodesIndices[parentRoot]
	if !hasParent {
		parentIndex = NonExistentNode
	}

	n := &Node{
		slot:           slot,
		root:           root,
		parentRoot:     parentRoot,
		stateRoot:      stateRoot,
		justifiedEpoch: justifiedEpoch,
		finalizedEpoch: finalizedEpoch,
		parent:         parentIndex,
		bestChild:      NonExistentNode,
		bestDescendant: NonExistentNode,
	}

	s.nodes = append(s.nodes, n)
	s.nodesIndices[root] = index
	nodeCount.Set(float64(len(s.nodes)))

	if err := s.updateBestChildAndDescendant(parentIndex, index); err != nil {
		return errors.Wrapf(err, "could not update best child/descendant of parent %d for new node %d", parentIndex, index)
	}

	return ctx.Err()
}

// applyWeightChanges acquires the write lock and delegates to
// applyWeightChangesLocked. Provided for callers (and tests) that are not
// already holding the lock as part of a larger critical section.
func (s *Store) applyWeightChanges(ctx context.Context, justifiedEpoch, finalizedEpoch primitives.Epoch, deltas []int) error {
	s.nodesLock.Lock()
	defer s.nodesLock.Unlock()
	return s.applyWeightChangesLocked(ctx, justifiedEpoch, finalizedEpoch, deltas)
}

// applyWeightChangesLocked iterates the arena in reverse insertion order,
// folding each node's delta into its weight and propagating the raw delta
// to its parent before that parent is itself visited. A second reverse pass
// then updates each parent's best child and best descendant, so siblings are
// compared on their final weights and a node's subtree is fully settled
// before its parent is processed. The caller must already hold s.nodesLock
// for writing.
func (s *Store) applyWeightChangesLocked(ctx context.Context, justifiedEpoch, finalizedEpoch primitives.Epoch, deltas []int) error {
	_, span := trace.StartSpan(ctx, "protoArray.applyWeightChanges")
	defer span.End()

	if len(deltas) != len(s.nodes) {
		return errInvalidDeltaLength
	}

	if justifiedEpoch != s.justifiedCheckpoint.Epoch {
		s.justifiedCheckpoint.Epoch = justifiedEpoch
	}
	if finalizedEpoch != s.finalizedCheckpoint.Epoch {
		s.finalizedCheckpoint.Epoch = finalizedEpoch
	}

	for i := len(s.nodes) - 1; i >= 0; i-- {
		n := s.nodes[i]
		delta := deltas[i]
		if delta < 0 {
			if uint64(-delta) > n.weight {
				return errors.Wrapf(errInvalidDeltaOverflow, "node %d has weight %d, delta %d", i, n.weight, delta)
			}
			n.weight -= uint64(-delta)
		} else {
			n.weight += uint64(delta)
		}

		if n.parent == NonExistentNode {
			continue
		}

		deltas[n.parent] += delta
	}

	for i := len(s.nodes) - 1; i >= 0; i-- {
		n := s.nodes[i]
		if n.parent == NonExistentNode {
			continue
		}
		if err := s.updateBestChildAndDescendant(n.parent, uint64(i)); err != nil {
			return errors.Wrapf(err, "could not update best child/descendant of parent %d", n.parent)
		}
	}

	return nil
}

// updateBestChildAndDescendant decides, for the given parent/child pair,
// whether child should become the parent's best child and whether the
// parent's best-descendant pointer should move. If child is already the
// best child, it stays (with its best descendant refreshed) while it leads
// to a viable head and is cleared otherwise. If another child is the best
// child, child replaces it when child leads to a viable head and the current
// best child does not, or when both do and isChildBetter prefers child. With
// no best child yet, child is taken if it leads to a viable head.
func (s *Store) updateBestChildAndDescendant(parentIndex, childIndex uint64) error {
	if parentIndex == NonExistentNode {
		return nil
	}
	if parentIndex >= uint64(len(s.nodes)) {
		return errInvalidNodeIndex
	}
	if childIndex >= uint64(len(s.nodes)) {
		return errInvalidNodeIndex
	}

	parent := s.nodes[parentIndex]
	child := s.nodes[childIndex]

	childLeadsToViableHead, err := s.leadsToViableHead(child)
	if err != nil {
		return err
	}

	if parent.bestChild != NonExistentNode {
		if parent.bestChild == childIndex {
			if childLeadsToViableHead {
				parent.bestChild = childIndex
				parent.bestDescendant = bestDescendantOf(child, childIndex)
				parent.depth = child.depth + 1
			} else {
				parent.bestChild = NonExistentNode
				parent.bestDescendant = NonExistentNode
			}
			return nil
		}

		bestChild := s.nodes[parent.bestChild]
		bestChildLeadsToViableHead, err := s.leadsToViableHead(bestChild)
		if err != nil {
			return err
		}

		switch {
		case childLeadsToViableHead && !bestChildLeadsToViableHead:
			parent.bestChild = childIndex
			parent.bestDescendant = bestDescendantOf(child, childIndex)
			parent.depth = child.depth + 1
		case childLeadsToViableHead && bestChildLeadsToViableHead:
			if isChildBetter(child, childIndex, bestChild, parent.bestChild) {
				parent.bestChild = childIndex
				parent.bestDescendant = bestDescendantOf(child, childIndex)
				parent.depth = child.depth + 1
			}
		}
		// Neither branch fires when child does not lead to a viable head
		// and the current best child does: keep the existing best child.
		return nil
	}

	if childLeadsToViableHead {
		parent.bestChild = childIndex
		parent.bestDescendant = bestDescendantOf(child, childIndex)
		parent.depth = child.depth + 1
	}
	return nil
}

func bestDescendantOf(child *Node, childIndex uint64) uint64 {
	if child.bestDescendant == NonExistentNode {
		return childIndex
	}
	return child.bestDescendant
}

// isChildBetter breaks ties by weight, then by lexicographically larger
// root, the deterministic tie-break every implementation must agree on to
// converge on the same head.
func isChildBetter(child *Node, childIndex uint64, bestChild *Node, bestChildIndex uint64) bool {
	if child.weight != bestChild.weight {
		return child.weight > bestChild.weight
	}
	return rootGreater(child.root, bestChild.root)
}

func rootGreater(a, b [32]byte) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] > b[i]
		}
	}
	return false
}

// leadsToViableHead reports whether n's own best descendant (or n itself,
// if it has none) is viable for head under the store's current justified
// and finalized epoch view.
func (s *Store) leadsToViableHead(n *Node) (bool, error) {
	best := n
	if n.bestDescendant != NonExistentNode {
		if n.bestDescendant >= uint64(len(s.nodes)) {
			return false, errInvalidNodeIndex
		}
		best = s.nodes[n.bestDescendant]
	}
	return s.viableForHead(best), nil
}

func (s *Store) viableForHead(n *Node) bool {
	return n.viableForHead(s.justifiedCheckpoint.Epoch, s.finalizedCheckpoint.Epoch)
}

// head acquires the write lock and delegates to headLocked. Provided for
// callers (and tests) that are not already holding the lock as part of a
// larger critical section. It needs the write lock, not a read lock,
// because it updates lastHeadRoot and the reorg counter as a side effect.
func (s *Store) head(ctx context.Context) ([32]byte, error) {
	s.nodesLock.Lock()
	defer s.nodesLock.Unlock()
	return s.headLocked(ctx)
}

// headLocked resolves the current head root by looking up justifiedRoot,
// then following its bestDescendant pointer (or itself, if absent) to the
// tip of the heaviest viable chain. The caller must already hold
// s.nodesLock for writing.
func (s *Store) headLocked(ctx context.Context) ([32]byte, error) {
	_, span := trace.StartSpan(ctx, "protoArray.head")
	defer span.End()

	justifiedRoot := s.justifiedCheckpoint.Root
	justifiedIndex, ok := s.nodesIndices[justifiedRoot]
	if !ok {
		return [32]byte{}, errUnknownJustifiedRoot
	}
	if justifiedIndex >= uint64(len(s.nodes)) {
		return [32]byte{}, errors.Wrap(errInvalidNodeIndex, "invalid justified index")
	}

	bestDescendantIndex := justifiedIndex
	if s.nodes[justifiedIndex].bestDescendant != NonExistentNode {
		bestDescendantIndex = s.nodes[justifiedIndex].bestDescendant
	}
	if bestDescendantIndex >= uint64(len(s.nodes)) {
		return [32]byte{}, errors.Wrap(errInvalidNodeIndex, "invalid best descendant index")
	}

	best := s.nodes[bestDescendantIndex]
	if !s.viableForHead(best) {
		return [32]byte{}, errInvalidBestDescendant
	}

	if ctx.Err() != nil {
		return [32]byte{}, ctx.Err()
	}

	if best.root != s.lastHeadRoot {
		reorgCount.Inc()
		s.lastHeadRoot = best.root
	}

	return best.root, nil
}

// prune drops every node that is not the finalized root or one of its
// descendants, then shifts the survivors down so the finalized root lands
// at index 0. It is an amortized operation: below pruneThreshold it is a
// no-op.
func (s *Store) prune(ctx context.Context) error {
	ctx, span := trace.StartSpan(ctx, "protoArray.prune")
	defer span.End()

	s.nodesLock.Lock()
	defer s.nodesLock.Unlock()

	finalizedRoot := s.finalizedCheckpoint.Root
	finalizedIndex, ok := s.nodesIndices[finalizedRoot]
	if !ok {
		return errUnknownFinalizedRoot
	}

	if finalizedIndex < s.pruneThreshold {
		return nil
	}

	canonicalIndices := make(map[uint64]bool, len(s.nodes)-int(finalizedIndex))
	canonicalIndices[finalizedIndex] = true
	for i := finalizedIndex + 1; i < uint64(len(s.nodes)); i++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		n := s.nodes[i]
		if n.parent != NonExistentNode && canonicalIndices[n.parent] {
			canonicalIndices[i] = true
		}
	}

	newNodes := make([]*Node, 0, len(canonicalIndices))
	newIndices := make(map[[32]byte]uint64, len(canonicalIndices))
	oldToNew := make(map[uint64]uint64, len(canonicalIndices))

	for i := finalizedIndex; i < uint64(len(s.nodes)); i++ {
		if !canonicalIndices[i] {
			continue
		}
		n := s.nodes[i]
		newIndex := uint64(len(newNodes))
		oldToNew[i] = newIndex
		newNodes = append(newNodes, n)
		newIndices[n.root] = newIndex
	}

	for _, n := range newNodes {
		n.parent = remapIndex(n.parent, oldToNew)
		n.bestChild = remapIndex(n.bestChild, oldToNew)
		n.bestDescendant = remapIndex(n.bestDescendant, oldToNew)
	}
	newNodes[0].parent = NonExistentNode

	s.nodes = newNodes
	s.nodesIndices = newIndices
	nodeCount.Set(float64(len(s.nodes)))

	return nil
}

func remapIndex(old uint64, oldToNew map[uint64]uint64) uint64 {
	if old == NonExistentNode {
		return NonExistentNode
	}
	if newIndex, ok := oldToNew[old]; ok {
		return newIndex
	}
	return NonExistentNode
}
