package forkchoice

import (
	"context"

	"github.com/prysmaticlabs/protoarray/beacon-chain/forkchoice/protoarray"
	"github.com/prysmaticlabs/protoarray/consensus-types/primitives"
)

// ReadOnlyForkChoice exposes only the Getter surface of a ForkChoicer, so it
// can be handed to a caller that must never be allowed to mutate the store
// directly. It adds no locking of its own: every Getter method it wraps
// already locks the underlying store for the single call it serves, so
// locking again here would recurse on the same non-reentrant sync.RWMutex
// and deadlock the moment a writer queued between the two RLocks.
type ReadOnlyForkChoice struct {
	g Getter
}

// NewROForkChoice wraps any Getter (*protoarray.ForkChoice satisfies it)
// into a read-only façade.
func NewROForkChoice(f Getter) *ReadOnlyForkChoice {
	return &ReadOnlyForkChoice{g: f}
}

func (ro *ReadOnlyForkChoice) HasNode(root [32]byte) bool {
	return ro.g.HasNode(root)
}

func (ro *ReadOnlyForkChoice) HasParent(root [32]byte) bool {
	return ro.g.HasParent(root)
}

func (ro *ReadOnlyForkChoice) Node(root [32]byte) *protoarray.Node {
	return ro.g.Node(root)
}

func (ro *ReadOnlyForkChoice) Nodes() []*protoarray.Node {
	return ro.g.Nodes()
}

func (ro *ReadOnlyForkChoice) Weight(root [32]byte) (uint64, error) {
	return ro.g.Weight(root)
}

func (ro *ReadOnlyForkChoice) NodeCount() int {
	return ro.g.NodeCount()
}

func (ro *ReadOnlyForkChoice) AncestorRoot(ctx context.Context, root [32]byte, slot primitives.Slot) ([32]byte, error) {
	return ro.g.AncestorRoot(ctx, root, slot)
}

func (ro *ReadOnlyForkChoice) CommonAncestor(ctx context.Context, root1, root2 [32]byte) ([32]byte, primitives.Slot, error) {
	return ro.g.CommonAncestor(ctx, root1, root2)
}

func (ro *ReadOnlyForkChoice) JustifiedCheckpoint() (primitives.Epoch, [32]byte) {
	return ro.g.JustifiedCheckpoint()
}

func (ro *ReadOnlyForkChoice) FinalizedCheckpoint() (primitives.Epoch, [32]byte) {
	return ro.g.FinalizedCheckpoint()
}
