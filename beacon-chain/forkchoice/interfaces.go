package forkchoice

import (
	"context"

	"github.com/prysmaticlabs/protoarray/beacon-chain/forkchoice/protoarray"
	"github.com/prysmaticlabs/protoarray/consensus-types/primitives"
)

// Getter is every read-only query the proto-array store answers. Every
// method here already locks the underlying store for the duration of the
// single call it serves (see protoarray.Store's reader methods) and
// returns a value, never a reference into the store's internal state. It
// is the surface a caller can safely hold onto without also holding
// mutation rights: NewROForkChoice hands exactly this out to RPC handlers
// and metrics scrapers, with no locking of its own layered on top.
type Getter interface {
	HasNode(root [32]byte) bool
	HasParent(root [32]byte) bool
	Node(root [32]byte) *protoarray.Node
	Nodes() []*protoarray.Node
	Weight(root [32]byte) (uint64, error)
	NodeCount() int
	AncestorRoot(ctx context.Context, root [32]byte, slot primitives.Slot) ([32]byte, error)
	CommonAncestor(ctx context.Context, root1, root2 [32]byte) ([32]byte, primitives.Slot, error)
	JustifiedCheckpoint() (primitives.Epoch, [32]byte)
	FinalizedCheckpoint() (primitives.Epoch, [32]byte)
}

// Setter is every mutator the proto-array store exposes.
type Setter interface {
	InsertNode(ctx context.Context, slot primitives.Slot, root, parentRoot, stateRoot [32]byte, justifiedEpoch, finalizedEpoch primitives.Epoch) error
	ProcessAttestation(ctx context.Context, validatorIndices []primitives.ValidatorIndex, targetRoot [32]byte, targetEpoch primitives.Epoch)
	Head(ctx context.Context, justifiedEpoch, finalizedEpoch primitives.Epoch, newBalances []uint64) ([32]byte, error)
	Prune(ctx context.Context) error
	UpdateJustifiedCheckpoint(ctx context.Context, epoch primitives.Epoch, root [32]byte)
	UpdateFinalizedCheckpoint(ctx context.Context, epoch primitives.Epoch, root [32]byte)
}

// ForkChoicer is the full interface implemented by *protoarray.ForkChoice:
// every reader plus every mutator.
type ForkChoicer interface {
	Getter
	Setter
}
