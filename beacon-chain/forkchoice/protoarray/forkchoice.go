package protoarray

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/prysmaticlabs/protoarray/consensus-types/primitives"
	"go.opencensus.io/trace"
)

// ForkChoice pairs the node arena (Store) with the per-validator vote
// table. It is the concrete implementation of forkchoice.ForkChoicer:
// everything a caller needs to track the canonical chain and fold in new
// attestations lives behind this one value.
type ForkChoice struct {
	store *Store

	votesLock sync.RWMutex
	votes     []Vote
	balances  []uint64
}

// New constructs a ForkChoice bootstrapped from a single finalized block.
func New(justifiedEpoch, finalizedEpoch primitives.Epoch, finalizedRoot [32]byte, finalizedSlot primitives.Slot, finalizedStateRoot [32]byte) *ForkChoice {
	return &ForkChoice{
		store: newStore(justifiedEpoch, finalizedEpoch, finalizedRoot, finalizedSlot, finalizedStateRoot),
	}
}

// InsertNode adds a new block to the arena. See Store.insert.
func (f *ForkChoice) InsertNode(ctx context.Context, slot primitives.Slot, root, parentRoot, stateRoot [32]byte, justifiedEpoch, finalizedEpoch primitives.Epoch) error {
	ctx, span := trace.StartSpan(ctx, "protoArrayForkChoice.InsertNode")
	defer span.End()
	return f.store.insert(ctx, slot, root, parentRoot, stateRoot, justifiedEpoch, finalizedEpoch)
}

// ProcessAttestation folds a batch of validator indices' votes toward a
// shared target root/epoch into the vote table. The weight delta this
// produces is not applied to the arena until the next Head call: votes
// accumulate lazily, and Head is where computeDeltas actually runs.
func (f *ForkChoice) ProcessAttestation(ctx context.Context, validatorIndices []primitives.ValidatorIndex, targetRoot [32]byte, targetEpoch primitives.Epoch) {
	_, span := trace.StartSpan(ctx, "protoArrayForkChoice.ProcessAttestation")
	defer span.End()

	f.votesLock.Lock()
	defer f.votesLock.Unlock()

	for _, validatorIndex := range validatorIndices {
		f.votes = ensureVoteLength(f.votes, validatorIndex)
		vote := f.votes[validatorIndex]

		// Monotone-epoch rule: a validator's recorded target only moves
		// forward. A replayed or stale attestation for an epoch at or
		// behind the one already recorded is dropped.
		if targetEpoch <= vote.nextEpoch && vote.nextRoot != [32]byte{} {
			continue
		}

		f.votes[validatorIndex].nextRoot = targetRoot
		f.votes[validatorIndex].nextEpoch = targetEpoch
	}

	processedAttestationCount.Inc()
}

// Head applies the accumulated vote deltas to the arena and returns the
// resulting head root. newBalances is the full current effective-balance
// vector; the previously-applied vector is retained internally so only the
// validators whose vote or balance actually changed contribute a delta.
//
// The arena's write lock is held for the entire compute-deltas/apply/find
// sequence, not released between steps: computeDeltas reads the same
// nodesIndices map that InsertNode mutates in place, and applyWeightChanges
// and head must see a consistent arena. Internally this calls the *Locked
// variants directly rather than the lock-acquiring exported methods, since
// sync.RWMutex is not reentrant.
func (f *ForkChoice) Head(ctx context.Context, justifiedEpoch, finalizedEpoch primitives.Epoch, newBalances []uint64) ([32]byte, error) {
	ctx, span := trace.StartSpan(ctx, "protoArrayForkChoice.Head")
	defer span.End()

	f.store.nodesLock.Lock()
	defer f.store.nodesLock.Unlock()

	f.votesLock.Lock()
	deltas, newVotes, err := computeDeltas(ctx, f.store.nodesIndices, f.votes, f.balances, newBalances)
	if err != nil {
		f.votesLock.Unlock()
		return [32]byte{}, errors.Wrap(err, "could not compute deltas")
	}
	f.votes = newVotes
	f.balances = newBalances
	f.votesLock.Unlock()

	if err := f.store.applyWeightChangesLocked(ctx, justifiedEpoch, finalizedEpoch, deltas); err != nil {
		if errors.Is(err, errInvalidDeltaOverflow) {
			log.WithError(err).Error("delta overflow applying vote weights")
		}
		return [32]byte{}, errors.Wrap(err, "could not apply weight changes")
	}

	calledHeadCount.Inc()

	root, err := f.store.headLocked(ctx)
	if err != nil {
		return [32]byte{}, errors.Wrap(err, "could not compute head")
	}
	return root, nil
}

// Prune removes every node that is not the finalized root or one of its
// descendants. See Store.prune.
func (f *ForkChoice) Prune(ctx context.Context) error {
	ctx, span := trace.StartSpan(ctx, "protoArrayForkChoice.Prune")
	defer span.End()
	return f.store.prune(ctx)
}

// UpdateJustifiedCheckpoint overwrites the store's justified checkpoint.
func (f *ForkChoice) UpdateJustifiedCheckpoint(_ context.Context, epoch primitives.Epoch, root [32]byte) {
	f.store.nodesLock.Lock()
	defer f.store.nodesLock.Unlock()
	f.store.justifiedCheckpoint.Epoch = epoch
	f.store.justifiedCheckpoint.Root = root
}

// UpdateFinalizedCheckpoint overwrites the store's finalized checkpoint.
func (f *ForkChoice) UpdateFinalizedCheckpoint(_ context.Context, epoch primitives.Epoch, root [32]byte) {
	f.store.nodesLock.Lock()
	defer f.store.nodesLock.Unlock()
	f.store.finalizedCheckpoint.Epoch = epoch
	f.store.finalizedCheckpoint.Root = root
}

// HasNode, HasParent, Node, Nodes, Weight, NodeCount, AncestorRoot,
// CommonAncestor, JustifiedCheckpoint, FinalizedCheckpoint delegate to the
// underlying Store and satisfy forkchoice.Getter.

func (f *ForkChoice) HasNode(root [32]byte) bool { return f.store.HasNode(root) }
func (f *ForkChoice) HasParent(root [32]byte) bool { return f.store.HasParent(root) }
func (f *ForkChoice) Node(root [32]byte) *Node { return f.store.Node(root) }
func (f *ForkChoice) Nodes() []*Node { return f.store.Nodes() }
func (f *ForkChoice) Weight(root [32]byte) (uint64, error) { return f.store.Weight(root) }
func (f *ForkChoice) NodeCount() int { return f.store.NodeCount() }

func (f *ForkChoice) AncestorRoot(ctx context.Context, root [32]byte, slot primitives.Slot) ([32]byte, error) {
	return f.store.AncestorRoot(ctx, root, slot)
}

func (f *ForkChoice) CommonAncestor(ctx context.Context, root1, root2 [32]byte) ([32]byte, primitives.Slot, error) {
	return f.store.CommonAncestor(ctx, root1, root2)
}

func (f *ForkChoice) JustifiedCheckpoint() (primitives.Epoch, [32]byte) {
	cp := f.store.JustifiedCheckpoint()
	return cp.Epoch, cp.Root
}

func (f *ForkChoice) FinalizedCheckpoint() (primitives.Epoch, [32]byte) {
	cp := f.store.FinalizedCheckpoint()
	return cp.Epoch, cp.Root
}
