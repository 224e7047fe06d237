package protoarray

import (
	"context"
	"testing"

	"github.com/prysmaticlabs/protoarray/consensus-types/primitives"
	"github.com/stretchr/testify/require"
)

// indexToHash gives deterministic, distinct 32-byte roots for small test
// indices, mirroring the teacher's own test fixture helper.
func indexToHash(i uint64) [32]byte {
	var h [32]byte
	h[31] = byte(i)
	return h
}

func setup(t *testing.T, justifiedEpoch, finalizedEpoch primitives.Epoch) *Store {
	t.Helper()
	return newStore(justifiedEpoch, finalizedEpoch, indexToHash(0), 0, indexToHash(0))
}

func TestStore_InsertIsIdempotent(t *testing.T) {
	s := setup(t, 0, 0)
	ctx := context.Background()
	require.NoError(t, s.insert(ctx, 1, indexToHash(1), indexToHash(0), indexToHash(1), 0, 0))
	require.Equal(t, 2, s.NodeCount())
	require.NoError(t, s.insert(ctx, 1, indexToHash(1), indexToHash(0), indexToHash(1), 0, 0))
	require.Equal(t, 2, s.NodeCount())
}

func TestStore_LinearChain_Head(t *testing.T) {
	s := setup(t, 0, 0)
	ctx := context.Background()

	require.NoError(t, s.insert(ctx, 1, indexToHash(1), indexToHash(0), indexToHash(1), 0, 0))
	require.NoError(t, s.insert(ctx, 2, indexToHash(2), indexToHash(1), indexToHash(2), 0, 0))
	require.NoError(t, s.insert(ctx, 3, indexToHash(3), indexToHash(2), indexToHash(3), 0, 0))

	deltas := make([]int, s.NodeCount())
	require.NoError(t, s.applyWeightChanges(ctx, 0, 0, deltas))

	head, err := s.head(ctx)
	require.NoError(t, err)
	require.Equal(t, indexToHash(3), head)
}

func TestStore_ForkTieBreakByWeightThenRoot(t *testing.T) {
	s := setup(t, 0, 0)
	ctx := context.Background()

	// Two children of the finalized root: a fork.
	require.NoError(t, s.insert(ctx, 1, indexToHash(1), indexToHash(0), indexToHash(1), 0, 0))
	require.NoError(t, s.insert(ctx, 1, indexToHash(2), indexToHash(0), indexToHash(2), 0, 0))

	deltas := make([]int, s.NodeCount())
	deltas[1] = 10
	deltas[2] = 10
	require.NoError(t, s.applyWeightChanges(ctx, 0, 0, deltas))

	// Equal weight: the lexicographically larger root wins the tie-break.
	head, err := s.head(ctx)
	require.NoError(t, err)
	require.Equal(t, indexToHash(2), head)

	deltas = make([]int, s.NodeCount())
	deltas[1] = 5
	require.NoError(t, s.applyWeightChanges(ctx, 0, 0, deltas))

	head, err = s.head(ctx)
	require.NoError(t, err)
	require.Equal(t, indexToHash(1), head)
}

func TestStore_NonViableChildIsSkipped(t *testing.T) {
	s := setup(t, 0, 0)
	ctx := context.Background()

	require.NoError(t, s.insert(ctx, 1, indexToHash(1), indexToHash(0), indexToHash(1), 0, 0))
	// Child 2 carries a justified epoch that will never match the store's
	// view, so it can never be head even if it outweighs its sibling.
	require.NoError(t, s.insert(ctx, 1, indexToHash(2), indexToHash(0), indexToHash(2), 1, 0))

	deltas := make([]int, s.NodeCount())
	deltas[2] = 1000
	require.NoError(t, s.applyWeightChanges(ctx, 0, 0, deltas))

	head, err := s.head(ctx)
	require.NoError(t, err)
	require.Equal(t, indexToHash(1), head)
}

func TestStore_VoteSwingMovesHead(t *testing.T) {
	s := setup(t, 0, 0)
	ctx := context.Background()

	require.NoError(t, s.insert(ctx, 1, indexToHash(1), indexToHash(0), indexToHash(1), 0, 0))
	require.NoError(t, s.insert(ctx, 1, indexToHash(2), indexToHash(0), indexToHash(2), 0, 0))

	deltas := make([]int, s.NodeCount())
	deltas[1] = 100
	require.NoError(t, s.applyWeightChanges(ctx, 0, 0, deltas))
	head, err := s.head(ctx)
	require.NoError(t, err)
	require.Equal(t, indexToHash(1), head)

	// The vote swings entirely to root 2.
	deltas = make([]int, s.NodeCount())
	deltas[1] = -100
	deltas[2] = 101
	require.NoError(t, s.applyWeightChanges(ctx, 0, 0, deltas))
	head, err = s.head(ctx)
	require.NoError(t, err)
	require.Equal(t, indexToHash(2), head)
}

func TestStore_DeltaOverflow(t *testing.T) {
	s := setup(t, 0, 0)
	ctx := context.Background()
	require.NoError(t, s.insert(ctx, 1, indexToHash(1), indexToHash(0), indexToHash(1), 0, 0))

	deltas := make([]int, s.NodeCount())
	deltas[1] = -1
	err := s.applyWeightChanges(ctx, 0, 0, deltas)
	require.ErrorIs(t, err, errInvalidDeltaOverflow)
}

func TestStore_ApplyWeightChanges_WrongLength(t *testing.T) {
	s := setup(t, 0, 0)
	ctx := context.Background()
	err := s.applyWeightChanges(ctx, 0, 0, make([]int, 2))
	require.ErrorIs(t, err, errInvalidDeltaLength)
}

func TestStore_Head_UnknownJustifiedRoot(t *testing.T) {
	s := setup(t, 0, 0)
	ctx := context.Background()
	s.justifiedCheckpoint.Root = indexToHash(99)
	_, err := s.head(ctx)
	require.ErrorIs(t, err, errUnknownJustifiedRoot)
}

func TestStore_Prune(t *testing.T) {
	s := setup(t, 0, 0)
	ctx := context.Background()
	s.pruneThreshold = 1

	require.NoError(t, s.insert(ctx, 1, indexToHash(1), indexToHash(0), indexToHash(1), 0, 0))
	require.NoError(t, s.insert(ctx, 2, indexToHash(2), indexToHash(1), indexToHash(2), 0, 0))
	// A non-canonical sibling off root 0 that prune must drop.
	require.NoError(t, s.insert(ctx, 1, indexToHash(3), indexToHash(0), indexToHash(3), 0, 0))
	require.Equal(t, 4, s.NodeCount())

	s.finalizedCheckpoint.Root = indexToHash(1)
	require.NoError(t, s.prune(ctx))

	require.Equal(t, 2, s.NodeCount())
	require.True(t, s.HasNode(indexToHash(1)))
	require.True(t, s.HasNode(indexToHash(2)))
	require.False(t, s.HasNode(indexToHash(3)))

	root := s.Node(indexToHash(1))
	require.Equal(t, NonExistentNode, root.parent)
}

func TestStore_Prune_BelowThresholdNoOp(t *testing.T) {
	s := setup(t, 0, 0)
	ctx := context.Background()

	require.NoError(t, s.insert(ctx, 1, indexToHash(1), indexToHash(0), indexToHash(1), 0, 0))
	s.finalizedCheckpoint.Root = indexToHash(1)
	require.NoError(t, s.prune(ctx))
	require.Equal(t, 2, s.NodeCount())
}

func TestStore_AncestorRoot(t *testing.T) {
	s := setup(t, 0, 0)
	ctx := context.Background()
	require.NoError(t, s.insert(ctx, 1, indexToHash(1), indexToHash(0), indexToHash(1), 0, 0))
	require.NoError(t, s.insert(ctx, 5, indexToHash(2), indexToHash(1), indexToHash(2), 0, 0))

	got, err := s.AncestorRoot(ctx, indexToHash(2), 1)
	require.NoError(t, err)
	require.Equal(t, indexToHash(1), got)
}

func TestStore_CommonAncestor(t *testing.T) {
	s := setup(t, 0, 0)
	ctx := context.Background()
	require.NoError(t, s.insert(ctx, 1, indexToHash(1), indexToHash(0), indexToHash(1), 0, 0))
	require.NoError(t, s.insert(ctx, 2, indexToHash(2), indexToHash(1), indexToHash(2), 0, 0))
	require.NoError(t, s.insert(ctx, 2, indexToHash(3), indexToHash(1), indexToHash(3), 0, 0))

	root, slot, err := s.CommonAncestor(ctx, indexToHash(2), indexToHash(3))
	require.NoError(t, err)
	require.Equal(t, indexToHash(1), root)
	require.Equal(t, primitives.Slot(1), slot)
}

func TestStore_CommonAncestor_Unknown(t *testing.T) {
	s := setup(t, 0, 0)
	ctx := context.Background()
	_, _, err := s.CommonAncestor(ctx, indexToHash(1), indexToHash(2))
	require.ErrorIs(t, err, errUnknownCommonAncestor)
}
