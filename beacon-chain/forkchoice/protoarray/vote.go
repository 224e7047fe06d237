package protoarray

import (
	"context"

	"github.com/prysmaticlabs/protoarray/consensus-types/primitives"
	"go.opencensus.io/trace"
)

// Vote is the most recent attestation target recorded for a single
// validator index. currentRoot is the root the validator's vote
// contributed to the arena on the last computeDeltas pass; nextRoot and
// nextEpoch are the target it has since moved to (possibly unchanged). No
// epoch is kept for the current root. computeDeltas reconciles the two
// roots and then promotes nextRoot into currentRoot.
type Vote struct {
	currentRoot [32]byte
	nextRoot    [32]byte
	nextEpoch   primitives.Epoch
}

// computeDeltas walks every validator index, compares its recorded vote
// against the newly observed one, and produces a weight delta per arena
// index. A validator is "dirty" (contributes a delta) if its target root
// changed, or if its target root stayed the same but its effective balance
// changed: moving -oldBalance off the old root and +newBalance onto the new
// one in both cases is what makes a pure balance change propagate, even
// when the root did not move at all.
func computeDeltas(
	ctx context.Context,
	nodeIndices map[[32]byte]uint64,
	votes []Vote,
	oldBalances, newBalances []uint64,
) ([]int, []Vote, error) {
	_, span := trace.StartSpan(ctx, "protoArray.computeDeltas")
	defer span.End()

	deltas := make([]int, len(nodeIndices))

	for validatorIndex := range votes {
		vote := votes[validatorIndex]

		oldBalance := uint64(0)
		newBalance := uint64(0)
		if validatorIndex < len(oldBalances) {
			oldBalance = oldBalances[validatorIndex]
		}
		if validatorIndex < len(newBalances) {
			newBalance = newBalances[validatorIndex]
		}

		if vote.currentRoot == vote.nextRoot && oldBalance == newBalance {
			continue
		}

		if oldBalance > 0 {
			if index, ok := nodeIndices[vote.currentRoot]; ok {
				if index >= uint64(len(deltas)) {
					return nil, nil, errInvalidNodeIndex
				}
				deltas[index] -= int(oldBalance)
			}
		}

		if newBalance > 0 {
			if index, ok := nodeIndices[vote.nextRoot]; ok {
				if index >= uint64(len(deltas)) {
					return nil, nil, errInvalidNodeIndex
				}
				deltas[index] += int(newBalance)
			}
		}

		votes[validatorIndex].currentRoot = vote.nextRoot
	}

	if ctx.Err() != nil {
		return nil, nil, ctx.Err()
	}

	return deltas, votes, nil
}

// ensureVoteLength grows votes so that index validatorIndex is addressable,
// padding new entries with the zero vote (both roots the zero root, which
// is never a real block root in the arena so contributes no delta).
func ensureVoteLength(votes []Vote, validatorIndex primitives.ValidatorIndex) []Vote {
	if uint64(validatorIndex) < uint64(len(votes)) {
		return votes
	}
	grown := make([]Vote, validatorIndex+1)
	copy(grown, votes)
	return grown
}
