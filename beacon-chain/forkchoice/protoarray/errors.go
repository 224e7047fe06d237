package protoarray

import "github.com/pkg/errors"

// These errors surface a programming or supply-chain fault: a caller handed
// the store a delta vector of the wrong length, asked for a head or prune
// anchor relative to a root the store does not hold, or the store itself
// would violate an invariant if the call were allowed to proceed. None of
// them are retryable in place; they indicate the caller must resync or fix
// its inputs.
var (
	errInvalidDeltaLength = errors.New("delta length does not match node count")
	errInvalidNodeIndex   = errors.New("node index out of range")
	errUnknownJustifiedRoot = errors.New("unknown justified root")
	errUnknownFinalizedRoot = errors.New("unknown finalized root")
	errInvalidBestDescendant = errors.New("best node is not viable for head")
	errInvalidDeltaOverflow  = errors.New("node weight underflow applying delta")
	errUnknownCommonAncestor = errors.New("unknown common ancestor")
)
