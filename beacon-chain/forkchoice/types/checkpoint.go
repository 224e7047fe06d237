package types

import (
	"github.com/prysmaticlabs/protoarray/consensus-types/primitives"
)

// Checkpoint represents an epoch/root pair, used by the proto-array store to
// track the justified and finalized views currently in force.
type Checkpoint struct {
	Epoch primitives.Epoch
	Root  [32]byte
}
