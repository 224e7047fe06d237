package forkchoice

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/prysmaticlabs/protoarray/beacon-chain/forkchoice/protoarray"
)

// Dump is a point-in-time snapshot of every node in the store, meant for
// operator-facing debug output or test comparisons rather than for
// anything the fork-choice algorithm itself consumes.
type Dump struct {
	Nodes []*protoarray.Node
}

// NewDump snapshots every node currently held by g. Nodes() already locks
// the store for the duration of the call and returns a defensive copy, so
// no additional locking is needed here.
func NewDump(g Getter) *Dump {
	return &Dump{Nodes: g.Nodes()}
}

// String renders the dump as a human-readable table, one line per node,
// weight formatted with thousands separators so an operator scanning a log
// doesn't have to count digits.
func (d *Dump) String() string {
	var b strings.Builder
	for _, n := range d.Nodes {
		fmt.Fprintf(&b, "slot=%d root=%x weight=%s\n", n.Slot(), n.Root(), humanize.Comma(int64(n.Weight())))
	}
	return b.String()
}
