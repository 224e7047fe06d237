// Package primitives defines the small scalar types shared across the
// fork-choice store so a slot can never be silently passed where an epoch,
// or a validator index, is expected.
package primitives

// Slot is a beacon chain slot number.
type Slot uint64

// Epoch is a beacon chain epoch number.
type Epoch uint64

// ValidatorIndex identifies a validator within the registry.
type ValidatorIndex uint64

// Gwei is an amount of Gwei. The fork-choice store keeps validator effective
// balances and accumulated vote weight as plain uint64 values, not as Gwei.
type Gwei uint64
