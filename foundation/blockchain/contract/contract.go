// Package contract is the Contract Runtime Adapter (§4.7): a thin facade
// around a contract interpreter that the state engine treats as a black
// box with a defined I/O contract — code and an overlay in, an updated
// account map and storage map out.
package contract

import (
	"context"
	"math/big"

	"github.com/chainforge/chainstate/foundation/blockchain/database"
)

// Request bundles everything a contract invocation needs to run
// deterministically: the code body, the engine's current in-memory
// overlay, the contract's current storage, the gas budget this call was
// funded with, and the transaction/block context the contract executes
// under. It carries no handle to the committed stateDB; accounts absent
// from the overlay are not visible to the contract.
type Request struct {
	Code            string
	StatesOverlay   map[database.Address]database.Account
	CurrentStorage  map[string]string
	GasBudget       *big.Int
	Block           database.BlockHeader
	Tx              database.BlockTx
	Sender          database.Address
	ContractAddress database.Address
	Logging         func(v string, args ...any)
}

// Result is what a contract invocation hands back to the engine: the
// account entries it touched (merged into the overlay by the caller,
// overriding prior entries) and the complete post-call storage map for
// the invoked contract.
type Result struct {
	NewStates  map[database.Address]database.Account
	NewStorage map[string]string
}

// Runtime is the Contract Runtime Adapter's interface. Implementations
// must be deterministic given identical inputs, must not mutate
// StatesOverlay or stateDB directly, and must stop cleanly once cumulative
// cost exceeds GasBudget rather than running unbounded.
type Runtime interface {
	Run(ctx context.Context, req Request) (Result, error)
}
