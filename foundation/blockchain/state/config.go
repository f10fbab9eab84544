// Package state implements the block-validating state-transition engine:
// the Transaction Validator (§4.3-4.4) and the State Transition Engine
// (§4.5-4.6) that together decide whether a candidate block is admissible
// and, if so, produce the successor world state.
package state

import (
	"math/big"

	"github.com/chainforge/chainstate/foundation/blockchain/contract"
	"github.com/chainforge/chainstate/foundation/blockchain/genesis"
	"github.com/chainforge/chainstate/foundation/blockchain/storage"
)

// Config carries the chain-wide constants spec.md §6 calls "configuration
// constants": the coinbase reward, the per-block cap on contract gas, and
// the minimum gas a transaction must offer to be considered.
type Config struct {
	BlockReward   *big.Int
	BlockGasLimit *big.Int
	MinTxGas      *big.Int
}

// ConfigFromGenesis parses a loaded genesis file into a Config.
func ConfigFromGenesis(g genesis.Genesis) (Config, error) {
	reward, err := g.BlockRewardBig()
	if err != nil {
		return Config{}, err
	}

	gasLimit, err := g.BlockGasLimitBig()
	if err != nil {
		return Config{}, err
	}

	minGas, err := g.MinTxGasBig()
	if err != nil {
		return Config{}, err
	}

	return Config{
		BlockReward:   reward,
		BlockGasLimit: gasLimit,
		MinTxGas:      minGas,
	}, nil
}

// State is the engine: the persistent account and code stores it validates
// blocks against, the per-account storage opener, the contract runtime it
// delegates to, and the chain constants it enforces.
type State struct {
	cfg       Config
	accounts  *storage.AccountStore
	codes     *storage.CodeStore
	opener    storage.Opener
	dataRoot  string
	runtime   contract.Runtime
	evHandler func(v string, args ...any)
}

// New constructs a State engine wired to its stores and runtime. evHandler
// may be nil, in which case rejection reasons are simply not logged.
func New(cfg Config, accounts *storage.AccountStore, codes *storage.CodeStore, opener storage.Opener, dataRoot string, runtime contract.Runtime, evHandler func(v string, args ...any)) *State {
	if evHandler == nil {
		evHandler = func(v string, args ...any) {}
	}

	return &State{
		cfg:       cfg,
		accounts:  accounts,
		codes:     codes,
		opener:    opener,
		dataRoot:  dataRoot,
		runtime:   runtime,
		evHandler: evHandler,
	}
}
