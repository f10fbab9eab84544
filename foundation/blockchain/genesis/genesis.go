// Package genesis maintains access to the genesis file: the chain-wide
// constants and starting balances every node must agree on.
package genesis

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/chainforge/chainstate/foundation/blockchain/hashutil"
)

// Genesis represents the genesis file and the chain-wide constants it
// carries. These are the values spec.md §6 calls out as "configuration
// constants".
type Genesis struct {
	Date          time.Time         `json:"date"`
	BlockReward   string            `json:"block_reward"`    // bigint-string awarded to the coinbase per block.
	BlockGasLimit string            `json:"block_gas_limit"` // bigint-string cap on summed contractGas per block.
	EmptyHash     string            `json:"empty_hash"`      // must equal sha256_hex("").
	MinTxGas      string            `json:"min_tx_gas"`      // bigint-string minimum gas a transaction must offer.
	Balances      map[string]string `json:"balances"`        // address -> starting balance, bigint-string.
}

// Load opens and consumes the genesis file, validating the bigint-string
// fields parse and that EmptyHash matches the one true sentinel.
func Load(path string) (Genesis, error) {
	if path == "" {
		path = "zblock/genesis.json"
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	var g Genesis
	if err := json.Unmarshal(content, &g); err != nil {
		return Genesis{}, err
	}

	if err := g.Validate(); err != nil {
		return Genesis{}, err
	}

	return g, nil
}

// Validate checks every bigint-string field parses and that EmptyHash
// is exactly sha256_hex(""). A genesis file failing this check is a fatal
// misconfiguration, not a rejectable block.
func (g Genesis) Validate() error {
	if g.EmptyHash != hashutil.EmptyHash {
		return fmt.Errorf("genesis empty_hash %q does not match sha256_hex(\"\") %q", g.EmptyHash, hashutil.EmptyHash)
	}

	if _, err := g.BlockRewardBig(); err != nil {
		return fmt.Errorf("genesis block_reward: %w", err)
	}
	if _, err := g.BlockGasLimitBig(); err != nil {
		return fmt.Errorf("genesis block_gas_limit: %w", err)
	}
	if _, err := g.MinTxGasBig(); err != nil {
		return fmt.Errorf("genesis min_tx_gas: %w", err)
	}

	for addr, bal := range g.Balances {
		if _, ok := new(big.Int).SetString(bal, 10); !ok {
			return fmt.Errorf("genesis balance for %s is not a valid decimal integer: %q", addr, bal)
		}
	}

	return nil
}

// BlockRewardBig parses BlockReward as an arbitrary precision integer.
func (g Genesis) BlockRewardBig() (*big.Int, error) {
	return parseBigDecimal(g.BlockReward)
}

// BlockGasLimitBig parses BlockGasLimit as an arbitrary precision integer.
func (g Genesis) BlockGasLimitBig() (*big.Int, error) {
	return parseBigDecimal(g.BlockGasLimit)
}

// MinTxGasBig parses MinTxGas as an arbitrary precision integer.
func (g Genesis) MinTxGasBig() (*big.Int, error) {
	return parseBigDecimal(g.MinTxGas)
}

func parseBigDecimal(s string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("%q is not a valid decimal integer", s)
	}
	return n, nil
}
