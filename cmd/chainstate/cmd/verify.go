package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/chainforge/chainstate/foundation/blockchain/contract"
	"github.com/chainforge/chainstate/foundation/blockchain/database"
	"github.com/chainforge/chainstate/foundation/blockchain/genesis"
	"github.com/chainforge/chainstate/foundation/blockchain/state"
	"github.com/chainforge/chainstate/foundation/blockchain/storage"
	"github.com/chainforge/chainstate/foundation/blockchain/storage/badgerkv"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <block.json> [more-blocks.json...]",
	Short: "Validate one or more blocks against the persistent state, in order.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(_ *cobra.Command, args []string) error {
	ctx := context.Background()
	traceID := uuid.NewString()

	g, err := genesis.Load(cfg.GenesisPath)
	if err != nil {
		return fmt.Errorf("loading genesis: %w", err)
	}

	stateCfg, err := state.ConfigFromGenesis(g)
	if err != nil {
		return fmt.Errorf("deriving state config: %w", err)
	}

	accountKV, err := badgerkv.Open(filepath.Join(cfg.DataRoot, "state"))
	if err != nil {
		return fmt.Errorf("opening state store: %w", err)
	}
	defer accountKV.Close()

	codeKV, err := badgerkv.Open(filepath.Join(cfg.DataRoot, "code"))
	if err != nil {
		return fmt.Errorf("opening code store: %w", err)
	}
	defer codeKV.Close()

	accounts := storage.NewAccountStore(accountKV)
	codes := storage.NewCodeStore(codeKV)

	if err := seedGenesisBalances(ctx, accounts, g); err != nil {
		return fmt.Errorf("seeding genesis balances: %w", err)
	}

	evHandler := func(v string, a ...any) {
		log.Infow(fmt.Sprintf(v, a...), "traceid", traceID)
	}

	engine := state.New(stateCfg, accounts, codes, badgerkv.DirOpener{}, cfg.DataRoot, contract.NewJSRuntime(), evHandler)

	for _, path := range args {
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}

		var block database.Block
		if err := json.Unmarshal(raw, &block); err != nil {
			return fmt.Errorf("decoding %s: %w", path, err)
		}

		ok, err := engine.VerifyAndTransit(ctx, block)
		if err != nil {
			return fmt.Errorf("verifying %s: %w", path, err)
		}

		log.Infow("verify", "block", path, "blockNumber", block.Header.BlockNumber, "accepted", ok, "traceid", traceID)

		if !ok {
			return fmt.Errorf("block %s was rejected", path)
		}
	}

	return nil
}

// seedGenesisBalances writes every genesis balance to the account store the
// first time it is encountered, leaving any already-persisted account
// untouched.
func seedGenesisBalances(ctx context.Context, accounts *storage.AccountStore, g genesis.Genesis) error {
	for rawAddr, balStr := range g.Balances {
		addr, err := database.ToAddress(rawAddr)
		if err != nil {
			return fmt.Errorf("genesis balance key %q: %w", rawAddr, err)
		}

		if _, ok, err := accounts.Get(ctx, addr); err != nil {
			return err
		} else if ok {
			continue
		}

		bal, ok := new(big.Int).SetString(balStr, 10)
		if !ok {
			return fmt.Errorf("genesis balance for %s is not a valid decimal integer: %q", addr, balStr)
		}

		acct := database.NewAccount(addr)
		acct.Balance = bal

		if err := accounts.Put(ctx, acct); err != nil {
			return err
		}
	}

	return nil
}
