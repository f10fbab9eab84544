package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chainforge/chainstate/foundation/blockchain/genesis"
)

var genesisCmd = &cobra.Command{
	Use:   "genesis",
	Short: "Load and validate the genesis file, printing the chain constants it carries.",
	RunE:  runGenesis,
}

func init() {
	rootCmd.AddCommand(genesisCmd)
}

func runGenesis(_ *cobra.Command, _ []string) error {
	g, err := genesis.Load(cfg.GenesisPath)
	if err != nil {
		return fmt.Errorf("loading genesis: %w", err)
	}

	log.Infow("genesis",
		"date", g.Date,
		"blockReward", g.BlockReward,
		"blockGasLimit", g.BlockGasLimit,
		"minTxGas", g.MinTxGas,
		"emptyHash", g.EmptyHash,
		"accounts", len(g.Balances),
	)

	return nil
}
